package accounting

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var nbMonths = [...]string{
	"januar", "februar", "mars", "april", "mai", "juni",
	"juli", "august", "september", "oktober", "november", "desember",
}

var nbTitle = cases.Title(language.MustParse("nb-NO"))

// MonthLabel renders the month of from the way the dashboard heading shows
// it, e.g. "August 2025". An unparseable from falls back to "from – to".
func MonthLabel(from, to string) string {
	t, err := time.Parse("2006-01-02", from)
	if err != nil {
		return from + " – " + to
	}
	return nbTitle.String(nbMonths[t.Month()-1]) + " " + t.Format("2006")
}

// SalesSummary is the sales-account total for a window.
type SalesSummary struct {
	MonthLabel string  `json:"monthLabel"`
	TotalSales float64 `json:"totalSales"`
	Count      int     `json:"count"` // all postings in the window
}

// SumSales adds the amounts of postings whose account number is in [lo, hi].
func SumSales(postings []Posting, lo, hi int) decimal.Decimal {
	total := decimal.Zero
	for _, p := range postings {
		if n := p.Number(); n >= lo && n <= hi {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// AccountLine is a posting reduced to what the account view needs.
type AccountLine struct {
	ID     int64   `json:"id"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// AccountSummary is the absolute-amount total for a single account.
// TotalBeerSales repeats Total under the key the dashboards read.
type AccountSummary struct {
	DateFrom       string        `json:"dateFrom"`
	DateTo         string        `json:"dateTo"`
	Total          float64       `json:"total"`
	TotalBeerSales float64       `json:"totalBeerSales"`
	Count          int           `json:"count"`
	Postings       []AccountLine `json:"postings"`
}

// SumAccount filters postings to one account id and totals absolute amounts.
func SumAccount(postings []Posting, accountID int64, from, to string) AccountSummary {
	out := AccountSummary{DateFrom: from, DateTo: to, Postings: []AccountLine{}}
	total := decimal.Zero
	for _, p := range postings {
		if p.Account == nil || p.Account.ID != accountID {
			continue
		}
		out.Postings = append(out.Postings, AccountLine{ID: p.ID, Date: p.Date, Amount: p.Amount.InexactFloat64()})
		total = total.Add(p.Amount.Abs())
	}
	out.Total = total.Round(2).InexactFloat64()
	out.TotalBeerSales = out.Total
	out.Count = len(out.Postings)
	return out
}
