package revenue

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/taplab/salesdash/internal/enum"
	"github.com/taplab/salesdash/internal/pos"
)

// Item is the per-SKU aggregate.
type Item struct {
	SKU      string
	Name     string
	Revenue  decimal.Decimal
	Quantity decimal.Decimal
}

// Day is the per-business-day aggregate.
type Day struct {
	Date     string
	Revenue  decimal.Decimal
	Guests   int64
	Receipts int64
}

// Hours holds revenue per hour of day.
type Hours [24]decimal.Decimal

// Summary is the result of folding a set of transactions.
type Summary struct {
	TotalRevenue decimal.Decimal
	Count        int
	Items        map[string]Item
	Daily        map[string]Day
	HourlyByDay  map[string]Hours
}

func newSummary() Summary {
	return Summary{
		Items:       make(map[string]Item),
		Daily:       make(map[string]Day),
		HourlyByDay: make(map[string]Hours),
	}
}

// Eligible reports whether tx is a genuine sale: it has a uuid, is not a
// training entry, is a standard sale and has not been voided by another
// transaction in voided.
func Eligible(tx pos.Transaction, voided map[string]bool) bool {
	id := strings.TrimSpace(string(tx.Head.UUID))
	if id == "" || bool(tx.Head.TrainingFlag) {
		return false
	}
	if string(tx.Head.TypeCode) != enum.TransactionTypeSale {
		return false
	}
	return !voided[id]
}

// VoidedSet collects the uuids referenced as voidedTrUuid across txs.
func VoidedSet(txs []pos.Transaction) map[string]bool {
	out := make(map[string]bool)
	for _, tx := range txs {
		if id := strings.TrimSpace(string(tx.Head.VoidedTrUUID)); id != "" {
			out[id] = true
		}
	}
	return out
}

// Summarize folds txs into item, day and hour aggregates. Hours are bucketed
// in loc. The result depends only on the set of transactions, not their order.
func Summarize(txs []pos.Transaction, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}
	voided := VoidedSet(txs)
	s := newSummary()

	for _, tx := range txs {
		if !Eligible(tx, voided) {
			continue
		}
		receipt, ok := Reconcile(tx)
		if !ok {
			continue
		}
		s.add(tx, receipt, loc)
	}
	return s
}

func (s *Summary) add(tx pos.Transaction, r Receipt, loc *time.Location) {
	s.Count++
	s.TotalRevenue = s.TotalRevenue.Add(r.NetTotal)

	for _, l := range r.Lines {
		item, ok := s.Items[l.SKU]
		if !ok {
			item = Item{SKU: l.SKU}
		}
		if item.Name == "" {
			item.Name = l.Name
		}
		item.Revenue = item.Revenue.Add(l.Revenue)
		item.Quantity = item.Quantity.Add(l.Quantity)
		s.Items[l.SKU] = item
	}

	at, hasTime := transactionTime(tx.Head, loc)
	day := businessDay(tx.Head)
	if day == "" && hasTime {
		day = at.Format(dateLayout)
	}
	if day == "" {
		return
	}

	d, ok := s.Daily[day]
	if !ok {
		d = Day{Date: day}
	}
	d.Revenue = d.Revenue.Add(r.NetTotal)
	d.Receipts++
	d.Guests += tx.Head.GuestTotal()
	s.Daily[day] = d

	if hasTime {
		hours := s.HourlyByDay[day]
		hours[at.Hour()] = hours[at.Hour()].Add(r.NetTotal)
		s.HourlyByDay[day] = hours
	}
}

// Days returns the daily buckets ordered by date.
func (s Summary) Days() []Day {
	out := make([]Day, 0, len(s.Daily))
	for _, d := range s.Daily {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// ItemList returns the item buckets ordered by sku.
func (s Summary) ItemList() []Item {
	out := make([]Item, 0, len(s.Items))
	for _, it := range s.Items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

// ItemsTotal is the sum of item revenue. It can fall short of TotalRevenue
// when receipts had no attributable product lines.
func (s Summary) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.Revenue)
	}
	return total
}
