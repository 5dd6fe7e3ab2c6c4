package report

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/taplab/salesdash/internal/enum"
	"github.com/taplab/salesdash/internal/revenue"
)

// UnknownName labels products the POS sent without a name.
const UnknownName = "Ukjent"

// Payload is the JSON body returned for every sales request, live or cached.
type Payload struct {
	From           string               `json:"from"`
	To             string               `json:"to"`
	ComparisonDate string               `json:"comparisonDate,omitempty"`
	Count          int                  `json:"count"`
	Top            []ItemRow            `json:"top"`
	Items          []ItemRow            `json:"items"`
	TotalRevenue   float64              `json:"totalRevenue"`
	Daily          []DayRow             `json:"daily,omitempty"`
	HourlyByDay    map[string][]float64 `json:"hourlyByDay,omitempty"`
	DayTotal       *DayTotal            `json:"dayTotal,omitempty"`
	Mode           string               `json:"mode,omitempty"`
	PeriodID       string               `json:"periodId,omitempty"`
}

type ItemRow struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Revenue  float64 `json:"revenue"`
	Quantity float64 `json:"quantity"`
}

type DayRow struct {
	Date     string  `json:"date"`
	Revenue  float64 `json:"revenue"`
	Guests   int64   `json:"guests"`
	Receipts int64   `json:"receipts"`
}

type DayTotal struct {
	Date     string    `json:"date"`
	Revenue  float64   `json:"revenue"`
	Guests   int64     `json:"guests"`
	Receipts int64     `json:"receipts"`
	Hourly   []float64 `json:"hourly,omitempty"`
}

func money(d decimal.Decimal) float64 { return d.Round(2).InexactFloat64() }

func quantity(d decimal.Decimal) float64 { return d.Round(3).InexactFloat64() }

// Rank orders items descending by metric. Ties fall back to the other metric,
// then to the sku, so the order is stable for a given input.
func Rank(items []revenue.Item, metric string) []revenue.Item {
	out := append([]revenue.Item(nil), items...)
	primary := func(it revenue.Item) decimal.Decimal { return it.Revenue }
	secondary := func(it revenue.Item) decimal.Decimal { return it.Quantity }
	if metric == enum.MetricQty {
		primary, secondary = secondary, primary
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := primary(out[i]).Cmp(primary(out[j])); c != 0 {
			return c > 0
		}
		if c := secondary(out[i]).Cmp(secondary(out[j])); c != 0 {
			return c > 0
		}
		return lessSKU(out[i].SKU, out[j].SKU)
	})
	return out
}

// lessSKU orders numeric skus numerically.
func lessSKU(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// FromSummary assembles the response for q out of an engine summary.
func FromSummary(s revenue.Summary, q Query) *Payload {
	ranked := Rank(s.ItemList(), q.Metric)
	rows := make([]ItemRow, len(ranked))
	for i, it := range ranked {
		name := it.Name
		if name == "" {
			name = UnknownName
		}
		rows[i] = ItemRow{SKU: it.SKU, Name: name, Revenue: money(it.Revenue), Quantity: quantity(it.Quantity)}
	}
	limit := q.Limit
	if limit < 1 {
		limit = DefaultLimit
	}

	p := &Payload{
		From:         q.From,
		To:           q.To,
		Count:        s.Count,
		Top:          rows[:min(limit, len(rows))],
		Items:        rows,
		TotalRevenue: money(s.TotalRevenue),
	}

	if q.IncludeDaily || q.SingleDate() {
		for _, d := range s.Days() {
			p.Daily = append(p.Daily, DayRow{Date: d.Date, Revenue: money(d.Revenue), Guests: d.Guests, Receipts: d.Receipts})
		}
		if p.Daily == nil {
			p.Daily = []DayRow{}
		}
	}

	if q.SingleDate() {
		p.ComparisonDate = q.ComparisonDate()
		p.HourlyByDay = make(map[string][]float64, len(s.HourlyByDay))
		for day, hours := range s.HourlyByDay {
			p.HourlyByDay[day] = hourly(hours)
		}

		d := s.Daily[q.Date]
		p.DayTotal = &DayTotal{Date: q.Date, Revenue: money(d.Revenue), Guests: d.Guests, Receipts: d.Receipts}
		if hours, ok := s.HourlyByDay[q.Date]; ok {
			p.DayTotal.Hourly = hourly(hours)
		}
	}
	return p
}

func hourly(h revenue.Hours) []float64 {
	out := make([]float64, len(h))
	for i, v := range h {
		out[i] = money(v)
	}
	return out
}
