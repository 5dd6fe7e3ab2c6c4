package snapshot

import (
	"context"

	"github.com/taplab/salesdash/internal/enum"
	"github.com/taplab/salesdash/internal/report"
	"github.com/taplab/salesdash/internal/revenue"
)

// BuildPayload answers q from the snapshot files. In single-date mode a date
// missing from the snapshots is answered with the latest date available, and
// the payload reports that date. It returns nil when nothing matches.
func (s *Store) BuildPayload(ctx context.Context, q report.Query) (*report.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	var selected []Entry
	if q.SingleDate() {
		e := entries[len(entries)-1]
		for _, candidate := range entries {
			if candidate.Date == q.Date {
				e = candidate
				break
			}
		}
		q.Date, q.From, q.To = e.Date, e.Date, e.Date
		selected = []Entry{e}
	} else {
		for _, e := range entries {
			if e.Date >= q.From && e.Date <= q.To {
				selected = append(selected, e)
			}
		}
	}
	if len(selected) == 0 {
		return nil, nil
	}

	p := report.FromSummary(summarize(selected), q)
	p.Mode = enum.PayloadCached
	return p, nil
}

// Dates lists the days available in the snapshots.
func (s *Store) Dates() ([]string, error) {
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Date
	}
	return out, nil
}

func summarize(entries []Entry) revenue.Summary {
	s := revenue.Summary{
		Items:       make(map[string]revenue.Item),
		Daily:       make(map[string]revenue.Day),
		HourlyByDay: make(map[string]revenue.Hours),
	}
	for _, e := range entries {
		s.TotalRevenue = s.TotalRevenue.Add(e.Total)
		s.Count += int(e.Receipts)
		s.Daily[e.Date] = revenue.Day{Date: e.Date, Revenue: e.Total, Guests: e.Guests, Receipts: e.Receipts}
		if e.Hourly != nil {
			s.HourlyByDay[e.Date] = revenue.Hours(*e.Hourly)
		}
		for sku, it := range e.Items {
			agg, ok := s.Items[sku]
			if !ok {
				agg = revenue.Item{SKU: sku}
			}
			if agg.Name == "" {
				agg.Name = it.Name
			}
			agg.Revenue = agg.Revenue.Add(it.Revenue)
			agg.Quantity = agg.Quantity.Add(it.Quantity)
			s.Items[sku] = agg
		}
	}
	return s
}
