package lightspeed

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/taplab/salesdash/internal/config"
	"github.com/taplab/salesdash/internal/pos"
)

const (
	periodPageSize = 200
	maxPeriodPages = 20
)

// BusinessPeriod is an upstream batch of transactions tied to one business day.
type BusinessPeriod struct {
	ID          string `json:"periodId"`
	BusinessDay string `json:"businessDay"`
}

type rawPeriod struct {
	ID               pos.Text `json:"id"`
	BusinessPeriodID pos.Text `json:"businessPeriodId"`
	PeriodID         pos.Text `json:"periodId"`
	BusinessDay      pos.Text `json:"businessDay"`
	Date             pos.Text `json:"date"`
}

func (r rawPeriod) normalize() (BusinessPeriod, bool) {
	id := firstNonEmpty(r.BusinessPeriodID, r.PeriodID, r.ID)
	day := firstNonEmpty(r.BusinessDay, r.Date)
	if len(day) > 10 {
		day = day[:10]
	}
	if id == "" || day == "" {
		return BusinessPeriod{}, false
	}
	return BusinessPeriod{ID: id, BusinessDay: day}, true
}

// ListBusinessPeriods pages through the business periods between from and to
// (inclusive, YYYY-MM-DD).
func (c *Client) ListBusinessPeriods(ctx context.Context, from, to string) ([]BusinessPeriod, error) {
	var out []BusinessPeriod
	for page := 0; page < maxPeriodPages; page++ {
		params := url.Values{}
		params.Set("from", from)
		params.Set("to", to)
		params.Set("page", strconv.Itoa(page))
		params.Set("size", strconv.Itoa(periodPageSize))

		body, err := c.get(ctx, c.cfg.PeriodsPath, params)
		if err != nil {
			return nil, err
		}
		list, err := unwrapList(body, "businessPeriods", "data", "values", "items")
		if err != nil {
			return nil, err
		}
		for _, raw := range list {
			var rp rawPeriod
			if err := json.Unmarshal(raw, &rp); err != nil {
				continue
			}
			if p, ok := rp.normalize(); ok {
				out = append(out, p)
			}
		}
		if len(list) < periodPageSize {
			break
		}
	}
	return out, nil
}

// SelectPeriods keeps the periods whose business day lies in [from, to],
// sorted ascending, and keeps only the most recent limit of them.
func SelectPeriods(periods []BusinessPeriod, from, to string, limit int) []BusinessPeriod {
	limit = config.ClampMaxPeriods(limit)

	out := make([]BusinessPeriod, 0, len(periods))
	seen := make(map[string]bool, len(periods))
	for _, p := range periods {
		if p.BusinessDay < from || p.BusinessDay > to || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BusinessDay != out[j].BusinessDay {
			return out[i].BusinessDay < out[j].BusinessDay
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// FetchTransactionBatch returns the transactions recorded under one business period.
func (c *Client) FetchTransactionBatch(ctx context.Context, periodID string) ([]pos.Transaction, error) {
	params := url.Values{}
	params.Set("businessPeriodId", periodID)

	body, err := c.get(ctx, c.cfg.TransactionsPath, params)
	if err != nil {
		return nil, err
	}
	list, err := unwrapList(body, "transactions", "data", "values", "items")
	if err != nil {
		return nil, err
	}
	txs := make([]pos.Transaction, 0, len(list))
	for _, raw := range list {
		var tx pos.Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func firstNonEmpty(values ...pos.Text) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}
