package lightspeed

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/taplab/salesdash/internal/pos"
	"golang.org/x/sync/errgroup"
)

// Source lists business periods and their transactions.
// Satisfied by *Client; narrow interface for testability.
type Source interface {
	ListBusinessPeriods(ctx context.Context, from, to string) ([]BusinessPeriod, error)
	FetchTransactionBatch(ctx context.Context, periodID string) ([]pos.Transaction, error)
}

// BatchCache stores transaction batches of closed business periods.
// Satisfied by *cache.RedisBatches.
type BatchCache interface {
	GetBatch(ctx context.Context, periodID string) ([]pos.Transaction, bool, error)
	SetBatch(ctx context.Context, periodID string, txs []pos.Transaction) error
}

// Fetcher fans transaction batch requests out over business periods.
type Fetcher struct {
	source      Source
	cache       BatchCache
	concurrency int
	loc         *time.Location
	logger      logrus.FieldLogger
	now         func() time.Time
}

// NewFetcher creates a Fetcher. cache may be nil.
func NewFetcher(source Source, cache BatchCache, concurrency int, loc *time.Location, logger logrus.FieldLogger) *Fetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Fetcher{
		source:      source,
		cache:       cache,
		concurrency: concurrency,
		loc:         loc,
		logger:      logger.WithField("module", "fetcher"),
		now:         time.Now,
	}
}

// FetchRange returns the transactions of every business period in [from, to],
// keeping at most maxPeriods of the most recent periods. A period that fails
// contributes nothing; the last error is returned only if every period failed.
func (f *Fetcher) FetchRange(ctx context.Context, from, to string, maxPeriods int) ([]pos.Transaction, error) {
	periods, err := f.source.ListBusinessPeriods(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list business periods: %w", err)
	}
	selected := SelectPeriods(periods, from, to, maxPeriods)
	if len(selected) == 0 {
		return []pos.Transaction{}, nil
	}

	results := make([][]pos.Transaction, len(selected))
	errs := make([]error, len(selected))

	for start := 0; start < len(selected); start += f.concurrency {
		end := min(start+f.concurrency, len(selected))

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				results[i], errs[i] = f.fetchPeriod(ctx, selected[i])
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	var out []pos.Transaction
	var lastErr error
	succeeded := 0
	for i, p := range selected {
		if errs[i] != nil {
			lastErr = errs[i]
			f.logger.WithFields(logrus.Fields{"periodId": p.ID, "businessDay": p.BusinessDay}).
				WithError(errs[i]).Warn("business period fetch failed")
			continue
		}
		succeeded++
		for _, tx := range results[i] {
			out = append(out, tx.WithBusinessDay(p.BusinessDay))
		}
	}
	if succeeded == 0 {
		return nil, fmt.Errorf("fetch transactions: %w", lastErr)
	}
	if out == nil {
		out = []pos.Transaction{}
	}
	return out, nil
}

// FetchPeriod returns the transactions of a single business period.
func (f *Fetcher) FetchPeriod(ctx context.Context, periodID string) ([]pos.Transaction, error) {
	txs, err := f.source.FetchTransactionBatch(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("fetch period %s: %w", periodID, err)
	}
	return txs, nil
}

func (f *Fetcher) fetchPeriod(ctx context.Context, p BusinessPeriod) ([]pos.Transaction, error) {
	closed := f.cache != nil && p.BusinessDay < f.now().In(f.loc).Format("2006-01-02")
	log := f.logger.WithField("periodId", p.ID)

	if closed {
		txs, ok, err := f.cache.GetBatch(ctx, p.ID)
		if err != nil {
			log.WithError(err).Warn("batch cache read failed")
		} else if ok {
			return txs, nil
		}
	}

	txs, err := f.source.FetchTransactionBatch(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	if closed {
		if err := f.cache.SetBatch(ctx, p.ID, txs); err != nil {
			log.WithError(err).Warn("batch cache write failed")
		}
	}
	return txs, nil
}
