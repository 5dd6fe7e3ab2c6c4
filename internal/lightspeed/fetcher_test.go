package lightspeed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/taplab/salesdash/internal/pos"
)

// --- fakes ---

type fakeSource struct {
	periods    []BusinessPeriod
	listErr    error
	batches    map[string][]pos.Transaction
	failures   map[string]error
	delay      time.Duration
	inFlight   atomic.Int32
	maxFlight  atomic.Int32
	fetchCalls atomic.Int32
}

func (f *fakeSource) ListBusinessPeriods(ctx context.Context, from, to string) ([]BusinessPeriod, error) {
	return f.periods, f.listErr
}

func (f *fakeSource) FetchTransactionBatch(ctx context.Context, periodID string) ([]pos.Transaction, error) {
	f.fetchCalls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxFlight.Load()
		if n <= cur || f.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := f.failures[periodID]; err != nil {
		return nil, err
	}
	return f.batches[periodID], nil
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]pos.Transaction
	sets []string
}

func (c *fakeCache) GetBatch(ctx context.Context, periodID string) ([]pos.Transaction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	txs, ok := c.data[periodID]
	return txs, ok, nil
}

func (c *fakeCache) SetBatch(ctx context.Context, periodID string, txs []pos.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets = append(c.sets, periodID)
	c.data[periodID] = txs
	return nil
}

func period(i int) BusinessPeriod {
	return BusinessPeriod{ID: fmt.Sprintf("p%02d", i), BusinessDay: fmt.Sprintf("2025-07-%02d", i)}
}

func tx(uuid string) pos.Transaction {
	return pos.Transaction{Head: pos.Head{UUID: pos.Text(uuid)}}
}

// --- Tests ---

func TestFetchRange_MergesAndAnnotates(t *testing.T) {
	withDay := tx("b")
	withDay.Head.BusinessDay = "2025-06-30"
	src := &fakeSource{
		periods: []BusinessPeriod{period(1), period(2)},
		batches: map[string][]pos.Transaction{
			"p01": {tx("a")},
			"p02": {withDay},
		},
	}

	f := NewFetcher(src, nil, 6, time.UTC, testLogger())
	txs, err := f.FetchRange(context.Background(), "2025-07-01", "2025-07-07", 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("txs: got %d, want 2", len(txs))
	}
	days := map[string]string{}
	for _, tx := range txs {
		days[string(tx.Head.UUID)] = string(tx.Head.BusinessDay)
	}
	if days["a"] != "2025-07-01" || days["b"] != "2025-06-30" {
		t.Errorf("business days: got %v", days)
	}
	if src.batches["p01"][0].Head.BusinessDay != "" {
		t.Error("fetched record was mutated")
	}
}

func TestFetchRange_PartialFailureTolerated(t *testing.T) {
	src := &fakeSource{
		periods:  []BusinessPeriod{period(1), period(2), period(3)},
		batches:  map[string][]pos.Transaction{"p02": {tx("a")}},
		failures: map[string]error{"p01": errors.New("boom"), "p03": &UpstreamError{Status: 500}},
	}

	f := NewFetcher(src, nil, 2, time.UTC, testLogger())
	txs, err := f.FetchRange(context.Background(), "2025-07-01", "2025-07-07", 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 {
		t.Errorf("txs: got %d, want 1", len(txs))
	}
}

func TestFetchRange_TotalFailureReturnsLastError(t *testing.T) {
	src := &fakeSource{
		periods: []BusinessPeriod{period(1), period(2)},
		failures: map[string]error{
			"p01": errors.New("first"),
			"p02": &UpstreamError{Status: 503},
		},
	}

	f := NewFetcher(src, nil, 6, time.UTC, testLogger())
	_, err := f.FetchRange(context.Background(), "2025-07-01", "2025-07-07", 60)

	var upstream *UpstreamError
	if !errors.As(err, &upstream) || upstream.Status != 503 {
		t.Errorf("expected last upstream error, got %v", err)
	}
}

func TestFetchRange_NoPeriods(t *testing.T) {
	src := &fakeSource{periods: []BusinessPeriod{{ID: "x", BusinessDay: "2024-01-01"}}}

	f := NewFetcher(src, nil, 6, time.UTC, testLogger())
	txs, err := f.FetchRange(context.Background(), "2025-07-01", "2025-07-07", 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txs == nil || len(txs) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", txs)
	}
	if src.fetchCalls.Load() != 0 {
		t.Errorf("fetch calls: got %d, want 0", src.fetchCalls.Load())
	}
}

func TestFetchRange_ListFailure(t *testing.T) {
	src := &fakeSource{listErr: &UpstreamError{Status: 401}}

	f := NewFetcher(src, nil, 6, time.UTC, testLogger())
	_, err := f.FetchRange(context.Background(), "2025-07-01", "2025-07-07", 60)

	var upstream *UpstreamError
	if !errors.As(err, &upstream) || upstream.Status != 401 {
		t.Errorf("expected upstream 401, got %v", err)
	}
}

func TestFetchRange_BoundedConcurrency(t *testing.T) {
	var periods []BusinessPeriod
	for i := 1; i <= 20; i++ {
		periods = append(periods, period(i))
	}
	src := &fakeSource{periods: periods, delay: 5 * time.Millisecond}

	f := NewFetcher(src, nil, 3, time.UTC, testLogger())
	if _, err := f.FetchRange(context.Background(), "2025-07-01", "2025-07-31", 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := src.maxFlight.Load(); got > 3 {
		t.Errorf("max in flight: got %d, want <= 3", got)
	}
	if got := src.fetchCalls.Load(); got != 20 {
		t.Errorf("fetch calls: got %d, want 20", got)
	}
}

func TestFetchRange_CachesClosedPeriods(t *testing.T) {
	src := &fakeSource{
		periods: []BusinessPeriod{period(1), period(2)},
		batches: map[string][]pos.Transaction{"p02": {tx("fresh")}},
	}
	cache := &fakeCache{data: map[string][]pos.Transaction{"p01": {tx("cached")}}}

	f := NewFetcher(src, cache, 6, time.UTC, testLogger())
	f.now = func() time.Time { return time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC) }

	txs, err := f.FetchRange(context.Background(), "2025-07-01", "2025-07-02", 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("txs: got %d, want 2", len(txs))
	}
	if src.fetchCalls.Load() != 1 {
		t.Errorf("fetch calls: got %d, want 1 (p01 from cache)", src.fetchCalls.Load())
	}
	if len(cache.sets) != 0 {
		t.Errorf("open period must not be cached, got sets %v", cache.sets)
	}
}
