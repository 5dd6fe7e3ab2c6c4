package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/taplab/salesdash/internal/enum"
	"github.com/taplab/salesdash/internal/report"
)

const august = `[
  {"date": "2025-08-09", "total": 1200.5, "receipts": 40, "guests": 55,
   "items": {"1": {"name": "Pils 0.5", "revenue": 800, "quantity": 10}, "2": {"name": "IPA 0.5", "revenue": "400.5", "quantity": 4}},
   "hourly_totals": {"18": 700, "19:00": 500.5}},
  {"date": "2025-08-10", "total": 980, "receipts": 31,
   "items": {"1": {"name": "Pils 0.5", "revenue": 500, "quantity": 6}, "3": {"revenue": 480, "quantity": 8}},
   "timeline": [{"hour": 17, "revenue": 480}, {"time": "21:15", "total": 500}]}
]`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestBuildPayload_SingleDateFallsBackToLatest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2025-08.json", august)
	store := NewStore(dir)

	q := report.Query{From: "2025-08-15", To: "2025-08-15", Date: "2025-08-15", Metric: enum.MetricRevenue, Limit: 3}
	p, err := store.BuildPayload(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected payload")
	}
	if p.Mode != enum.PayloadCached {
		t.Errorf("mode: got %q", p.Mode)
	}
	if p.DayTotal == nil || p.DayTotal.Date != "2025-08-10" || p.DayTotal.Revenue != 980 {
		t.Fatalf("dayTotal: %+v", p.DayTotal)
	}
	if p.From != "2025-08-10" || p.To != "2025-08-10" || p.ComparisonDate != "2025-08-03" {
		t.Errorf("window: %s..%s cmp %s", p.From, p.To, p.ComparisonDate)
	}
	if p.DayTotal.Hourly[17] != 480 || p.DayTotal.Hourly[21] != 500 {
		t.Errorf("timeline hours: %v", p.DayTotal.Hourly)
	}
	if p.Top[0].SKU != "1" || p.Items[1].Name != report.UnknownName {
		t.Errorf("items: %+v", p.Items)
	}
}

func TestBuildPayload_ExactDate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2025-08.json", august)

	q := report.Query{From: "2025-08-09", To: "2025-08-09", Date: "2025-08-09", Limit: 3}
	p, err := NewStore(dir).BuildPayload(context.Background(), q)
	if err != nil || p == nil {
		t.Fatalf("payload: %v %v", p, err)
	}
	if p.DayTotal.Revenue != 1200.5 || p.DayTotal.Guests != 55 || p.Count != 40 {
		t.Errorf("dayTotal: %+v count %d", p.DayTotal, p.Count)
	}
	if p.DayTotal.Hourly[18] != 700 || p.DayTotal.Hourly[19] != 500.5 {
		t.Errorf("hourly_totals: %v", p.DayTotal.Hourly)
	}
}

func TestBuildPayload_Range(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2025-08.json", august)
	store := NewStore(dir)

	p, err := store.BuildPayload(context.Background(), report.Query{From: "2025-08-01", To: "2025-08-31", Metric: enum.MetricQty, Limit: 1, IncludeDaily: true})
	if err != nil || p == nil {
		t.Fatalf("payload: %v %v", p, err)
	}
	if p.TotalRevenue != 2180.5 || p.Count != 71 {
		t.Errorf("totals: revenue %v count %d", p.TotalRevenue, p.Count)
	}
	if len(p.Top) != 1 || p.Top[0].SKU != "1" || p.Top[0].Quantity != 16 {
		t.Errorf("top: %+v", p.Top)
	}
	if len(p.Daily) != 2 || p.DayTotal != nil {
		t.Errorf("daily: %+v dayTotal %+v", p.Daily, p.DayTotal)
	}

	none, err := store.BuildPayload(context.Background(), report.Query{From: "2024-01-01", To: "2024-01-31", Limit: 3})
	if err != nil || none != nil {
		t.Errorf("expected no payload, got %+v %v", none, err)
	}
}

func TestBuildPayload_EmptyDirectory(t *testing.T) {
	p, err := NewStore(filepath.Join(t.TempDir(), "missing")).BuildPayload(context.Background(), report.Query{Date: "2025-08-15"})
	if err != nil || p != nil {
		t.Errorf("expected nil payload, got %+v %v", p, err)
	}
}

func TestStore_ReloadsOnModification(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "2025-08.json", `{"days":[{"date":"2025-08-01","total":10}]}`)
	store := NewStore(dir)

	entries, err := store.Entries()
	if err != nil || len(entries) != 1 || entries[0].Total.String() != "10" {
		t.Fatalf("first read: %+v %v", entries, err)
	}

	writeFile(t, dir, "2025-08.json", `{"days":[{"date":"2025-08-01","total":25},{"date":"2025-08-02","total":5}]}`)
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	entries, err = store.Entries()
	if err != nil || len(entries) != 2 || entries[0].Total.String() != "25" {
		t.Errorf("after change: %+v %v", entries, err)
	}

	dates, _ := store.Dates()
	if len(dates) != 2 || dates[1] != "2025-08-02" {
		t.Errorf("dates: %v", dates)
	}
}

func TestStore_LaterFileWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2025-07.json", `[{"date":"2025-07-31","total":1}]`)
	writeFile(t, dir, "2025-08.json", `[{"date":"2025-07-31","total":2},{"date":"bogus","total":9}]`)

	entries, err := NewStore(dir).Entries()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Total.String() != "2" {
		t.Errorf("entries: %+v", entries)
	}
}

func TestStore_BadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{"days": [`)

	if _, err := NewStore(dir).Entries(); err == nil {
		t.Error("expected parse error")
	}
}
