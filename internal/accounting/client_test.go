package accounting_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/taplab/salesdash/internal/accounting"
	"github.com/taplab/salesdash/internal/config"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func posting(id int64, number int, amount string) map[string]any {
	return map[string]any{
		"id":      id,
		"date":    "2025-08-01",
		"amount":  json.Number(amount),
		"account": map[string]any{"id": 1000 + int64(number), "number": number},
	}
}

func TestClient_StaticSessionAndPagination(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("0:static"))
		if r.Header.Get("Authorization") != want {
			t.Errorf("authorization: got %q", r.Header.Get("Authorization"))
		}
		if r.URL.Path != "/ledger/posting" {
			t.Errorf("path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("dateFrom") != "2025-08-01" || q.Get("dateTo") != "2025-08-31" || q.Get("count") != "100" {
			t.Errorf("query: %s", r.URL.RawQuery)
		}
		page, _ := strconv.Atoi(q.Get("page"))
		n := 100
		if page == 1 {
			n = 20
		}
		values := make([]map[string]any, 0, n)
		for i := 0; i < n; i++ {
			values = append(values, posting(int64(page*100+i), 3000, "10"))
		}
		json.NewEncoder(w).Encode(map[string]any{"values": values})
	}))
	defer srv.Close()

	c := accounting.NewClient(config.TripletexConfig{BaseURL: srv.URL, SessionToken: "static"}, testLogger())
	got, err := c.Postings(context.Background(), "2025-08-01", "2025-08-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 120 {
		t.Errorf("postings: got %d, want 120", len(got))
	}
	if calls.Load() != 2 {
		t.Errorf("calls: got %d, want 2", calls.Load())
	}
}

func TestClient_SessionExchangeIsReused(t *testing.T) {
	var creates atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token/session/:create":
			if r.Method != http.MethodPut {
				t.Errorf("session method: %s", r.Method)
			}
			q := r.URL.Query()
			if q.Get("consumerToken") != "c" || q.Get("employeeToken") != "e" || q.Get("expirationDate") == "" {
				t.Errorf("session query: %s", r.URL.RawQuery)
			}
			n := creates.Add(1)
			fmt.Fprintf(w, `{"value":{"token":"sess-%d"}}`, n)
		case "/ledger/posting":
			want := "Basic " + base64.StdEncoding.EncodeToString([]byte("0:sess-1"))
			if r.Header.Get("Authorization") != want {
				t.Errorf("authorization: got %q", r.Header.Get("Authorization"))
			}
			w.Write([]byte(`{"values":[]}`))
		}
	}))
	defer srv.Close()

	c := accounting.NewClient(config.TripletexConfig{BaseURL: srv.URL, ConsumerToken: "c", EmployeeToken: "e"}, testLogger())
	for i := 0; i < 3; i++ {
		if _, err := c.Postings(context.Background(), "2025-08-01", "2025-08-31"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if creates.Load() != 1 {
		t.Errorf("session creates: got %d, want 1", creates.Load())
	}
}

func TestClient_NoCredentials(t *testing.T) {
	c := accounting.NewClient(config.TripletexConfig{BaseURL: "http://127.0.0.1:0", ConsumerToken: "only-one"}, testLogger())
	_, err := c.Postings(context.Background(), "2025-08-01", "2025-08-31")
	if !errors.Is(err, accounting.ErrNoCredentials) {
		t.Errorf("got %v, want ErrNoCredentials", err)
	}
}

func TestClient_LedgerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"forbidden"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := accounting.NewClient(config.TripletexConfig{BaseURL: srv.URL, SessionToken: "x", Timeout: time.Second}, testLogger())
	_, err := c.Postings(context.Background(), "2025-08-01", "2025-08-31")

	var ledgerErr *accounting.LedgerError
	if !errors.As(err, &ledgerErr) {
		t.Fatalf("got %v, want *LedgerError", err)
	}
	if ledgerErr.Status != http.StatusForbidden || ledgerErr.Path != "/ledger/posting" {
		t.Errorf("ledger error: %+v", ledgerErr)
	}
}

func TestClient_PageCap(t *testing.T) {
	full, _ := json.Marshal(map[string]any{"values": make([]map[string]any, 100)})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(full)
	}))
	defer srv.Close()

	c := accounting.NewClient(config.TripletexConfig{BaseURL: srv.URL, SessionToken: "x"}, testLogger())
	_, err := c.Postings(context.Background(), "2025-08-01", "2025-08-31")
	if !errors.Is(err, accounting.ErrPageCap) {
		t.Errorf("got %v, want ErrPageCap", err)
	}
}

func TestMonthLabel(t *testing.T) {
	tests := []struct {
		from, to string
		want     string
	}{
		{"2025-08-01", "2025-08-31", "August 2025"},
		{"2025-01-15", "2025-02-01", "Januar 2025"},
		{"2024-12-01", "2024-12-31", "Desember 2024"},
		{"august", "2025-08-31", "august – 2025-08-31"},
	}
	for _, tt := range tests {
		if got := accounting.MonthLabel(tt.from, tt.to); got != tt.want {
			t.Errorf("MonthLabel(%q): got %q, want %q", tt.from, got, tt.want)
		}
	}
}

func TestSumSales(t *testing.T) {
	postings := []accounting.Posting{
		{ID: 1, Amount: decimal.RequireFromString("-1000.50"), Account: &accounting.Account{Number: 3000}},
		{ID: 2, Amount: decimal.RequireFromString("-250"), Account: &accounting.Account{Number: 3999}},
		{ID: 3, Amount: decimal.RequireFromString("1250.50"), Account: &accounting.Account{Number: 1920}},
		{ID: 4, Amount: decimal.RequireFromString("-99"), AccountNumber: 3003},
		{ID: 5, Amount: decimal.RequireFromString("-1"), Account: &accounting.Account{Number: 4000}},
	}

	got := accounting.SumSales(postings, 3000, 3999)
	if !got.Equal(decimal.RequireFromString("-1349.50")) {
		t.Errorf("SumSales: got %s", got)
	}
}

func TestSumAccount(t *testing.T) {
	postings := []accounting.Posting{
		{ID: 1, Date: "2025-08-02", Amount: decimal.RequireFromString("-120.25"), Account: &accounting.Account{ID: 42}},
		{ID: 2, Date: "2025-08-03", Amount: decimal.RequireFromString("20"), Account: &accounting.Account{ID: 42}},
		{ID: 3, Date: "2025-08-03", Amount: decimal.RequireFromString("-500"), Account: &accounting.Account{ID: 7}},
		{ID: 4, Date: "2025-08-04", Amount: decimal.RequireFromString("-5")},
	}

	got := accounting.SumAccount(postings, 42, "2025-08-01", "2025-08-31")
	if got.Count != 2 || got.Total != 140.25 || got.TotalBeerSales != got.Total {
		t.Errorf("summary: %+v", got)
	}
	if got.Postings[0].Amount != -120.25 || got.DateFrom != "2025-08-01" {
		t.Errorf("lines: %+v", got.Postings)
	}

	empty := accounting.SumAccount(nil, 42, "a", "b")
	if empty.Postings == nil || empty.Count != 0 {
		t.Errorf("empty summary: %+v", empty)
	}
}
