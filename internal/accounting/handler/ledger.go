package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/taplab/salesdash/internal/accounting"
	"github.com/taplab/salesdash/internal/config"
	"github.com/taplab/salesdash/internal/enum"
	"github.com/taplab/salesdash/internal/report"
)

// --- Store interface ---

// LedgerSource defines the ledger calls needed by the handlers.
// Satisfied by *accounting.Client; narrow interface for testability.
type LedgerSource interface {
	Postings(ctx context.Context, from, to string) ([]accounting.Posting, error)
}

// --- LedgerHandler ---

// LedgerHandler serves the accounting-ledger summaries.
type LedgerHandler struct {
	source        LedgerSource
	salesLo       int
	salesHi       int
	defaultAcctID int64
	loc           *time.Location
	logger        logrus.FieldLogger
	now           func() time.Time
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(source LedgerSource, cfg config.TripletexConfig, loc *time.Location, logger logrus.FieldLogger) *LedgerHandler {
	if loc == nil {
		loc = time.UTC
	}
	lo, hi := cfg.SalesAccountLo, cfg.SalesAccountHi
	if lo == 0 && hi == 0 {
		lo, hi = 3000, 3999
	}
	return &LedgerHandler{
		source:        source,
		salesLo:       lo,
		salesHi:       hi,
		defaultAcctID: cfg.BeerAccountID,
		loc:           loc,
		logger:        logger.WithField("module", "ledger"),
		now:           time.Now,
	}
}

// RegisterRoutes registers the ledger endpoints under both the API and the
// legacy function paths.
func (h *LedgerHandler) RegisterRoutes(r chi.Router) {
	r.HandleFunc("/api/tripletex-sales", h.Sales)
	r.HandleFunc("/.netlify/functions/tripletex-sales", h.Sales)
	r.HandleFunc("/api/tripletex", h.Account)
	r.HandleFunc("/.netlify/functions/tripletex", h.Account)
}

// Sales totals the sales accounts for an explicit from/to window.
func (h *LedgerHandler) Sales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, enum.ErrCodeMethodNotAllowed, "Use GET")
		return
	}
	q := r.URL.Query()
	from, to, ok := h.window(w, q.Get("from"), q.Get("to"))
	if !ok {
		return
	}
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, enum.ErrCodeMissingDates, "Missing from/to")
		return
	}

	postings, err := h.source.Postings(r.Context(), from, to)
	if err != nil {
		h.fail(w, "Sales", map[string]string{"from": from, "to": to}, err)
		return
	}

	total := accounting.SumSales(postings, h.salesLo, h.salesHi)
	writeJSON(w, http.StatusOK, accounting.SalesSummary{
		MonthLabel: accounting.MonthLabel(from, to),
		TotalSales: total.Round(2).InexactFloat64(),
		Count:      len(postings),
	})
}

// Account lists and totals one account, defaulting to the current month.
func (h *LedgerHandler) Account(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, enum.ErrCodeMethodNotAllowed, "Use GET")
		return
	}
	q := r.URL.Query()
	from, to, ok := h.window(w, first(q.Get("from"), q.Get("dateFrom")), first(q.Get("to"), q.Get("dateTo")))
	if !ok {
		return
	}
	now := h.now().In(h.loc)
	if from == "" {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, h.loc).Format(report.DateLayout)
	}
	if to == "" {
		to = now.Format(report.DateLayout)
	}

	accountID := h.defaultAcctID
	if raw := q.Get("accountId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, enum.ErrCodeInvalidAccount, "accountId must be numeric")
			return
		}
		accountID = id
	}

	postings, err := h.source.Postings(r.Context(), from, to)
	if err != nil {
		h.fail(w, "Account", map[string]any{"from": from, "to": to, "accountId": accountID}, err)
		return
	}
	writeJSON(w, http.StatusOK, accounting.SumAccount(postings, accountID, from, to))
}

// window normalises and orders the optional from/to pair. It writes the
// error response itself and reports false when a date is unparseable.
func (h *LedgerHandler) window(w http.ResponseWriter, rawFrom, rawTo string) (string, string, bool) {
	from, err := report.NormalizeDate(rawFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, enum.ErrCodeInvalidDate, "Could not parse from")
		return "", "", false
	}
	to, err := report.NormalizeDate(rawTo)
	if err != nil {
		writeError(w, http.StatusBadRequest, enum.ErrCodeInvalidDate, "Could not parse to")
		return "", "", false
	}
	if from != "" && to != "" {
		from, to = report.OrderRange(from, to)
	}
	return from, to, true
}

func (h *LedgerHandler) fail(w http.ResponseWriter, funcName string, data any, err error) {
	var ledgerErr *accounting.LedgerError
	switch {
	case errors.Is(err, accounting.ErrNoCredentials):
		writeError(w, http.StatusBadRequest, enum.ErrCodeConfigMissing, err.Error())
	case errors.As(err, &ledgerErr):
		config.LogError(h.logger, "ledger", funcName, data, err)
		status := ledgerErr.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		writeError(w, status, enum.ErrCodeUpstream, err.Error())
	default:
		config.LogError(h.logger, "ledger", funcName, data, err)
		writeError(w, http.StatusBadGateway, enum.ErrCodeUpstream, err.Error())
	}
}

// --- Helpers ---

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
