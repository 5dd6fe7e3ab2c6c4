package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/taplab/salesdash/internal/config"
	"github.com/taplab/salesdash/internal/enum"
	"github.com/taplab/salesdash/internal/pos"
	"github.com/taplab/salesdash/internal/report"
	"github.com/taplab/salesdash/internal/revenue"
)

// Errors returned by the sales service.
var (
	ErrMissingConfig = errors.New("missing Lightspeed env vars (X_TOKEN or BUSINESS_ID)")
	ErrMissingPeriod = errors.New("period id is required")
)

// TransactionFetcher loads POS transactions.
// Satisfied by *lightspeed.Fetcher; narrow interface for testability.
type TransactionFetcher interface {
	FetchRange(ctx context.Context, from, to string, maxPeriods int) ([]pos.Transaction, error)
	FetchPeriod(ctx context.Context, periodID string) ([]pos.Transaction, error)
}

// SnapshotStore answers queries from precomputed snapshots.
// Satisfied by *snapshot.Store.
type SnapshotStore interface {
	BuildPayload(ctx context.Context, q report.Query) (*report.Payload, error)
	Dates() ([]string, error)
}

// SalesService turns queries into sales payloads, choosing between the live
// POS API, the snapshots and demo data.
type SalesService struct {
	cfg       *config.Config
	fetcher   TransactionFetcher
	snapshots SnapshotStore
	loc       *time.Location
	logger    logrus.FieldLogger
}

// NewSalesService creates a SalesService.
func NewSalesService(cfg *config.Config, fetcher TransactionFetcher, snapshots SnapshotStore, loc *time.Location, logger logrus.FieldLogger) *SalesService {
	if loc == nil {
		loc = time.UTC
	}
	return &SalesService{
		cfg:       cfg,
		fetcher:   fetcher,
		snapshots: snapshots,
		loc:       loc,
		logger:    logger.WithField("module", "sales"),
	}
}

// Sales answers q. Snapshots are used first when preferCache is set, when no
// credentials are configured, and when the live path fails. The live error is
// returned only if no snapshot covers q.
func (s *SalesService) Sales(ctx context.Context, q report.Query, preferCache bool) (*report.Payload, error) {
	if preferCache {
		if p := s.cached(ctx, q); p != nil {
			return p, nil
		}
	}

	if !s.cfg.HasLightspeedCredentials() {
		if p := s.cached(ctx, q); p != nil {
			return p, nil
		}
		return nil, ErrMissingConfig
	}

	p, err := s.Live(ctx, q)
	if err == nil {
		return p, nil
	}
	if cp := s.cached(ctx, q); cp != nil {
		s.logger.WithFields(logrus.Fields{"from": q.From, "to": q.To}).WithError(err).Warn("live fetch failed, serving snapshot")
		return cp, nil
	}
	return nil, err
}

// Live fetches and reconciles the transactions in q's window.
func (s *SalesService) Live(ctx context.Context, q report.Query) (*report.Payload, error) {
	txs, err := s.fetcher.FetchRange(ctx, q.From, q.To, s.cfg.Lightspeed.MaxPeriods)
	if err != nil {
		return nil, err
	}
	p := report.FromSummary(revenue.Summarize(txs, s.loc), q)
	p.Mode = enum.PayloadLive
	return p, nil
}

// Period reconciles a single business period. When q has no window it is
// taken from the business days found in the batch.
func (s *SalesService) Period(ctx context.Context, periodID string, q report.Query) (*report.Payload, error) {
	if periodID == "" {
		return nil, ErrMissingPeriod
	}
	if !s.cfg.HasLightspeedCredentials() {
		return nil, ErrMissingConfig
	}
	txs, err := s.fetcher.FetchPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("period %s: %w", periodID, err)
	}

	summary := revenue.Summarize(txs, s.loc)
	if q.From == "" || q.To == "" {
		if days := summary.Days(); len(days) > 0 {
			q.From, q.To = days[0].Date, days[len(days)-1].Date
		}
	}
	p := report.FromSummary(summary, q)
	p.Mode = enum.PayloadPeriod
	p.PeriodID = periodID
	return p, nil
}

// Demo answers q with synthetic transactions run through the real engine.
func (s *SalesService) Demo(q report.Query) *report.Payload {
	p := report.FromSummary(revenue.Summarize(report.DemoTransactions(q, s.loc), s.loc), q)
	p.Mode = enum.PayloadDemo
	return p
}

// Env reports which settings are present. It never exposes their values.
func (s *SalesService) Env() map[string]bool {
	dates, err := s.snapshots.Dates()
	if err != nil {
		s.logger.WithError(err).Warn("snapshot listing failed")
	}
	return map[string]bool{
		"has_LIGHTSPEED_X_TOKEN":     s.cfg.Lightspeed.Token != "",
		"has_LIGHTSPEED_BUSINESS_ID": s.cfg.Lightspeed.BusinessID != "",
		"has_LIGHTSPEED_OPERATOR":    s.cfg.Lightspeed.Operator != "",
		"has_TRIPLETEX_CREDENTIALS":  s.cfg.HasTripletexCredentials(),
		"has_REDIS":                  s.cfg.Redis.Address != "",
		"has_SNAPSHOTS":              len(dates) > 0,
	}
}

func (s *SalesService) cached(ctx context.Context, q report.Query) *report.Payload {
	p, err := s.snapshots.BuildPayload(ctx, q)
	if err != nil {
		config.LogError(s.logger, "sales", "cached", q, err)
		return nil
	}
	return p
}
