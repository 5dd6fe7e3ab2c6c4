package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/taplab/salesdash/internal/config"
	"github.com/taplab/salesdash/internal/enum"
	"github.com/taplab/salesdash/internal/report"
	"golang.org/x/sync/singleflight"
)

// EventSummary is the event type carrying a report.Payload.
const EventSummary = "summary"

// SalesSource produces day payloads.
// Satisfied by *service.SalesService; narrow interface for testability.
type SalesSource interface {
	Sales(ctx context.Context, q report.Query, preferCache bool) (*report.Payload, error)
}

// Poller periodically recomputes the summary of every watched day and
// broadcasts it to that day's room.
type Poller struct {
	hub      *Hub
	source   SalesSource
	interval time.Duration
	logger   logrus.FieldLogger

	// Collapses concurrent refreshes of the same day
	group singleflight.Group
}

// NewPoller creates a Poller. A non-positive interval means one minute.
func NewPoller(hub *Hub, source SalesSource, interval time.Duration, logger logrus.FieldLogger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{hub: hub, source: source, interval: interval, logger: logger.WithField("module", "poller")}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, day := range p.hub.Days() {
				p.Push(ctx, day)
			}
		}
	}
}

// Refresh brings a newly watched day up to date. Concurrent calls for one day
// share a single fetch, and a day broadcast within the last interval is
// served from the hub's kept message instead.
func (p *Poller) Refresh(ctx context.Context, day string) {
	p.group.Do(day, func() (any, error) {
		if p.hub.fresh(day, p.interval) {
			return nil, nil
		}
		p.Push(ctx, day)
		return nil, nil
	})
}

// Push computes the single-date payload for day through the normal fallback
// policy and broadcasts it. Failures are logged and the room keeps its last value.
func (p *Poller) Push(ctx context.Context, day string) {
	q := report.Query{
		From:   day,
		To:     day,
		Date:   day,
		Metric: enum.MetricRevenue,
		Limit:  report.DefaultLimit,
	}
	payload, err := p.source.Sales(ctx, q, false)
	if err != nil {
		config.LogError(p.logger, "poller", "Push", day, err)
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		config.LogError(p.logger, "poller", "Push", day, err)
		return
	}
	p.hub.BroadcastToDay(day, Event{Type: EventSummary, Payload: raw})
}
