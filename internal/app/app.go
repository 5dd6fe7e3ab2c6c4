// Package app assembles the sales service from configuration so the server
// and the CLI share one wiring.
package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/taplab/salesdash/internal/cache"
	"github.com/taplab/salesdash/internal/config"
	"github.com/taplab/salesdash/internal/lightspeed"
	"github.com/taplab/salesdash/internal/service"
	"github.com/taplab/salesdash/internal/snapshot"
)

// Sales is the assembled sales stack.
type Sales struct {
	Service  *service.SalesService
	Location *time.Location
	redis    *redis.Client
}

// Close releases the redis connection, if any.
func (s *Sales) Close() error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Close()
}

// NewSales builds the POS client, fetcher, optional batch cache and snapshot
// store. A redis that cannot be reached is logged and skipped.
func NewSales(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) *Sales {
	loc := config.ReportLocation(cfg.Timezone)

	rdb, err := cache.Connect(ctx, cfg.Redis.Address)
	if err != nil {
		config.LogError(logger, "app", "NewSales", cfg.Redis.Address, err)
	}

	var batches lightspeed.BatchCache
	if rdb != nil {
		batches = cache.NewRedisBatches(rdb, cfg.Redis.BatchTTL)
	}

	client := lightspeed.NewClient(cfg.Lightspeed, logger)
	fetcher := lightspeed.NewFetcher(client, batches, cfg.Lightspeed.Concurrency, loc, logger)
	snapshots := snapshot.NewStore(cfg.SnapshotDir)

	return &Sales{
		Service:  service.NewSalesService(cfg, fetcher, snapshots, loc, logger),
		Location: loc,
		redis:    rdb,
	}
}
