package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/taplab/salesdash/internal/pos"
)

const batchPrefix = "lightspeed:batch:"

// Store is the subset of redis commands the batch cache needs.
// Satisfied by *redis.Client; narrow interface for testability.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisBatches caches transaction batches of closed business periods.
type RedisBatches struct {
	client Store
	ttl    time.Duration
}

// NewRedisBatches creates a batch cache. A zero ttl keeps entries forever.
func NewRedisBatches(client Store, ttl time.Duration) *RedisBatches {
	return &RedisBatches{client: client, ttl: ttl}
}

// Connect opens a redis client and pings it. An empty address disables caching.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("could not connect redis at %s: %w", addr, err)
	}
	return client, nil
}

func batchKey(periodID string) string {
	return batchPrefix + periodID
}

// GetBatch returns the cached batch for periodID. A miss is (nil, false, nil).
func (c *RedisBatches) GetBatch(ctx context.Context, periodID string) ([]pos.Transaction, bool, error) {
	val, err := c.client.Get(ctx, batchKey(periodID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var txs []pos.Transaction
	if err := json.Unmarshal([]byte(val), &txs); err != nil {
		return nil, false, fmt.Errorf("decode cached batch %s: %w", periodID, err)
	}
	return txs, true, nil
}

// SetBatch stores txs under periodID.
func (c *RedisBatches) SetBatch(ctx context.Context, periodID string, txs []pos.Transaction) error {
	if txs == nil {
		txs = []pos.Transaction{}
	}
	b, err := json.Marshal(txs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, batchKey(periodID), b, c.ttl).Err()
}
