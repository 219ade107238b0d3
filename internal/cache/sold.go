package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"fest-ticketing/internal/logger"
	"fest-ticketing/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	soldKey  = "fest:tickets:sold"
	earlyKey = "fest:tickets:earlybird"

	// countTTL bounds staleness when an invalidation is missed (another
	// instance confirmed an order, or the DEL failed).
	countTTL = 30 * time.Second
)

// CountStore is the database fallback behind the cached counters.
type CountStore interface {
	CountByStatus(ctx context.Context, status string) (int, error)
	CountEarlyBird(ctx context.Context) (int, error)
}

// SoldCounter caches the sold-ticket and early-bird counts in Redis.
// Redis being down degrades to hitting the database directly; it never
// fails a request.
type SoldCounter struct {
	rdb   *redis.Client
	store CountStore
	log   *logger.Logger
}

func NewSoldCounter(rdb *redis.Client, store CountStore, log *logger.Logger) *SoldCounter {
	return &SoldCounter{rdb: rdb, store: store, log: log}
}

// TotalSold returns the number of confirmed tickets.
func (c *SoldCounter) TotalSold(ctx context.Context) (int, error) {
	return c.cached(ctx, soldKey, func() (int, error) {
		return c.store.CountByStatus(ctx, models.StatusConfirmed)
	})
}

// EarlyBirdRemaining returns how many early-bird slots are left under
// the given limit, never below zero.
func (c *SoldCounter) EarlyBirdRemaining(ctx context.Context, limit int) (int, error) {
	consumed, err := c.cached(ctx, earlyKey, func() (int, error) {
		return c.store.CountEarlyBird(ctx)
	})
	if err != nil {
		return 0, err
	}
	if consumed >= limit {
		return 0, nil
	}
	return limit - consumed, nil
}

// Invalidate drops both counters; the next read repopulates them.
func (c *SoldCounter) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, soldKey, earlyKey).Err(); err != nil {
		c.log.Warn("REDIS", fmt.Sprintf("Failed to invalidate counters: %v", err))
	}
}

func (c *SoldCounter) cached(ctx context.Context, key string, count func() (int, error)) (int, error) {
	value, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		if n, convErr := strconv.Atoi(value); convErr == nil {
			return n, nil
		}
	} else if err != redis.Nil {
		c.log.Warn("REDIS", fmt.Sprintf("Counter read failed, falling back to database: %v", err))
	}

	n, err := count()
	if err != nil {
		return 0, err
	}

	if err := c.rdb.Set(ctx, key, strconv.Itoa(n), countTTL).Err(); err != nil {
		c.log.Warn("REDIS", fmt.Sprintf("Failed to cache counter %s: %v", key, err))
	}
	return n, nil
}
