package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/analytics"
	goredis "github.com/redis/go-redis/v9"
)

// Insights caches analytics documents under analytics:player:<id>
type Insights struct {
	rdb goredis.Cmdable
}

// NewInsights creates an insights cache on rdb
func NewInsights(rdb goredis.Cmdable) *Insights {
	return &Insights{rdb: rdb}
}

var _ analytics.Cache = (*Insights)(nil)

func (s *Insights) Put(ctx context.Context, playerID int64, payload string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = analytics.DefaultCacheTTL
	}
	key := analytics.CacheKey(playerID)
	if err := s.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache insights %s: %w", key, err)
	}
	return nil
}

// Get returns the cached document of a player, if any
func (s *Insights) Get(ctx context.Context, playerID int64) (string, bool, error) {
	key := analytics.CacheKey(playerID)
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get insights %s: %w", key, err)
	}
	return val, true, nil
}
