package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
	goredis "github.com/redis/go-redis/v9"
)

// Markers stores idempotency markers as plain keys with an expiry
type Markers struct {
	rdb goredis.Cmdable
}

// NewMarkers creates a marker store on rdb
func NewMarkers(rdb goredis.Cmdable) *Markers {
	return &Markers{rdb: rdb}
}

var _ jobs.MarkerStore = (*Markers)(nil)

func (m *Markers) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := m.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return val, true, nil
}

func (m *Markers) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := m.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (m *Markers) Exists(ctx context.Context, key string) (bool, error) {
	n, err := m.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return n > 0, nil
}
