package jobs

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultMarkerTTL keeps a completion marker for one day
	DefaultMarkerTTL = 24 * time.Hour

	markerPrefix = "idem:"
	windowLayout = "2006-01-02"
)

// MarkerStore is the key/value contract behind the idempotency gate
type MarkerStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Gate records completed work per time window so redelivered items are skipped.
//
// It is check-then-act: two workers racing on the same key before either marks it
// may both run. A missing or expired marker only ever causes a re-run, never a skip.
type Gate struct {
	store MarkerStore
	ttl   time.Duration
	now   func() time.Time
}

// NewGate creates a gate over store. ttl <= 0 uses DefaultMarkerTTL.
func NewGate(store MarkerStore, ttl time.Duration, now func() time.Time) *Gate {
	if ttl <= 0 {
		ttl = DefaultMarkerTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Gate{store: store, ttl: ttl, now: now}
}

// Window returns the current idempotency window (the UTC calendar day)
func (g *Gate) Window() string {
	return g.now().UTC().Format(windowLayout)
}

// MarkerKey builds the namespaced marker key for a work key and window
func MarkerKey(workKey, window string) string {
	return markerPrefix + workKey + ":" + window
}

// Check reports whether workKey was already completed in window
func (g *Gate) Check(ctx context.Context, workKey, window string) (bool, error) {
	done, err := g.store.Exists(ctx, MarkerKey(workKey, window))
	if err != nil {
		return false, fmt.Errorf("%w: check marker: %v", ErrStoreUnavailable, err)
	}
	return done, nil
}

// Mark records completion of workKey in window. Call only after the side effect succeeded.
func (g *Gate) Mark(ctx context.Context, workKey, window string) error {
	if err := g.store.Set(ctx, MarkerKey(workKey, window), "1", g.ttl); err != nil {
		return fmt.Errorf("%w: write marker: %v", ErrStoreUnavailable, err)
	}
	return nil
}
