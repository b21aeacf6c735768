package jobs

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the number of remote calls allowed in flight at once
const DefaultConcurrency = 5

// Limiter caps simultaneous remote calls. Waiters are served in FIFO order.
type Limiter struct {
	sem      *semaphore.Weighted
	size     int64
	inFlight atomic.Int64
}

// NewLimiter creates a limiter with n permits
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		n = DefaultConcurrency
	}
	return &Limiter{
		sem:  semaphore.NewWeighted(int64(n)),
		size: int64(n),
	}
}

// Acquire blocks until a permit is free or ctx is done
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire permit: %w", err)
	}
	l.inFlight.Add(1)
	return nil
}

// Release returns a permit taken by Acquire
func (l *Limiter) Release() {
	l.inFlight.Add(-1)
	l.sem.Release(1)
}

// Do runs fn while holding a permit. The permit is released even if fn panics.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// InFlight returns the number of permits currently held
func (l *Limiter) InFlight() int64 {
	return l.inFlight.Load()
}

// Size returns the total number of permits
func (l *Limiter) Size() int64 {
	return l.size
}
