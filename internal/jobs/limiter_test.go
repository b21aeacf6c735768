package jobs_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_CapsInFlight(t *testing.T) {
	const permits = 3
	l := jobs.NewLimiter(permits)
	assert.Equal(t, int64(permits), l.Size())

	var current, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Do(context.Background(), func() error {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				current.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(permits))
	assert.Equal(t, int64(0), l.InFlight())
}

func TestLimiter_ReleasesOnError(t *testing.T) {
	l := jobs.NewLimiter(1)
	boom := errors.New("boom")

	assert.ErrorIs(t, l.Do(context.Background(), func() error { return boom }), boom)
	assert.Equal(t, int64(0), l.InFlight())

	// the single permit must be available again
	require.NoError(t, l.Acquire(context.Background()))
	l.Release()
}

func TestLimiter_ReleasesOnPanic(t *testing.T) {
	l := jobs.NewLimiter(1)

	assert.Panics(t, func() {
		_ = l.Do(context.Background(), func() error { panic("boom") })
	})
	assert.Equal(t, int64(0), l.InFlight())
}

func TestLimiter_AcquireHonorsContext(t *testing.T) {
	l := jobs.NewLimiter(1)
	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(1), l.InFlight())
}

func TestLimiter_DefaultSize(t *testing.T) {
	assert.Equal(t, int64(jobs.DefaultConcurrency), jobs.NewLimiter(0).Size())
}
