// Package storetest holds behaviour tests shared by every job record and marker store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Clock lets a test move store time forward, e.g. miniredis FastForward
type Clock func(d time.Duration)

var created = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newJob(id string, total int64) *jobs.Job {
	return &jobs.Job{
		ID:        id,
		Kind:      jobs.KindMarketRefresh,
		Status:    jobs.StatusPending,
		Total:     total,
		CreatedAt: created,
	}
}

// RecordStore runs the RecordStore contract against the store built by newStore
func RecordStore(t *testing.T, newStore func(t *testing.T) (jobs.RecordStore, Clock)) {
	t.Run("create and get", func(t *testing.T) {
		store, _ := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Create(ctx, newJob("a", 2), time.Hour))

		got, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "a", got.ID)
		assert.Equal(t, jobs.KindMarketRefresh, got.Kind)
		assert.Equal(t, jobs.StatusPending, got.Status)
		assert.Equal(t, int64(2), got.Total)
		assert.Equal(t, int64(0), got.Processed)
		assert.True(t, created.Equal(got.CreatedAt))
		assert.Nil(t, got.StartedAt)
		assert.Nil(t, got.EndedAt)
		assert.Empty(t, got.Result)
		assert.Empty(t, got.Error)
	})

	t.Run("create twice", func(t *testing.T) {
		store, _ := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Create(ctx, newJob("a", 1), time.Hour))
		assert.Error(t, store.Create(ctx, newJob("a", 1), time.Hour))
	})

	t.Run("unknown job", func(t *testing.T) {
		store, _ := newStore(t)
		ctx := context.Background()

		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, jobs.ErrJobNotFound)

		err = store.Transition(ctx, "missing", jobs.Transition{To: jobs.StatusRunning, At: created})
		assert.ErrorIs(t, err, jobs.ErrJobNotFound)

		_, err = store.RecordItem(ctx, "missing", jobs.ItemResult{Status: jobs.ItemSuccess})
		assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	})

	t.Run("expires", func(t *testing.T) {
		store, advance := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Create(ctx, newJob("a", 1), time.Minute))
		advance(2 * time.Minute)

		_, err := store.Get(ctx, "a")
		assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	})

	t.Run("lifecycle", func(t *testing.T) {
		store, _ := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.Create(ctx, newJob("a", 1), time.Hour))

		started := created.Add(time.Second)
		ended := created.Add(2 * time.Second)

		err := store.Transition(ctx, "a", jobs.Transition{To: jobs.StatusCompleted, At: ended})
		assert.ErrorIs(t, err, jobs.ErrInvalidTransition, "pending cannot complete")

		require.NoError(t, store.Transition(ctx, "a", jobs.Transition{To: jobs.StatusRunning, At: started}))
		err = store.Transition(ctx, "a", jobs.Transition{To: jobs.StatusRunning, At: ended})
		assert.ErrorIs(t, err, jobs.ErrInvalidTransition, "running twice")

		require.NoError(t, store.Transition(ctx, "a", jobs.Transition{To: jobs.StatusCompleted, At: ended, Result: "ok"}))

		for _, to := range []jobs.Status{jobs.StatusPending, jobs.StatusRunning, jobs.StatusFailed, jobs.StatusCompleted} {
			err = store.Transition(ctx, "a", jobs.Transition{To: to, At: ended, Error: "late"})
			assert.ErrorIs(t, err, jobs.ErrInvalidTransition, "terminal -> %s", to)
		}

		got, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, jobs.StatusCompleted, got.Status)
		assert.Equal(t, "ok", got.Result)
		assert.Empty(t, got.Error)
		require.NotNil(t, got.StartedAt)
		require.NotNil(t, got.EndedAt)
		assert.True(t, started.Equal(*got.StartedAt))
		assert.True(t, ended.Equal(*got.EndedAt))
	})

	t.Run("failed carries error", func(t *testing.T) {
		store, _ := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.Create(ctx, newJob("a", 1), time.Hour))
		require.NoError(t, store.Transition(ctx, "a", jobs.Transition{To: jobs.StatusRunning, At: created}))
		require.NoError(t, store.Transition(ctx, "a", jobs.Transition{To: jobs.StatusFailed, At: created, Error: "boom"}))

		got, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, jobs.StatusFailed, got.Status)
		assert.Equal(t, "boom", got.Error)
		assert.Empty(t, got.Result)
	})

	t.Run("record items", func(t *testing.T) {
		store, _ := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.Create(ctx, newJob("a", 4), time.Hour))

		results := []jobs.ItemResult{
			{Item: item("a", 1), Status: jobs.ItemSuccess, Result: "market_value 100 -> 105"},
			{Item: item("a", 2), Status: jobs.ItemSkipped, Result: "already completed in window 2025-03-14"},
			{Item: item("a", 3), Status: jobs.ItemNotFound, Err: fmt.Errorf("player 3: %w", jobs.ErrNotFound)},
			{Item: item("a", 4), Status: jobs.ItemFailed, Err: errors.New("failed after 3 attempts: timeout")},
		}
		for i, res := range results {
			n, err := store.RecordItem(ctx, "a", res)
			require.NoError(t, err)
			assert.Equal(t, int64(i+1), n)
		}

		got, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, int64(4), got.Processed)
		assert.Equal(t, int64(1), got.Successful)
		assert.Equal(t, int64(1), got.Skipped)
		assert.Equal(t, int64(1), got.NotFound)
		assert.Equal(t, int64(1), got.Failed)
		assert.Equal(t, "already completed in window 2025-03-14", got.LastResult)
		assert.Equal(t, "failed after 3 attempts: timeout", got.LastError)
		assert.Equal(t, map[string]jobs.ItemStatus{
			"market_refresh:1": jobs.ItemSuccess,
			"market_refresh:2": jobs.ItemSkipped,
			"market_refresh:3": jobs.ItemNotFound,
			"market_refresh:4": jobs.ItemFailed,
		}, got.Items)
	})

	t.Run("record item twice counts once", func(t *testing.T) {
		store, _ := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.Create(ctx, newJob("a", 2), time.Hour))

		n, err := store.RecordItem(ctx, "a", jobs.ItemResult{Item: item("a", 1), Status: jobs.ItemSuccess, Result: "market_value 100 -> 105"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = store.RecordItem(ctx, "a", jobs.ItemResult{Item: item("a", 1), Status: jobs.ItemSkipped, Result: "already completed"})
		assert.ErrorIs(t, err, jobs.ErrItemRecorded)
		assert.Equal(t, int64(1), n)

		got, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Processed)
		assert.Equal(t, int64(1), got.Successful)
		assert.Equal(t, int64(0), got.Skipped)
		assert.Equal(t, "market_value 100 -> 105", got.LastResult)
		assert.Equal(t, map[string]jobs.ItemStatus{"market_refresh:1": jobs.ItemSuccess}, got.Items)

		n, err = store.RecordItem(ctx, "a", jobs.ItemResult{Item: item("a", 2), Status: jobs.ItemFailed, Err: errors.New("timeout")})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("concurrent duplicates of one item count once", func(t *testing.T) {
		store, _ := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.Create(ctx, newJob("a", 3), time.Hour))

		var (
			wg       sync.WaitGroup
			recorded atomic.Int64
		)
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.RecordItem(ctx, "a", jobs.ItemResult{Item: item("a", 1), Status: jobs.ItemSuccess})
				if err == nil {
					recorded.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(1), recorded.Load())
		got, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Processed)
		assert.Equal(t, int64(1), got.Successful)
	})

	t.Run("concurrent record items count once each", func(t *testing.T) {
		store, _ := newStore(t)
		ctx := context.Background()
		const total = 50
		require.NoError(t, store.Create(ctx, newJob("a", total), time.Hour))

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			seen  = make(map[int64]int)
			fails int
		)
		for i := int64(1); i <= total; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				n, err := store.RecordItem(ctx, "a", jobs.ItemResult{Item: item("a", id), Status: jobs.ItemSuccess})
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					fails++
					return
				}
				seen[n]++
			}(i)
		}
		wg.Wait()

		assert.Zero(t, fails)
		assert.Len(t, seen, total, "every increment returns a distinct processed count")
		assert.Equal(t, 1, seen[total], "exactly one writer observes the last item")

		got, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, int64(total), got.Processed)
		assert.Equal(t, int64(total), got.Successful)
	})
}

// MarkerStore runs the MarkerStore contract against the store built by newStore
func MarkerStore(t *testing.T, newStore func(t *testing.T) (jobs.MarkerStore, Clock)) {
	t.Run("set get exists", func(t *testing.T) {
		store, _ := newStore(t)
		ctx := context.Background()

		_, ok, err := store.Get(ctx, "idem:k")
		require.NoError(t, err)
		assert.False(t, ok)

		exists, err := store.Exists(ctx, "idem:k")
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, store.Set(ctx, "idem:k", "1", time.Hour))

		val, ok, err := store.Get(ctx, "idem:k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "1", val)

		exists, err = store.Exists(ctx, "idem:k")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("expiry", func(t *testing.T) {
		store, advance := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, "idem:k", "1", time.Minute))
		advance(time.Minute + time.Second)

		exists, err := store.Exists(ctx, "idem:k")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func item(jobID string, id int64) jobs.WorkItem {
	return jobs.WorkItem{JobID: jobID, Kind: jobs.KindMarketRefresh, PlayerID: id}
}
