package jobs_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/cuongbtq/scout-jobs/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureQueue struct {
	mu    sync.Mutex
	items []jobs.WorkItem
	err   error
}

func (q *captureQueue) Enqueue(_ context.Context, item jobs.WorkItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.items = append(q.items, item)
	return nil
}

type staticTargets struct {
	ids []int64
	err error
}

func (s staticTargets) ListIDs(context.Context) ([]int64, error) {
	return s.ids, s.err
}

type serviceFixture struct {
	svc     *jobs.Service
	records *memory.Records
	queue   *captureQueue
	sleeper *recordingSleeper
}

func newServiceFixture(targets jobs.TargetLister) *serviceFixture {
	records := memory.NewRecords(fixedNow)
	q := &captureQueue{}
	sleeper := &recordingSleeper{}
	n := 0
	svc := jobs.NewService(&jobs.ServiceConfig{
		Logger:  discardLogger(),
		Records: records,
		Queue:   q,
		Targets: targets,
		Now:     fixedNow,
		NewID: func() string {
			n++
			return fmt.Sprintf("job-%d", n)
		},
		Sleep: sleeper.Sleep,
	})
	return &serviceFixture{svc: svc, records: records, queue: q, sleeper: sleeper}
}

func TestService_SubmitRefresh(t *testing.T) {
	f := newServiceFixture(nil)
	ctx := context.Background()

	job, err := f.svc.SubmitRefresh(ctx, []int64{3, 1, 3, 2})
	require.NoError(t, err)

	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, jobs.StatusPending, job.Status)
	assert.Equal(t, int64(3), job.Total)
	assert.Equal(t, []jobs.WorkItem{
		{JobID: "job-1", Kind: jobs.KindMarketRefresh, PlayerID: 3},
		{JobID: "job-1", Kind: jobs.KindMarketRefresh, PlayerID: 1},
		{JobID: "job-1", Kind: jobs.KindMarketRefresh, PlayerID: 2},
	}, f.queue.items)

	stored, err := f.svc.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusPending, stored.Status)
	assert.Equal(t, testNow, stored.CreatedAt)
	assert.Nil(t, stored.StartedAt)
}

func TestService_SubmitRefreshAll(t *testing.T) {
	f := newServiceFixture(staticTargets{ids: []int64{10, 11}})

	job, err := f.svc.SubmitRefresh(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), job.Total)
	assert.Len(t, f.queue.items, 2)
}

func TestService_SubmitRefreshAllWithoutTargets(t *testing.T) {
	f := newServiceFixture(nil)

	_, err := f.svc.SubmitRefresh(context.Background(), nil)
	assert.ErrorIs(t, err, jobs.ErrInvalidInput)
}

func TestService_SubmitRefreshTargetError(t *testing.T) {
	f := newServiceFixture(staticTargets{err: errors.New("db down")})

	_, err := f.svc.SubmitRefresh(context.Background(), nil)
	assert.ErrorContains(t, err, "db down")
	assert.Empty(t, f.queue.items)
}

func TestService_SubmitEmptyBatchFinishesImmediately(t *testing.T) {
	f := newServiceFixture(staticTargets{})
	ctx := context.Background()

	job, err := f.svc.SubmitRefresh(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, job.Status)
	assert.Empty(t, f.queue.items)

	stored, err := f.svc.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, stored.Status)
	assert.NotNil(t, stored.StartedAt)
	assert.NotNil(t, stored.EndedAt)
}

func TestService_SubmitScout(t *testing.T) {
	f := newServiceFixture(nil)

	job, err := f.svc.SubmitScout(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, jobs.KindScoutReport, job.Kind)
	assert.Equal(t, int64(1), job.Total)
	assert.Equal(t, []jobs.WorkItem{{JobID: job.ID, Kind: jobs.KindScoutReport, PlayerID: 42}}, f.queue.items)
}

func TestService_SubmitAnalytics(t *testing.T) {
	f := newServiceFixture(staticTargets{ids: []int64{1, 2, 3}})
	ctx := context.Background()

	job, err := f.svc.SubmitAnalytics(ctx, []int64{4, 5})
	require.NoError(t, err)
	assert.Equal(t, jobs.KindAnalytics, job.Kind)
	assert.Equal(t, int64(2), job.Total)
	assert.Equal(t, []jobs.WorkItem{
		{JobID: job.ID, Kind: jobs.KindAnalytics, PlayerID: 4},
		{JobID: job.ID, Kind: jobs.KindAnalytics, PlayerID: 5},
	}, f.queue.items)

	_, err = f.svc.SubmitAnalytics(ctx, nil)
	assert.ErrorIs(t, err, jobs.ErrInvalidInput, "analytics never expands to every player")
	assert.Len(t, f.queue.items, 2)
}

func TestService_SubmitTwiceCreatesTwoJobs(t *testing.T) {
	f := newServiceFixture(nil)
	ctx := context.Background()

	a, err := f.svc.SubmitScout(ctx, 1)
	require.NoError(t, err)
	b, err := f.svc.SubmitScout(ctx, 1)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, f.queue.items, 2)
}

func TestService_SubmitInvalid(t *testing.T) {
	f := newServiceFixture(nil)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, "bogus", []int64{1})
	assert.ErrorIs(t, err, jobs.ErrInvalidInput)

	_, err = f.svc.SubmitRefresh(ctx, []int64{1, 0})
	assert.ErrorIs(t, err, jobs.ErrInvalidInput)

	_, err = f.svc.SubmitScout(ctx, -4)
	assert.ErrorIs(t, err, jobs.ErrInvalidInput)

	assert.Empty(t, f.queue.items)
}

func TestService_SubmitEnqueueFailure(t *testing.T) {
	f := newServiceFixture(nil)
	f.queue.err = errors.New("broker unreachable")

	_, err := f.svc.SubmitScout(context.Background(), 1)
	assert.ErrorContains(t, err, "broker unreachable")
}

func TestService_StatusUnknownJob(t *testing.T) {
	f := newServiceFixture(nil)

	job, err := f.svc.Status(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	assert.Nil(t, job)
}

func TestService_WaitReturnsTerminalRecord(t *testing.T) {
	f := newServiceFixture(nil)
	ctx := context.Background()

	job, err := f.svc.SubmitScout(ctx, 5)
	require.NoError(t, err)
	require.NoError(t, f.records.Transition(ctx, job.ID, jobs.Transition{To: jobs.StatusRunning, At: testNow}))
	require.NoError(t, f.records.Transition(ctx, job.ID, jobs.Transition{To: jobs.StatusCompleted, At: testNow, Result: "done"}))

	got, err := f.svc.Wait(ctx, job.ID, time.Second, 5)
	require.NoError(t, err)
	assert.Equal(t, "done", got.Result)
	assert.Empty(t, f.sleeper.Delays())
}

func TestService_WaitIsBounded(t *testing.T) {
	f := newServiceFixture(nil)
	ctx := context.Background()

	job, err := f.svc.SubmitScout(ctx, 5)
	require.NoError(t, err)

	got, err := f.svc.Wait(ctx, job.ID, 2*time.Second, 3)
	assert.ErrorIs(t, err, jobs.ErrWaitExhausted)
	require.NotNil(t, got)
	assert.Equal(t, jobs.StatusPending, got.Status)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, f.sleeper.Delays())
}

func TestService_WaitCancelled(t *testing.T) {
	f := newServiceFixture(nil)
	job, err := f.svc.SubmitScout(context.Background(), 5)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.svc.Wait(ctx, job.ID, time.Second, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_WaitUnknownJob(t *testing.T) {
	f := newServiceFixture(nil)

	_, err := f.svc.Wait(context.Background(), "missing", time.Second, 3)
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}
