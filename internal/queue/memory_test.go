package queue

import (
	"context"
	"testing"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id int64) jobs.WorkItem {
	return jobs.WorkItem{JobID: "job-1", Kind: jobs.KindMarketRefresh, PlayerID: id}
}

func TestMemory_FIFO(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, q.Enqueue(ctx, item(i)))
	}
	assert.Equal(t, 3, q.Len())

	for i := int64(1); i <= 3; i++ {
		d, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, d.Item().PlayerID)
		require.NoError(t, d.Ack())
	}
	assert.Equal(t, 0, q.Len())
}

func TestMemory_DequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewMemory()

	got := make(chan jobs.WorkItem, 1)
	go func() {
		d, err := q.Dequeue(context.Background())
		if err == nil {
			got <- d.Item()
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), item(7)))

	select {
	case it := <-got:
		assert.Equal(t, int64(7), it.PlayerID)
	case <-time.After(time.Second):
		t.Fatal("consumer was not woken")
	}
}

func TestMemory_DequeueHonorsContext(t *testing.T) {
	q := NewMemory()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemory_JoinWaitsForAcks(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()

	require.NoError(t, q.Join(ctx), "empty queue is already joined")

	require.NoError(t, q.Enqueue(ctx, item(1)))
	require.NoError(t, q.Enqueue(ctx, item(2)))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Join(short), context.DeadlineExceeded)

	d1, err := q.Dequeue(ctx)
	require.NoError(t, err)
	d2, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, d1.Ack())

	joined := make(chan error, 1)
	go func() { joined <- q.Join(ctx) }()

	select {
	case <-joined:
		t.Fatal("join returned with an unacknowledged item")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, d2.Ack())
	select {
	case err := <-joined:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("join did not return after the last ack")
	}
}

func TestMemory_NackRequeue(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, item(1)))

	d, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Nack(true))
	assert.ErrorIs(t, d.Ack(), ErrAlreadyAcknowledged)

	again, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.Item().PlayerID)
	require.NoError(t, again.Nack(false))
	assert.NoError(t, q.Join(ctx))
}

func TestMemory_Close(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, item(1)))
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Enqueue(ctx, item(2)), ErrQueueClosed)

	d, err := q.Dequeue(ctx)
	require.NoError(t, err, "items queued before close are still delivered")
	require.NoError(t, d.Ack())

	_, err = q.Dequeue(ctx)
	assert.ErrorIs(t, err, ErrQueueClosed)
}
