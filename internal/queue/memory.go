package queue

import (
	"context"
	"sync"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
)

// Memory is an unbounded in-process FIFO queue. It counts unacknowledged items so
// callers can Join on the drain of a batch.
type Memory struct {
	mu         sync.Mutex
	items      []jobs.WorkItem
	wake       chan struct{}
	idle       chan struct{}
	unfinished int
	closed     bool
}

// NewMemory creates an empty queue
func NewMemory() *Memory {
	idle := make(chan struct{})
	close(idle)
	return &Memory{
		wake: make(chan struct{}),
		idle: idle,
	}
}

var _ Queue = (*Memory)(nil)

// Enqueue appends item and wakes waiting consumers
func (q *Memory) Enqueue(_ context.Context, item jobs.WorkItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.unfinished == 0 {
		q.idle = make(chan struct{})
	}
	q.unfinished++
	q.push(item)
	return nil
}

// Dequeue blocks until an item is available, the queue is closed or ctx is done
func (q *Memory) Dequeue(ctx context.Context) (Delivery, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = jobs.WorkItem{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return &memoryDelivery{q: q, item: item}, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Join blocks until every enqueued item has been acknowledged or ctx is done
func (q *Memory) Join(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of items waiting to be dequeued
func (q *Memory) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting items. Waiting items can still be dequeued.
func (q *Memory) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		q.broadcast()
	}
	return nil
}

// push expects q.mu to be held
func (q *Memory) push(item jobs.WorkItem) {
	q.items = append(q.items, item)
	q.broadcast()
}

// broadcast expects q.mu to be held
func (q *Memory) broadcast() {
	close(q.wake)
	q.wake = make(chan struct{})
}

func (q *Memory) done(requeue bool, item jobs.WorkItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if requeue && !q.closed {
		q.push(item)
		return
	}
	q.unfinished--
	if q.unfinished == 0 {
		close(q.idle)
	}
}

type memoryDelivery struct {
	q    *Memory
	item jobs.WorkItem
	once sync.Once
}

func (d *memoryDelivery) Item() jobs.WorkItem {
	return d.item
}

func (d *memoryDelivery) Ack() error {
	return d.settle(false)
}

func (d *memoryDelivery) Nack(requeue bool) error {
	return d.settle(requeue)
}

func (d *memoryDelivery) settle(requeue bool) error {
	err := ErrAlreadyAcknowledged
	d.once.Do(func() {
		d.q.done(requeue, d.item)
		err = nil
	})
	return err
}
