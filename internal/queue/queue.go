package queue

import (
	"context"
	"errors"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
)

var (
	// ErrQueueClosed is returned by Dequeue once the queue is closed and drained
	ErrQueueClosed = errors.New("queue closed")

	// ErrAlreadyAcknowledged is returned when a delivery is acked or nacked twice
	ErrAlreadyAcknowledged = errors.New("delivery already acknowledged")
)

// Delivery is a work item handed to one consumer until acknowledged
type Delivery interface {
	Item() jobs.WorkItem
	Ack() error
	Nack(requeue bool) error
}

// Queue is the work queue shared by submitters and the worker pool
type Queue interface {
	Enqueue(ctx context.Context, item jobs.WorkItem) error
	Dequeue(ctx context.Context) (Delivery, error)
	Close() error
}
