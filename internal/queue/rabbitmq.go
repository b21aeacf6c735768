package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const contentTypeJSON = "application/json"

// Broker is the subset of the RabbitMQ client the queue needs
type Broker interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
	Close() error
}

// RabbitMQ carries work items as JSON messages on a durable broker queue.
// Consumption starts on the first Dequeue.
type RabbitMQ struct {
	broker      Broker
	consumerTag string
	logger      *slog.Logger

	once       sync.Once
	deliveries <-chan amqp.Delivery
	consumeErr error
}

// NewRabbitMQ creates a queue on broker. consumerTag identifies this process to the broker.
func NewRabbitMQ(broker Broker, consumerTag string, logger *slog.Logger) *RabbitMQ {
	if logger == nil {
		logger = slog.Default()
	}
	return &RabbitMQ{
		broker:      broker,
		consumerTag: consumerTag,
		logger:      logger,
	}
}

var _ Queue = (*RabbitMQ)(nil)

func (q *RabbitMQ) Enqueue(ctx context.Context, item jobs.WorkItem) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal work item: %w", err)
	}
	if err := q.broker.PublishWithRetry(ctx, body, contentTypeJSON); err != nil {
		return fmt.Errorf("publish work item %s: %w", item.Key(), err)
	}
	return nil
}

// Dequeue returns the next well-formed work item. Malformed messages are rejected
// without requeue so the broker can dead-letter them.
func (q *RabbitMQ) Dequeue(ctx context.Context) (Delivery, error) {
	q.once.Do(func() {
		q.deliveries, q.consumeErr = q.broker.Consume(q.consumerTag)
	})
	if q.consumeErr != nil {
		return nil, fmt.Errorf("start consumer: %w", q.consumeErr)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case d, ok := <-q.deliveries:
			if !ok {
				return nil, ErrQueueClosed
			}

			item, err := decodeItem(d.Body)
			if err != nil {
				q.logger.Error("Rejecting malformed work message",
					slog.String("error", err.Error()),
					slog.String("body", string(d.Body)),
				)
				if nackErr := d.Nack(false, false); nackErr != nil {
					q.logger.Error("Failed to NACK malformed message",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			return &rabbitDelivery{d: d, item: item}, nil
		}
	}
}

func (q *RabbitMQ) Close() error {
	return q.broker.Close()
}

func decodeItem(body []byte) (jobs.WorkItem, error) {
	var item jobs.WorkItem
	if err := json.Unmarshal(body, &item); err != nil {
		return item, fmt.Errorf("parse message JSON: %w", err)
	}
	if _, err := uuid.Parse(item.JobID); err != nil {
		return item, fmt.Errorf("invalid job_id %q: %w", item.JobID, err)
	}
	if err := item.Validate(); err != nil {
		return item, err
	}
	return item, nil
}

type rabbitDelivery struct {
	d    amqp.Delivery
	item jobs.WorkItem
}

func (r *rabbitDelivery) Item() jobs.WorkItem {
	return r.item
}

func (r *rabbitDelivery) Ack() error {
	return r.d.Ack(false)
}

func (r *rabbitDelivery) Nack(requeue bool) error {
	return r.d.Nack(false, requeue)
}
