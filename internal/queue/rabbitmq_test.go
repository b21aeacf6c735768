package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	mu         sync.Mutex
	published  [][]byte
	publishErr error
	deliveries chan amqp.Delivery
}

func (b *fakeBroker) PublishWithRetry(_ context.Context, body []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, body)
	return nil
}

func (b *fakeBroker) Consume(string) (<-chan amqp.Delivery, error) {
	return b.deliveries, nil
}

func (b *fakeBroker) Close() error { return nil }

type ackRecord struct {
	tag     uint64
	acked   bool
	requeue bool
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	records []ackRecord
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, ackRecord{tag: tag, acked: true})
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, ackRecord{tag: tag, requeue: requeue})
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestRabbitMQ_EnqueuePublishesJSON(t *testing.T) {
	broker := &fakeBroker{}
	q := NewRabbitMQ(broker, "test", nil)

	it := jobs.WorkItem{JobID: "0b7e1c7e-4a55-4c1e-9d25-3f6f0c1d2a11", Kind: jobs.KindScoutReport, PlayerID: 9}
	require.NoError(t, q.Enqueue(context.Background(), it))

	require.Len(t, broker.published, 1)
	var got jobs.WorkItem
	require.NoError(t, json.Unmarshal(broker.published[0], &got))
	assert.Equal(t, it, got)
}

func TestRabbitMQ_EnqueueError(t *testing.T) {
	broker := &fakeBroker{publishErr: errors.New("channel closed")}
	q := NewRabbitMQ(broker, "test", nil)

	err := q.Enqueue(context.Background(), item(1))
	assert.ErrorContains(t, err, "channel closed")
}

func TestRabbitMQ_DequeueSkipsMalformed(t *testing.T) {
	ack := &fakeAcknowledger{}
	broker := &fakeBroker{deliveries: make(chan amqp.Delivery, 4)}
	q := NewRabbitMQ(broker, "test", nil)

	valid, err := json.Marshal(jobs.WorkItem{
		JobID: "0b7e1c7e-4a55-4c1e-9d25-3f6f0c1d2a11", Kind: jobs.KindMarketRefresh, PlayerID: 3,
	})
	require.NoError(t, err)

	broker.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("{not json")}
	broker.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte(`{"job_id":"nope","kind":"market_refresh","player_id":3}`)}
	broker.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte(`{"job_id":"0b7e1c7e-4a55-4c1e-9d25-3f6f0c1d2a11","kind":"unknown","player_id":3}`)}
	broker.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 4, Body: valid}

	d, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.Item().PlayerID)
	require.NoError(t, d.Ack())

	assert.Equal(t, []ackRecord{
		{tag: 1},
		{tag: 2},
		{tag: 3},
		{tag: 4, acked: true},
	}, ack.records)
}

func TestRabbitMQ_DequeueClosedChannel(t *testing.T) {
	broker := &fakeBroker{deliveries: make(chan amqp.Delivery)}
	close(broker.deliveries)
	q := NewRabbitMQ(broker, "test", nil)

	_, err := q.Dequeue(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestRabbitMQ_NackRequeue(t *testing.T) {
	ack := &fakeAcknowledger{}
	broker := &fakeBroker{deliveries: make(chan amqp.Delivery, 1)}
	q := NewRabbitMQ(broker, "test", nil)

	body, err := json.Marshal(jobs.WorkItem{
		JobID: "0b7e1c7e-4a55-4c1e-9d25-3f6f0c1d2a11", Kind: jobs.KindMarketRefresh, PlayerID: 1,
	})
	require.NoError(t, err)
	broker.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 5, Body: body}

	d, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.NoError(t, d.Nack(true))
	assert.Equal(t, []ackRecord{{tag: 5, requeue: true}}, ack.records)
}
