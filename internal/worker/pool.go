package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/scout-jobs/internal/queue"
)

func (p *Pool) spawn(ctx context.Context) {
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.workerLoop(ctx, i)
	}
}

// workerLoop pulls one item at a time until the queue closes or ctx is cancelled
func (p *Pool) workerLoop(ctx context.Context, workerNum int) {
	defer p.wg.Done()

	workerName := fmt.Sprintf("%s-%d", p.workerID, workerNum)
	logger := p.logger.With(slog.String("worker_name", workerName))
	logger.Debug("Worker goroutine started")

	for {
		delivery, err := p.queue.Dequeue(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				logger.Info("Worker goroutine stopping - context canceled")
				return
			case errors.Is(err, queue.ErrQueueClosed):
				logger.Warn("Worker goroutine stopping - queue closed")
			default:
				logger.Error("Worker goroutine stopping - dequeue failed",
					slog.String("error", err.Error()),
				)
			}
			p.fail(err)
			return
		}

		p.safeProcess(ctx, logger, delivery)

		if ackErr := delivery.Ack(); ackErr != nil {
			logger.Error("Failed to ACK work item",
				slog.String("job_id", delivery.Item().JobID),
				slog.String("work_key", delivery.Item().Key()),
				slog.String("error", ackErr.Error()),
			)
		}
	}
}

// safeProcess keeps one bad item from taking the executor down with it
func (p *Pool) safeProcess(ctx context.Context, logger *slog.Logger, delivery queue.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Work item processing panicked",
				slog.String("job_id", delivery.Item().JobID),
				slog.String("work_key", delivery.Item().Key()),
				slog.Any("panic", r),
			)
		}
	}()
	p.process(ctx, logger, delivery.Item())
}
