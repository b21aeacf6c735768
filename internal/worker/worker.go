package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/cuongbtq/scout-jobs/internal/queue"
)

// Config holds worker pool configuration
type Config struct {
	Logger      *slog.Logger
	Queue       queue.Queue
	Executor    *jobs.Executor
	Records     jobs.RecordStore
	Concurrency int
	WorkerID    string
	Now         func() time.Time
}

// Pool is a fixed-size set of executors draining a work queue
type Pool struct {
	logger      *slog.Logger
	queue       queue.Queue
	executor    *jobs.Executor
	records     jobs.RecordStore
	concurrency int
	workerID    string
	now         func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	exitErr error
}

// NewPool creates a worker pool
func NewPool(cfg *Config) *Pool {
	p := &Pool{
		logger:      cfg.Logger,
		queue:       cfg.Queue,
		executor:    cfg.Executor,
		records:     cfg.Records,
		concurrency: cfg.Concurrency,
		workerID:    cfg.WorkerID,
		now:         cfg.Now,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.concurrency <= 0 {
		p.concurrency = jobs.DefaultConcurrency
	}
	if p.workerID == "" {
		host, _ := os.Hostname()
		p.workerID = fmt.Sprintf("worker-%s-%d", host, os.Getpid())
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Start launches the executors. They run until Stop is called or ctx is cancelled.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("worker pool %s already started", p.workerID)
	}
	p.started = true

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("Starting worker pool",
		slog.String("worker_id", p.workerID),
		slog.Int("concurrency", p.concurrency),
	)
	p.spawn(runCtx)
	return nil
}

// Stop stops pulling new items and returns once every executor has exited.
// Attempts already running are allowed to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	p.logger.Info("Stopping worker pool",
		slog.String("worker_id", p.workerID),
	)
	cancel()
	p.wg.Wait()
	p.logger.Info("Worker pool stopped",
		slog.String("worker_id", p.workerID),
	)
}

// Wait blocks until every executor has exited
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Err returns the first error that made an executor exit on its own, or nil when
// every exit was requested through Stop or ctx.
func (p *Pool) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}

func (p *Pool) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exitErr == nil {
		p.exitErr = err
	}
}
