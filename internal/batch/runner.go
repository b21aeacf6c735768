// Package batch runs a market refresh to completion inside one process, using the
// same executor and worker pool as the queue-backed service.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/cuongbtq/scout-jobs/internal/queue"
	"github.com/cuongbtq/scout-jobs/internal/store/memory"
	"github.com/cuongbtq/scout-jobs/internal/worker"
)

// recordTTL keeps the in-process record alive for however long the run takes
const recordTTL = 24 * time.Hour

// Config holds runner dependencies
type Config struct {
	Logger      *slog.Logger
	Executor    *jobs.Executor
	Targets     jobs.TargetLister
	Concurrency int
}

// Report is the outcome of one run
type Report struct {
	JobID    string
	Status   jobs.Status
	Summary  jobs.Summary
	Error    string
	Duration time.Duration
}

// Runner executes a refresh job through an in-memory queue and job record
type Runner struct {
	logger      *slog.Logger
	executor    *jobs.Executor
	targets     jobs.TargetLister
	concurrency int
}

func NewRunner(cfg *Config) *Runner {
	r := &Runner{
		logger:      cfg.Logger,
		executor:    cfg.Executor,
		targets:     cfg.Targets,
		concurrency: cfg.Concurrency,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// RefreshMarketValues refreshes playerIDs, or every player when playerIDs is empty, and
// waits for every item. Item failures are reported on the Report, not as an error; the
// error is non-nil only when the job could not be submitted or the run was interrupted.
func (r *Runner) RefreshMarketValues(ctx context.Context, playerIDs []int64) (*Report, error) {
	start := time.Now()

	q := queue.NewMemory()
	defer q.Close()
	records := memory.NewRecords(nil)

	svc := jobs.NewService(&jobs.ServiceConfig{
		Logger:    r.logger,
		Records:   records,
		Queue:     q,
		Targets:   r.targets,
		RecordTTL: recordTTL,
	})
	pool := worker.NewPool(&worker.Config{
		Logger:      r.logger,
		Queue:       q,
		Executor:    r.executor,
		Records:     records,
		Concurrency: r.concurrency,
	})

	if err := pool.Start(ctx); err != nil {
		return nil, err
	}
	defer pool.Stop()

	job, err := svc.SubmitRefresh(ctx, playerIDs)
	if err != nil {
		return nil, fmt.Errorf("submit refresh: %w", err)
	}

	r.logger.Info("Refresh started",
		slog.String("job_id", job.ID),
		slog.Int64("total", job.Total),
	)

	joinErr := q.Join(ctx)
	pool.Stop()

	final, err := svc.Status(context.WithoutCancel(ctx), job.ID)
	if err != nil {
		return nil, fmt.Errorf("read job record: %w", err)
	}

	report := &Report{
		JobID:    final.ID,
		Status:   final.Status,
		Summary:  final.Summary(),
		Error:    final.Error,
		Duration: time.Since(start),
	}
	if joinErr != nil {
		return report, fmt.Errorf("refresh interrupted: %w", joinErr)
	}
	return report, nil
}
