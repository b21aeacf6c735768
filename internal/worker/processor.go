package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
)

// process executes one work item and folds its outcome into the owning job record.
// Record writes use a context detached from shutdown so a finished item is never lost.
func (p *Pool) process(ctx context.Context, logger *slog.Logger, item jobs.WorkItem) {
	logger = logger.With(
		slog.String("job_id", item.JobID),
		slog.String("work_key", item.Key()),
	)
	storeCtx := context.WithoutCancel(ctx)

	err := p.records.Transition(storeCtx, item.JobID, jobs.Transition{To: jobs.StatusRunning, At: p.now().UTC()})
	switch {
	case err == nil:
		logger.Info("Job started")
	case errors.Is(err, jobs.ErrInvalidTransition):
		// another item of the batch got there first
	case errors.Is(err, jobs.ErrJobNotFound):
		logger.Warn("Job record not found, outcome will not be recorded")
	default:
		logger.Error("Failed to mark job running",
			slog.String("error", err.Error()),
		)
	}

	if p.alreadyRecorded(storeCtx, item) {
		logger.Info("Work item already recorded, skipping redelivery")
		p.finalize(storeCtx, logger, item.JobID)
		return
	}

	res := p.executor.Execute(ctx, item)

	attrs := []any{
		slog.String("item_status", string(res.Status)),
		slog.Int("attempts", res.Attempts),
	}
	if res.Err != nil {
		attrs = append(attrs, slog.String("error", res.Err.Error()))
	}
	logger.Info("Work item processed", attrs...)

	if _, err := p.records.RecordItem(storeCtx, item.JobID, res); err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			return
		case errors.Is(err, jobs.ErrItemRecorded):
			// a concurrent delivery of the same item won
			logger.Info("Work item outcome recorded by another delivery")
		default:
			logger.Error("Failed to record work item outcome",
				slog.String("error", err.Error()),
			)
			return
		}
	}

	p.finalize(storeCtx, logger, item.JobID)
}

// alreadyRecorded reports whether the job record already holds an outcome for item.
// A missing or unreadable record is treated as not recorded.
func (p *Pool) alreadyRecorded(ctx context.Context, item jobs.WorkItem) bool {
	job, err := p.records.Get(ctx, item.JobID)
	if err != nil {
		return false
	}
	_, ok := job.Items[item.Key()]
	return ok
}

// finalize moves a running job whose items are all recorded to its terminal status.
// The transition is a compare-and-set, so only one caller ever wins.
func (p *Pool) finalize(ctx context.Context, logger *slog.Logger, jobID string) {
	job, err := p.records.Get(ctx, jobID)
	if err != nil {
		if !errors.Is(err, jobs.ErrJobNotFound) {
			logger.Error("Failed to read job record",
				slog.String("error", err.Error()),
			)
		}
		return
	}
	if job.Status != jobs.StatusRunning || job.Processed < job.Total {
		return
	}

	final := jobs.FinalTransition(job, p.now().UTC())
	if err := p.records.Transition(ctx, jobID, final); err != nil {
		if errors.Is(err, jobs.ErrInvalidTransition) {
			logger.Debug("Job already finalized")
			return
		}
		logger.Error("Failed to finalize job",
			slog.String("status", string(final.To)),
			slog.String("error", err.Error()),
		)
		return
	}

	logger.Info("Job finished",
		slog.String("status", string(final.To)),
		slog.Int64("total", job.Total),
		slog.Int64("successful", job.Successful),
		slog.Int64("failed", job.Failed),
		slog.Int64("skipped", job.Skipped),
		slog.Int64("not_found", job.NotFound),
	)
}
