package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
)

// JobService is the job submission and status API the handlers call
type JobService interface {
	SubmitRefresh(ctx context.Context, playerIDs []int64) (*jobs.Job, error)
	SubmitScout(ctx context.Context, playerID int64) (*jobs.Job, error)
	SubmitAnalytics(ctx context.Context, playerIDs []int64) (*jobs.Job, error)
	Status(ctx context.Context, jobID string) (*jobs.Job, error)
}

// HealthCheck reports whether one dependency is reachable
type HealthCheck func(ctx context.Context) error

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Jobs        JobService
	HealthCheck map[string]HealthCheck
	ServiceName string
	OnSubmit    func(jobs.Kind)
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger   *slog.Logger
	jobs     JobService
	onSubmit func(jobs.Kind)
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	onSubmit := deps.OnSubmit
	if onSubmit == nil {
		onSubmit = func(jobs.Kind) {}
	}
	return &JobHandler{
		logger:   deps.Logger,
		jobs:     deps.Jobs,
		onSubmit: onSubmit,
	}
}
