package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Enqueuer pushes work items onto the work queue
type Enqueuer interface {
	Enqueue(ctx context.Context, item WorkItem) error
}

// TargetLister lists every entity a batch job without explicit ids applies to
type TargetLister interface {
	ListIDs(ctx context.Context) ([]int64, error)
}

// ServiceConfig holds Service dependencies
type ServiceConfig struct {
	Logger    *slog.Logger
	Records   RecordStore
	Queue     Enqueuer
	Targets   TargetLister
	RecordTTL time.Duration
	Now       func() time.Time
	NewID     func() string
	Sleep     Sleeper
}

// Service accepts job submissions and answers status queries. Submission never
// performs the remote work itself.
type Service struct {
	logger    *slog.Logger
	records   RecordStore
	queue     Enqueuer
	targets   TargetLister
	recordTTL time.Duration
	now       func() time.Time
	newID     func() string
	sleep     Sleeper
}

// NewService creates a Service
func NewService(cfg *ServiceConfig) *Service {
	s := &Service{
		logger:    cfg.Logger,
		records:   cfg.Records,
		queue:     cfg.Queue,
		targets:   cfg.Targets,
		recordTTL: cfg.RecordTTL,
		now:       cfg.Now,
		newID:     cfg.NewID,
		sleep:     cfg.Sleep,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.recordTTL <= 0 {
		s.recordTTL = DefaultRecordTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.sleep == nil {
		s.sleep = Sleep
	}
	return s
}

// SubmitRefresh queues a market value refresh. No ids means every player.
func (s *Service) SubmitRefresh(ctx context.Context, playerIDs []int64) (*Job, error) {
	if len(playerIDs) == 0 {
		if s.targets == nil {
			return nil, fmt.Errorf("%w: no player ids given and no target lister configured", ErrInvalidInput)
		}
		ids, err := s.targets.ListIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list refresh targets: %w", err)
		}
		playerIDs = ids
	}
	return s.Submit(ctx, KindMarketRefresh, playerIDs)
}

// SubmitScout queues a single scouting report generation
func (s *Service) SubmitScout(ctx context.Context, playerID int64) (*Job, error) {
	return s.Submit(ctx, KindScoutReport, []int64{playerID})
}

// SubmitAnalytics queues insight generation for the given players. At least one id is required.
func (s *Service) SubmitAnalytics(ctx context.Context, playerIDs []int64) (*Job, error) {
	if len(playerIDs) == 0 {
		return nil, fmt.Errorf("%w: analytics batch needs at least one player id", ErrInvalidInput)
	}
	return s.Submit(ctx, KindAnalytics, playerIDs)
}

// Submit creates a pending job record and queues one work item per id.
// Two submissions for the same ids produce two jobs.
func (s *Service) Submit(ctx context.Context, kind Kind, playerIDs []int64) (*Job, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown job kind %q", ErrInvalidInput, kind)
	}

	ids := make([]int64, 0, len(playerIDs))
	seen := make(map[int64]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		if id <= 0 {
			return nil, fmt.Errorf("%w: invalid player id %d", ErrInvalidInput, id)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	job := &Job{
		ID:        s.newID(),
		Kind:      kind,
		Status:    StatusPending,
		Total:     int64(len(ids)),
		CreatedAt: s.now().UTC(),
	}

	if err := s.records.Create(ctx, job, s.recordTTL); err != nil {
		return nil, fmt.Errorf("create job record: %w", err)
	}

	if len(ids) == 0 {
		if err := s.finishEmpty(ctx, job); err != nil {
			return nil, err
		}
		return job, nil
	}

	for _, id := range ids {
		item := WorkItem{JobID: job.ID, Kind: kind, PlayerID: id}
		if err := s.queue.Enqueue(ctx, item); err != nil {
			s.logger.Error("Failed to enqueue work item",
				slog.String("job_id", job.ID),
				slog.String("work_key", item.Key()),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("enqueue work item %s: %w", item.Key(), err)
		}
	}

	s.logger.Info("Job submitted",
		slog.String("job_id", job.ID),
		slog.String("kind", string(kind)),
		slog.Int64("total", job.Total),
	)

	return job, nil
}

func (s *Service) finishEmpty(ctx context.Context, job *Job) error {
	now := s.now().UTC()
	if err := s.records.Transition(ctx, job.ID, Transition{To: StatusRunning, At: now}); err != nil {
		return fmt.Errorf("start empty job: %w", err)
	}
	final := FinalTransition(job, now)
	if err := s.records.Transition(ctx, job.ID, final); err != nil {
		return fmt.Errorf("finish empty job: %w", err)
	}
	job.Status = final.To
	job.Result = final.Result
	job.StartedAt = &now
	job.EndedAt = &now
	return nil
}

// Status reads the current record of a job
func (s *Service) Status(ctx context.Context, jobID string) (*Job, error) {
	return s.records.Get(ctx, jobID)
}

// Wait polls the job until it is terminal, at most maxPolls times, interval apart.
// It returns ErrWaitExhausted with the last seen record if the budget runs out.
func (s *Service) Wait(ctx context.Context, jobID string, interval time.Duration, maxPolls int) (*Job, error) {
	if maxPolls <= 0 {
		maxPolls = 1
	}

	var last *Job
	for poll := 1; poll <= maxPolls; poll++ {
		job, err := s.records.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			return job, nil
		}
		last = job

		if poll == maxPolls {
			break
		}
		if err := s.sleep(ctx, interval); err != nil {
			return last, fmt.Errorf("wait for job %s: %w", jobID, err)
		}
	}

	return last, fmt.Errorf("%w: job %s still %s after %d polls", ErrWaitExhausted, jobID, last.Status, maxPolls)
}
