package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
)

type record struct {
	job       jobs.Job
	expiresAt time.Time
}

// Records is an in-process job record store
type Records struct {
	mu   sync.Mutex
	data map[string]*record
	now  func() time.Time
}

// NewRecords creates a Records store. now may be nil to use the wall clock.
func NewRecords(now func() time.Time) *Records {
	if now == nil {
		now = time.Now
	}
	return &Records{
		data: make(map[string]*record),
		now:  now,
	}
}

var _ jobs.RecordStore = (*Records)(nil)

func (s *Records) Create(_ context.Context, job *jobs.Job, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.lookup(job.ID); exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}

	r := &record{job: *job}
	r.job.Status = jobs.StatusPending
	r.job.Items = make(map[string]jobs.ItemStatus)
	if ttl > 0 {
		r.expiresAt = s.now().Add(ttl)
	}
	s.data[job.ID] = r
	return nil
}

func (s *Records) Get(_ context.Context, jobID string) (*jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.lookup(jobID)
	if !ok {
		return nil, jobs.ErrJobNotFound
	}

	job := r.job
	job.Items = maps.Clone(r.job.Items)
	return &job, nil
}

func (s *Records) Transition(_ context.Context, jobID string, t jobs.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.lookup(jobID)
	if !ok {
		return jobs.ErrJobNotFound
	}
	if !jobs.CanTransition(r.job.Status, t.To) {
		return fmt.Errorf("%w: %s -> %s", jobs.ErrInvalidTransition, r.job.Status, t.To)
	}

	at := t.At.UTC()
	r.job.Status = t.To
	switch t.To {
	case jobs.StatusRunning:
		r.job.StartedAt = &at
	case jobs.StatusCompleted:
		r.job.EndedAt = &at
		r.job.Result = t.Result
	case jobs.StatusFailed:
		r.job.EndedAt = &at
		r.job.Error = t.Error
	}
	return nil
}

func (s *Records) RecordItem(_ context.Context, jobID string, res jobs.ItemResult) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.lookup(jobID)
	if !ok {
		return 0, jobs.ErrJobNotFound
	}

	if _, done := r.job.Items[res.Item.Key()]; done {
		return r.job.Processed, fmt.Errorf("%w: %s", jobs.ErrItemRecorded, res.Item.Key())
	}

	r.job.Items[res.Item.Key()] = res.Status
	switch res.Status {
	case jobs.ItemSuccess:
		r.job.Successful++
	case jobs.ItemSkipped:
		r.job.Skipped++
	case jobs.ItemNotFound:
		r.job.NotFound++
	default:
		r.job.Failed++
	}
	if res.Result != "" {
		r.job.LastResult = res.Result
	}
	if res.Err != nil {
		r.job.LastError = res.Err.Error()
	}
	r.job.Processed++
	return r.job.Processed, nil
}

// lookup expects s.mu to be held
func (s *Records) lookup(jobID string) (*record, bool) {
	r, ok := s.data[jobID]
	if !ok {
		return nil, false
	}
	if !r.expiresAt.IsZero() && !s.now().Before(r.expiresAt) {
		delete(s.data, jobID)
		return nil, false
	}
	return r, true
}
