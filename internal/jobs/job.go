package jobs

import (
	"fmt"
	"strconv"
	"time"
)

// Kind identifies which unit of work a job runs
type Kind string

const (
	KindMarketRefresh Kind = "market_refresh"
	KindScoutReport   Kind = "scout_report"
	KindAnalytics     Kind = "analytics_batch"
)

// Valid reports whether k is a known job kind
func (k Kind) Valid() bool {
	switch k {
	case KindMarketRefresh, KindScoutReport, KindAnalytics:
		return true
	}
	return false
}

// Status is the lifecycle state of a job
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is possible from s
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether from -> to is an edge of the job state machine
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning
	case StatusRunning:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// ItemStatus is the final outcome of one WorkItem
type ItemStatus string

const (
	ItemSuccess  ItemStatus = "success"
	ItemSkipped  ItemStatus = "skipped"
	ItemNotFound ItemStatus = "not_found"
	ItemFailed   ItemStatus = "failed"
)

// WorkItem is one unit of work belonging to a job
type WorkItem struct {
	JobID    string `json:"job_id"`
	Kind     Kind   `json:"kind"`
	PlayerID int64  `json:"player_id"`
}

// Key identifies the work independently of the job that carries it
func (w WorkItem) Key() string {
	return string(w.Kind) + ":" + strconv.FormatInt(w.PlayerID, 10)
}

// Validate checks that the item can be executed
func (w WorkItem) Validate() error {
	if w.JobID == "" {
		return fmt.Errorf("%w: work item has no job id", ErrInvalidInput)
	}
	if !w.Kind.Valid() {
		return fmt.Errorf("%w: unknown job kind %q", ErrInvalidInput, w.Kind)
	}
	if w.PlayerID <= 0 {
		return fmt.Errorf("%w: invalid player id %d", ErrInvalidInput, w.PlayerID)
	}
	return nil
}

// Job is the tracked record of a submission
type Job struct {
	ID         string                `json:"job_id"`
	Kind       Kind                  `json:"kind"`
	Status     Status                `json:"status"`
	Result     string                `json:"result,omitempty"`
	Error      string                `json:"error,omitempty"`
	Total      int64                 `json:"total"`
	Processed  int64                 `json:"processed"`
	Successful int64                 `json:"successful"`
	Failed     int64                 `json:"failed"`
	Skipped    int64                 `json:"skipped"`
	NotFound   int64                 `json:"not_found"`
	Items      map[string]ItemStatus `json:"items,omitempty"`
	LastResult string                `json:"-"`
	LastError  string                `json:"-"`
	CreatedAt  time.Time             `json:"created_at"`
	StartedAt  *time.Time            `json:"started_at,omitempty"`
	EndedAt    *time.Time            `json:"ended_at,omitempty"`
}

// Transition carries the fields written together with a status change
type Transition struct {
	To     Status
	At     time.Time
	Result string
	Error  string
}

// ItemResult is the outcome of executing one WorkItem
type ItemResult struct {
	Item     WorkItem
	Status   ItemStatus
	Result   string
	Err      error
	Attempts int
}

// Summary is the aggregate result stored on completed batch jobs
type Summary struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
	Failed     int64 `json:"failed"`
	Skipped    int64 `json:"skipped"`
	NotFound   int64 `json:"not_found"`
}

// Summary returns the job's current counters
func (j *Job) Summary() Summary {
	return Summary{
		Total:      j.Total,
		Successful: j.Successful,
		Failed:     j.Failed,
		Skipped:    j.Skipped,
		NotFound:   j.NotFound,
	}
}
