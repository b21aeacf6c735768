package jobs

import (
	"context"
	"encoding/json"
	"time"
)

// DefaultRecordTTL is how long a job record stays queryable after submission
const DefaultRecordTTL = time.Hour

const recordPrefix = "job:"

// RecordKey builds the namespaced key of a job record
func RecordKey(jobID string) string {
	return recordPrefix + jobID
}

// RecordStore holds job records. Every method is a single atomic operation on one record.
type RecordStore interface {
	// Create stores a new pending record that expires after ttl
	Create(ctx context.Context, job *Job, ttl time.Duration) error

	// Get returns ErrJobNotFound for unknown or expired jobs
	Get(ctx context.Context, jobID string) (*Job, error)

	// Transition changes the status if CanTransition allows it, else ErrInvalidTransition
	Transition(ctx context.Context, jobID string, t Transition) error

	// RecordItem stores one item outcome, bumps the matching counter and returns
	// the number of items processed so far. An item key is counted at most once: a
	// second call for the same key returns the current count and ErrItemRecorded.
	RecordItem(ctx context.Context, jobID string, res ItemResult) (int64, error)
}

// FinalTransition computes the terminal transition of a job whose items are all processed.
// A job fails only when nothing succeeded or was skipped.
func FinalTransition(job *Job, at time.Time) Transition {
	if job.Total == 1 {
		if job.Successful == 1 || job.Skipped == 1 {
			return Transition{To: StatusCompleted, At: at, Result: job.LastResultOr(string(ItemSkipped))}
		}
		return Transition{To: StatusFailed, At: at, Error: job.LastErrorOr("work item failed")}
	}

	if job.Total > 0 && job.Successful+job.Skipped == 0 {
		return Transition{To: StatusFailed, At: at, Error: job.LastErrorOr("all work items failed")}
	}

	summary, _ := json.Marshal(job.Summary())
	return Transition{To: StatusCompleted, At: at, Result: string(summary)}
}

// LastResultOr returns the last recorded item result, or def
func (j *Job) LastResultOr(def string) string {
	if j.LastResult != "" {
		return j.LastResult
	}
	return def
}

// LastErrorOr returns the last recorded item error, or def
func (j *Job) LastErrorOr(def string) string {
	if j.LastError != "" {
		return j.LastError
	}
	return def
}
