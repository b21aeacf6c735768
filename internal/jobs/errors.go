package jobs

import "errors"

var (
	// ErrJobNotFound is returned when a job is unknown or has expired from the record store
	ErrJobNotFound = errors.New("job not found")

	// ErrNotFound marks a definitive "target does not exist" answer from a collaborator.
	// Work failing with it is never retried.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a status change is not an edge of the state machine
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrInvalidInput is returned for malformed submissions or work items
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreUnavailable wraps failures of the idempotency or job record stores
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrWaitExhausted is returned when polling gives up before the job is terminal
	ErrWaitExhausted = errors.New("job did not finish within the polling budget")

	// ErrItemRecorded is returned by RecordItem when the item's outcome is already on the
	// record, e.g. after a queue redelivery. Nothing is written.
	ErrItemRecorded = errors.New("work item already recorded")

	// ErrNoUnit is returned when no unit of work is registered for a job kind
	ErrNoUnit = errors.New("no unit of work registered for kind")
)

// PermanentError wraps failures that retrying cannot fix
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent error: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent marks err as terminal for the retry policy
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}
