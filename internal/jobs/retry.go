package jobs

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// OutcomeKind tags the result of a single attempt
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRetryable
	OutcomeTerminal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable_failure"
	case OutcomeTerminal:
		return "terminal_failure"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one attempt of a unit of work
type Outcome struct {
	Kind   OutcomeKind
	Result string
	Err    error
}

func Success(result string) Outcome { return Outcome{Kind: OutcomeSuccess, Result: result} }
func Retryable(err error) Outcome   { return Outcome{Kind: OutcomeRetryable, Err: err} }
func Terminal(err error) Outcome    { return Outcome{Kind: OutcomeTerminal, Err: err} }
func (o Outcome) NotFound() bool    { return o.Err != nil && errors.Is(o.Err, ErrNotFound) }
func (o Outcome) Succeeded() bool   { return o.Kind == OutcomeSuccess }

// Classify turns the return values of a unit of work into an Outcome.
// Not-found and permanent errors are terminal; everything else, timeouts included, is retryable.
func Classify(result string, err error) Outcome {
	if err == nil {
		return Success(result)
	}
	if errors.Is(err, ErrNotFound) {
		return Terminal(err)
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		return Terminal(err)
	}
	return Retryable(err)
}

// Action is what the retry policy wants done after an attempt
type Action int

const (
	ActionRetry Action = iota
	ActionStopSuccess
	ActionStopFailure
)

// Decision is the retry policy's answer for one attempt
type Decision struct {
	Action Action
	Delay  time.Duration
}

// Policy bounds attempts and spaces them with exponential backoff
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy returns 3 attempts, 1s base delay doubling per attempt
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	return p
}

// Decide maps an attempt outcome and its 1-based attempt number to the next action
func (p Policy) Decide(o Outcome, attempt int) Decision {
	p = p.normalized()

	switch o.Kind {
	case OutcomeSuccess:
		return Decision{Action: ActionStopSuccess}
	case OutcomeTerminal:
		return Decision{Action: ActionStopFailure}
	}

	if attempt >= p.MaxAttempts {
		return Decision{Action: ActionStopFailure}
	}
	return Decision{Action: ActionRetry, Delay: p.Backoff(attempt)}
}

// Backoff returns the delay to wait after the given failed attempt
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.normalized()
	if attempt < 1 {
		attempt = 1
	}

	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-time Sleeper
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
