package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultCallTimeout bounds a single remote call
const DefaultCallTimeout = 30 * time.Second

// Unit performs the remote calls of one work item and returns a result payload
type Unit interface {
	Run(ctx context.Context, item WorkItem) (string, error)
}

// UnitFunc adapts a function to Unit
type UnitFunc func(ctx context.Context, item WorkItem) (string, error)

func (f UnitFunc) Run(ctx context.Context, item WorkItem) (string, error) {
	return f(ctx, item)
}

// Gated is implemented by units that opt out of the idempotency gate. A unit whose
// Gated method returns false runs on every delivery and never writes a marker.
type Gated interface {
	Gated() bool
}

// Recaller is implemented by units that can return the stored result of a
// completed item, so a skipped item reports the same payload as the run that
// produced it.
type Recaller interface {
	Recall(ctx context.Context, item WorkItem) (string, error)
}

func gated(u Unit) bool {
	g, ok := u.(Gated)
	return !ok || g.Gated()
}

// Observer receives execution events, typically to feed metrics
type Observer interface {
	ObserveAttempt(kind Kind, outcome OutcomeKind)
	ObserveRetry(kind Kind, delay time.Duration)
	ObserveItem(kind Kind, status ItemStatus, elapsed time.Duration)
	ObserveInFlight(n int64)
}

type nopObserver struct{}

func (nopObserver) ObserveAttempt(Kind, OutcomeKind)            {}
func (nopObserver) ObserveRetry(Kind, time.Duration)            {}
func (nopObserver) ObserveItem(Kind, ItemStatus, time.Duration) {}
func (nopObserver) ObserveInFlight(int64)                       {}

// ExecutorConfig holds executor dependencies
type ExecutorConfig struct {
	Logger      *slog.Logger
	Gate        *Gate
	Limiter     *Limiter
	Policy      Policy
	CallTimeout time.Duration
	Sleep       Sleeper
	Units       map[Kind]Unit
	Observer    Observer
}

// Executor runs one work item through the idempotency gate, the limiter and the retry policy
type Executor struct {
	logger      *slog.Logger
	gate        *Gate
	limiter     *Limiter
	policy      Policy
	callTimeout time.Duration
	sleep       Sleeper
	units       map[Kind]Unit
	observer    Observer
}

// NewExecutor creates an executor
func NewExecutor(cfg *ExecutorConfig) *Executor {
	e := &Executor{
		logger:      cfg.Logger,
		gate:        cfg.Gate,
		limiter:     cfg.Limiter,
		policy:      cfg.Policy.normalized(),
		callTimeout: cfg.CallTimeout,
		sleep:       cfg.Sleep,
		units:       cfg.Units,
		observer:    cfg.Observer,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.limiter == nil {
		e.limiter = NewLimiter(DefaultConcurrency)
	}
	if e.callTimeout <= 0 {
		e.callTimeout = DefaultCallTimeout
	}
	if e.sleep == nil {
		e.sleep = Sleep
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	return e
}

// Limiter returns the limiter guarding remote calls
func (e *Executor) Limiter() *Limiter {
	return e.limiter
}

// Execute runs item to a final ItemResult. It never panics and never returns an error:
// every failure is reported on the result.
//
// ctx governs waiting (permits, backoff). Cancelling it stops the item between attempts;
// an attempt already running gets its own call timeout and is allowed to finish.
func (e *Executor) Execute(ctx context.Context, item WorkItem) ItemResult {
	start := time.Now()
	res := e.execute(ctx, item)
	res.Item = item
	e.observer.ObserveItem(item.Kind, res.Status, time.Since(start))
	return res
}

func (e *Executor) execute(ctx context.Context, item WorkItem) ItemResult {
	logger := e.logger.With(
		slog.String("job_id", item.JobID),
		slog.String("work_key", item.Key()),
	)

	unit, ok := e.units[item.Kind]
	if !ok {
		return ItemResult{Status: ItemFailed, Err: fmt.Errorf("%w: %s", ErrNoUnit, item.Kind)}
	}

	useGate := gated(unit)
	window := e.gate.Window()
	done := false
	if useGate {
		var err error
		done, err = e.gate.Check(ctx, item.Key(), window)
		if err != nil {
			logger.Error("Idempotency check failed",
				slog.String("error", err.Error()),
			)
			return ItemResult{Status: ItemFailed, Err: err}
		}
	}
	if done {
		logger.Info("Work item already completed in window, skipping",
			slog.String("window", window),
		)
		return ItemResult{Status: ItemSkipped, Result: e.recall(ctx, unit, item, window)}
	}

	for attempt := 1; ; attempt++ {
		outcome, err := e.attempt(ctx, unit, item)
		if err != nil {
			logger.Warn("Work item interrupted before attempt",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			return ItemResult{Status: ItemFailed, Err: err, Attempts: attempt - 1}
		}

		decision := e.policy.Decide(outcome, attempt)
		switch decision.Action {
		case ActionStopSuccess:
			// the side effect is durable; the marker must not be lost to shutdown
			if useGate {
				if markErr := e.gate.Mark(context.WithoutCancel(ctx), item.Key(), window); markErr != nil {
					logger.Warn("Failed to write idempotency marker",
						slog.String("error", markErr.Error()),
					)
				}
			}
			logger.Info("Work item succeeded",
				slog.Int("attempts", attempt),
			)
			return ItemResult{Status: ItemSuccess, Result: outcome.Result, Attempts: attempt}

		case ActionStopFailure:
			if outcome.NotFound() {
				logger.Warn("Work item target not found",
					slog.String("error", outcome.Err.Error()),
				)
				return ItemResult{Status: ItemNotFound, Err: outcome.Err, Attempts: attempt}
			}

			failErr := outcome.Err
			if outcome.Kind == OutcomeRetryable {
				failErr = fmt.Errorf("failed after %d attempts: %w", attempt, outcome.Err)
			}
			logger.Error("Work item failed",
				slog.Int("attempts", attempt),
				slog.String("error", failErr.Error()),
			)
			return ItemResult{Status: ItemFailed, Err: failErr, Attempts: attempt}

		case ActionRetry:
			logger.Warn("Attempt failed, retrying",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", e.policy.MaxAttempts),
				slog.Duration("retry_after", decision.Delay),
				slog.String("error", outcome.Err.Error()),
			)
			e.observer.ObserveRetry(item.Kind, decision.Delay)

			if err := e.sleep(ctx, decision.Delay); err != nil {
				return ItemResult{
					Status:   ItemFailed,
					Err:      fmt.Errorf("retry interrupted after attempt %d: %w (last error: %v)", attempt, err, outcome.Err),
					Attempts: attempt,
				}
			}
		}
	}
}

// recall returns the stored result of a skipped item, falling back to a note
// naming the window when the unit cannot reproduce it
func (e *Executor) recall(ctx context.Context, unit Unit, item WorkItem, window string) string {
	fallback := "already completed in window " + window
	r, ok := unit.(Recaller)
	if !ok {
		return fallback
	}

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	result, err := r.Recall(callCtx, item)
	if err != nil {
		e.logger.Warn("Failed to recall stored result of skipped item",
			slog.String("work_key", item.Key()),
			slog.String("error", err.Error()),
		)
		return fallback
	}
	if result == "" {
		return fallback
	}
	return result
}

// attempt runs the unit once under a limiter permit. The error is non-nil only when
// no permit could be obtained.
func (e *Executor) attempt(ctx context.Context, unit Unit, item WorkItem) (outcome Outcome, err error) {
	if err := e.limiter.Acquire(ctx); err != nil {
		return Outcome{}, err
	}
	e.observer.ObserveInFlight(e.limiter.InFlight())
	defer func() {
		e.limiter.Release()
		e.observer.ObserveInFlight(e.limiter.InFlight())
	}()

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.callTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			outcome = Retryable(fmt.Errorf("unit of work panicked: %v", r))
			e.observer.ObserveAttempt(item.Kind, outcome.Kind)
		}
	}()

	result, runErr := unit.Run(callCtx, item)
	outcome = Classify(result, runErr)
	e.observer.ObserveAttempt(item.Kind, outcome.Kind)
	return outcome, nil
}
