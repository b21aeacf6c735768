package jobs_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want jobs.OutcomeKind
	}{
		{name: "success", err: nil, want: jobs.OutcomeSuccess},
		{name: "not found", err: jobs.ErrNotFound, want: jobs.OutcomeTerminal},
		{name: "wrapped not found", err: fmt.Errorf("player 3: %w", jobs.ErrNotFound), want: jobs.OutcomeTerminal},
		{name: "permanent", err: jobs.Permanent(errors.New("bad request")), want: jobs.OutcomeTerminal},
		{name: "timeout", err: context.DeadlineExceeded, want: jobs.OutcomeRetryable},
		{name: "transport", err: errors.New("connection reset"), want: jobs.OutcomeRetryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := jobs.Classify("ok", tt.err)
			assert.Equal(t, tt.want, got.Kind)
			if tt.err == nil {
				assert.Equal(t, "ok", got.Result)
			} else {
				assert.ErrorIs(t, got.Err, tt.err)
			}
		})
	}

	assert.True(t, jobs.Classify("", jobs.ErrNotFound).NotFound())
	assert.False(t, jobs.Classify("", jobs.Permanent(errors.New("x"))).NotFound())
}

func TestPolicy_Decide(t *testing.T) {
	p := jobs.DefaultPolicy()
	boom := errors.New("boom")

	tests := []struct {
		name      string
		outcome   jobs.Outcome
		attempt   int
		wantDo    jobs.Action
		wantDelay time.Duration
	}{
		{name: "success on first", outcome: jobs.Success("x"), attempt: 1, wantDo: jobs.ActionStopSuccess},
		{name: "terminal on first", outcome: jobs.Terminal(boom), attempt: 1, wantDo: jobs.ActionStopFailure},
		{name: "retryable on first", outcome: jobs.Retryable(boom), attempt: 1, wantDo: jobs.ActionRetry, wantDelay: time.Second},
		{name: "retryable on second", outcome: jobs.Retryable(boom), attempt: 2, wantDo: jobs.ActionRetry, wantDelay: 2 * time.Second},
		{name: "retryable on last", outcome: jobs.Retryable(boom), attempt: 3, wantDo: jobs.ActionStopFailure},
		{name: "success on last", outcome: jobs.Success("x"), attempt: 3, wantDo: jobs.ActionStopSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Decide(tt.outcome, tt.attempt)
			assert.Equal(t, tt.wantDo, d.Action)
			assert.Equal(t, tt.wantDelay, d.Delay)
		})
	}
}

func TestPolicy_Backoff(t *testing.T) {
	p := jobs.Policy{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, p.Backoff(0))
	assert.Equal(t, time.Second, p.Backoff(1))
	assert.Equal(t, 2*time.Second, p.Backoff(2))
	assert.Equal(t, 4*time.Second, p.Backoff(3))
	assert.Equal(t, 5*time.Second, p.Backoff(4))
	assert.Equal(t, 5*time.Second, p.Backoff(30))
}

func TestPolicy_ZeroValueUsesDefaults(t *testing.T) {
	var p jobs.Policy
	boom := errors.New("boom")

	assert.Equal(t, jobs.ActionRetry, p.Decide(jobs.Retryable(boom), 2).Action)
	assert.Equal(t, jobs.ActionStopFailure, p.Decide(jobs.Retryable(boom), jobs.DefaultMaxAttempts).Action)
}

func TestSleep(t *testing.T) {
	assert.NoError(t, jobs.Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, jobs.Sleep(ctx, time.Hour), context.Canceled)
}
