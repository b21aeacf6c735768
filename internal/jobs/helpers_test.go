package jobs_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

var testNow = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSleeper returns immediately and remembers every requested delay
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

var errStoreDown = errors.New("connection refused")

// brokenMarkers fails every operation
type brokenMarkers struct{}

func (brokenMarkers) Get(context.Context, string) (string, bool, error) {
	return "", false, errStoreDown
}

func (brokenMarkers) Set(context.Context, string, string, time.Duration) error {
	return errStoreDown
}

func (brokenMarkers) Exists(context.Context, string) (bool, error) {
	return false, errStoreDown
}
