package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// KV is an in-process key/value store with per-key expiry
type KV struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

// NewKV creates a KV. now may be nil to use the wall clock.
func NewKV(now func() time.Time) *KV {
	if now == nil {
		now = time.Now
	}
	return &KV{
		data: make(map[string]entry),
		now:  now,
	}
}

// Get returns the value stored at key, if present and not expired
func (s *KV) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value at key. ttl <= 0 never expires.
func (s *KV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.data[key] = e
	return nil
}

// Exists reports whether key is present and not expired
func (s *KV) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.lookup(key)
	return ok, nil
}

// Len returns the number of live keys
func (s *KV) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	now := s.now()
	for _, e := range s.data {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// lookup expects s.mu to be held
func (s *KV) lookup(key string) (entry, bool) {
	e, ok := s.data[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(s.now()) {
		delete(s.data, key)
		return entry{}, false
	}
	return e, true
}
