package ratelimit

import (
	"context"
	"sync"
	"time"
)

// LocalStore is the single-process window used as fallback and in tests.
// It offers no cross-instance consistency: each process counts alone.
type LocalStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

func NewLocalStore() *LocalStore {
	return &LocalStore{
		windows: make(map[string][]time.Time),
	}
}

func (s *LocalStore) Add(_ context.Context, identifier string, now time.Time, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	kept := s.windows[identifier][:0]
	for _, ts := range s.windows[identifier] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	s.windows[identifier] = kept

	return int64(len(kept)), kept[0], nil
}

func (s *LocalStore) Remove(_ context.Context, identifier string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.windows[identifier]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Equal(at) {
			s.windows[identifier] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	return nil
}

var _ Store = &LocalStore{}
