package ratelimit

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count     int
	resetTime time.Time
}

// MemoryStore keeps windows in process memory. It does not survive restarts
// and is not shared between instances.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry)}
}

func (s *MemoryStore) Hit(_ context.Context, key string, opts Options, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.entries[key]
	if !ok || now.After(current.resetTime) {
		current = entry{count: 1, resetTime: now.Add(opts.Window)}
		s.entries[key] = current
		return Result{Allowed: true, Remaining: opts.MaxRequests - 1, ResetTime: current.resetTime}, nil
	}
	if current.count >= opts.MaxRequests {
		return Result{Allowed: false, Remaining: 0, ResetTime: current.resetTime}, nil
	}
	current.count++
	s.entries[key] = current
	return Result{Allowed: true, Remaining: opts.MaxRequests - current.count, ResetTime: current.resetTime}, nil
}

func (s *MemoryStore) Peek(_ context.Context, key string, _ time.Time) (int, time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.entries[key]
	if !ok {
		return 0, time.Time{}, false, nil
	}
	return current.count, current.resetTime, true, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, current := range s.entries {
		if now.After(current.resetTime) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
