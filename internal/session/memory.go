package session

import (
	"context"
	"sync"
	"time"

	"policypulse/backend/internal/profile"
	"policypulse/backend/internal/summary"
)

const sweepEvery = 64

// MemoryStore keeps sessions in process memory. Expired entries are swept
// every few creations and are invisible in between.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
	creates  int
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Create(_ context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.creates++
	if m.creates%sweepEvery == 0 {
		m.sweepLocked(now)
	}
	s := newSession(now, m.ttl)
	m.sessions[s.ID] = s
	return s.clone(), nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.liveLocked(id)
	if err != nil {
		return Session{}, err
	}
	return s.clone(), nil
}

func (m *MemoryStore) UpdateProfile(_ context.Context, id string, update profile.UserProfile) (Session, error) {
	return m.mutate(id, func(s *Session) error {
		applyProfile(s, update)
		return nil
	})
}

func (m *MemoryStore) CommitSummary(_ context.Context, id string, generation uint64, result summary.PersonalizedSummary) (Session, error) {
	return m.mutate(id, func(s *Session) error {
		return applySummary(s, generation, result)
	})
}

func (m *MemoryStore) ClearSummary(_ context.Context, id string) (Session, error) {
	return m.mutate(id, func(s *Session) error {
		clearSummary(s)
		return nil
	})
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Sweep drops expired sessions and reports how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now())
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) mutate(id string, fn func(*Session) error) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.liveLocked(id)
	if err != nil {
		return Session{}, err
	}
	if err := fn(&s); err != nil {
		return Session{}, err
	}
	m.sessions[id] = s
	return s.clone(), nil
}

func (m *MemoryStore) liveLocked(id string) (Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if s.Expired(m.now()) {
		delete(m.sessions, id)
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
