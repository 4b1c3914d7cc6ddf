package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"policypulse/backend/internal/profile"
	"policypulse/backend/internal/summary"
)

var (
	// ErrNotFound covers unknown and expired ids alike.
	ErrNotFound = errors.New("session not found")
	// ErrStaleGeneration rejects a summary computed against a session state
	// that a newer summary or profile change has since replaced.
	ErrStaleGeneration = errors.New("stale summary generation")
)

const DefaultTTL = 60 * time.Minute

// Session ties an accumulated profile to its generated summary.
type Session struct {
	ID         string                       `json:"id"`
	Profile    profile.UserProfile          `json:"profile"`
	Summary    *summary.PersonalizedSummary `json:"summary,omitempty"`
	Generation uint64                       `json:"generation"`
	CreatedAt  time.Time                    `json:"createdAt"`
	ExpiresAt  time.Time                    `json:"expiresAt"`
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s Session) clone() Session {
	out := s
	out.Profile = profile.UserProfile{}.Merge(s.Profile)
	if s.Summary != nil {
		cp := *s.Summary
		out.Summary = &cp
	}
	return out
}

// Store persists sessions. Get and every mutation return ErrNotFound for an
// unknown or expired id; an expired session is never written again.
type Store interface {
	Create(ctx context.Context) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	// UpdateProfile merges update into the stored profile. The stored summary
	// no longer describes the profile, so it is dropped and the generation
	// advances.
	UpdateProfile(ctx context.Context, id string, update profile.UserProfile) (Session, error)
	// CommitSummary replaces the summary when generation still matches the
	// stored counter, then advances the counter. A caller reads Generation
	// before generating and passes it back here.
	CommitSummary(ctx context.Context, id string, generation uint64, s summary.PersonalizedSummary) (Session, error)
	// ClearSummary drops the stored summary and advances the generation, so
	// any generation started earlier can no longer commit.
	ClearSummary(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

func newSession(now time.Time, ttl time.Duration) Session {
	return Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func applyProfile(s *Session, update profile.UserProfile) {
	s.Profile = s.Profile.Merge(update)
	s.Summary = nil
	s.Generation++
}

func clearSummary(s *Session) {
	s.Summary = nil
	s.Generation++
}

func applySummary(s *Session, generation uint64, result summary.PersonalizedSummary) error {
	if s.Generation != generation {
		return ErrStaleGeneration
	}
	s.Summary = &result
	s.Generation++
	return nil
}
