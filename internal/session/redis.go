package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"policypulse/backend/internal/profile"
	"policypulse/backend/internal/summary"
)

const (
	redisKeyPrefix   = "session:"
	maxWatchAttempts = 5
)

// RedisStore keeps sessions as JSON values that expire with the session.
// Mutations run as WATCH/MULTI transactions so concurrent writers cannot
// lose each other's changes.
type RedisStore struct {
	rdb *goredis.Client
	ttl time.Duration
	now func() time.Time
}

func NewRedisStore(rdb *goredis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (r *RedisStore) WithClock(now func() time.Time) *RedisStore {
	r.now = now
	return r
}

func (r *RedisStore) Create(ctx context.Context) (Session, error) {
	s := newSession(r.now(), r.ttl)
	data, err := json.Marshal(s)
	if err != nil {
		return Session{}, fmt.Errorf("encode session: %w", err)
	}
	ok, err := r.rdb.SetNX(ctx, redisKeyPrefix+s.ID, data, r.ttl).Result()
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return Session{}, fmt.Errorf("create session: id collision")
	}
	return s, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	return r.load(ctx, r.rdb, id)
}

func (r *RedisStore) UpdateProfile(ctx context.Context, id string, update profile.UserProfile) (Session, error) {
	return r.mutate(ctx, id, func(s *Session) error {
		applyProfile(s, update)
		return nil
	})
}

func (r *RedisStore) CommitSummary(ctx context.Context, id string, generation uint64, result summary.PersonalizedSummary) (Session, error) {
	return r.mutate(ctx, id, func(s *Session) error {
		return applySummary(s, generation, result)
	})
}

func (r *RedisStore) ClearSummary(ctx context.Context, id string) (Session, error) {
	return r.mutate(ctx, id, func(s *Session) error {
		clearSummary(s)
		return nil
	})
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

func (r *RedisStore) load(ctx context.Context, c getter, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrNotFound
	}
	raw, err := c.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if s.Expired(r.now()) {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (r *RedisStore) mutate(ctx context.Context, id string, fn func(*Session) error) (Session, error) {
	key := redisKeyPrefix + id
	var out Session
	txf := func(tx *goredis.Tx) error {
		s, err := r.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(&s); err != nil {
			return err
		}
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		ttl := s.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			return ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = s
		return nil
	}

	for attempt := 0; attempt < maxWatchAttempts; attempt++ {
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStaleGeneration) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("update session: %w", err)
	}
	return Session{}, fmt.Errorf("update session: gave up after %d conflicting writes", maxWatchAttempts)
}
