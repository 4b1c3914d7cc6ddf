package ratelimit

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"
)

// Options is a caller-supplied fixed-window budget.
type Options struct {
	Window      time.Duration
	MaxRequests int
}

type Result struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"resetTime"`
}

// RetryAfter is the time left until the window resets, rounded up to a
// whole second.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.ResetTime.IsZero() || !r.ResetTime.After(now) {
		return 0
	}
	d := r.ResetTime.Sub(now)
	return (d + time.Second - 1) / time.Second * time.Second
}

// Store holds fixed-window counters. Hit must be atomic per key.
type Store interface {
	Hit(ctx context.Context, key string, opts Options, now time.Time) (Result, error)
	Peek(ctx context.Context, key string, now time.Time) (count int, resetTime time.Time, found bool, err error)
	Reset(ctx context.Context, key string) error
}

// Sweeper is implemented by stores that need explicit removal of expired
// windows.
type Sweeper interface {
	Sweep(now time.Time) int
}

type Limiter struct {
	store        Store
	now          func() time.Time
	cleanupEvery float64
	chance       func() float64
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithCleanupProbability sets the chance that a Hit also sweeps expired
// entries. Zero disables sweeping.
func WithCleanupProbability(p float64) Option {
	return func(l *Limiter) { l.cleanupEvery = p }
}

func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:        store,
		now:          time.Now,
		cleanupEvery: 0.01,
		chance:       rand.Float64,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Now() time.Time {
	return l.now()
}

// Allow counts one request against key.
func (l *Limiter) Allow(ctx context.Context, key string, opts Options) (Result, error) {
	now := l.now()
	res, err := l.store.Hit(ctx, key, normalize(opts), now)
	if err != nil {
		return Result{}, err
	}
	if sweeper, ok := l.store.(Sweeper); ok && l.cleanupEvery > 0 && l.chance() < l.cleanupEvery {
		sweeper.Sweep(now)
	}
	return res, nil
}

// Status reports the current window for key without counting a request.
func (l *Limiter) Status(ctx context.Context, key string, opts Options) (Result, error) {
	opts = normalize(opts)
	now := l.now()
	count, reset, found, err := l.store.Peek(ctx, key, now)
	if err != nil {
		return Result{}, err
	}
	if !found || now.After(reset) {
		return Result{Allowed: true, Remaining: opts.MaxRequests}, nil
	}
	remaining := opts.MaxRequests - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: remaining > 0, Remaining: remaining, ResetTime: reset}, nil
}

func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}

func normalize(opts Options) Options {
	if opts.MaxRequests <= 0 {
		opts.MaxRequests = 1
	}
	if opts.Window <= 0 {
		opts.Window = time.Minute
	}
	return opts
}

// Key builders keep quota pools for different call sites apart.
func FormKey(clientID string) string {
	return strings.TrimSpace(clientID)
}

func GenerateKey(clientID string) string {
	return "ai_" + strings.TrimSpace(clientID)
}

func RetryKey(clientID string) string {
	return "retry_" + strings.TrimSpace(clientID)
}
