package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultWindow and DefaultMax give 12 accepted requests per key per
	// 60-second fixed window. Bursts of up to 2x at window boundaries are
	// an accepted tradeoff for O(1) bookkeeping.
	DefaultWindow = 60 * time.Second
	DefaultMax    = 12
)

// Decision is the outcome of a limit check. RetryAfter carries the time
// left in the rejecting window; zero means no recommendation.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter decides whether a request identified by key may proceed now.
// Implementations may consult external state, hence the context and
// error; callers treat a failed check as allowed (fail open).
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type windowEntry struct {
	start time.Time
	count int
}

// FixedWindow is an in-memory fixed-window counter. Expired keys are
// evicted on every check, so memory stays bounded without a janitor
// goroutine.
type FixedWindow struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	now     func() time.Time
	entries map[string]*windowEntry
}

type Option func(*FixedWindow)

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(l *FixedWindow) { l.now = now }
}

func NewFixedWindow(window time.Duration, max int, opts ...Option) *FixedWindow {
	l := &FixedWindow{
		window:  window,
		max:     max,
		now:     time.Now,
		entries: make(map[string]*windowEntry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *FixedWindow) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.entries {
		if now.Sub(e.start) >= l.window {
			delete(l.entries, k)
		}
	}

	e, ok := l.entries[key]
	if !ok {
		l.entries[key] = &windowEntry{start: now, count: 1}
		return Decision{Allowed: true}, nil
	}

	e.count++
	if e.count <= l.max {
		return Decision{Allowed: true}, nil
	}
	return Decision{RetryAfter: l.window - now.Sub(e.start)}, nil
}

// Len reports the number of live keys. Used by tests to observe eviction.
func (l *FixedWindow) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
