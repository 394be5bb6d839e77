package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestFixedWindowAllowsUpToMax(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewFixedWindow(DefaultWindow, DefaultMax, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	for i := 1; i <= DefaultMax; i++ {
		now = now.Add(time.Second)
		d, err := l.Allow(ctx, "1.2.3.4|/api/v1/consultations")
		if err != nil {
			t.Fatalf("Allow returned error: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("request %d rejected, want first %d allowed", i, DefaultMax)
		}
	}

	// The 13th and every later request in the window is rejected.
	for i := 0; i < 3; i++ {
		now = now.Add(time.Second)
		d, _ := l.Allow(ctx, "1.2.3.4|/api/v1/consultations")
		if d.Allowed {
			t.Fatal("expected rejection once the window limit is exceeded")
		}
	}
}

func TestFixedWindowRetryAfterIsRemainingWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	l := NewFixedWindow(DefaultWindow, 1, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if d, _ := l.Allow(ctx, "key"); !d.Allowed {
		t.Fatal("first request rejected")
	}

	// 20 seconds into the window, 40 remain.
	now = start.Add(20 * time.Second)
	d, _ := l.Allow(ctx, "key")
	if d.Allowed {
		t.Fatal("expected rejection past max=1")
	}
	if d.RetryAfter != 40*time.Second {
		t.Errorf("RetryAfter = %v, want 40s", d.RetryAfter)
	}
}

func TestFixedWindowResetsAfterRollover(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewFixedWindow(DefaultWindow, DefaultMax, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	for i := 0; i < DefaultMax+1; i++ {
		l.Allow(ctx, "key")
	}
	if d, _ := l.Allow(ctx, "key"); d.Allowed {
		t.Fatal("expected key to be limited before rollover")
	}

	now = now.Add(DefaultWindow)
	if d, _ := l.Allow(ctx, "key"); !d.Allowed {
		t.Fatal("expected counter reset after the window rolled over")
	}
}

func TestFixedWindowKeysAreIndependent(t *testing.T) {
	now := time.Now()
	l := NewFixedWindow(DefaultWindow, 1, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if d, _ := l.Allow(ctx, "a"); !d.Allowed {
		t.Fatal("first request for key a rejected")
	}
	if d, _ := l.Allow(ctx, "a"); d.Allowed {
		t.Fatal("second request for key a allowed past max=1")
	}
	if d, _ := l.Allow(ctx, "b"); !d.Allowed {
		t.Fatal("key b must not be affected by key a's counter")
	}
}

func TestFixedWindowEvictsExpiredKeys(t *testing.T) {
	now := time.Now()
	l := NewFixedWindow(DefaultWindow, DefaultMax, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	l.Allow(ctx, "a")
	l.Allow(ctx, "b")
	if l.Len() != 2 {
		t.Fatalf("expected 2 live keys, got %d", l.Len())
	}

	now = now.Add(DefaultWindow + time.Second)
	l.Allow(ctx, "c")
	if l.Len() != 1 {
		t.Errorf("expected expired keys evicted on check, got %d live", l.Len())
	}
}

type fakeCounter struct {
	count int64
	ttl   time.Duration
	err   error
}

func (f *fakeCounter) IncrWindow(context.Context, string, time.Duration) (int64, time.Duration, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	f.count++
	return f.count, f.ttl, nil
}

func TestRedisWindowDecisions(t *testing.T) {
	counter := &fakeCounter{ttl: 25 * time.Second}
	l := NewRedisWindow(counter, DefaultWindow, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "key")
		if err != nil || !d.Allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i+1, d.Allowed, err)
		}
	}

	d, _ := l.Allow(ctx, "key")
	if d.Allowed {
		t.Fatal("expected rejection past max")
	}
	if d.RetryAfter != 25*time.Second {
		t.Errorf("RetryAfter = %v, want the key's remaining TTL", d.RetryAfter)
	}

	// Unknown TTL falls back to the full window rather than zero.
	counter.ttl = 0
	if d, _ := l.Allow(ctx, "key"); d.RetryAfter != DefaultWindow {
		t.Errorf("RetryAfter = %v, want full window on unknown TTL", d.RetryAfter)
	}
}
