package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// WindowCounter is the slice of the redis client the limiter needs: an
// atomic increment whose key expires with the window, reporting the
// key's remaining lifetime.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisWindow is a fixed-window counter backed by redis INCR + EXPIRE,
// for deployments that run more than one ingest instance. Eviction is
// redis key expiry instead of a local sweep.
type RedisWindow struct {
	counter WindowCounter
	window  time.Duration
	max     int64
}

func NewRedisWindow(counter WindowCounter, window time.Duration, max int) *RedisWindow {
	return &RedisWindow{
		counter: counter,
		window:  window,
		max:     int64(max),
	}
}

func (l *RedisWindow) Allow(ctx context.Context, key string) (Decision, error) {
	count, ttl, err := l.counter.IncrWindow(ctx, "ratelimit:"+key, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if count <= l.max {
		return Decision{Allowed: true}, nil
	}
	if ttl <= 0 {
		ttl = l.window
	}
	return Decision{RetryAfter: ttl}, nil
}
