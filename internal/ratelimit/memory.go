package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// MemoryLimiter is an in-process keyed token bucket limiter. Each unique key
// gets its own bucket, created lazily on first reference and guarded by its
// own mutex; the store mutex only covers map access. A background goroutine
// periodically evicts buckets that have not been touched within 2x the
// cleanup interval.
type MemoryLimiter struct {
	limit           int
	window          time.Duration
	cleanupInterval time.Duration

	mu      sync.Mutex
	buckets map[string]*tokenBucket
	done    chan struct{}
	closed  bool
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter creates a limiter admitting limit operations per window
// for each key. It starts a background goroutine for eviction.
func NewMemoryLimiter(limit int, window time.Duration, cleanupInterval time.Duration) *MemoryLimiter {
	m := &MemoryLimiter{
		limit:           limit,
		window:          window,
		cleanupInterval: cleanupInterval,
		buckets:         make(map[string]*tokenBucket),
		done:            make(chan struct{}),
	}
	go m.cleanup()
	return m
}

// Allow checks whether one operation under the given key should be admitted.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := time.Now()

	m.mu.Lock()
	b, exists := m.buckets[key]
	if !exists {
		b = newTokenBucket(m.limit, m.window, now)
		m.buckets[key] = b
	}
	m.mu.Unlock()

	granted, remaining, retryAfter := b.take(now)

	return Decision{
		Allowed:    granted,
		Limit:      m.limit,
		Remaining:  int(math.Max(0, math.Floor(remaining))),
		ResetAt:    b.resetAt(now),
		RetryAfter: retryAfter,
	}, nil
}

// Close stops the background cleanup goroutine.
func (m *MemoryLimiter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// cleanup periodically evicts buckets that have not been touched within
// 2x the cleanup interval.
func (m *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictStale()
		}
	}
}

// evictStale removes buckets older than 2x the cleanup interval.
func (m *MemoryLimiter) evictStale() {
	cutoff := time.Now().Add(-2 * m.cleanupInterval)
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, b := range m.buckets {
		b.mu.Lock()
		stale := b.lastSeen.Before(cutoff)
		b.mu.Unlock()
		if stale {
			delete(m.buckets, key)
		}
	}
}
