package ratelimit

import (
	"sync"
	"time"
)

// tokenBucket holds the refill state for one key. All mutation happens in
// take under the bucket's own mutex, so concurrent acquisitions on the same
// key serialize without blocking unrelated keys.
type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	rate       float64 // tokens per second
	tokens     float64
	lastRefill time.Time
	lastSeen   time.Time
}

func newTokenBucket(limit int, window time.Duration, now time.Time) *tokenBucket {
	capacity := float64(limit)
	return &tokenBucket{
		capacity:   capacity,
		rate:       capacity / window.Seconds(),
		tokens:     capacity,
		lastRefill: now,
		lastSeen:   now,
	}
}

// take refills lazily and attempts to consume one token. Elapsed time is
// clamped at zero so a clock going backward never mints free tokens.
func (b *tokenBucket) take(now time.Time) (granted bool, remaining float64, retryAfter time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	b.tokens += elapsed * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, b.tokens, 0
	}

	wait := (1 - b.tokens) / b.rate
	return false, b.tokens, time.Duration(wait * float64(time.Second))
}

// resetAt reports when the bucket would be full again, given its current
// token count. Callers must not hold the mutex.
func (b *tokenBucket) resetAt(now time.Time) time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()

	missing := b.capacity - b.tokens
	if missing <= 0 {
		return now
	}
	return now.Add(time.Duration(missing / b.rate * float64(time.Second)))
}
