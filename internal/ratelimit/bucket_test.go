package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucket_StartsFull(t *testing.T) {
	now := time.Now()
	b := newTokenBucket(5, time.Second, now)

	for i := 0; i < 5; i++ {
		granted, _, _ := b.take(now)
		assert.True(t, granted, "take %d should be granted", i+1)
	}

	granted, _, retryAfter := b.take(now)
	assert.False(t, granted)
	assert.True(t, retryAfter > 0)
}

func TestTokenBucket_RefillsOverTime(t *testing.T) {
	now := time.Now()
	b := newTokenBucket(5, time.Second, now)

	for i := 0; i < 5; i++ {
		b.take(now)
	}
	granted, _, _ := b.take(now)
	assert.False(t, granted)

	// One token refills after 200ms at 5/s
	granted, _, _ = b.take(now.Add(250 * time.Millisecond))
	assert.True(t, granted)
}

func TestTokenBucket_NeverExceedsCapacity(t *testing.T) {
	now := time.Now()
	b := newTokenBucket(5, time.Second, now)

	// A long idle period must not accumulate more than capacity
	later := now.Add(time.Hour)
	granted := 0
	for i := 0; i < 20; i++ {
		if ok, _, _ := b.take(later); ok {
			granted++
		}
	}
	assert.Equal(t, 5, granted)
}

func TestTokenBucket_ClockBackward(t *testing.T) {
	now := time.Now()
	b := newTokenBucket(2, time.Second, now)

	b.take(now)
	b.take(now)

	// A clock that jumps backward must not mint free tokens
	granted, _, _ := b.take(now.Add(-time.Hour))
	assert.False(t, granted)
}

func TestTokenBucket_RetryAfter(t *testing.T) {
	now := time.Now()
	b := newTokenBucket(1, time.Second, now)

	b.take(now)
	granted, _, retryAfter := b.take(now)
	assert.False(t, granted)
	// Empty bucket at 1 token/s needs a full second for the next token
	assert.InDelta(t, time.Second.Seconds(), retryAfter.Seconds(), 0.05)
}

func TestTokenBucket_ResetAt(t *testing.T) {
	now := time.Now()
	b := newTokenBucket(5, time.Second, now)

	assert.Equal(t, now, b.resetAt(now))

	b.take(now)
	reset := b.resetAt(now)
	assert.True(t, reset.After(now))
	assert.True(t, reset.Sub(now) <= time.Second)
}
