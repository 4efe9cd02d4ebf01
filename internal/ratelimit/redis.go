package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript performs the same lazy-refill bucket math as
// tokenBucket.take, executed atomically inside Redis so that many gateway
// instances share one budget per key. It returns the grant flag and the
// token count after the attempt.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl_ms = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
  tokens = capacity
  ts = now
end

local elapsed = now - ts
if elapsed < 0 then
  elapsed = 0
end
tokens = tokens + elapsed * rate
if tokens > capacity then
  tokens = capacity
end

local granted = 0
if tokens >= 1 then
  tokens = tokens - 1
  granted = 1
end

redis.call('HSET', key, 'tokens', tostring(tokens), 'ts', tostring(now))
redis.call('PEXPIRE', key, ttl_ms)
return {granted, tostring(tokens)}
`)

// RedisLimiter is a distributed keyed token bucket limiter backed by Redis.
// Concurrency safety is delegated to Redis: the whole read/compute/write
// cycle runs inside a Lua script, so two concurrent acquisitions can never
// both win the last token.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a Redis-backed limiter admitting limit operations
// per window for each key. It verifies connectivity before returning.
func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) (*RedisLimiter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}, nil
}

// Allow checks whether one operation under the given key should be admitted.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := time.Now()
	capacity := float64(r.limit)
	rate := capacity / r.window.Seconds()

	// Keep idle keys around long enough to refill completely, then let
	// Redis reclaim them.
	ttl := 2 * time.Duration(capacity/rate*float64(time.Second))
	if ttl < time.Second {
		ttl = time.Second
	}

	res, err := tokenBucketScript.Run(ctx, r.client,
		[]string{r.prefix + ":" + key},
		capacity,
		rate,
		float64(now.UnixMicro())/1e6,
		ttl.Milliseconds(),
	).Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("token bucket script: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("token bucket script: unexpected reply of %d values", len(res))
	}

	granted, _ := res[0].(int64)
	tokens, err := strconv.ParseFloat(fmt.Sprint(res[1]), 64)
	if err != nil {
		return Decision{}, fmt.Errorf("token bucket script: bad token count: %w", err)
	}

	d := Decision{
		Allowed:   granted == 1,
		Limit:     r.limit,
		Remaining: int(math.Max(0, math.Floor(tokens))),
	}

	if missing := capacity - tokens; missing > 0 {
		d.ResetAt = now.Add(time.Duration(missing / rate * float64(time.Second)))
	} else {
		d.ResetAt = now
	}

	if !d.Allowed {
		d.RetryAfter = time.Duration((1 - tokens) / rate * float64(time.Second))
	}

	return d, nil
}

// Close releases the underlying Redis connection pool.
func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
