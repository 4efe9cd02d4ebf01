package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed cache store for multi-instance deployments.
// TTL enforcement is delegated to Redis via SET with expiry; prefix
// invalidation walks the key space with SCAN rather than KEYS so it never
// blocks the server on large databases.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis store and verifies connectivity.
func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Get returns the payload for key if present and un-expired.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return payload, true, nil
}

// Set stores payload under key with the given TTL.
func (r *RedisStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes the given keys.
func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// DeletePrefix removes every entry whose key starts with prefix.
func (r *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	dropped := 0
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()

	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return dropped, fmt.Errorf("cache delete prefix %s: %w", prefix, err)
			}
			dropped += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return dropped, fmt.Errorf("cache scan prefix %s: %w", prefix, err)
	}

	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return dropped, fmt.Errorf("cache delete prefix %s: %w", prefix, err)
		}
		dropped += len(batch)
	}

	return dropped, nil
}

// Ping reports backend reachability.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
