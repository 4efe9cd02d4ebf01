// Package cache provides a keyed response cache with per-entry TTLs and
// prefix invalidation. Two backends implement the same Store interface: an
// in-process sharded map for single-instance deployments and a Redis store
// for fleets that must share one cache.
//
// Payloads are opaque byte slices and entries are only ever replaced whole,
// so a reader sees an entry fully or not at all.
package cache

import (
	"context"
	"time"

	"airgate/internal/models"
)

// Store is the cache backend contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the payload for key, or ok=false when no entry exists or
	// the entry's TTL has elapsed.
	Get(ctx context.Context, key string) (payload []byte, ok bool, err error)

	// Set stores payload under key with the given TTL, replacing any
	// existing entry. A non-positive TTL is a no-op.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// DeletePrefix removes every entry whose key starts with prefix and
	// returns how many entries were dropped.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Ping reports backend reachability for health checks.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// TTLs resolves the configured time-to-live for each payload class.
type TTLs struct {
	Bases   time.Duration
	Schema  time.Duration
	Records time.Duration
	Record  time.Duration
}

// TTLsFromConfig copies the TTL classes out of the cache configuration.
func TTLsFromConfig(cfg models.TTLConfig) TTLs {
	return TTLs{
		Bases:   cfg.Bases,
		Schema:  cfg.Schema,
		Records: cfg.Records,
		Record:  cfg.Record,
	}
}
