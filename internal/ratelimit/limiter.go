// Package ratelimit enforces throughput ceilings using the token bucket
// algorithm. It provides two keyed limiter backends behind one interface -
// an in-process implementation for single-instance deployments and a
// Redis-backed one for fleets - plus a Gate that composes the upstream API's
// global and per-base ceilings, and HTTP middleware for inbound client
// limiting with standard rate limit response headers.
package ratelimit

import (
	"context"
	"time"
)

// Limiter is the keyed rate limiting contract. Implementations must be safe
// for concurrent use; the check-and-decrement for a key is atomic.
type Limiter interface {
	// Allow checks whether one operation under key should be admitted.
	// The returned Decision always carries limit state for response headers;
	// RetryAfter is meaningful only when the operation is denied.
	Allow(ctx context.Context, key string) (Decision, error)

	// Close stops background goroutines and releases resources.
	Close() error
}

// Decision contains the outcome and rate limit state for one acquisition.
type Decision struct {
	Allowed    bool
	Limit      int           // Configured ceiling for the window
	Remaining  int           // Approximate whole tokens remaining
	ResetAt    time.Time     // When the bucket will be full again
	RetryAfter time.Duration // How long to wait (meaningful only when denied)
}
