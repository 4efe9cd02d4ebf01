package gateway

import (
	"errors"
	"fmt"
	"time"

	"airgate/internal/ratelimit"
)

// RateLimitedError is returned when an upstream operation is denied by one
// of the rate-limit ceilings. It carries enough detail for the API layer to
// build the 429 response and its headers.
type RateLimitedError struct {
	Scope      string
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited (%s ceiling): retry after %s", e.Scope, e.RetryAfter)
}

func newRateLimitedError(d ratelimit.GateDecision) *RateLimitedError {
	return &RateLimitedError{
		Scope:      d.Scope,
		Limit:      d.Limit,
		Remaining:  d.Remaining,
		ResetAt:    d.ResetAt,
		RetryAfter: d.RetryAfter,
	}
}

// IsRateLimited reports whether err carries a rate-limit denial.
func IsRateLimited(err error) (*RateLimitedError, bool) {
	var rle *RateLimitedError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}
