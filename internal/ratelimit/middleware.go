package ratelimit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"airgate/internal/models"

	"golang.org/x/time/rate"
)

// clientEntry holds a per-client limiter and its last access time for cleanup.
type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter limits inbound callers of the gateway itself, keyed by client
// IP. It is backed by golang.org/x/time/rate rather than the upstream token
// bucket: inbound limiting needs no distributed backend or scope reporting,
// only fast per-key admission.
type ClientLimiter struct {
	rate            rate.Limit
	burst           int
	limit           int // requests per minute, for headers
	cleanupInterval time.Duration

	mu      sync.Mutex
	entries map[string]*clientEntry
	done    chan struct{}
	closed  bool
}

// NewClientLimiter creates a client limiter with the given requests-per-minute
// rate, burst size, and cleanup interval. It starts a background goroutine
// for eviction of idle clients.
func NewClientLimiter(requestsPerMinute int, burst int, cleanupInterval time.Duration) *ClientLimiter {
	c := &ClientLimiter{
		rate:            rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:           burst,
		limit:           requestsPerMinute,
		cleanupInterval: cleanupInterval,
		entries:         make(map[string]*clientEntry),
		done:            make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Allow checks whether a request from the given client key should be allowed.
func (c *ClientLimiter) Allow(key string) (bool, Decision) {
	c.mu.Lock()
	e, exists := c.entries[key]
	if !exists {
		e = &clientEntry{
			limiter: rate.NewLimiter(c.rate, c.burst),
		}
		c.entries[key] = e
	}
	e.lastSeen = time.Now()
	c.mu.Unlock()

	allowed := e.limiter.Allow()

	now := time.Now()
	tokens := e.limiter.TokensAt(now)

	d := Decision{
		Allowed:   allowed,
		Limit:     c.limit,
		Remaining: int(math.Max(0, math.Floor(tokens))),
	}

	if tokensNeeded := float64(c.burst) - tokens; tokensNeeded > 0 {
		d.ResetAt = now.Add(time.Duration(tokensNeeded / float64(c.rate) * float64(time.Second)))
	} else {
		d.ResetAt = now
	}

	if !allowed {
		reservation := e.limiter.Reserve()
		d.RetryAfter = reservation.Delay()
		reservation.Cancel()
	}

	return allowed, d
}

// Close stops the background cleanup goroutine.
func (c *ClientLimiter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

// cleanup periodically evicts clients that have not been seen within
// 2x the cleanup interval.
func (c *ClientLimiter) cleanup() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.evictStale()
		}
	}
}

func (c *ClientLimiter) evictStale() {
	cutoff := time.Now().Add(-2 * c.cleanupInterval)
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if e.lastSeen.Before(cutoff) {
			delete(c.entries, key)
		}
	}
}

// Middleware returns HTTP middleware that enforces the inbound client rate
// limit, keyed by client IP, and sets standard rate limit response headers.
func Middleware(limiter *ClientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := getClientIP(r)

			allowed, d := limiter.Allow(key)

			// Always set rate limit headers
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", d.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", d.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", d.ResetAt.Unix()))

			if !allowed {
				retryAfterSecs := int(d.RetryAfter.Seconds()) + 1
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)

				errorResp := models.NewErrorResponse("Rate limit exceeded", models.ErrorCodeRateLimited)
				json.NewEncoder(w).Encode(errorResp)

				slog.Warn("Client rate limit exceeded",
					"key", key,
					"limit", d.Limit,
					"retry_after", retryAfterSecs,
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request, checking proxy headers.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}
