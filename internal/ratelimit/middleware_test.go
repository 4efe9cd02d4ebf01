package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientLimiter_Allow(t *testing.T) {
	limiter := NewClientLimiter(60, 3, 5*time.Minute)
	defer limiter.Close()

	key := "192.168.1.1"
	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow(key)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, d := limiter.Allow(key)
	assert.False(t, allowed)
	assert.True(t, d.RetryAfter > 0)
	assert.Equal(t, 60, d.Limit)
}

func TestClientLimiter_DifferentClients(t *testing.T) {
	limiter := NewClientLimiter(60, 1, 5*time.Minute)
	defer limiter.Close()

	limiter.Allow("192.168.1.1")
	allowed, _ := limiter.Allow("192.168.1.1")
	assert.False(t, allowed)

	allowed, _ = limiter.Allow("192.168.1.2")
	assert.True(t, allowed)
}

func TestMiddleware_SetsHeaders(t *testing.T) {
	limiter := NewClientLimiter(60, 10, 5*time.Minute)
	defer limiter.Close()

	handler := Middleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/bases", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestMiddleware_DeniesWith429(t *testing.T) {
	limiter := NewClientLimiter(60, 1, 5*time.Minute)
	defer limiter.Close()

	handler := Middleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/bases", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestMiddleware_SeparateClientBudgets(t *testing.T) {
	limiter := NewClientLimiter(60, 1, 5*time.Minute)
	defer limiter.Close()

	handler := Middleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest("GET", "/api/v1/bases", nil)
	first.Header.Set("X-Forwarded-For", "10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	second := httptest.NewRequest("GET", "/api/v1/bases", nil)
	second.Header.Set("X-Forwarded-For", "10.0.0.2")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9:5555", getClientIP(req))

	req.Header.Set("X-Real-IP", "172.16.0.1")
	assert.Equal(t, "172.16.0.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 172.16.0.1")
	assert.Equal(t, "203.0.113.5", getClientIP(req))
}
