package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLimiter returns a fixed decision or error for every key.
type stubLimiter struct {
	decision Decision
	err      error
	calls    atomic.Int64
}

func (s *stubLimiter) Allow(context.Context, string) (Decision, error) {
	s.calls.Add(1)
	return s.decision, s.err
}

func (s *stubLimiter) Close() error { return nil }

func newTestGate(t *testing.T, globalLimit, baseLimit int, globalWindow, baseWindow time.Duration) *Gate {
	t.Helper()
	global := NewMemoryLimiter(globalLimit, globalWindow, 5*time.Minute)
	base := NewMemoryLimiter(baseLimit, baseWindow, 5*time.Minute)
	gate := NewGate(global, base, nil)
	t.Cleanup(func() { gate.Close() })
	return gate
}

func TestGate_Acquire_BothGrant(t *testing.T) {
	gate := newTestGate(t, 100, 5, time.Minute, time.Second)

	decision := gate.Acquire(context.Background(), "appBase1")
	assert.True(t, decision.Allowed)
	assert.Equal(t, ScopeBase, decision.Scope)
}

func TestGate_Acquire_BaseCeilingDenies(t *testing.T) {
	gate := newTestGate(t, 100, 5, time.Minute, time.Hour)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		decision := gate.Acquire(ctx, "appBase1")
		require.True(t, decision.Allowed, "acquisition %d should be granted", i+1)
	}

	decision := gate.Acquire(ctx, "appBase1")
	assert.False(t, decision.Allowed)
	assert.Equal(t, ScopeBase, decision.Scope)
	assert.True(t, decision.RetryAfter > 0)
}

func TestGate_Acquire_GlobalCeilingDenies(t *testing.T) {
	gate := newTestGate(t, 3, 100, time.Hour, time.Second)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		decision := gate.Acquire(ctx, "appBase1")
		require.True(t, decision.Allowed)
	}

	// Even a fresh base is denied once the global budget is spent
	decision := gate.Acquire(ctx, "appBase2")
	assert.False(t, decision.Allowed)
	assert.Equal(t, ScopeGlobal, decision.Scope)
}

func TestGate_Acquire_BasesIsolated(t *testing.T) {
	gate := newTestGate(t, 100, 2, time.Minute, time.Hour)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		gate.Acquire(ctx, "appBase1")
	}
	decision := gate.Acquire(ctx, "appBase1")
	require.False(t, decision.Allowed)

	decision = gate.Acquire(ctx, "appBase2")
	assert.True(t, decision.Allowed, "a different base has its own budget")
}

func TestGate_Acquire_EmptyBaseSkipsBaseCeiling(t *testing.T) {
	base := &stubLimiter{decision: Decision{Allowed: false}}
	global := NewMemoryLimiter(100, time.Minute, 5*time.Minute)
	gate := NewGate(global, base, nil)
	defer gate.Close()

	decision := gate.Acquire(context.Background(), "")
	assert.True(t, decision.Allowed)
	assert.Equal(t, ScopeGlobal, decision.Scope)
	assert.Equal(t, int64(0), base.calls.Load())
}

func TestGate_Acquire_FailsOpenOnBackendError(t *testing.T) {
	global := &stubLimiter{err: errors.New("connection refused")}
	base := &stubLimiter{err: errors.New("connection refused")}
	gate := NewGate(global, base, nil)
	defer gate.Close()

	decision := gate.Acquire(context.Background(), "appBase1")
	assert.True(t, decision.Allowed)
}

func TestGate_Acquire_ConcurrentBaseBound(t *testing.T) {
	// Six concurrent acquisitions against a 5-per-window base ceiling must
	// grant exactly five.
	gate := newTestGate(t, 100, 5, time.Minute, time.Hour)

	ctx := context.Background()
	var granted atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if decision := gate.Acquire(ctx, "appBase1"); decision.Allowed {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), granted.Load())
}
