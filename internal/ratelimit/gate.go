package ratelimit

import (
	"context"
	"log/slog"
)

// Scope identifies which ceiling produced a gate decision.
const (
	ScopeGlobal = "global"
	ScopeBase   = "base"
)

// globalKey is the single key under which the global ceiling is tracked.
const globalKey = "global"

// Gate composes the upstream API's two ceilings: a global operations budget
// and a per-base budget. Both must independently grant before an upstream
// call may proceed; neither subsumes the other. The global ceiling is
// consulted first, matching the upstream API's own enforcement order.
//
// A limiter backend error fails open: blocking all upstream traffic because
// Redis is unreachable would be worse than briefly exceeding a ceiling.
type Gate struct {
	global Limiter
	base   Limiter
	logger *slog.Logger
}

// GateDecision is the combined outcome of both ceiling checks. When denied,
// Scope names the ceiling that ran out and the embedded Decision carries its
// retry-after and header state.
type GateDecision struct {
	Decision
	Scope string
}

// NewGate creates a gate over the given global and per-base limiters.
func NewGate(global, base Limiter, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{global: global, base: base, logger: logger}
}

// Acquire attempts to take one permit from the global ceiling and, when
// baseID is non-empty, one from that base's ceiling. A denial by the base
// ceiling does not refund the global token; over-counting denied attempts
// keeps the gate conservative.
func (g *Gate) Acquire(ctx context.Context, baseID string) GateDecision {
	global, err := g.global.Allow(ctx, globalKey)
	if err != nil {
		g.logger.Warn("global rate limiter unavailable, failing open", "error", err)
		global = Decision{Allowed: true}
	}
	if !global.Allowed {
		return GateDecision{Decision: global, Scope: ScopeGlobal}
	}

	if baseID == "" {
		return GateDecision{Decision: global, Scope: ScopeGlobal}
	}

	base, err := g.base.Allow(ctx, baseID)
	if err != nil {
		g.logger.Warn("base rate limiter unavailable, failing open", "base_id", baseID, "error", err)
		base = Decision{Allowed: true}
	}
	if !base.Allowed {
		return GateDecision{Decision: base, Scope: ScopeBase}
	}

	return GateDecision{Decision: base, Scope: ScopeBase}
}

// Close closes both underlying limiters.
func (g *Gate) Close() error {
	err := g.global.Close()
	if berr := g.base.Close(); berr != nil && err == nil {
		err = berr
	}
	return err
}
