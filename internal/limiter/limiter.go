// Package limiter implements fixed-window request limiting keyed by an
// arbitrary identifier, backed by process memory or Redis.
package limiter

import (
	"context"
	"fmt"
	"time"
)

// Rule is the number of hits permitted per window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Result is the outcome of one hit against a window.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// ResetIn returns how long until the window resets, never negative.
func (r Result) ResetIn(now time.Time) time.Duration {
	if d := r.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Store records hits for identifiers.
type Store interface {
	Hit(ctx context.Context, identifier string, rule Rule, now time.Time) (Result, error)
}

// Limiter applies one Rule to identifiers through a Store. It is built once at
// startup and shared by reference.
type Limiter struct {
	store Store
	rule  Rule
	now   func() time.Time
}

// New creates a Limiter.
func New(store Store, rule Rule) *Limiter {
	return &Limiter{store: store, rule: rule, now: time.Now}
}

// Allow records a hit for identifier and reports whether it is within the rule.
func (l *Limiter) Allow(ctx context.Context, identifier string) (Result, error) {
	res, err := l.store.Hit(ctx, identifier, l.rule, l.now())
	if err != nil {
		return Result{}, fmt.Errorf("rate limit %q: %w", identifier, err)
	}
	return res, nil
}

// Rule returns the limiter's rule.
func (l *Limiter) Rule() Rule {
	return l.rule
}

// Now returns the limiter's clock reading.
func (l *Limiter) Now() time.Time {
	return l.now()
}

// SetClock replaces the time source. Used by tests to simulate window expiry.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}
