// Package ratelimit implements sliding-window-log rate limiting for
// sensitive operations: each key keeps the timestamps of accepted
// requests inside a trailing window, and a request is rejected once
// the window holds the configured maximum.
//
// Multiple named limiters share one backing store and are namespaced
// by prefix, so the same caller identity is tracked independently per
// purpose. Exhaustion is a normal, reportable outcome, never an
// error.
package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Decision is what a store reports for one take attempt.
type Decision struct {
	// Allowed is false once the window already holds the limit.
	Allowed bool
	// Count is the number of timestamps in the window after the
	// attempt (including the new one when allowed).
	Count int
	// Oldest is the oldest timestamp still in the window. Zero when
	// the window is empty.
	Oldest time.Time
}

// Store holds per-key timestamp windows. MemoryStore is the default;
// RedisStore shares windows across instances.
type Store interface {
	// Take prunes timestamps older than now-window, appends now if
	// the key is under limit, and reports the outcome.
	Take(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Decision, error)
	// Reset unconditionally clears a key's window.
	Reset(ctx context.Context, key string) error
}

// Result is the outcome of a limiter check.
type Result struct {
	// OK is false when the caller must back off.
	OK bool
	// Remaining is how many requests the window still accepts.
	Remaining int
	// ResetIn is whole seconds until the window frees a slot, rounded
	// up so callers are never told to retry early. Zero when OK.
	ResetIn int
}

// Config configures one named limiter.
type Config struct {
	// Interval is the trailing window length.
	Interval time.Duration
	// MaxRequests is the cap within the window.
	MaxRequests int
	// Prefix namespaces this limiter's keys in the shared store.
	Prefix string
}

// Limiter throttles one purpose (login, otp-send, ...) per caller
// identity.
type Limiter struct {
	config Config
	store  Store
	logger *slog.Logger
}

// New creates a limiter over the given store.
func New(config Config, store Store, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{config: config, store: store, logger: logger}
}

// Check records a request attempt for key and reports whether it is
// allowed. Store failures (possible only with a remote store) fail
// open with a logged warning: availability of login outranks strict
// throttling when the limiter's own backend is down.
func (l *Limiter) Check(ctx context.Context, key string) Result {
	now := time.Now()
	decision, err := l.store.Take(ctx, l.config.Prefix+":"+key, now, l.config.Interval, l.config.MaxRequests)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, allowing request", "prefix", l.config.Prefix, "error", err)
		return Result{OK: true, Remaining: l.config.MaxRequests - 1}
	}

	if !decision.Allowed {
		return Result{OK: false, Remaining: 0, ResetIn: resetIn(decision.Oldest, l.config.Interval, now)}
	}

	remaining := l.config.MaxRequests - decision.Count
	if remaining < 0 {
		remaining = 0
	}
	return Result{OK: true, Remaining: remaining}
}

// Reset clears a key's window (administrative override).
func (l *Limiter) Reset(ctx context.Context, key string) {
	if err := l.store.Reset(ctx, l.config.Prefix+":"+key); err != nil {
		l.logger.Warn("rate limit reset failed", "prefix", l.config.Prefix, "error", err)
	}
}

// resetIn returns whole seconds until the oldest window entry falls
// out of range, rounded up.
func resetIn(oldest time.Time, window time.Duration, now time.Time) int {
	d := oldest.Add(window).Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
