// Package ratelimit provides an in-process, per-identifier attempt limiter.
//
// State lives in memory only: a restart clears every counter and each
// instance of a horizontally scaled deployment keeps its own counts.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of identifiers tracked before the oldest is evicted
const DefaultCapacity = 1000

// Result describes the outcome of a single attempt
type Result struct {
	Success   bool
	Remaining int
	ResetTime time.Time
}

// Limiter tracks attempt timestamps per identifier over a trailing window
type Limiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	order    []string // identifiers in insertion order, for eviction
	capacity int
	now      func() time.Time
}

// Option configures a Limiter
type Option func(*Limiter)

// WithCapacity bounds the number of tracked identifiers
func WithCapacity(capacity int) Option {
	return func(l *Limiter) {
		if capacity > 0 {
			l.capacity = capacity
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates an empty Limiter
func New(opts ...Option) *Limiter {
	l := &Limiter{
		attempts: make(map[string][]time.Time),
		capacity: DefaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Attempt records an attempt for identifier if fewer than maxAttempts fall
// inside window, and reports whether it was allowed.
func (l *Limiter) Attempt(identifier string, maxAttempts int, window time.Duration) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	existing, tracked := l.attempts[identifier]
	recent := existing[:0:0]
	for _, ts := range existing {
		if now.Sub(ts) < window {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= maxAttempts {
		if tracked {
			l.attempts[identifier] = recent
		}
		var reset time.Time
		if len(recent) > 0 {
			reset = recent[0].Add(window)
		} else {
			reset = now.Add(window)
		}
		return Result{Success: false, Remaining: 0, ResetTime: reset}
	}

	recent = append(recent, now)
	l.attempts[identifier] = recent
	if !tracked {
		l.order = append(l.order, identifier)
		l.evict()
	}

	return Result{
		Success:   true,
		Remaining: maxAttempts - len(recent),
		ResetTime: now.Add(window),
	}
}

// evict drops the earliest-inserted identifiers until the map fits capacity
func (l *Limiter) evict() {
	for len(l.attempts) > l.capacity && len(l.order) > 0 {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.attempts, oldest)
	}
}

// Len returns the number of tracked identifiers
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}

// Reset forgets all state, as a process restart would
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = make(map[string][]time.Time)
	l.order = nil
}
