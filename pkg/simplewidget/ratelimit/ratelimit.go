// Package ratelimit implements fixed-window request counting keyed by an
// arbitrary identifier (user ID, client IP). Windows reset in full at
// their boundary, so bursts straddling a boundary can reach up to twice
// the nominal limit; that is acceptable for abuse deterrence but not for
// precise quota enforcement.
//
// State is process-local and lost on restart. Horizontally scaled
// deployments should back the Limiter interface with a shared counter
// store instead.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter gates repeated requests per identifier.
type Limiter interface {
	// Allow reports whether the identifier may perform another request
	// under the given limit and window, counting the request if so.
	Allow(identifier string, limit int, window time.Duration) bool
}

type entry struct {
	count   int
	resetAt time.Time
}

// FixedWindow is an in-memory fixed-window Limiter, safe for concurrent
// use by in-flight requests on the same process.
type FixedWindow struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewFixedWindow creates an empty limiter.
func NewFixedWindow() *FixedWindow {
	return &FixedWindow{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// NewFixedWindowWithClock creates a limiter with an injected clock for
// tests.
func NewFixedWindowWithClock(now func() time.Time) *FixedWindow {
	return &FixedWindow{
		entries: make(map[string]*entry),
		now:     now,
	}
}

// Allow implements Limiter.
func (l *FixedWindow) Allow(identifier string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, exists := l.entries[identifier]
	if !exists || now.After(e.resetAt) {
		l.entries[identifier] = &entry{count: 1, resetAt: now.Add(window)}
		return true
	}

	if e.count >= limit {
		return false
	}

	e.count++
	return true
}

// Remaining returns how many requests the identifier has left in its
// current window, or limit when no window is open.
func (l *FixedWindow) Remaining(identifier string, limit int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, exists := l.entries[identifier]
	if !exists || l.now().After(e.resetAt) {
		return limit
	}
	if remaining := limit - e.count; remaining > 0 {
		return remaining
	}
	return 0
}

// ResetAt returns the end of the identifier's current window and whether
// a window is open.
func (l *FixedWindow) ResetAt(identifier string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, exists := l.entries[identifier]
	if !exists {
		return time.Time{}, false
	}
	return e.resetAt, true
}

// Prune drops expired windows. The map otherwise grows with the number of
// distinct identifiers seen; callers may run this periodically.
func (l *FixedWindow) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, id)
		}
	}
}
