// Package gate implements permission checks with escalation to time-boxed
// suspensions for users who repeatedly try commands they can't use.
package gate

import (
	"slices"
	"sync"
	"time"
)

// Gate tracks permission denials and suspensions.
// Its methods are concurrent by way of mutual exclusion.
type Gate struct {
	mu sync.Mutex

	// denials is the number of times each user has been denied.
	// Counts are never reset.
	denials map[string]uint
	// until is the suspension expiry for each suspended user.
	until map[string]time.Time

	threshold uint
	duration  time.Duration
}

// New creates a gate which suspends a user for d once they have been denied
// at least threshold times.
func New(threshold uint, d time.Duration) *Gate {
	return &Gate{
		denials:   make(map[string]uint),
		until:     make(map[string]time.Time),
		threshold: max(threshold, 1),
		duration:  d,
	}
}

// suspendedLocked reports whether user is suspended as of the given time.
// Stale suspensions are evicted. The gate's mutex must be held.
func (g *Gate) suspendedLocked(user string, asof time.Time) bool {
	t, ok := g.until[user]
	if !ok {
		return false
	}
	if asof.Before(t) {
		return true
	}
	delete(g.until, user)
	return false
}

// Suspended reports whether user is suspended as of the given time.
func (g *Gate) Suspended(user string, asof time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.suspendedLocked(user, asof)
}

// Until returns the time at which user's suspension ends.
// The result is the zero time if the user is not suspended.
func (g *Gate) Until(user string, asof time.Time) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.suspendedLocked(user, asof) {
		return time.Time{}
	}
	return g.until[user]
}

// Allowed reports whether user holds the capability among roles and is not
// suspended. Nobody holds an empty capability.
// Allowed does not record a denial; use [Gate.Deny] for that.
func (g *Gate) Allowed(user string, roles []string, capability string, asof time.Time) bool {
	if capability == "" || !slices.Contains(roles, capability) {
		return false
	}
	return !g.Suspended(user, asof)
}

// Deny records a permission denial for user. It returns the user's total
// denial count and whether this denial started a suspension.
//
// Callers check suspension before evaluating permissions, so a user who is
// already suspended never reaches Deny and their suspension is not extended.
// Once the threshold is reached, every later denial suspends again.
func (g *Gate) Deny(user string, asof time.Time) (count uint, suspended bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.denials[user] + 1
	g.denials[user] = n
	if n < g.threshold {
		return n, false
	}
	g.until[user] = asof.Add(g.duration)
	return n, true
}

// Denials returns the number of times user has been denied.
func (g *Gate) Denials(user string) uint {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.denials[user]
}
