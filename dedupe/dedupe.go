// Package dedupe provides a set of seen keys with optional time-windowed
// retention.
package dedupe

import (
	"sync"
	"time"
)

// Set is a set of keys which have been seen.
// Its methods are concurrent by way of mutual exclusion.
//
// With a positive retention, keys stamped before the retention horizon are
// evicted by [Set.Sweep], and keys stamped before the horizon are always
// reported as seen so that eviction never causes one to be seen as new.
// Keys with zero stamps are never evicted.
type Set struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	retain time.Duration
}

// New creates a set retaining keys for the given duration.
// A retention of zero or less retains keys forever.
func New(retain time.Duration) *Set {
	return &Set{
		seen:   make(map[string]time.Time),
		retain: retain,
	}
}

// horizon returns the earliest stamp which is retained as of the given time.
// The result is the zero time if keys are retained forever.
func (s *Set) horizon(asof time.Time) time.Time {
	if s.retain <= 0 {
		return time.Time{}
	}
	return asof.Add(-s.retain)
}

// Add marks a key as seen. It reports whether the key was new.
// The check and the insertion happen together, so of any number of
// concurrent calls with the same key, at most one reports true.
func (s *Set) Add(key string, stamp, asof time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	if h := s.horizon(asof); !stamp.IsZero() && stamp.Before(h) {
		return false
	}
	s.seen[key] = stamp
	return true
}

// Has reports whether a key has been seen.
func (s *Set) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

// Sweep evicts keys stamped before the retention horizon as of the given
// time. It returns the number of keys evicted.
func (s *Set) Sweep(asof time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.horizon(asof)
	if h.IsZero() {
		return 0
	}
	n := 0
	for k, t := range s.seen {
		if !t.IsZero() && t.Before(h) {
			delete(s.seen, k)
			n++
		}
	}
	return n
}

// Len returns the number of keys in the set.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
