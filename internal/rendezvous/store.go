// Package rendezvous provides a short-lived keyed hand-off point for
// producer nodes that execute independently but need to share context,
// typically a negative prompt stashed under an execution key for a
// sibling node to pick up.
//
// Entries carry their own TTL, separate from the tracking registry's
// staleness threshold, and the store follows the same concurrency
// discipline: one lock, bounded lifetime, no I/O.
package rendezvous

import (
	"sync"
	"time"
)

// DefaultTTL is how long a stashed value stays collectible.
const DefaultTTL = 120 * time.Second

type entry struct {
	value    any
	storedAt time.Time
}

// Store is a thread-safe TTL'd key-value rendezvous point.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates a store with the given TTL; zero means DefaultTTL.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stashes a value under key, replacing any previous value and
// restarting its TTL.
func (s *Store) Put(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, storedAt: s.now()}
}

// Get returns the live value under key without consuming it.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.now().Sub(e.storedAt) > s.ttl {
		delete(s.entries, key)
		return nil, false
	}
	return e.value, true
}

// Take returns and removes the live value under key. The usual pattern:
// the second sibling collects the stash exactly once.
func (s *Store) Take(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	delete(s.entries, key)
	if s.now().Sub(e.storedAt) > s.ttl {
		return nil, false
	}
	return e.value, true
}

// Sweep removes all expired entries and returns how many were dropped.
// Run from the same maintenance loop that evicts stale prompt records.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if now.Sub(e.storedAt) > s.ttl {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
