package cache

import (
	"context"
	"sync"
	"time"

	"conclave/internal/responder"
)

// InMemoryStore caches raw results in process memory for tests, development,
// and single-instance deployments without Redis.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[Fingerprint]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	raw       responder.RawResult
	expiresAt time.Time
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[Fingerprint]memoryEntry),
		now:     time.Now,
	}
}

// WithClock overrides the time source for expiry tests.
func (s *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	s.now = now
	return s
}

// Get returns the cached result or ErrMiss. Expired entries are misses but
// stay in the map until the next Put or Sweep.
func (s *InMemoryStore) Get(_ context.Context, fp Fingerprint) (*responder.RawResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[fp]
	if !ok || s.now().After(e.expiresAt) {
		return nil, ErrMiss
	}
	raw := e.raw
	return &raw, nil
}

// Put stores raw under fp for ttl, replacing any existing entry.
func (s *InMemoryStore) Put(_ context.Context, fp Fingerprint, raw *responder.RawResult, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[fp] = memoryEntry{raw: *raw, expiresAt: s.now().Add(ttl)}
	return nil
}

// Sweep removes expired entries and reports how many it dropped. Intended for
// a periodic background pass; correctness never depends on it.
func (s *InMemoryStore) Sweep(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for fp, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, fp)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of entries including expired ones awaiting sweep.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
