package cache

import (
	"sync"
	"time"

	"github.com/bnema/campus-session/internal/ports"
	"github.com/bnema/campus-session/internal/telemetry"
)

type entry[V any] struct {
	data      V
	timestamp time.Time
	ttl       time.Duration
	size      int64
}

func (e entry[V]) expired(now time.Time) bool {
	return now.Sub(e.timestamp) > e.ttl
}

// store is the map, clock and byte accounting shared by the cache variants.
type store[V any] struct {
	name       string
	defaultTTL time.Duration
	clock      ports.Clock

	mu         sync.Mutex
	entries    map[string]entry[V]
	totalBytes int64
}

func newStore[V any](name string, ttl time.Duration, clock ports.Clock) *store[V] {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &store[V]{
		name:       name,
		defaultTTL: ttl,
		clock:      clock,
		entries:    map[string]entry[V]{},
	}
}

func (s *store[V]) lookup(key string, ignoreTTL bool) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		telemetry.CacheLookup(s.name, false)
		var zero V
		return zero, false
	}
	if !ignoreTTL && e.expired(s.clock.Now()) {
		s.removeLocked(key)
		telemetry.CacheLookup(s.name, false)
		telemetry.CacheEvicted(s.name, "expired", 1)
		var zero V
		return zero, false
	}

	telemetry.CacheLookup(s.name, true)
	return e.data, true
}

func (s *store[V]) setLocked(key string, value V, ttl time.Duration, size int64) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	s.removeLocked(key)
	s.entries[key] = entry[V]{data: value, timestamp: s.clock.Now(), ttl: ttl, size: size}
	s.totalBytes += size
}

func (s *store[V]) removeLocked(key string) bool {
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	delete(s.entries, key)
	s.totalBytes -= e.size
	return true
}

func (s *store[V]) delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(key)
}

func (s *store[V]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[string]entry[V]{}
	s.totalBytes = 0
}

func (s *store[V]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *store[V]) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys
}

// sweep drops every expired entry and returns how many were removed.
func (s *store[V]) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for key, e := range s.entries {
		if e.expired(now) {
			s.removeLocked(key)
			removed++
		}
	}
	telemetry.CacheEvicted(s.name, "expired", removed)
	return removed
}
