package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/bnema/campus-session/internal/telemetry"
)

const (
	DefaultLargeTTL      = 30 * time.Minute
	DefaultLargeMaxBytes = 50 << 20
)

var ErrEntryTooLarge = errors.New("cache entry exceeds byte budget")

type SizedConfig struct {
	Config
	MaxBytes int64
}

// SizedCache is a TTLCache with a byte budget. Inserting past the budget
// evicts the oldest entries first.
type SizedCache[V any] struct {
	store    *store[V]
	maxBytes int64
	sweeper  *sweeper
}

func NewSizedCache[V any](cfg SizedConfig) *SizedCache[V] {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultLargeTTL
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultLargeMaxBytes
	}
	if cfg.Name == "" {
		cfg.Name = "sized"
	}

	c := &SizedCache[V]{store: newStore[V](cfg.Name, cfg.TTL, cfg.Clock), maxBytes: cfg.MaxBytes}
	c.sweeper = startSweeper(cfg.SweepInterval, func() { c.Sweep() })
	return c
}

// Set stores value with its size in bytes. A value larger than the whole
// budget is rejected and nothing is evicted.
func (c *SizedCache[V]) Set(key string, value V, size int64, ttl time.Duration) error {
	if size < 0 {
		size = 0
	}
	if size > c.maxBytes {
		return fmt.Errorf("set %q (%d bytes, budget %d): %w", key, size, c.maxBytes, ErrEntryTooLarge)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	c.store.removeLocked(key)
	evicted := 0
	for c.store.totalBytes+size > c.maxBytes {
		oldest, ok := c.oldestLocked()
		if !ok {
			break
		}
		c.store.removeLocked(oldest)
		evicted++
	}
	telemetry.CacheEvicted(c.store.name, "size", evicted)

	c.store.setLocked(key, value, ttl, size)
	return nil
}

func (c *SizedCache[V]) Get(key string) (V, bool) {
	return c.store.lookup(key, false)
}

func (c *SizedCache[V]) Lookup(key string, ignoreTTL bool) (V, bool) {
	return c.store.lookup(key, ignoreTTL)
}

func (c *SizedCache[V]) Delete(key string) bool {
	return c.store.delete(key)
}

func (c *SizedCache[V]) Clear() {
	c.store.clear()
}

func (c *SizedCache[V]) Len() int {
	return c.store.len()
}

func (c *SizedCache[V]) Bytes() int64 {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.store.totalBytes
}

func (c *SizedCache[V]) Sweep() int {
	return c.store.sweep()
}

func (c *SizedCache[V]) Close() {
	c.sweeper.close()
}

func (c *SizedCache[V]) oldestLocked() (string, bool) {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for key, e := range c.store.entries {
		if !found || e.timestamp.Before(oldestAt) {
			oldestKey, oldestAt, found = key, e.timestamp, true
		}
	}
	return oldestKey, found
}
