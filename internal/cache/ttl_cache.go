package cache

import (
	"time"

	"github.com/bnema/campus-session/internal/ports"
)

const (
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = 60 * time.Second
)

type Config struct {
	// Name labels the cache in metrics.
	Name string
	TTL  time.Duration
	// SweepInterval disables the background sweep when zero.
	SweepInterval time.Duration
	Clock         ports.Clock
}

// TTLCache maps keys to values that expire ttl after they were set. Expired
// entries are dropped lazily on read and eagerly by the background sweep.
type TTLCache[V any] struct {
	store   *store[V]
	sweeper *sweeper
}

func NewTTLCache[V any](cfg Config) *TTLCache[V] {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Name == "" {
		cfg.Name = "ttl"
	}

	c := &TTLCache[V]{store: newStore[V](cfg.Name, cfg.TTL, cfg.Clock)}
	c.sweeper = startSweeper(cfg.SweepInterval, func() { c.Sweep() })
	return c
}

// Set stores value stamped with the current time. A non-positive ttl uses the
// cache default.
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.setLocked(key, value, ttl, 0)
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	return c.store.lookup(key, false)
}

// Lookup is Get with the option to return an entry regardless of its age.
func (c *TTLCache[V]) Lookup(key string, ignoreTTL bool) (V, bool) {
	return c.store.lookup(key, ignoreTTL)
}

func (c *TTLCache[V]) Delete(key string) bool {
	return c.store.delete(key)
}

func (c *TTLCache[V]) Clear() {
	c.store.clear()
}

func (c *TTLCache[V]) Len() int {
	return c.store.len()
}

func (c *TTLCache[V]) Keys() []string {
	return c.store.keys()
}

func (c *TTLCache[V]) Sweep() int {
	return c.store.sweep()
}

// Close stops the background sweep and waits for it to exit.
func (c *TTLCache[V]) Close() {
	c.sweeper.close()
}
