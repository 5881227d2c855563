package cache

import (
	"time"

	"github.com/bnema/campus-session/internal/ports"
)

const DefaultWarningCooldown = 30 * time.Second

// WarningDedup rate-limits a recurring log line per key.
type WarningDedup struct {
	seen *TTLCache[struct{}]
}

func NewWarningDedup(cooldown time.Duration, clock ports.Clock) *WarningDedup {
	if cooldown <= 0 {
		cooldown = DefaultWarningCooldown
	}
	return &WarningDedup{seen: NewTTLCache[struct{}](Config{
		Name:  "warning_dedup",
		TTL:   cooldown,
		Clock: clock,
	})}
}

// ShouldLog reports true and records the current time when key has not been
// logged within the cooldown. A suppressed call does not extend the window.
func (d *WarningDedup) ShouldLog(key string) bool {
	d.seen.store.mu.Lock()
	defer d.seen.store.mu.Unlock()

	if e, ok := d.seen.store.entries[key]; ok && !e.expired(d.seen.store.clock.Now()) {
		return false
	}
	d.seen.store.setLocked(key, struct{}{}, 0, 0)
	return true
}

// Sweep forgets keys whose cooldown has elapsed.
func (d *WarningDedup) Sweep() int {
	return d.seen.Sweep()
}

func (d *WarningDedup) Len() int {
	return d.seen.Len()
}

func (d *WarningDedup) Reset() {
	d.seen.Clear()
}
