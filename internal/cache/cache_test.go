package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTTLCacheExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewTTLCache[string](Config{Clock: clock})
	defer c.Close()

	c.Set("k", "v", 100*time.Millisecond)

	clock.Advance(50 * time.Millisecond)
	value, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", value)

	clock.Advance(100 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len(), "expired entry is evicted on read")
}

func TestTTLCacheLookupIgnoringTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewTTLCache[int](Config{Clock: clock})
	defer c.Close()

	c.Set("k", 7, time.Second)
	clock.Advance(time.Minute)

	value, ok := c.Lookup("k", true)
	require.True(t, ok)
	assert.Equal(t, 7, value)

	_, ok = c.Lookup("k", false)
	assert.False(t, ok)
}

func TestTTLCacheUsesDefaultTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewTTLCache[int](Config{Clock: clock})
	defer c.Close()

	c.Set("k", 1, 0)
	clock.Advance(DefaultTTL)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry exactly ttl old is still valid")

	clock.Advance(time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestTTLCacheSweepRemovesExpiredEntries(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewTTLCache[int](Config{Clock: clock})
	defer c.Close()

	c.Set("short", 1, time.Second)
	c.Set("long", 2, time.Hour)
	clock.Advance(time.Minute)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, []string{"long"}, c.Keys())
}

func TestTTLCacheBackgroundSweep(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewTTLCache[int](Config{Clock: clock, SweepInterval: 5 * time.Millisecond})
	defer c.Close()

	c.Set("k", 1, time.Second)
	clock.Advance(2 * time.Second)

	require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestTTLCacheDeleteAndClear(t *testing.T) {
	t.Parallel()

	c := NewTTLCache[int](Config{})
	defer c.Close()

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))

	c.Clear()
	assert.Zero(t, c.Len())
}

func TestTTLCacheCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	c := NewTTLCache[int](Config{SweepInterval: time.Millisecond})
	c.Close()
	c.Close()
}

func TestSizedCacheEvictsOldestWhenBudgetExceeded(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewSizedCache[string](SizedConfig{Config: Config{Clock: clock}, MaxBytes: 10})
	defer c.Close()

	require.NoError(t, c.Set("a", "A", 4, 0))
	clock.Advance(time.Second)
	require.NoError(t, c.Set("b", "B", 4, 0))
	clock.Advance(time.Second)
	require.NoError(t, c.Set("c", "C", 4, 0))

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry evicted")
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, int64(8), c.Bytes())
}

func TestSizedCacheRejectsOversizedEntry(t *testing.T) {
	t.Parallel()

	c := NewSizedCache[string](SizedConfig{MaxBytes: 10})
	defer c.Close()

	require.NoError(t, c.Set("small", "s", 5, 0))

	err := c.Set("huge", "h", 11, 0)
	require.ErrorIs(t, err, ErrEntryTooLarge)
	assert.Equal(t, 1, c.Len(), "rejection evicts nothing")
	assert.Equal(t, int64(5), c.Bytes())
}

func TestSizedCacheReplacingKeyReleasesItsBytes(t *testing.T) {
	t.Parallel()

	c := NewSizedCache[string](SizedConfig{MaxBytes: 10})
	defer c.Close()

	require.NoError(t, c.Set("a", "v1", 6, 0))
	require.NoError(t, c.Set("a", "v2", 8, 0))

	value, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "v2", value)
	assert.Equal(t, int64(8), c.Bytes())
}

func TestSizedCacheExpiryReleasesBytes(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewSizedCache[string](SizedConfig{Config: Config{Clock: clock}, MaxBytes: 10})
	defer c.Close()

	require.NoError(t, c.Set("a", "v", 6, time.Second))
	clock.Advance(2 * time.Second)
	c.Sweep()

	assert.Zero(t, c.Bytes())
}

func TestWarningDedupShouldLog(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	d := NewWarningDedup(30*time.Second, clock)

	assert.True(t, d.ShouldLog("slow:X"))
	assert.False(t, d.ShouldLog("slow:X"))
	assert.True(t, d.ShouldLog("slow:Y"), "keys are independent")

	clock.Advance(20 * time.Second)
	assert.False(t, d.ShouldLog("slow:X"))

	clock.Advance(11 * time.Second)
	assert.True(t, d.ShouldLog("slow:X"), "suppressed calls do not extend the window")
}

func TestWarningDedupSweep(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	d := NewWarningDedup(time.Second, clock)

	d.ShouldLog("a")
	d.ShouldLog("b")
	clock.Advance(2 * time.Second)

	assert.Equal(t, 2, d.Sweep())
	assert.Zero(t, d.Len())
}
