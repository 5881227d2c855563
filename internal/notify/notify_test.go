package notify

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterPublishesInSubscriptionOrder(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster[int]()
	var got []string
	b.Subscribe(func(v int) { got = append(got, "a") })
	b.Subscribe(func(v int) { got = append(got, "b") })

	b.Publish(1)

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestBroadcasterUnsubscribeIsIdempotent(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster[string]()
	calls := 0
	unsubscribe := b.Subscribe(func(string) { calls++ })
	keep := b.Subscribe(func(string) {})
	defer keep()

	unsubscribe()
	unsubscribe()
	b.Publish("x")

	assert.Zero(t, calls)
	assert.Equal(t, 1, b.Len())
}

func TestBroadcasterIgnoresNilHandler(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster[int]()
	b.Subscribe(nil)()

	assert.Zero(t, b.Len())
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })
	defer d.Stop()

	for range 5 {
		d.Trigger()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncerStopCancelsPendingCall(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	d.Stop()
	d.Trigger()
	time.Sleep(50 * time.Millisecond)

	assert.Zero(t, calls.Load())
}

func TestDebouncerSupersededTimerKeepsNewerOnePending(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d := NewDebouncer(time.Hour, func() { calls.Add(1) })
	defer d.Stop()

	d.Trigger()
	d.mu.Lock()
	first := d.gen
	d.mu.Unlock()
	d.Trigger()

	// The first timer fired just as the second Trigger replaced it.
	d.fire(first)

	assert.Zero(t, calls.Load())
	assert.True(t, d.Pending())
	assert.True(t, d.Flush())
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncerFlushRunsPendingCallImmediately(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d := NewDebouncer(time.Hour, func() { calls.Add(1) })
	defer d.Stop()

	assert.False(t, d.Flush())
	d.Trigger()
	assert.True(t, d.Pending())
	assert.True(t, d.Flush())
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Pending())
}

func TestDebouncerZeroDelayRunsSynchronously(t *testing.T) {
	t.Parallel()

	calls := 0
	d := NewDebouncer(0, func() { calls++ })
	d.Trigger()
	d.Trigger()

	assert.Equal(t, 2, calls)
}
