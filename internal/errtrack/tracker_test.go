package errtrack

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/ports"
	portmocks "github.com/bnema/campus-session/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
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

func newTestTracker(t *testing.T, cfg Config) *Tracker {
	t.Helper()

	tracker := New(cfg)
	t.Cleanup(tracker.Close)
	return tracker
}

func TestTrackCollapsesDuplicatesWithinWindow(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tracker := newTestTracker(t, Config{DedupWindow: 5 * time.Second, Clock: clock})

	recorded := 0
	for range 5 {
		if _, ok := tracker.Track(context.Background(), domain.ErrorEvent{Message: "M", Source: "S", Severity: domain.SeverityError}); ok {
			recorded++
		}
		clock.Advance(200 * time.Millisecond)
	}

	assert.Equal(t, 1, recorded)
	assert.Len(t, tracker.Errors(), 1)
}

func TestTrackRecordsAgainAfterWindow(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tracker := newTestTracker(t, Config{DedupWindow: 5 * time.Second, Clock: clock})
	event := domain.ErrorEvent{Message: "M", Source: "S", Severity: domain.SeverityWarning}

	_, first := tracker.Track(context.Background(), event)
	clock.Advance(6 * time.Second)
	_, second := tracker.Track(context.Background(), event)

	assert.True(t, first)
	assert.True(t, second)
	assert.Len(t, tracker.Errors(), 2)
}

func TestTrackDistinguishesSeverity(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, Config{})
	tracker.Track(context.Background(), domain.ErrorEvent{Message: "M", Source: "S", Severity: domain.SeverityError})
	tracker.Track(context.Background(), domain.ErrorEvent{Message: "M", Source: "S", Severity: domain.SeverityInfo})

	assert.Len(t, tracker.Errors(), 2)
}

func TestTrackKeepsNewestFirstWithinCapacity(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, Config{Capacity: 3})
	for i := 1; i <= 5; i++ {
		tracker.Track(context.Background(), domain.ErrorEvent{Message: fmt.Sprintf("err-%d", i), Source: "S"})
	}

	events := tracker.Errors()
	require.Len(t, events, 3)
	assert.Equal(t, "err-5", events[0].Message)
	assert.Equal(t, "err-3", events[2].Message)
	assert.Equal(t, domain.SeverityError, events[0].Severity, "invalid severity defaults to error")
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestErrorsReturnsCopy(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, Config{})
	tracker.Track(context.Background(), domain.ErrorEvent{Message: "M", Source: "S"})

	events := tracker.Errors()
	events[0].Message = "changed"

	assert.Equal(t, "M", tracker.Errors()[0].Message)
}

func TestSubscribersReceiveOneNotificationPerBurst(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, Config{NotifyDelay: 20 * time.Millisecond})

	var calls atomic.Int32
	var last atomic.Int32
	tracker.Subscribe(func(events []domain.ErrorEvent) {
		calls.Add(1)
		last.Store(int32(len(events)))
	})

	for i := range 4 {
		tracker.Track(context.Background(), domain.ErrorEvent{Message: fmt.Sprintf("err-%d", i), Source: "S"})
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(4), last.Load())
}

func TestZeroNotifyDelayDefaultsToDebounced(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, Config{})
	assert.Equal(t, DefaultNotifyDelay, tracker.cfg.NotifyDelay)

	var calls atomic.Int32
	tracker.Subscribe(func([]domain.ErrorEvent) { calls.Add(1) })

	tracker.Track(context.Background(), domain.ErrorEvent{Message: "first", Source: "S"})
	tracker.Track(context.Background(), domain.ErrorEvent{Message: "second", Source: "S"})
	assert.Zero(t, calls.Load(), "notification waits for the burst to settle")

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return calls.Load() > 1 }, 3*DefaultNotifyDelay, 10*time.Millisecond)
}

func TestSuppressedDuplicateDoesNotNotify(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, Config{NotifyDelay: -1})

	calls := 0
	tracker.Subscribe(func([]domain.ErrorEvent) { calls++ })

	event := domain.ErrorEvent{Message: "M", Source: "S"}
	tracker.Track(context.Background(), event)
	tracker.Track(context.Background(), event)

	assert.Equal(t, 1, calls)
}

func TestClearEmptiesAndNotifies(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, Config{NotifyDelay: time.Hour})

	var got []domain.ErrorEvent
	notified := false
	tracker.Subscribe(func(events []domain.ErrorEvent) {
		notified = true
		got = events
	})
	tracker.Track(context.Background(), domain.ErrorEvent{Message: "M", Source: "S"})

	tracker.Clear()

	assert.True(t, notified)
	assert.Empty(t, got)
	assert.Empty(t, tracker.Errors())
}

func TestSweepReleasesExpiredDedupKeys(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tracker := newTestTracker(t, Config{DedupWindow: time.Second, Clock: clock})
	tracker.Track(context.Background(), domain.ErrorEvent{Message: "M", Source: "S"})

	clock.Advance(2 * time.Second)

	assert.Equal(t, 1, tracker.Sweep())
}

func TestTrackForwardsRecordedEventsToSinks(t *testing.T) {
	t.Parallel()

	sink := portmocks.NewMockErrorSink(t)
	tracker := newTestTracker(t, Config{Sinks: []ports.ErrorSink{sink}})

	sink.EXPECT().Report(mock.Anything, mock.MatchedBy(func(event domain.ErrorEvent) bool {
		return event.Message == "refresh failed" && event.Source == "session" && event.Context["kind"] == "session_loss"
	})).Return(errors.New("rollbar down")).Once()

	lost := domain.NewError(domain.KindSessionLoss, "", errors.New("refresh failed"))
	_, ok := tracker.TrackError(context.Background(), "session", lost, domain.SeverityError, nil)
	require.True(t, ok)

	_, ok = tracker.TrackError(context.Background(), "session", lost, domain.SeverityError, nil)
	assert.False(t, ok, "duplicate is not forwarded")
}
