package errtrack

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bnema/campus-session/internal/cache"
	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/logging"
	"github.com/bnema/campus-session/internal/notify"
	"github.com/bnema/campus-session/internal/ports"
	"github.com/bnema/campus-session/internal/telemetry"
	"github.com/google/uuid"
)

const (
	DefaultCapacity      = 100
	DefaultDedupWindow   = 5 * time.Second
	DefaultNotifyDelay   = 100 * time.Millisecond
	DefaultSweepInterval = time.Minute
)

type Config struct {
	DedupWindow time.Duration
	Capacity    int
	// NotifyDelay coalesces bursts into one subscriber notification. Zero
	// means DefaultNotifyDelay; a negative delay notifies synchronously.
	NotifyDelay   time.Duration
	SweepInterval time.Duration
	Clock         ports.Clock
	Logger        *slog.Logger
	Sinks         []ports.ErrorSink
}

func DefaultConfig() Config {
	return Config{
		DedupWindow:   DefaultDedupWindow,
		Capacity:      DefaultCapacity,
		NotifyDelay:   DefaultNotifyDelay,
		SweepInterval: DefaultSweepInterval,
	}
}

// Tracker is a capped, newest-first log of error events. Repeats of the same
// (message, source, severity) inside the dedup window are dropped.
type Tracker struct {
	cfg      Config
	logger   *slog.Logger
	dedup    *cache.TTLCache[struct{}]
	updates  *notify.Broadcaster[[]domain.ErrorEvent]
	debounce *notify.Debouncer

	mu     sync.Mutex
	events []domain.ErrorEvent
}

func New(cfg Config) *Tracker {
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = DefaultDedupWindow
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.NotifyDelay == 0 {
		cfg.NotifyDelay = DefaultNotifyDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = ports.SystemClock{}
	}

	t := &Tracker{
		cfg:    cfg,
		logger: logging.OrDiscard(cfg.Logger),
		dedup: cache.NewTTLCache[struct{}](cache.Config{
			Name:          "error_dedup",
			TTL:           cfg.DedupWindow,
			SweepInterval: cfg.SweepInterval,
			Clock:         cfg.Clock,
		}),
		updates: notify.NewBroadcaster[[]domain.ErrorEvent](),
	}
	t.debounce = notify.NewDebouncer(cfg.NotifyDelay, t.publish)
	return t
}

// Track records event unless an identical one was recorded within the dedup
// window. It reports whether the event was recorded.
func (t *Tracker) Track(ctx context.Context, event domain.ErrorEvent) (domain.ErrorEvent, bool) {
	event.Message = strings.TrimSpace(event.Message)
	if !event.Severity.Valid() {
		event.Severity = domain.SeverityError
	}
	key := event.DedupKey()

	t.mu.Lock()
	if _, seen := t.dedup.Get(key); seen {
		t.mu.Unlock()
		telemetry.ErrorTracked(string(event.Severity), true)
		return domain.ErrorEvent{}, false
	}
	t.dedup.Set(key, struct{}{}, 0)

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = t.cfg.Clock.Now()
	}

	t.events = append([]domain.ErrorEvent{event}, t.events...)
	if len(t.events) > t.cfg.Capacity {
		t.events = t.events[:t.cfg.Capacity]
	}
	t.mu.Unlock()

	telemetry.ErrorTracked(string(event.Severity), false)
	t.debounce.Trigger()
	t.forward(ctx, event)
	return event, true
}

// TrackError is Track for a Go error raised by source.
func (t *Tracker) TrackError(ctx context.Context, source string, err error, severity domain.Severity, extra map[string]any) (domain.ErrorEvent, bool) {
	if err == nil {
		return domain.ErrorEvent{}, false
	}

	eventContext := map[string]any{"kind": string(domain.KindOf(err))}
	for k, v := range extra {
		eventContext[k] = v
	}
	return t.Track(ctx, domain.ErrorEvent{
		Message:  err.Error(),
		Severity: severity,
		Source:   source,
		Context:  eventContext,
	})
}

// Errors returns a copy of the log, newest first.
func (t *Tracker) Errors() []domain.ErrorEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.ErrorEvent(nil), t.events...)
}

// Clear empties the log and notifies subscribers right away.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.events = nil
	t.mu.Unlock()

	t.dedup.Clear()
	t.debounce.Trigger()
	t.debounce.Flush()
}

func (t *Tracker) Subscribe(handler func([]domain.ErrorEvent)) (unsubscribe func()) {
	return t.updates.Subscribe(handler)
}

// Sweep forgets dedup keys whose window has passed.
func (t *Tracker) Sweep() int {
	return t.dedup.Sweep()
}

func (t *Tracker) Close() {
	t.debounce.Stop()
	t.dedup.Close()
}

func (t *Tracker) publish() {
	t.updates.Publish(t.Errors())
}

func (t *Tracker) forward(ctx context.Context, event domain.ErrorEvent) {
	for _, sink := range t.cfg.Sinks {
		if err := sink.Report(ctx, event); err != nil {
			t.logger.Debug("error sink rejected event",
				slog.String("event_id", event.ID),
				logging.Err(err),
			)
		}
	}
}
