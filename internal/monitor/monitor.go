package monitor

import (
	"context"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/bnema/campus-session/internal/cache"
	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/logging"
	"github.com/bnema/campus-session/internal/notify"
	"github.com/bnema/campus-session/internal/telemetry"
	"github.com/google/uuid"
)

type Stats struct {
	Pending         int
	Succeeded       int
	Failed          int
	Superseded      int
	Slow            int
	AverageDuration time.Duration
}

// Monitor records named operations from start to end, flags the slow ones
// and keeps aggregate stats.
type Monitor struct {
	cfg      Config
	logger   *slog.Logger
	warnings *cache.WarningDedup
	updates  *notify.Broadcaster[domain.OperationEvent]

	mu            sync.Mutex
	events        map[string]*domain.OperationEvent
	pendingByName map[string]string

	stop    chan struct{}
	wg      sync.WaitGroup
	closing sync.Once
}

func New(cfg Config, opts ...Option) *Monitor {
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.applyDefaults()

	m := &Monitor{
		cfg:           cfg,
		logger:        logging.OrDiscard(cfg.Logger).With(slog.String("monitor", string(cfg.Kind))),
		warnings:      cache.NewWarningDedup(cfg.WarningCooldown, cfg.Clock),
		updates:       notify.NewBroadcaster[domain.OperationEvent](),
		events:        map[string]*domain.OperationEvent{},
		pendingByName: map[string]string{},
		stop:          make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		m.wg.Add(1)
		go m.cleanupLoop()
	}
	return m
}

func (m *Monitor) Kind() Kind {
	return m.cfg.Kind
}

// StartOperation records a pending operation and returns its id. With
// supersede enabled a pending operation of the same name is ended first.
func (m *Monitor) StartOperation(name string, opContext map[string]any) string {
	now := m.cfg.Clock.Now()
	event := &domain.OperationEvent{
		ID:        uuid.NewString(),
		Operation: name,
		StartTime: now,
		Status:    domain.StatusPending,
		Context:   copyContext(opContext),
	}

	var superseded *domain.OperationEvent
	m.mu.Lock()
	if m.cfg.Supersede {
		if prevID, ok := m.pendingByName[name]; ok {
			if prev, ok := m.events[prevID]; ok && prev.Pending() {
				m.finishLocked(prev, now, nil)
				prev.Superseded = true
				snapshot := *prev
				superseded = &snapshot
			}
		}
	}
	m.events[event.ID] = event
	m.pendingByName[name] = event.ID
	started := *event
	m.mu.Unlock()

	if superseded != nil {
		m.logger.Debug("operation superseded", slog.String("operation", name), slog.String("id", superseded.ID))
		m.published(*superseded)
	}
	m.updates.Publish(started)
	return event.ID
}

// EndOperation finishes id with err deciding success. Unknown or already
// finished ids report false.
func (m *Monitor) EndOperation(id string, err error) (domain.OperationEvent, bool) {
	now := m.cfg.Clock.Now()

	m.mu.Lock()
	event, ok := m.events[id]
	if !ok || !event.Pending() {
		m.mu.Unlock()
		return domain.OperationEvent{}, false
	}
	m.finishLocked(event, now, err)
	finished := *event
	m.mu.Unlock()

	m.published(finished)
	return finished, true
}

// Measure runs fn as one monitored operation.
func (m *Monitor) Measure(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	id := m.StartOperation(name, nil)
	err := fn(ctx)
	m.EndOperation(id, err)
	return err
}

// IsPending reports whether an operation with this name is in flight.
func (m *Monitor) IsPending(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, event := range m.events {
		if event.Operation == name && event.Pending() {
			return true
		}
	}
	return false
}

func (m *Monitor) Event(id string) (domain.OperationEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	event, ok := m.events[id]
	if !ok {
		return domain.OperationEvent{}, false
	}
	return *event, true
}

// Events returns a copy of every retained event, oldest first.
func (m *Monitor) Events() []domain.OperationEvent {
	m.mu.Lock()
	events := make([]domain.OperationEvent, 0, len(m.events))
	for _, event := range m.events {
		events = append(events, *event)
	}
	m.mu.Unlock()

	sort.Slice(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return events
}

func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		stats    Stats
		total    time.Duration
		finished int
	)
	for _, event := range m.events {
		switch event.Status {
		case domain.StatusPending:
			stats.Pending++
			continue
		case domain.StatusSuccess:
			stats.Succeeded++
		case domain.StatusError:
			stats.Failed++
		}
		if event.Superseded {
			stats.Superseded++
		}
		if event.Slow {
			stats.Slow++
		}
		total += event.Duration
		finished++
	}
	if finished > 0 {
		stats.AverageDuration = total / time.Duration(finished)
	}
	return stats
}

// Subscribe is called with every started and finished event.
func (m *Monitor) Subscribe(handler func(domain.OperationEvent)) (unsubscribe func()) {
	return m.updates.Subscribe(handler)
}

// Cleanup drops events that started longer ago than the retention window and
// returns how many were removed.
func (m *Monitor) Cleanup() int {
	cutoff := m.cfg.Clock.Now().Add(-m.cfg.Retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, event := range m.events {
		if event.StartTime.Before(cutoff) {
			delete(m.events, id)
			if m.pendingByName[event.Operation] == id {
				delete(m.pendingByName, event.Operation)
			}
			removed++
		}
	}
	m.warnings.Sweep()
	return removed
}

func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = map[string]*domain.OperationEvent{}
	m.pendingByName = map[string]string{}
	m.warnings.Reset()
}

func (m *Monitor) Close() {
	m.closing.Do(func() {
		close(m.stop)
		m.wg.Wait()
	})
}

func (m *Monitor) finishLocked(event *domain.OperationEvent, now time.Time, err error) {
	event.EndTime = now
	event.Duration = now.Sub(event.StartTime)
	event.Status = domain.StatusSuccess
	if err != nil {
		event.Status = domain.StatusError
		event.Error = err.Error()
	}
	event.Slow = m.cfg.SlowThreshold > 0 && event.Duration > m.cfg.SlowThreshold
	if m.pendingByName[event.Operation] == event.ID {
		delete(m.pendingByName, event.Operation)
	}
}

func (m *Monitor) published(event domain.OperationEvent) {
	telemetry.OperationFinished(string(m.cfg.Kind), string(event.Status), event.Duration, event.Slow)
	if event.Slow && m.warnings.ShouldLog(event.Operation) {
		m.logger.Warn("slow operation",
			slog.String("operation", event.Operation),
			slog.Duration("duration", event.Duration),
			slog.Duration("threshold", m.cfg.SlowThreshold),
		)
	}
	m.updates.Publish(event)
}

func (m *Monitor) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if removed := m.Cleanup(); removed > 0 {
				m.logger.Debug("expired monitor events", slog.Int("removed", removed))
			}
		}
	}
}

func copyContext(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	return maps.Clone(in)
}
