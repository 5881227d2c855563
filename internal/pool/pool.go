package pool

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/logging"
	"github.com/bnema/campus-session/internal/ports"
	"github.com/bnema/campus-session/internal/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	pingTimeout = 5 * time.Second
	sharedID    = "shared"
)

var validate = validator.New()

type Config struct {
	Min                 int           `validate:"min=0,ltefield=Max"`
	Max                 int           `validate:"min=1"`
	IdleTimeout         time.Duration `validate:"min=0"`
	HealthCheckInterval time.Duration `validate:"min=0"`
}

func DefaultConfig() Config {
	return Config{
		Min:                 1,
		Max:                 5,
		IdleTimeout:         5 * time.Minute,
		HealthCheckInterval: 30 * time.Second,
	}
}

// Factory creates and probes handles. Dial is expected to perform a health
// round trip before returning. Close is optional.
type Factory[H any] struct {
	Dial  func(ctx context.Context) (H, error)
	Ping  func(ctx context.Context, handle H) error
	Close func(handle H) error
}

type Connection[H any] struct {
	ID       string
	Handle   H
	LastUsed time.Time
	Healthy  bool
	shared   bool
}

// Shared reports whether this is the fallback handle handed out when the
// pool is exhausted. Releasing it is a no-op.
func (c *Connection[H]) Shared() bool {
	return c.shared
}

type Stats struct {
	Active int
	Idle   int
	Min    int
	Max    int
}

type Option[H any] func(*Pool[H])

func WithClock[H any](clock ports.Clock) Option[H] {
	return func(p *Pool[H]) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func WithLogger[H any](logger *slog.Logger) Option[H] {
	return func(p *Pool[H]) { p.logger = logging.OrDiscard(logger) }
}

// Pool keeps a bounded set of health-checked handles. Exhaustion is not an
// error: callers get the shared handle instead.
type Pool[H any] struct {
	cfg     Config
	factory Factory[H]
	shared  *Connection[H]
	clock   ports.Clock
	logger  *slog.Logger

	mu     sync.Mutex
	idle   []*Connection[H]
	active map[string]*Connection[H]
	closed bool

	// dialing and checking count handles in neither set: being dialed, or
	// taken from idle for a health ping.
	dialing  int
	checking int

	stop    chan struct{}
	wg      sync.WaitGroup
	closing sync.Once
}

// New validates cfg, dials the minimum set of handles and starts the health
// loop. Failed initial dials are logged; the health loop retries them.
func New[H any](ctx context.Context, cfg Config, factory Factory[H], shared H, opts ...Option[H]) (*Pool[H], error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, domain.ConfigError("new pool", "invalid pool config: %v", err)
	}
	if factory.Dial == nil || factory.Ping == nil {
		return nil, domain.ConfigError("new pool", "factory requires Dial and Ping")
	}

	p := &Pool[H]{
		cfg:     cfg,
		factory: factory,
		clock:   ports.SystemClock{},
		logger:  logging.Discard(),
		active:  map[string]*Connection[H]{},
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.shared = &Connection[H]{ID: sharedID, Handle: shared, Healthy: true, shared: true}

	p.topUp(ctx)

	if cfg.HealthCheckInterval > 0 {
		p.wg.Add(1)
		go p.healthLoop()
	}
	return p, nil
}

// Acquire returns an idle handle, a freshly dialed one, or the shared handle
// when the pool is full or dialing fails.
func (p *Pool[H]) Acquire(ctx context.Context) *Connection[H] {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return p.shared
	}

	now := p.clock.Now()
	var stale []*Connection[H]
	for len(p.idle) > 0 {
		conn := p.idle[0]
		p.idle = p.idle[1:]
		if p.cfg.IdleTimeout > 0 && now.Sub(conn.LastUsed) > p.cfg.IdleTimeout {
			stale = append(stale, conn)
			continue
		}
		if !conn.Healthy {
			stale = append(stale, conn)
			continue
		}
		p.active[conn.ID] = conn
		p.reportLocked()
		p.mu.Unlock()
		p.closeAll(stale)
		return conn
	}

	if p.totalLocked() >= p.cfg.Max {
		p.reportLocked()
		p.mu.Unlock()
		p.closeAll(stale)
		telemetry.PoolExhausted()
		p.logger.Debug("pool exhausted, using shared handle", slog.Int("max", p.cfg.Max))
		return p.shared
	}
	p.dialing++
	p.mu.Unlock()
	p.closeAll(stale)

	conn, err := p.dial(ctx)

	p.mu.Lock()
	p.dialing--
	if err != nil || p.closed {
		p.reportLocked()
		p.mu.Unlock()
		if err != nil {
			p.logger.Warn("dial pooled handle failed, using shared handle", logging.Err(err))
		} else {
			p.closeAll([]*Connection[H]{conn})
		}
		return p.shared
	}
	p.active[conn.ID] = conn
	p.reportLocked()
	p.mu.Unlock()
	return conn
}

// Release returns conn to the idle set with a fresh LastUsed.
func (p *Pool[H]) Release(conn *Connection[H]) {
	if conn == nil || conn.shared {
		return
	}

	p.mu.Lock()
	if _, ok := p.active[conn.ID]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.active, conn.ID)
	if p.closed {
		p.mu.Unlock()
		p.closeAll([]*Connection[H]{conn})
		return
	}
	conn.LastUsed = p.clock.Now()
	p.idle = append(p.idle, conn)
	p.reportLocked()
	p.mu.Unlock()
}

// CheckHealth pings every idle handle, drops the unhealthy ones and tops the
// pool back up to Min.
func (p *Pool[H]) CheckHealth(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	idle := p.idle
	p.idle = nil
	p.checking += len(idle)
	p.mu.Unlock()

	healthy := make([]*Connection[H], 0, len(idle))
	var dropped []*Connection[H]
	for _, conn := range idle {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := p.factory.Ping(pingCtx, conn.Handle)
		cancel()
		if err != nil {
			conn.Healthy = false
			dropped = append(dropped, conn)
			p.logger.Debug("dropping unhealthy pooled handle", slog.String("id", conn.ID), logging.Err(err))
			continue
		}
		healthy = append(healthy, conn)
	}

	p.mu.Lock()
	p.checking -= len(idle)
	if p.closed {
		dropped = append(dropped, healthy...)
	} else {
		p.idle = append(healthy, p.idle...)
	}
	p.reportLocked()
	p.mu.Unlock()
	p.closeAll(dropped)

	p.topUp(ctx)
}

func (p *Pool[H]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Active: len(p.active), Idle: len(p.idle), Min: p.cfg.Min, Max: p.cfg.Max}
}

// Close stops the health loop and closes idle handles. Active handles are
// closed when released.
func (p *Pool[H]) Close() {
	p.closing.Do(func() {
		close(p.stop)
		p.wg.Wait()

		p.mu.Lock()
		p.closed = true
		idle := p.idle
		p.idle = nil
		p.reportLocked()
		p.mu.Unlock()

		p.closeAll(idle)
	})
}

func (p *Pool[H]) healthLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.CheckHealth(context.Background())
		}
	}
}

func (p *Pool[H]) topUp(ctx context.Context) {
	for {
		p.mu.Lock()
		if p.closed || p.totalLocked() >= p.cfg.Min {
			p.mu.Unlock()
			return
		}
		p.dialing++
		p.mu.Unlock()

		conn, err := p.dial(ctx)

		p.mu.Lock()
		p.dialing--
		if err != nil {
			p.mu.Unlock()
			p.logger.Warn("pre-dial pooled handle failed", logging.Err(err))
			return
		}
		if p.closed {
			p.mu.Unlock()
			p.closeAll([]*Connection[H]{conn})
			return
		}
		p.idle = append(p.idle, conn)
		p.reportLocked()
		p.mu.Unlock()
	}
}

func (p *Pool[H]) dial(ctx context.Context) (*Connection[H], error) {
	handle, err := p.factory.Dial(ctx)
	if err != nil {
		return nil, err
	}
	return &Connection[H]{
		ID:       uuid.NewString(),
		Handle:   handle,
		LastUsed: p.clock.Now(),
		Healthy:  true,
	}, nil
}

func (p *Pool[H]) closeAll(conns []*Connection[H]) {
	if p.factory.Close == nil {
		return
	}
	for _, conn := range conns {
		if err := p.factory.Close(conn.Handle); err != nil {
			p.logger.Debug("close pooled handle failed", slog.String("id", conn.ID), logging.Err(err))
		}
	}
}

func (p *Pool[H]) totalLocked() int {
	return len(p.active) + len(p.idle) + p.dialing + p.checking
}

func (p *Pool[H]) reportLocked() {
	telemetry.PoolSize(len(p.active), len(p.idle))
}
