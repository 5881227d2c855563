package monitor

import (
	"log/slog"
	"time"

	"github.com/bnema/campus-session/internal/cache"
	"github.com/bnema/campus-session/internal/ports"
)

type Kind string

const (
	KindLoading     Kind = "loading"
	KindDataLoad    Kind = "data_load"
	KindPerformance Kind = "performance"
	KindDataFlow    Kind = "data_flow"
)

const DefaultCleanupInterval = time.Minute

type Config struct {
	Kind          Kind
	SlowThreshold time.Duration
	// Retention bounds how long any event is kept, finished or not.
	Retention       time.Duration
	CleanupInterval time.Duration
	WarningCooldown time.Duration
	// Supersede force-ends a pending operation when another one with the same
	// name starts.
	Supersede bool
	Clock     ports.Clock
	Logger    *slog.Logger
}

type Option func(*Config)

func WithClock(clock ports.Clock) Option {
	return func(c *Config) { c.Clock = clock }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

func WithSlowThreshold(d time.Duration) Option {
	return func(c *Config) { c.SlowThreshold = d }
}

func WithRetention(d time.Duration) Option {
	return func(c *Config) { c.Retention = d }
}

// WithCleanupInterval sets the retention sweep period. Zero disables it.
func WithCleanupInterval(d time.Duration) Option {
	return func(c *Config) { c.CleanupInterval = d }
}

func WithWarningCooldown(d time.Duration) Option {
	return func(c *Config) { c.WarningCooldown = d }
}

func NewLoadingMonitor(opts ...Option) *Monitor {
	return New(Config{
		Kind:          KindLoading,
		SlowThreshold: 5 * time.Second,
		Retention:     5 * time.Minute,
		Supersede:     true,
	}, opts...)
}

func NewDataLoadMonitor(opts ...Option) *Monitor {
	return New(Config{
		Kind:          KindDataLoad,
		SlowThreshold: 3 * time.Second,
		Retention:     10 * time.Minute,
	}, opts...)
}

func NewPerformanceMonitor(opts ...Option) *Monitor {
	return New(Config{
		Kind:          KindPerformance,
		SlowThreshold: time.Second,
		Retention:     30 * time.Minute,
	}, opts...)
}

func NewDataFlowMonitor(opts ...Option) *Monitor {
	return New(Config{
		Kind:          KindDataFlow,
		SlowThreshold: 2 * time.Second,
		Retention:     10 * time.Minute,
	}, opts...)
}

func (c *Config) applyDefaults() {
	if c.Clock == nil {
		c.Clock = ports.SystemClock{}
	}
	if c.WarningCooldown <= 0 {
		c.WarningCooldown = cache.DefaultWarningCooldown
	}
	if c.Retention <= 0 {
		c.Retention = 10 * time.Minute
	}
	if c.Kind == "" {
		c.Kind = KindPerformance
	}
}
