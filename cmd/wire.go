package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bnema/campus-session/internal/adapters/identity/masomo"
	statusadapter "github.com/bnema/campus-session/internal/adapters/render/status"
	rollbarsink "github.com/bnema/campus-session/internal/adapters/report/rollbar"
	badgerstore "github.com/bnema/campus-session/internal/adapters/storage/badger"
	chainstore "github.com/bnema/campus-session/internal/adapters/storage/chain"
	filestore "github.com/bnema/campus-session/internal/adapters/storage/file"
	memorystore "github.com/bnema/campus-session/internal/adapters/storage/memory"
	passstore "github.com/bnema/campus-session/internal/adapters/storage/pass"
	"github.com/bnema/campus-session/internal/application"
	"github.com/bnema/campus-session/internal/cache"
	"github.com/bnema/campus-session/internal/config"
	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/errtrack"
	"github.com/bnema/campus-session/internal/logging"
	"github.com/bnema/campus-session/internal/monitor"
	"github.com/bnema/campus-session/internal/pool"
	"github.com/bnema/campus-session/internal/ports"
	"github.com/bnema/campus-session/internal/resilience"
	"github.com/bnema/campus-session/internal/version"
	"github.com/spf13/viper"
)

type app struct {
	cfg            config.Config
	logger         *slog.Logger
	clock          ports.Clock
	statusRenderer func(domain.SessionState, statusadapter.RenderOptions) (string, error)
}

func wireApp() (*app, error) {
	cfg, err := config.Load(config.Options{Viper: viper.New()})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return &app{
		cfg: cfg,
		logger: logging.New(logging.Config{
			Level:   cfg.Log.Level,
			JSON:    cfg.Log.JSON,
			Service: "campus",
		}),
		clock:          ports.SystemClock{},
		statusRenderer: statusadapter.Render,
	}, nil
}

// runtime is the wired session stack for one command. close releases it in
// reverse order.
type runtime struct {
	store   *application.SessionStore
	client  *masomo.Client
	monitor *application.SessionMonitor
	tracker *errtrack.Tracker
	clients *pool.Pool[*masomo.Client]
	closers []func() error
}

type runtimeOptions struct {
	window domain.WindowRole
	// background enables the periodic session check.
	background bool
	withPool   bool
}

func (a *app) openStore() (*application.SessionStore, func() error, error) {
	kv, closeKV, err := openKeyValueStore(a.cfg.Storage, a.logger)
	if err != nil {
		return nil, nil, err
	}
	return application.NewSessionStore(kv, a.clock), closeKV, nil
}

func (a *app) openRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	rt := &runtime{}

	store, closeKV, err := a.openStore()
	if err != nil {
		return nil, err
	}
	rt.store = store
	rt.closers = append(rt.closers, closeKV)

	clientCfg := masomo.Config{
		API:            masomo.DefaultAPI(a.cfg.Identity.BaseURL),
		RequestTimeout: a.cfg.Identity.RequestTimeout,
		Clock:          a.clock,
		Logger:         a.logger,
	}
	client, err := masomo.NewClient(clientCfg)
	if err != nil {
		_ = rt.close()
		return nil, fmt.Errorf("wire identity client: %w", err)
	}
	rt.client = client
	rt.closers = append(rt.closers, func() error {
		client.CloseIdleConnections()
		return nil
	})
	if persisted, err := store.LoadSession(ctx); err == nil {
		client.Restore(persisted.CurrentSession)
	}

	sink := rollbarsink.New(rollbarsink.Config{
		Token:       a.cfg.Report.RollbarToken,
		Environment: a.cfg.Report.Environment,
		CodeVersion: version.Version,
		Logger:      a.logger,
	})
	rt.closers = append(rt.closers, sink.Close)

	rt.tracker = errtrack.New(errtrack.Config{
		DedupWindow:   a.cfg.Dedup.ErrorWindow,
		Capacity:      errtrack.DefaultCapacity,
		NotifyDelay:   errtrack.DefaultNotifyDelay,
		SweepInterval: a.cfg.Cache.SweepInterval,
		Clock:         a.clock,
		Logger:        a.logger,
		Sinks:         []ports.ErrorSink{sink},
	})
	rt.closers = append(rt.closers, closeFunc(rt.tracker.Close))

	monitorOpts := []monitor.Option{
		monitor.WithClock(a.clock),
		monitor.WithLogger(a.logger),
		monitor.WithWarningCooldown(a.cfg.Dedup.WarningCooldown),
	}
	loading := monitor.NewLoadingMonitor(monitorOpts...)
	dataLoad := monitor.NewDataLoadMonitor(monitorOpts...)
	performance := monitor.NewPerformanceMonitor(monitorOpts...)
	dataFlow := monitor.NewDataFlowMonitor(monitorOpts...)
	for _, m := range []*monitor.Monitor{loading, dataLoad, performance, dataFlow} {
		rt.closers = append(rt.closers, closeFunc(m.Close))
	}

	sessions := cache.NewTTLCache[domain.Session](cache.Config{
		Name:          "session",
		TTL:           a.cfg.Cache.TTL,
		SweepInterval: a.cfg.Cache.SweepInterval,
		Clock:         a.clock,
	})
	rt.closers = append(rt.closers, closeFunc(sessions.Close))

	if opts.withPool {
		clients, err := pool.New(ctx, pool.Config{
			Min:                 a.cfg.Pool.Min,
			Max:                 a.cfg.Pool.Max,
			IdleTimeout:         a.cfg.Pool.IdleTimeout,
			HealthCheckInterval: a.cfg.Pool.HealthCheckInterval,
		}, masomo.ClientFactory{Config: clientCfg}.PoolFactory(), client,
			pool.WithClock[*masomo.Client](a.clock),
			pool.WithLogger[*masomo.Client](a.logger),
		)
		if err != nil {
			_ = rt.close()
			return nil, fmt.Errorf("wire client pool: %w", err)
		}
		rt.clients = clients
		rt.closers = append(rt.closers, closeFunc(clients.Close))
	}

	sessionMonitor, err := application.NewSessionMonitor(a.sessionMonitorConfig(opts), application.SessionMonitorDeps{
		Identity:    client,
		Store:       store,
		Errors:      rt.tracker,
		Loading:     loading,
		DataLoad:    dataLoad,
		Performance: performance,
		DataFlow:    dataFlow,
		Cache:       sessions,
		Clock:       a.clock,
		Logger:      a.logger,
	})
	if err != nil {
		_ = rt.close()
		return nil, fmt.Errorf("wire session monitor: %w", err)
	}
	rt.monitor = sessionMonitor
	rt.closers = append(rt.closers, closeFunc(sessionMonitor.Close))

	return rt, nil
}

func (a *app) sessionMonitorConfig(opts runtimeOptions) application.SessionMonitorConfig {
	cfg := application.DefaultSessionMonitorConfig()
	cfg.Window = opts.window
	cfg.OwnerID = windowOwnerID(opts.window)
	cfg.CheckInterval = 0
	if opts.background {
		cfg.CheckInterval = a.cfg.Session.CheckInterval
	}
	cfg.RefreshThreshold = a.cfg.Session.RefreshThreshold
	cfg.ExpiryBuffer = a.cfg.Session.ExpiryBuffer
	cfg.MinRefreshInterval = a.cfg.Session.MinRefreshInterval
	cfg.SnapshotStaleAfter = a.cfg.Session.SnapshotStaleAfter
	cfg.SessionCacheTTL = a.cfg.Cache.TTL
	cfg.Retry = resilience.RetryConfig{
		MaxAttempts: a.cfg.Retry.MaxAttempts,
		BaseDelay:   a.cfg.Retry.BaseDelay,
		MaxDelay:    a.cfg.Retry.MaxDelay,
		Timeout:     a.cfg.Retry.Timeout,
	}
	return cfg
}

func (rt *runtime) close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closeFunc(fn func()) func() error {
	return func() error {
		fn()
		return nil
	}
}

func openKeyValueStore(cfg config.StorageConfig, logger *slog.Logger) (ports.KeyValueStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "memory":
		return memorystore.NewStore(), noop, nil
	case "badger":
		store, err := badgerstore.Open(badgerstore.Config{
			Path:       filepath.Join(cfg.Path, "badger"),
			SyncWrites: true,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("wire badger store: %w", err)
		}
		return store, store.Close, nil
	case "chain":
		primary, err := badgerstore.Open(badgerstore.Config{
			Path:       filepath.Join(cfg.Path, "badger"),
			SyncWrites: true,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("wire badger store: %w", err)
		}
		store, err := chainstore.NewStoreChecked(primary, filestore.NewStore(filepath.Join(cfg.Path, "files")), chainstore.WithLogger(logger))
		if err != nil {
			_ = primary.Close()
			return nil, nil, fmt.Errorf("wire store chain: %w", err)
		}
		return store, primary.Close, nil
	case "pass":
		store, err := chainstore.NewStoreChecked(passstore.NewStore(passstore.DefaultPrefix), filestore.NewStore(cfg.Path), chainstore.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("wire store chain: %w", err)
		}
		return store, noop, nil
	default:
		return filestore.NewStore(cfg.Path), noop, nil
	}
}

// windowOwnerID identifies this process as a window of the current
// workspace.
func windowOwnerID(window domain.WindowRole) string {
	workspace, err := os.Getwd()
	if err != nil {
		workspace = ""
	}
	host, _ := os.Hostname()
	return application.ResolveWindowID(workspace, fmt.Sprintf("%s/%s/%d", host, window, os.Getpid()))
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
