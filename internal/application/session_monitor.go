package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/campus-session/internal/cache"
	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/errtrack"
	"github.com/bnema/campus-session/internal/logging"
	"github.com/bnema/campus-session/internal/monitor"
	"github.com/bnema/campus-session/internal/notify"
	"github.com/bnema/campus-session/internal/ports"
	"github.com/bnema/campus-session/internal/resilience"
	"github.com/bnema/campus-session/internal/telemetry"
	"golang.org/x/sync/singleflight"
)

const (
	sessionCacheKey = "session"
	errorSource     = "session_monitor"
)

// Identity calls as they are named on the performance monitor.
const (
	SignInOperation     = "identity.sign_in"
	SignOutOperation    = "identity.sign_out"
	RefreshOperation    = "identity.refresh_session"
	GetSessionOperation = "identity.get_session"
)

// SessionPersistence is what the monitor needs from local storage.
type SessionPersistence interface {
	resilience.LocalSessions
	ports.SessionBroker
	Clear(ctx context.Context) error
}

type SessionMonitorConfig struct {
	Window  domain.WindowRole
	OwnerID string

	CheckInterval      time.Duration
	RefreshThreshold   time.Duration
	ExpiryBuffer       time.Duration
	MinRefreshInterval time.Duration
	SnapshotStaleAfter time.Duration
	NotifyDelay        time.Duration
	SessionCacheTTL    time.Duration

	Retry resilience.RetryConfig
}

func DefaultSessionMonitorConfig() SessionMonitorConfig {
	return SessionMonitorConfig{
		Window:             domain.WindowParent,
		CheckInterval:      60 * time.Second,
		RefreshThreshold:   55 * time.Second,
		ExpiryBuffer:       5 * time.Minute,
		MinRefreshInterval: 10 * time.Second,
		SnapshotStaleAfter: 2 * time.Minute,
		NotifyDelay:        50 * time.Millisecond,
		SessionCacheTTL:    cache.DefaultTTL,
		Retry:              resilience.DefaultRetryConfig(),
	}
}

// SessionMonitorDeps are the collaborators of the monitor. Identity and Store
// are required; missing monitors, tracker and cache are created and owned by
// the monitor.
type SessionMonitorDeps struct {
	Identity    ports.IdentityService
	Store       SessionPersistence
	Errors      *errtrack.Tracker
	Loading     *monitor.Monitor
	DataLoad    *monitor.Monitor
	Performance *monitor.Monitor
	DataFlow    *monitor.Monitor
	Cache       *cache.TTLCache[domain.Session]
	Clock       ports.Clock
	Logger      *slog.Logger
}

// SessionMonitor owns the session state. Every transition goes through apply,
// and subscribers get debounced copies of the result.
type SessionMonitor struct {
	cfg         SessionMonitorConfig
	identity    ports.IdentityService
	store       SessionPersistence
	errors      *errtrack.Tracker
	loading     *monitor.Monitor
	dataLoad    *monitor.Monitor
	performance *monitor.Monitor
	dataFlow    *monitor.Monitor
	sessions    *cache.TTLCache[domain.Session]
	clock       ports.Clock
	logger      *slog.Logger

	loadRetrier    *resilience.Retrier
	refreshRetrier *resilience.Retrier
	fallback       *resilience.Fallback
	guard          *resilience.RefreshGuard
	loads          singleflight.Group

	updates  *notify.Broadcaster[domain.SessionState]
	debounce *notify.Debouncer

	mu       sync.Mutex
	state    domain.SessionState
	session  domain.Session
	promoted bool

	owned       []func()
	unsubscribe func()
	stop        chan struct{}
	wg          sync.WaitGroup
	startOnce   sync.Once
	closeOnce   sync.Once

	// ctx scopes background work: check ticks and push events. Close cancels
	// it.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewSessionMonitor(cfg SessionMonitorConfig, deps SessionMonitorDeps) (*SessionMonitor, error) {
	if deps.Identity == nil {
		return nil, domain.ConfigError("new session monitor", "identity service is required")
	}
	if deps.Store == nil {
		return nil, domain.ConfigError("new session monitor", "session store is required")
	}
	if !cfg.Window.Valid() {
		cfg.Window = domain.WindowParent
	}
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	logger := logging.OrDiscard(deps.Logger).With(slog.String("window", string(cfg.Window)))

	m := &SessionMonitor{
		cfg:         cfg,
		identity:    deps.Identity,
		store:       deps.Store,
		errors:      deps.Errors,
		loading:     deps.Loading,
		dataLoad:    deps.DataLoad,
		performance: deps.Performance,
		dataFlow:    deps.DataFlow,
		sessions:    deps.Cache,
		clock:       deps.Clock,
		logger:      logger,
		guard:       resilience.NewRefreshGuard(cfg.MinRefreshInterval, deps.Clock),
		updates:     notify.NewBroadcaster[domain.SessionState](),
		state:       domain.NewSessionState(cfg.Window, deps.Clock.Now()),
		stop:        make(chan struct{}),
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.ownDefaults(logger)

	var err error
	m.loadRetrier, err = resilience.NewRetrier(cfg.Retry,
		resilience.WithName("get_session"),
		resilience.WithLogger(logger),
		resilience.WithRecovery(m.recoverBeforeRetry),
	)
	if err != nil {
		m.cancel()
		return nil, err
	}
	m.refreshRetrier, err = resilience.NewRetrier(cfg.Retry,
		resilience.WithName("refresh_session"),
		resilience.WithLogger(logger),
	)
	if err != nil {
		m.cancel()
		return nil, err
	}
	m.fallback = resilience.NewFallback(deps.Identity, deps.Store, deps.Clock, logger)
	m.debounce = notify.NewDebouncer(cfg.NotifyDelay, m.publish)

	return m, nil
}

func (m *SessionMonitor) ownDefaults(logger *slog.Logger) {
	opts := []monitor.Option{monitor.WithClock(m.clock), monitor.WithLogger(logger)}
	if m.errors == nil {
		m.errors = errtrack.New(errtrack.Config{Clock: m.clock, Logger: logger})
		m.owned = append(m.owned, m.errors.Close)
	}
	if m.loading == nil {
		m.loading = monitor.NewLoadingMonitor(opts...)
		m.owned = append(m.owned, m.loading.Close)
	}
	if m.dataLoad == nil {
		m.dataLoad = monitor.NewDataLoadMonitor(opts...)
		m.owned = append(m.owned, m.dataLoad.Close)
	}
	if m.performance == nil {
		m.performance = monitor.NewPerformanceMonitor(opts...)
		m.owned = append(m.owned, m.performance.Close)
	}
	if m.dataFlow == nil {
		m.dataFlow = monitor.NewDataFlowMonitor(opts...)
		m.owned = append(m.owned, m.dataFlow.Close)
	}
	if m.sessions == nil {
		m.sessions = cache.NewTTLCache[domain.Session](cache.Config{
			Name:  "session",
			TTL:   m.cfg.SessionCacheTTL,
			Clock: m.clock,
		})
		m.owned = append(m.owned, m.sessions.Close)
	}
}

// Start subscribes to identity push events, loads the initial session and
// starts the periodic check loop.
func (m *SessionMonitor) Start(ctx context.Context) domain.SessionState {
	m.startOnce.Do(func() {
		m.unsubscribe = m.identity.OnAuthStateChange(m.handleAuthEvent)
		m.Load(ctx)

		if m.cfg.CheckInterval > 0 {
			m.wg.Add(1)
			go m.checkLoop()
		}
	})
	return m.State()
}

// Load resolves the current session once, sharing the result between
// concurrent callers.
func (m *SessionMonitor) Load(ctx context.Context) domain.SessionState {
	_, _, _ = m.loads.Do("load", func() (any, error) {
		if m.cfg.Window == domain.WindowChild {
			m.syncFromParent(ctx)
			return nil, nil
		}
		m.loadParent(ctx)
		return nil, nil
	})
	return m.State()
}

func (m *SessionMonitor) loadParent(ctx context.Context) {
	if m.State().Phase == domain.PhaseLost {
		return
	}

	loadID := m.loading.StartOperation("session", map[string]any{"window": string(m.cfg.Window)})
	if cached, ok := m.sessions.Get(sessionCacheKey); ok {
		m.loading.EndOperation(loadID, nil)
		m.authenticate(ctx, cached, domain.OpLoad, false)
		return
	}

	session, err := resilience.Retry(ctx, m.loadRetrier, func(ctx context.Context) (domain.Session, error) {
		return m.getSession(ctx)
	})
	if err == nil && !session.Empty() {
		m.loading.EndOperation(loadID, nil)
		m.sessions.Set(sessionCacheKey, session, 0)
		m.authenticate(ctx, session, domain.OpLoad, true)
		return
	}

	recovery := m.fallback.Recover(ctx)
	if recovery.Found() {
		m.loading.EndOperation(loadID, nil)
		m.sessions.Set(sessionCacheKey, recovery.Session, 0)
		m.authenticate(ctx, recovery.Session, domain.OpLoad, recovery.Tier == resilience.TierLive)
		return
	}

	m.loading.EndOperation(loadID, recovery.Err)
	m.apply(domain.OpLoad, func(state *domain.SessionState) bool {
		state.LastOperation = m.lastOperation(domain.OpLoad, recovery.Err)
		return true
	})
}

// SignIn is the only way out of the lost phase.
func (m *SessionMonitor) SignIn(ctx context.Context, creds ports.Credentials) (domain.SessionState, error) {
	session, err := resilience.Retry(ctx, m.refreshRetrier, func(ctx context.Context) (domain.Session, error) {
		var session domain.Session
		err := m.performance.Measure(ctx, SignInOperation, func(ctx context.Context) error {
			var err error
			session, err = m.identity.SignIn(ctx, creds)
			return err
		})
		if domain.KindOf(err) == domain.KindSessionLoss {
			// Rejected credentials stay rejected; only transport trouble is retried.
			err = domain.NewError(domain.KindTerminal, "credentials rejected", err)
		}
		return session, err
	})
	if err != nil {
		m.apply(domain.OpSignIn, func(state *domain.SessionState) bool {
			state.LastOperation = m.lastOperation(domain.OpSignIn, err)
			return true
		})
		m.errors.TrackError(ctx, errorSource, err, domain.SeverityWarning, map[string]any{"operation": string(domain.OpSignIn)})
		return m.State(), fmt.Errorf("sign in: %w", err)
	}
	if session.Empty() {
		return m.State(), fmt.Errorf("sign in: %w", domain.ErrNoSession)
	}

	m.sessions.Set(sessionCacheKey, session, 0)
	m.authenticate(ctx, session, domain.OpSignIn, true)
	return m.State(), nil
}

// Refresh refreshes the session now. It fails fast with
// domain.ErrRefreshInProgress or domain.ErrRefreshCooldown when another
// refresh holds the guard.
func (m *SessionMonitor) Refresh(ctx context.Context) (domain.SessionState, error) {
	if !m.State().IsAuthenticated {
		return m.State(), fmt.Errorf("refresh: %w", domain.ErrNoSession)
	}

	release, err := m.guard.TryAcquire()
	if err != nil {
		return m.State(), fmt.Errorf("refresh: %w", err)
	}
	defer release()

	if err := m.refresh(ctx); err != nil {
		return m.State(), fmt.Errorf("refresh: %w", err)
	}
	return m.State(), nil
}

// SignOut ends the session at the identity service and locally.
func (m *SessionMonitor) SignOut(ctx context.Context) error {
	err := m.performance.Measure(ctx, SignOutOperation, m.identity.SignOut)
	if m.State().Phase != domain.PhaseLost || m.State().IsAuthenticated {
		m.endSession(ctx, domain.OpSignOut, errors.New("signed out"), domain.SeverityInfo)
	}
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Check runs one periodic tick: children sync from the parent snapshot,
// parents refresh when due and rewrite the snapshot so children keep seeing
// it fresh.
func (m *SessionMonitor) Check(ctx context.Context) {
	if m.cfg.Window == domain.WindowChild {
		if m.syncFromParent(ctx) {
			return
		}
	}
	if m.refreshIfDue(ctx) {
		return
	}
	if m.State().IsAuthenticated {
		m.writeSnapshot(ctx)
	}
}

func (m *SessionMonitor) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Subscribe registers handler for debounced state updates.
func (m *SessionMonitor) Subscribe(handler func(domain.SessionState)) (unsubscribe func()) {
	return m.updates.Subscribe(handler)
}

// Performance returns the monitor timing every identity call attempt.
func (m *SessionMonitor) Performance() *monitor.Monitor {
	return m.performance
}

func (m *SessionMonitor) Errors() *errtrack.Tracker {
	return m.errors
}

// Monitors returns the operation monitors in loading, data-load,
// performance, data-flow order.
func (m *SessionMonitor) Monitors() []*monitor.Monitor {
	return []*monitor.Monitor{m.loading, m.dataLoad, m.performance, m.dataFlow}
}

// Close stops the check loop, cancels in-flight background work and drops
// any pending notification.
func (m *SessionMonitor) Close() {
	m.closeOnce.Do(func() {
		close(m.stop)
		m.cancel()
		m.wg.Wait()
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		m.debounce.Stop()
		for _, closeFn := range m.owned {
			closeFn()
		}
	})
}

func (m *SessionMonitor) checkLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			// A tick buffered before Close must not start another cycle.
			select {
			case <-m.stop:
				return
			default:
			}
			m.Check(m.ctx)
		}
	}
}

// refreshIfDue reports whether it ran a refresh.
func (m *SessionMonitor) refreshIfDue(ctx context.Context) bool {
	state := m.State()
	if !state.IsAuthenticated || state.Phase == domain.PhaseRefreshing {
		return false
	}

	now := m.clock.Now()
	sinceRefresh := now.Sub(state.LastRefresh)
	expiring := !state.ExpiresAt.IsZero() && !now.Add(m.cfg.ExpiryBuffer).Before(state.ExpiresAt)
	if sinceRefresh <= m.cfg.RefreshThreshold && !expiring {
		return false
	}

	release, err := m.guard.TryAcquire()
	if err != nil {
		m.logger.Debug("periodic refresh skipped", logging.Err(err))
		return false
	}
	defer release()

	if err := m.refresh(ctx); err != nil {
		m.logger.Debug("periodic refresh failed", logging.Err(err))
	}
	return true
}

// refresh runs with the guard held.
func (m *SessionMonitor) refresh(ctx context.Context) error {
	token, err := m.refreshToken(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.endSession(ctx, domain.OpSessionLoss, err, domain.SeverityError)
		return err
	}

	m.apply(domain.OpRefresh, func(state *domain.SessionState) bool {
		state.Phase = domain.PhaseRefreshing
		return true
	})

	session, err := resilience.Retry(ctx, m.refreshRetrier, func(ctx context.Context) (domain.Session, error) {
		var session domain.Session
		err := m.performance.Measure(ctx, RefreshOperation, func(ctx context.Context) error {
			var err error
			session, err = m.identity.RefreshSession(ctx, token)
			return err
		})
		return session, err
	})
	if err == nil && !session.Empty() {
		m.sessions.Set(sessionCacheKey, session, 0)
		m.authenticate(ctx, session, domain.OpRefresh, true)
		return nil
	}
	if err == nil {
		err = domain.ErrNoSession
	}
	if ctx.Err() != nil {
		m.abortRefresh()
		return ctx.Err()
	}

	m.apply(domain.OpRefresh, func(state *domain.SessionState) bool {
		state.RefreshAttempts++
		state.AppendSessionError(err.Error())
		return true
	})
	m.logger.Warn("session refresh failed, trying fallback", logging.Err(err))

	recovery := m.fallback.Recover(ctx)
	if recovery.Found() {
		m.sessions.Set(sessionCacheKey, recovery.Session, 0)
		m.authenticate(ctx, recovery.Session, domain.OpRefresh, recovery.Tier == resilience.TierLive)
		return nil
	}
	if ctx.Err() != nil {
		m.abortRefresh()
		return ctx.Err()
	}

	m.endSession(ctx, domain.OpSessionLoss, err, domain.SeverityError)
	return fmt.Errorf("%w: %w", domain.ErrSessionLost, err)
}

// abortRefresh returns a cancelled refresh to the authenticated phase. The
// persisted session is left alone so the next process can pick it up.
func (m *SessionMonitor) abortRefresh() {
	m.apply(domain.OpRefresh, func(state *domain.SessionState) bool {
		if state.Phase != domain.PhaseRefreshing {
			return false
		}
		state.Phase = domain.PhaseAuthenticated
		return true
	})
}

func (m *SessionMonitor) refreshToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	token := m.session.RefreshToken
	m.mu.Unlock()
	if token != "" {
		return token, nil
	}

	var persisted domain.PersistedSession
	err := m.dataLoad.Measure(ctx, "storage.load_session", func(ctx context.Context) error {
		var err error
		persisted, err = m.store.LoadSession(ctx)
		return err
	})
	if err != nil {
		return "", err
	}
	if persisted.CurrentSession.RefreshToken == "" {
		return "", domain.ErrNoSession
	}
	return persisted.CurrentSession.RefreshToken, nil
}

func (m *SessionMonitor) recoverBeforeRetry(ctx context.Context) error {
	token, err := m.refreshToken(ctx)
	if err != nil {
		return err
	}

	release, err := m.guard.TryAcquire()
	if err != nil {
		return err
	}
	defer release()

	session, err := m.identity.RefreshSession(ctx, token)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
	return nil
}

func (m *SessionMonitor) getSession(ctx context.Context) (domain.Session, error) {
	var session domain.Session
	err := m.performance.Measure(ctx, GetSessionOperation, func(ctx context.Context) error {
		var err error
		session, err = m.identity.GetSession(ctx)
		return err
	})
	return session, err
}

// syncFromParent adopts the parent's snapshot. It reports false when the
// snapshot is missing, invalid or stale, in which case this window refreshes
// on its own until a fresh snapshot shows up again.
func (m *SessionMonitor) syncFromParent(ctx context.Context) bool {
	var snapshot domain.StateSnapshot
	err := m.dataLoad.Measure(ctx, "broker.read_snapshot", func(ctx context.Context) error {
		var err error
		snapshot, err = m.store.ReadSnapshot(ctx)
		return err
	})

	now := m.clock.Now()
	if err != nil || snapshot.Stale(now, m.cfg.SnapshotStaleAfter) {
		m.mu.Lock()
		first := !m.promoted
		m.promoted = true
		m.mu.Unlock()
		if first {
			reason := "stale snapshot"
			if err != nil {
				reason = err.Error()
			}
			m.logger.Warn("parent window unreachable, refreshing independently", slog.String("reason", reason))
		}
		return false
	}

	m.mu.Lock()
	resumed := m.promoted
	m.promoted = false
	m.mu.Unlock()
	if resumed {
		m.logger.Info("parent window snapshot is fresh again, following parent")
	}

	m.apply(domain.OpSync, func(state *domain.SessionState) bool {
		if state.Phase == domain.PhaseLost && snapshot.IsAuthenticated {
			return false
		}
		changed := state.IsAuthenticated != snapshot.IsAuthenticated ||
			state.UserID != snapshot.UserID ||
			state.Role != snapshot.Role ||
			!state.ExpiresAt.Equal(snapshot.ExpiresAt) ||
			!state.LastRefresh.Equal(snapshot.LastRefresh)
		if !changed {
			return false
		}

		state.IsAuthenticated = snapshot.IsAuthenticated
		state.UserID = snapshot.UserID
		state.Role = snapshot.Role
		state.CurrentRole = domain.RoleLabel(snapshot.Role)
		state.ExpiresAt = snapshot.ExpiresAt
		state.LastRefresh = snapshot.LastRefresh
		state.LastActivity = now
		if snapshot.IsAuthenticated {
			state.Phase = domain.PhaseAuthenticated
		} else if state.Phase != domain.PhaseLost {
			state.Phase = domain.PhaseUnauthenticated
		}
		state.LastOperation = m.lastOperation(domain.OpSync, nil)
		return true
	})
	return true
}

func (m *SessionMonitor) handleAuthEvent(event domain.AuthEvent) {
	ctx := m.ctx
	if ctx.Err() != nil {
		return
	}

	switch event.Type {
	case domain.AuthSignedOut:
		if m.State().IsAuthenticated {
			m.endSession(ctx, domain.OpSignOut, errors.New("signed out"), domain.SeverityInfo)
		}
	case domain.AuthSignedIn, domain.AuthTokenRefreshed:
		if event.Session.Empty() {
			return
		}
		if event.Type == domain.AuthTokenRefreshed && m.State().Phase == domain.PhaseLost {
			return
		}
		m.mu.Lock()
		same := m.session.AccessToken == event.Session.AccessToken
		m.mu.Unlock()
		if same {
			return
		}

		op := domain.OpSignIn
		if event.Type == domain.AuthTokenRefreshed {
			op = domain.OpRefresh
		}
		m.sessions.Set(sessionCacheKey, event.Session, 0)
		m.authenticate(ctx, event.Session, op, true)
	}
}

// authenticate moves to the authenticated phase. A lost session only comes
// back through sign-in.
func (m *SessionMonitor) authenticate(ctx context.Context, session domain.Session, op domain.OperationType, persist bool) {
	now := m.clock.Now()
	role := session.Role
	if role == "" {
		role = domain.PrimaryRole(session.Roles)
	}

	applied := m.apply(op, func(state *domain.SessionState) bool {
		if state.Phase == domain.PhaseLost && op != domain.OpSignIn {
			return false
		}
		state.Phase = domain.PhaseAuthenticated
		state.IsAuthenticated = true
		state.UserID = session.UserID
		state.Role = role
		state.CurrentRole = domain.RoleLabel(role)
		state.ExpiresAt = session.ExpiresAt
		state.LastActivity = now
		state.LastRefresh = now
		state.RefreshAttempts = 0
		state.SessionErrors = nil
		state.LastOperation = m.lastOperation(op, nil)
		return true
	})
	if !applied {
		return
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()

	if persist && m.cfg.Window == domain.WindowParent {
		if err := m.persistSession(ctx, session); err != nil {
			m.logger.Warn("persist session failed", logging.Err(err))
		}
	}
	m.writeSnapshot(ctx)
}

// endSession moves to the lost phase and clears everything persisted.
func (m *SessionMonitor) endSession(ctx context.Context, op domain.OperationType, cause error, severity domain.Severity) {
	message := "session lost"
	if cause != nil {
		message = fmt.Sprintf("session lost: %v", cause)
	}

	m.apply(op, func(state *domain.SessionState) bool {
		state.Phase = domain.PhaseLost
		state.IsAuthenticated = false
		state.CurrentRole = ""
		state.Role = ""
		state.UserID = ""
		state.ExpiresAt = time.Time{}
		state.RefreshAttempts++
		state.AppendSessionError(message)
		state.LastOperation = m.lastOperation(op, cause)
		return true
	})

	m.mu.Lock()
	m.session = domain.Session{}
	m.mu.Unlock()
	m.sessions.Delete(sessionCacheKey)

	err := m.dataFlow.Measure(ctx, "storage.clear", m.store.Clear)
	if err != nil {
		m.logger.Warn("clear persisted session failed", logging.Err(err))
	}

	m.errors.Track(ctx, domain.ErrorEvent{
		Message:  message,
		Severity: severity,
		Source:   errorSource,
		Context: map[string]any{
			"operation": string(op),
			"window":    string(m.cfg.Window),
			"kind":      string(domain.KindSessionLoss),
		},
	})
}

func (m *SessionMonitor) persistSession(ctx context.Context, session domain.Session) error {
	return m.dataFlow.Measure(ctx, "storage.save_session", func(ctx context.Context) error {
		return m.store.SaveSession(ctx, session)
	})
}

func (m *SessionMonitor) writeSnapshot(ctx context.Context) {
	if m.cfg.Window != domain.WindowParent {
		return
	}
	snapshot := domain.SnapshotFromState(m.State(), m.cfg.OwnerID, m.clock.Now())
	err := m.dataFlow.Measure(ctx, "broker.write_snapshot", func(ctx context.Context) error {
		return m.store.WriteSnapshot(ctx, snapshot)
	})
	if err != nil {
		m.logger.Warn("write session snapshot failed", logging.Err(err))
	}
}

// apply is the single writer of the session state. mutate reports whether it
// changed anything; unchanged states are not broadcast.
func (m *SessionMonitor) apply(op domain.OperationType, mutate func(state *domain.SessionState) bool) bool {
	m.mu.Lock()
	next := m.state.Clone()
	if !mutate(&next) {
		m.mu.Unlock()
		return false
	}
	prevPhase := m.state.Phase
	m.state = next
	m.mu.Unlock()

	if next.Phase != prevPhase {
		telemetry.SessionTransition(string(next.Phase), string(op))
		m.logger.Info("session phase changed",
			slog.String("from", string(prevPhase)),
			slog.String("to", string(next.Phase)),
			slog.String("operation", string(op)),
		)
	}
	m.debounce.Trigger()
	return true
}

func (m *SessionMonitor) publish() {
	m.updates.Publish(m.State())
}

func (m *SessionMonitor) lastOperation(op domain.OperationType, err error) domain.LastOperation {
	last := domain.LastOperation{Type: op, Timestamp: m.clock.Now(), Success: err == nil}
	if err != nil {
		last.Error = err.Error()
	}
	return last
}
