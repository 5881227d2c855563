package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/logging"
	"github.com/bnema/campus-session/internal/monitor"
	"github.com/bnema/campus-session/internal/pool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthTimeout = 5 * time.Second

type SessionSource interface {
	State() domain.SessionState
}

type ErrorSource interface {
	Errors() []domain.ErrorEvent
}

type PoolSource interface {
	Stats() pool.Stats
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Options struct {
	Address  string
	Session  SessionSource
	Errors   ErrorSource
	Monitors []*monitor.Monitor
	// Pool and Identity are optional.
	Pool     PoolSource
	Identity HealthChecker
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Server exposes the session monitor's state over HTTP.
type Server struct {
	opts   Options
	app    *echo.Echo
	logger *slog.Logger
}

func NewServer(opts Options) (*Server, error) {
	if opts.Session == nil {
		return nil, domain.ConfigError("new status server", "session source is required")
	}
	if opts.Errors == nil {
		return nil, domain.ConfigError("new status server", "error source is required")
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		opts:   opts,
		app:    echo.New(),
		logger: logging.OrDiscard(opts.Logger),
	}
	s.setup()
	return s, nil
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.HidePort = true
	s.app.HTTPErrorHandler = s.handleError

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.Recover())
	s.app.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("http request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	s.app.GET("/healthz", s.health)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))

	v1 := s.app.Group("/v1")
	v1.GET("/session", s.getSession)
	v1.GET("/errors", s.listErrors)
	v1.GET("/stats", s.getStats)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("status server listening", slog.String("addr", s.opts.Address))
	if err := s.app.Start(s.opts.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

type healthResponse struct {
	Status string              `json:"status"`
	Phase  domain.SessionPhase `json:"phase"`
	Error  string              `json:"error,omitempty"`
}

func (s *Server) health(c echo.Context) error {
	resp := healthResponse{Status: "ok", Phase: s.opts.Session.State().Phase}
	if s.opts.Identity == nil {
		return c.JSON(http.StatusOK, resp)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()
	if err := s.opts.Identity.HealthCheck(ctx); err != nil {
		resp.Status = "degraded"
		resp.Error = err.Error()
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) getSession(c echo.Context) error {
	return c.JSON(http.StatusOK, s.opts.Session.State())
}

func (s *Server) listErrors(c echo.Context) error {
	events := s.opts.Errors.Errors()
	if events == nil {
		events = []domain.ErrorEvent{}
	}
	return c.JSON(http.StatusOK, events)
}

type monitorStats struct {
	Pending         int     `json:"pending"`
	Succeeded       int     `json:"succeeded"`
	Failed          int     `json:"failed"`
	Superseded      int     `json:"superseded"`
	Slow            int     `json:"slow"`
	AverageDuration float64 `json:"averageDurationMs"`
}

type poolStats struct {
	Active int `json:"active"`
	Idle   int `json:"idle"`
	Min    int `json:"min"`
	Max    int `json:"max"`
}

type statsResponse struct {
	Monitors map[monitor.Kind]monitorStats `json:"monitors"`
	Pool     *poolStats                    `json:"pool,omitempty"`
	Errors   int                           `json:"errors"`
}

func (s *Server) getStats(c echo.Context) error {
	resp := statsResponse{
		Monitors: make(map[monitor.Kind]monitorStats, len(s.opts.Monitors)),
		Errors:   len(s.opts.Errors.Errors()),
	}
	for _, m := range s.opts.Monitors {
		st := m.Stats()
		resp.Monitors[m.Kind()] = monitorStats{
			Pending:         st.Pending,
			Succeeded:       st.Succeeded,
			Failed:          st.Failed,
			Superseded:      st.Superseded,
			Slow:            st.Slow,
			AverageDuration: float64(st.AverageDuration) / float64(time.Millisecond),
		}
	}
	if s.opts.Pool != nil {
		st := s.opts.Pool.Stats()
		resp.Pool = &poolStats{Active: st.Active, Idle: st.Idle, Min: st.Min, Max: st.Max}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleError(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := http.StatusText(code)

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if m, ok := httpErr.Message.(string); ok {
			message = m
		}
	} else {
		s.logger.Error("status request failed", logging.Err(err))
	}

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, echo.Map{"error": message})
	}
	if err != nil {
		s.logger.Error("write error response", logging.Err(err))
	}
}
