package rollbar

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/logging"
	"github.com/bnema/campus-session/internal/ports"
	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	rollbarerrors "github.com/rollbar/rollbar-go/errors"
)

type Config struct {
	Token       string
	Environment string
	CodeVersion string
	// Endpoint overrides the Rollbar item API, mostly for tests.
	Endpoint string
	// Sync sends each item before Report returns.
	Sync   bool
	Logger *slog.Logger
}

// Sink forwards tracked error events to Rollbar. A sink without a token
// drops everything.
type Sink struct {
	client  *rollbar.Client
	enabled bool
	logger  *slog.Logger
}

var _ ports.ErrorSink = (*Sink)(nil)

func New(cfg Config) *Sink {
	host, _ := os.Hostname()
	token := strings.TrimSpace(cfg.Token)

	newClient := rollbar.NewAsync
	if cfg.Sync {
		newClient = rollbar.NewSync
	}
	client := newClient(token, cfg.Environment, cfg.CodeVersion, host, "")
	client.SetStackTracer(rollbarerrors.StackTracer)
	if cfg.Endpoint != "" {
		client.SetEndpoint(cfg.Endpoint)
	}
	client.SetEnabled(token != "")

	return &Sink{
		client:  client,
		enabled: token != "",
		logger:  logging.OrDiscard(cfg.Logger),
	}
}

func (s *Sink) Enabled() bool {
	return s.enabled
}

func (s *Sink) Report(ctx context.Context, event domain.ErrorEvent) error {
	if !s.enabled {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	level := Level(event.Severity)
	extras := extrasFor(event)

	if event.Severity == domain.SeverityInfo {
		s.client.MessageWithExtrasAndContext(ctx, level, event.Message, extras)
	} else {
		s.client.ErrorWithExtrasAndContext(ctx, level, eventError(event), extras)
	}

	s.logger.Debug("error event reported",
		slog.String("event_id", event.ID),
		slog.String("level", level),
	)
	return nil
}

// Close flushes queued items.
func (s *Sink) Close() error {
	s.client.Wait()
	return s.client.Close()
}

func Level(severity domain.Severity) string {
	switch severity {
	case domain.SeverityWarning:
		return rollbar.WARN
	case domain.SeverityInfo:
		return rollbar.INFO
	default:
		return rollbar.ERR
	}
}

// eventError carries a pkg/errors stack so Rollbar groups by call site.
func eventError(event domain.ErrorEvent) error {
	err := errors.New(event.Message)
	if event.Source == "" {
		return err
	}
	return errors.Wrap(err, event.Source)
}

func extrasFor(event domain.ErrorEvent) map[string]interface{} {
	extras := make(map[string]interface{}, len(event.Context)+3)
	for key, value := range event.Context {
		extras[key] = value
	}
	extras["event_id"] = event.ID
	extras["source"] = event.Source
	if !event.Timestamp.IsZero() {
		extras["occurred_at"] = event.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return extras
}
