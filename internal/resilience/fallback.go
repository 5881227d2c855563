package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/logging"
	"github.com/bnema/campus-session/internal/ports"
	"github.com/bnema/campus-session/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Tier string

const (
	TierNone    Tier = "none"
	TierLive    Tier = "live"
	TierRefresh Tier = "local_refresh"
)

// LocalSessions is the persisted copy the second tier reads from.
type LocalSessions interface {
	LoadSession(ctx context.Context) (domain.PersistedSession, error)
	SaveSession(ctx context.Context, session domain.Session) error
}

// Recovery is the outcome of Fallback.Recover. Err holds the last failure seen
// on the way and is informational only.
type Recovery struct {
	Session domain.Session
	Tier    Tier
	Err     error
}

func (r Recovery) Found() bool {
	return r.Tier != TierNone && !r.Session.Empty()
}

// Fallback recovers a session by trying the live identity service, then the
// persisted copy refreshed with its own token.
type Fallback struct {
	identity ports.IdentityService
	local    LocalSessions
	clock    ports.Clock
	logger   *slog.Logger

	localTierOnce sync.Once
}

func NewFallback(identity ports.IdentityService, local LocalSessions, clock ports.Clock, logger *slog.Logger) *Fallback {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Fallback{
		identity: identity,
		local:    local,
		clock:    clock,
		logger:   logging.OrDiscard(logger),
	}
}

// Recover never fails: when every tier comes up empty the result is TierNone,
// which callers treat as "signed out".
func (f *Fallback) Recover(ctx context.Context) Recovery {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "resilience.Fallback.Recover", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	result := f.recover(ctx)
	telemetry.FallbackResolved(string(result.Tier))
	span.SetAttributes(attribute.String("fallback.tier", string(result.Tier)))
	if result.Found() {
		span.SetStatus(codes.Ok, "")
	} else if result.Err != nil {
		span.RecordError(result.Err)
	}
	return result
}

func (f *Fallback) recover(ctx context.Context) Recovery {
	session, err := f.identity.GetSession(ctx)
	if err == nil && !session.Empty() {
		return Recovery{Session: session, Tier: TierLive}
	}
	if err == nil {
		err = domain.ErrNoSession
	}
	liveErr := fmt.Errorf("live session: %w", err)

	if ctx.Err() != nil {
		return Recovery{Tier: TierNone, Err: liveErr}
	}

	persisted, err := f.local.LoadSession(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) && !errors.Is(err, domain.ErrNoSession) {
			f.logger.Debug("persisted session unreadable", logging.Err(err))
		}
		return Recovery{Tier: TierNone, Err: liveErr}
	}

	f.localTierOnce.Do(func() {
		f.logger.Info("live session unavailable, recovering from persisted copy",
			slog.String("user_id", string(persisted.CurrentSession.UserID)),
		)
	})

	now := f.clock.Now()
	if !persisted.Valid(now) || persisted.CurrentSession.Expired(now) ||
		(!persisted.ExpiresAt.IsZero() && !now.Before(persisted.ExpiresAt)) {
		return Recovery{Tier: TierNone, Err: fmt.Errorf("persisted session: %w", domain.ErrSessionLost)}
	}

	refreshed, err := f.identity.RefreshSession(ctx, persisted.CurrentSession.RefreshToken)
	if err != nil {
		return Recovery{Tier: TierNone, Err: fmt.Errorf("refresh persisted session: %w", err)}
	}
	if refreshed.Empty() {
		return Recovery{Tier: TierNone, Err: fmt.Errorf("refresh persisted session: %w", domain.ErrNoSession)}
	}

	if err := f.local.SaveSession(ctx, refreshed); err != nil {
		f.logger.Warn("persist recovered session failed", logging.Err(err))
	}

	return Recovery{Session: refreshed, Tier: TierRefresh}
}
