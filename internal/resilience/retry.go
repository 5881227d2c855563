package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/logging"
	"github.com/bnema/campus-session/internal/telemetry"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName    = "github.com/bnema/campus-session/internal/resilience"
	backoffFactor = 1.5
)

var validate = validator.New()

type RetryConfig struct {
	MaxAttempts int           `validate:"min=1"`
	BaseDelay   time.Duration `validate:"min=0"`
	MaxDelay    time.Duration `validate:"min=0"`
	// Timeout bounds each attempt. Zero disables the per-attempt deadline.
	Timeout time.Duration `validate:"min=0"`
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Timeout:     10 * time.Second,
	}
}

// Delay is the backoff after the given zero-based attempt failed.
func (c RetryConfig) Delay(attempt int) time.Duration {
	delay := float64(c.BaseDelay) * math.Pow(backoffFactor, float64(attempt))
	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(delay)
}

type RetryOption func(*Retrier)

// WithRecovery runs fn before every attempt after the first. Its error is
// logged and otherwise ignored.
func WithRecovery(fn func(ctx context.Context) error) RetryOption {
	return func(r *Retrier) { r.recover = fn }
}

// WithSleep replaces the backoff wait, mainly so tests can observe delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) RetryOption {
	return func(r *Retrier) { r.sleep = fn }
}

func WithName(name string) RetryOption {
	return func(r *Retrier) { r.name = name }
}

func WithLogger(logger *slog.Logger) RetryOption {
	return func(r *Retrier) { r.logger = logging.OrDiscard(logger) }
}

// Retrier runs an operation with bounded attempts, capped exponential backoff
// and a per-attempt deadline.
type Retrier struct {
	cfg     RetryConfig
	name    string
	recover func(ctx context.Context) error
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *slog.Logger
}

func NewRetrier(cfg RetryConfig, opts ...RetryOption) (*Retrier, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, domain.ConfigError("new retrier", "invalid retry config: %v", err)
	}

	r := &Retrier{
		cfg:    cfg,
		name:   "operation",
		sleep:  sleepContext,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Retrier) Config() RetryConfig {
	return r.cfg
}

// Do runs op until it succeeds or attempts run out, then returns the last
// error op produced, unwrapped. Non-retryable errors end the loop at once.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := Retry(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Retry is Do for operations that produce a value.
func Retry[T any](ctx context.Context, r *Retrier, op func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "resilience.Retrier.Do", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	span.SetAttributes(
		attribute.String("retry.operation", r.name),
		attribute.Int("retry.max_attempts", r.cfg.MaxAttempts),
	)

	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if attempt > 0 && r.recover != nil {
			if err := r.recover(ctx); err != nil {
				r.logger.Debug("recovery before retry failed",
					slog.String("operation", r.name),
					slog.Int("attempt", attempt+1),
					logging.Err(err),
				)
			}
		}

		value, err := runAttempt(ctx, r, attempt, op)
		telemetry.RetryAttempt(r.name, err)
		if err == nil {
			span.SetAttributes(attribute.Int("retry.attempts", attempt+1))
			span.SetStatus(codes.Ok, "")
			return value, nil
		}
		lastErr = err

		if !domain.Retryable(err) {
			r.logger.Debug("operation failed with non-retryable error",
				slog.String("operation", r.name),
				logging.Err(err),
			)
			break
		}
		if attempt == r.cfg.MaxAttempts-1 {
			break
		}

		delay := r.cfg.Delay(attempt)
		r.logger.Debug("operation failed, backing off",
			slog.String("operation", r.name),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			logging.Err(err),
		)
		if err := r.sleep(ctx, delay); err != nil {
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "retries exhausted")
	return zero, lastErr
}

type attemptResult[T any] struct {
	value T
	err   error
}

// runAttempt races op against the per-attempt timer. The timer rejects the
// attempt; op keeps running until it observes its context.
func runAttempt[T any](ctx context.Context, r *Retrier, attempt int, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if r.cfg.Timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan attemptResult[T], 1)
	go func() {
		value, err := op(attemptCtx)
		done <- attemptResult[T]{value: value, err: err}
	}()

	timer := time.NewTimer(r.cfg.Timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.value, res.err
	case <-timer.C:
		return zero, fmt.Errorf("%s attempt %d after %s: %w", r.name, attempt+1, r.cfg.Timeout, domain.ErrAttemptTimeout)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
