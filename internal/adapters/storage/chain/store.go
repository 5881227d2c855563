package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/logging"
	"github.com/bnema/campus-session/internal/ports"
)

// Store keeps the session in primary and uses fallback only while primary is
// failing. A value parked in fallback is moved back once primary answers
// again, so fallback never holds a session older than primary's.
type Store struct {
	primary  ports.KeyValueStore
	fallback ports.KeyValueStore
	logger   *slog.Logger
}

var _ ports.KeyValueStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary store is nil")
	errNilFallbackStore = errors.New("fallback store is nil")
)

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewStore(primary ports.KeyValueStore, fallback ports.KeyValueStore, opts ...Option) *Store {
	store, err := NewStoreChecked(primary, fallback, opts...)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(primary ports.KeyValueStore, fallback ports.KeyValueStore, opts ...Option) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}

	store := &Store{primary: primary, fallback: fallback, logger: logging.Discard()}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Put writes to primary and clears any copy fallback still holds. When primary
// fails the value is parked in fallback.
func (s *Store) Put(ctx context.Context, key string, value string) error {
	err := s.primary.Put(ctx, key, value)
	if err == nil {
		s.dropParked(ctx, key)
		return nil
	}
	if isContextErr(err) {
		return err
	}

	s.logger.Warn("primary store write failed, parking value in fallback",
		slog.String("key", key), logging.Err(err))
	if fallbackErr := s.fallback.Put(ctx, key, value); fallbackErr != nil {
		return fmt.Errorf("primary backend put failed: %w; fallback backend put failed: %w", err, fallbackErr)
	}
	return nil
}

// Get reads primary first. A fallback hit after a primary miss is moved back
// into primary.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if isContextErr(err) {
		return "", err
	}

	parked, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr != nil {
		return "", fmt.Errorf("primary backend get failed: %w; fallback backend get failed: %w", err, fallbackErr)
	}

	if errors.Is(err, domain.ErrKeyNotFound) {
		s.restore(ctx, key, parked)
	} else {
		s.logger.Warn("primary store read failed, serving parked value",
			slog.String("key", key), logging.Err(err))
	}
	return parked, nil
}

// Delete removes the key from both backends so a parked copy never outlives a
// sign-out.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.primary.Delete(ctx, key)
	if isContextErr(err) {
		return err
	}

	fallbackErr := s.fallback.Delete(ctx, key)
	switch {
	case err == nil && fallbackErr == nil:
		return nil
	case err == nil:
		return fmt.Errorf("fallback backend delete failed: %w", fallbackErr)
	case fallbackErr == nil:
		return fmt.Errorf("primary backend delete failed: %w", err)
	default:
		return fmt.Errorf("primary backend delete failed: %w; fallback backend delete failed: %w", err, fallbackErr)
	}
}

// restore moves a parked value back into primary. Failures leave the value
// where it is; the next Get tries again.
func (s *Store) restore(ctx context.Context, key string, value string) {
	if err := s.primary.Put(ctx, key, value); err != nil {
		s.logger.Debug("restore parked value", slog.String("key", key), logging.Err(err))
		return
	}
	s.logger.Info("restored parked value to primary store", slog.String("key", key))
	s.dropParked(ctx, key)
}

func (s *Store) dropParked(ctx context.Context, key string) {
	if err := s.fallback.Delete(ctx, key); err != nil && !isContextErr(err) {
		s.logger.Warn("drop parked value", slog.String("key", key), logging.Err(err))
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
