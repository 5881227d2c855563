package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/ports"
	"github.com/bnema/campus-session/internal/resilience"
)

const (
	SessionKey  = "campus.session"
	SnapshotKey = "campus.session.snapshot"
)

// SessionStore keeps the persisted session and the cross-window snapshot in a
// key/value store. Records older than a day or without a user are ignored.
type SessionStore struct {
	kv    ports.KeyValueStore
	clock ports.Clock
}

var (
	_ ports.SessionBroker      = (*SessionStore)(nil)
	_ resilience.LocalSessions = (*SessionStore)(nil)
)

func NewSessionStore(kv ports.KeyValueStore, clock ports.Clock) *SessionStore {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &SessionStore{kv: kv, clock: clock}
}

func (s *SessionStore) LoadSession(ctx context.Context) (domain.PersistedSession, error) {
	var persisted domain.PersistedSession
	if err := s.read(ctx, SessionKey, &persisted); err != nil {
		return domain.PersistedSession{}, err
	}
	if !persisted.Valid(s.clock.Now()) {
		return domain.PersistedSession{}, fmt.Errorf("persisted session is stale or incomplete: %w", domain.ErrNoSession)
	}
	return persisted, nil
}

func (s *SessionStore) SaveSession(ctx context.Context, session domain.Session) error {
	return s.write(ctx, SessionKey, domain.PersistedSession{
		CurrentSession: session,
		ExpiresAt:      session.ExpiresAt,
		Timestamp:      s.clock.Now(),
	})
}

func (s *SessionStore) ReadSnapshot(ctx context.Context) (domain.StateSnapshot, error) {
	var snapshot domain.StateSnapshot
	if err := s.read(ctx, SnapshotKey, &snapshot); err != nil {
		return domain.StateSnapshot{}, err
	}
	if !snapshot.Valid(s.clock.Now()) {
		return domain.StateSnapshot{}, fmt.Errorf("session snapshot is stale or incomplete: %w", domain.ErrNoSession)
	}
	return snapshot, nil
}

// ReadState is the session state last published by the parent window. A
// missing or invalid snapshot reads as signed out.
func (s *SessionStore) ReadState(ctx context.Context) (domain.SessionState, error) {
	now := s.clock.Now()
	state := domain.NewSessionState(domain.WindowChild, now)

	snapshot, err := s.ReadSnapshot(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) || errors.Is(err, domain.ErrNoSession) {
			return state, nil
		}
		return state, err
	}

	state.IsAuthenticated = snapshot.IsAuthenticated
	state.UserID = snapshot.UserID
	state.Role = snapshot.Role
	state.CurrentRole = domain.RoleLabel(snapshot.Role)
	state.ExpiresAt = snapshot.ExpiresAt
	state.LastRefresh = snapshot.LastRefresh
	state.LastActivity = snapshot.Timestamp
	state.WindowID = snapshot.WindowID
	if snapshot.IsAuthenticated {
		state.Phase = domain.PhaseAuthenticated
	}
	return state, nil
}

func (s *SessionStore) WriteSnapshot(ctx context.Context, snapshot domain.StateSnapshot) error {
	return s.write(ctx, SnapshotKey, snapshot)
}

// Clear removes both the session and the snapshot.
func (s *SessionStore) Clear(ctx context.Context) error {
	return errors.Join(
		s.delete(ctx, SessionKey),
		s.delete(ctx, SnapshotKey),
	)
}

func (s *SessionStore) read(ctx context.Context, key string, out any) error {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *SessionStore) write(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Put(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *SessionStore) delete(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
