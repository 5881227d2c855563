package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bnema/campus-session/internal/adapters/storage/memory"
	"github.com/bnema/campus-session/internal/domain"
	portmocks "github.com/bnema/campus-session/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreRoundTripsSession(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewSessionStore(memory.NewStore(), clock)
	session := domain.Session{
		AccessToken:  "a1",
		RefreshToken: "r1",
		UserID:       "u1",
		ExpiresAt:    clock.Now().Add(time.Hour),
	}

	require.NoError(t, store.SaveSession(context.Background(), session))

	persisted, err := store.LoadSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r1", persisted.CurrentSession.RefreshToken)
	assert.True(t, persisted.ExpiresAt.Equal(session.ExpiresAt))
	assert.True(t, persisted.Timestamp.Equal(clock.Now()))
}

func TestSessionStoreRejectsRecordsOlderThanADay(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewSessionStore(memory.NewStore(), clock)
	require.NoError(t, store.SaveSession(context.Background(), domain.Session{AccessToken: "a1", UserID: "u1"}))
	require.NoError(t, store.WriteSnapshot(context.Background(), domain.StateSnapshot{Timestamp: clock.Now(), UserID: "u1"}))

	clock.Advance(25 * time.Hour)

	_, err := store.LoadSession(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSession)
	_, err = store.ReadSnapshot(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestSessionStoreRejectsSnapshotWithoutUser(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewSessionStore(memory.NewStore(), clock)
	require.NoError(t, store.WriteSnapshot(context.Background(), domain.StateSnapshot{Timestamp: clock.Now()}))

	_, err := store.ReadSnapshot(context.Background())

	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestSessionStoreMissingKeyIsNotFound(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(memory.NewStore(), newFakeClock())

	_, err := store.LoadSession(context.Background())

	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestSessionStoreCorruptRecord(t *testing.T) {
	t.Parallel()

	kv := memory.NewStore()
	require.NoError(t, kv.Put(context.Background(), SnapshotKey, "{not json"))
	store := NewSessionStore(kv, newFakeClock())

	_, err := store.ReadSnapshot(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode "+SnapshotKey)
}

func TestSessionStoreClearReportsEveryFailure(t *testing.T) {
	t.Parallel()

	kv := portmocks.NewMockKeyValueStore(t)
	sessionErr := errors.New("session locked")
	snapshotErr := errors.New("snapshot locked")
	kv.EXPECT().Delete(mock.Anything, SessionKey).Return(sessionErr).Once()
	kv.EXPECT().Delete(mock.Anything, SnapshotKey).Return(snapshotErr).Once()

	err := NewSessionStore(kv, newFakeClock()).Clear(context.Background())

	assert.ErrorIs(t, err, sessionErr)
	assert.ErrorIs(t, err, snapshotErr)
}

func TestResolveWindowIDIsStable(t *testing.T) {
	t.Parallel()

	a := ResolveWindowID("/home/ada/campus", "tab-1")
	b := ResolveWindowID(" /home/ada/campus ", "tab-1\n")
	c := ResolveWindowID("/home/ada/campus", "tab-2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 40)
}

func TestSessionStoreReadStateFollowsSnapshot(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewSessionStore(memory.NewStore(), clock)

	state, err := store.ReadState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseUnauthenticated, state.Phase)
	assert.Equal(t, domain.WindowChild, state.WindowID)

	require.NoError(t, store.WriteSnapshot(context.Background(), domain.StateSnapshot{
		Timestamp:       clock.Now(),
		ExpiresAt:       clock.Now().Add(time.Hour),
		UserID:          "u1",
		Role:            "teacher:",
		WindowID:        domain.WindowParent,
		IsAuthenticated: true,
	}))
	clock.Advance(time.Minute)

	state, err = store.ReadState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseAuthenticated, state.Phase)
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, domain.UserID("u1"), state.UserID)
	assert.Equal(t, domain.RoleLabel("teacher:"), state.CurrentRole)
	assert.Equal(t, domain.WindowParent, state.WindowID)
	assert.True(t, state.LastActivity.Equal(clock.Now().Add(-time.Minute)))
}

func TestSessionStoreReadStateSurfacesCorruptSnapshot(t *testing.T) {
	t.Parallel()

	kv := memory.NewStore()
	require.NoError(t, kv.Put(context.Background(), SnapshotKey, "{not json"))
	store := NewSessionStore(kv, newFakeClock())

	state, err := store.ReadState(context.Background())
	require.Error(t, err)
	assert.False(t, state.IsAuthenticated)
}
