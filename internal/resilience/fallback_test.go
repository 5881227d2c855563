package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/ports"
	portmocks "github.com/bnema/campus-session/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type localSessionsStub struct {
	persisted domain.PersistedSession
	loadErr   error
	saved     []domain.Session
}

func (s *localSessionsStub) LoadSession(context.Context) (domain.PersistedSession, error) {
	return s.persisted, s.loadErr
}

func (s *localSessionsStub) SaveSession(_ context.Context, session domain.Session) error {
	s.saved = append(s.saved, session)
	return nil
}

var fallbackNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func fixedClock() ports.Clock {
	return ports.ClockFunc(func() time.Time { return fallbackNow })
}

func liveSession() domain.Session {
	return domain.Session{AccessToken: "live", RefreshToken: "live", UserID: "u1", ExpiresAt: fallbackNow.Add(time.Hour)}
}

func TestFallbackUsesLiveSession(t *testing.T) {
	t.Parallel()

	identity := portmocks.NewMockIdentityService(t)
	local := &localSessionsStub{}
	identity.EXPECT().GetSession(mock.Anything).Return(liveSession(), nil).Once()

	got := NewFallback(identity, local, fixedClock(), nil).Recover(context.Background())

	require.True(t, got.Found())
	assert.Equal(t, TierLive, got.Tier)
	assert.Equal(t, domain.UserID("u1"), got.Session.UserID)
	assert.Empty(t, local.saved)
}

func TestFallbackRefreshesPersistedCopy(t *testing.T) {
	t.Parallel()

	identity := portmocks.NewMockIdentityService(t)
	local := &localSessionsStub{persisted: domain.PersistedSession{
		CurrentSession: domain.Session{AccessToken: "old", RefreshToken: "old-refresh", UserID: "u1", ExpiresAt: fallbackNow.Add(10 * time.Minute)},
		ExpiresAt:      fallbackNow.Add(10 * time.Minute),
		Timestamp:      fallbackNow.Add(-time.Hour),
	}}
	refreshed := liveSession()
	refreshed.AccessToken = "new"

	identity.EXPECT().GetSession(mock.Anything).Return(domain.Session{}, errors.New("network down")).Once()
	identity.EXPECT().RefreshSession(mock.Anything, "old-refresh").Return(refreshed, nil).Once()

	got := NewFallback(identity, local, fixedClock(), nil).Recover(context.Background())

	require.True(t, got.Found())
	assert.Equal(t, TierRefresh, got.Tier)
	assert.Equal(t, "new", got.Session.AccessToken)
	assert.Equal(t, []domain.Session{refreshed}, local.saved)
}

func TestFallbackReturnsNoSessionWhenEveryTierFails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		local   *localSessionsStub
		refresh bool
	}{
		{name: "nothing persisted", local: &localSessionsStub{loadErr: domain.ErrKeyNotFound}},
		{name: "persisted copy expired", local: &localSessionsStub{persisted: domain.PersistedSession{
			CurrentSession: domain.Session{AccessToken: "old", UserID: "u1", ExpiresAt: fallbackNow.Add(-time.Minute)},
			Timestamp:      fallbackNow.Add(-time.Hour),
		}}},
		{name: "persisted copy older than a day", local: &localSessionsStub{persisted: domain.PersistedSession{
			CurrentSession: domain.Session{AccessToken: "old", UserID: "u1", ExpiresAt: fallbackNow.Add(time.Hour)},
			Timestamp:      fallbackNow.Add(-25 * time.Hour),
		}}},
		{name: "refresh rejected", refresh: true, local: &localSessionsStub{persisted: domain.PersistedSession{
			CurrentSession: domain.Session{AccessToken: "old", RefreshToken: "old", UserID: "u1", ExpiresAt: fallbackNow.Add(time.Hour)},
			Timestamp:      fallbackNow.Add(-time.Minute),
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			identity := portmocks.NewMockIdentityService(t)
			identity.EXPECT().GetSession(mock.Anything).Return(domain.Session{}, domain.ErrNoSession).Once()
			if tt.refresh {
				identity.EXPECT().RefreshSession(mock.Anything, "old").
					Return(domain.Session{}, domain.NewError(domain.KindSessionLoss, "refresh", errors.New("refresh has expired"))).Once()
			}

			got := NewFallback(identity, tt.local, fixedClock(), nil).Recover(context.Background())

			assert.False(t, got.Found())
			assert.Equal(t, TierNone, got.Tier)
			assert.True(t, got.Session.Empty())
			assert.Error(t, got.Err)
			assert.Empty(t, tt.local.saved)
		})
	}
}
