package resilience

import (
	"sync"
	"testing"
	"time"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/ports"
	"github.com/stretchr/testify/require"
)

func TestRefreshGuardAdmitsOneAtATime(t *testing.T) {
	t.Parallel()

	g := NewRefreshGuard(0, nil)

	release, err := g.TryAcquire()
	require.NoError(t, err)

	_, err = g.TryAcquire()
	require.ErrorIs(t, err, domain.ErrRefreshInProgress)

	release()
	release()

	release, err = g.TryAcquire()
	require.NoError(t, err)
	release()
}

func TestRefreshGuardEnforcesCooldown(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	clock := ports.ClockFunc(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	g := NewRefreshGuard(10*time.Second, clock)

	release, err := g.TryAcquire()
	require.NoError(t, err)
	release()

	advance(5 * time.Second)
	_, err = g.TryAcquire()
	require.ErrorIs(t, err, domain.ErrRefreshCooldown)

	advance(5 * time.Second)
	release, err = g.TryAcquire()
	require.NoError(t, err)
	release()
}
