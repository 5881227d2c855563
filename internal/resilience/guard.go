package resilience

import (
	"sync"
	"time"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/ports"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// RefreshGuard admits one refresh at a time and spaces attempts at least
// minInterval apart. Refused callers skip the refresh rather than wait.
type RefreshGuard struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	clock   ports.Clock
}

func NewRefreshGuard(minInterval time.Duration, clock ports.Clock) *RefreshGuard {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}

	return &RefreshGuard{
		sem:     semaphore.NewWeighted(1),
		limiter: rate.NewLimiter(limit, 1),
		clock:   clock,
	}
}

// TryAcquire returns a release func when the caller may refresh now. It fails
// with domain.ErrRefreshInProgress or domain.ErrRefreshCooldown otherwise.
func (g *RefreshGuard) TryAcquire() (release func(), err error) {
	if !g.sem.TryAcquire(1) {
		return nil, domain.ErrRefreshInProgress
	}
	if !g.limiter.AllowN(g.clock.Now(), 1) {
		g.sem.Release(1)
		return nil, domain.ErrRefreshCooldown
	}
	var once sync.Once
	return func() { once.Do(func() { g.sem.Release(1) }) }, nil
}
