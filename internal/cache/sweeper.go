package cache

import (
	"sync"
	"time"
)

// sweeper runs fn on a fixed interval until closed.
type sweeper struct {
	stop    chan struct{}
	wg      sync.WaitGroup
	closing sync.Once
}

func startSweeper(interval time.Duration, fn func()) *sweeper {
	s := &sweeper{stop: make(chan struct{})}
	if interval <= 0 {
		return s
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return s
}

func (s *sweeper) close() {
	s.closing.Do(func() { close(s.stop) })
	s.wg.Wait()
}
