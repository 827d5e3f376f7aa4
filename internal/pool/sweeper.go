package pool

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper periodically triggers an idle sweep. The pool itself never owns a
// timer; the surrounding service starts one of these
type Sweeper struct {
	ctx      context.Context
	cancel   context.CancelFunc
	sweep    func() int
	interval time.Duration
	wg       sync.WaitGroup
}

// NewSweeper creates a sweeper that invokes sweep every interval
func NewSweeper(interval time.Duration, sweep func() int) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		ctx:      ctx,
		cancel:   cancel,
		sweep:    sweep,
		interval: interval,
	}
}

// Start begins the periodic sweep loop
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop shuts down the sweep loop and waits for it to exit
func (s *Sweeper) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if evicted := s.sweep(); evicted > 0 {
				slog.Debug("Swept idle pool resources",
					slog.Int("evicted", evicted))
			}
		}
	}
}
