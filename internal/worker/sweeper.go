// Package worker runs background maintenance alongside the HTTP server.
package worker

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/logger"
)

// ExpiredSessionSweeper flips expired sessions inactive.
type ExpiredSessionSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Sweeper runs an ExpiredSessionSweeper on a fixed interval.  Validation
// never depends on it: expired sessions are already rejected at lookup,
// the sweep only keeps is_active truthful for listings and reports.
type Sweeper struct {
	Sessions ExpiredSessionSweeper
	Interval time.Duration
}

// Run sweeps once immediately and then on every tick until ctx is done.
// Sweep failures are logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.Sessions.SweepExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Get().Warn("session sweep failed", "err", err)
		}
		return
	}
	if n > 0 {
		logger.Get().Info("expired sessions deactivated", "count", n)
	}
}
