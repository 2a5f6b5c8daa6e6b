package sync

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler runs a Runner immediately and then on a fixed interval until the
// context is cancelled. A pass that fails (including ErrNoConnectors) is
// logged and the schedule keeps going; connector problems must not kill the
// loop.
type Scheduler struct {
	Runner   Runner
	Interval time.Duration
	Logger   *slog.Logger
}

func (s *Scheduler) Run(ctx context.Context) {
	if s.Runner == nil || s.Interval <= 0 {
		return
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Run immediately at startup.
	if err := s.Runner.RunOnce(ctx); err != nil {
		logger.Error("initial sync pass failed", "err", err)
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Runner.RunOnce(ctx); err != nil {
				logger.Error("scheduled sync pass failed", "err", err)
			}
		}
	}
}
