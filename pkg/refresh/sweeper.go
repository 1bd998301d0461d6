package refresh

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically removes long-inactive tokens from the ledger.
// It runs independently of request handling and is safe to run
// concurrently with live rotations.
type Sweeper struct {
	service  *Service
	interval time.Duration
}

// NewSweeper creates a sweeper running at the given interval
func NewSweeper(service *Service, interval time.Duration) *Sweeper {
	return &Sweeper{
		service:  service,
		interval: interval,
	}
}

// Run blocks, sweeping on every tick until the context is cancelled.
// Start it in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Refresh token sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Refresh token sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.service.SweepExpired(ctx, time.Now().UTC()); err != nil {
				slog.Error("Failed sweeping expired refresh tokens", "err", err)
			}
		}
	}
}
