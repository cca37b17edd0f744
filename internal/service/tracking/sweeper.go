package tracking

import (
	"context"
	"time"

	"github.com/ignite/phishtrack/internal/pkg/logger"
)

// SweepExpiredPending deletes unconfirmed pending events older than the TTL,
// one bounded batch at a time so the delete never holds long locks. Returns
// the total number of rows removed.
func (s *Service) SweepExpiredPending(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.PendingTTL)
	total := 0
	for {
		n, err := s.repo.DeleteExpiredPending(ctx, cutoff, s.cfg.SweepBatch)
		if err != nil {
			return total, err
		}
		total += n
		if n < s.cfg.SweepBatch {
			return total, nil
		}
	}
}

// StartSweeper runs the pending sweep on a ticker until ctx is cancelled.
// It blocks; run it in its own goroutine.
func (s *Service) StartSweeper(ctx context.Context) {
	logger.Info("pending sweeper started",
		"interval", s.cfg.SweepInterval.String(), "ttl", s.cfg.PendingTTL.String())

	// Run once immediately on start.
	s.sweepOnce(ctx)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("pending sweeper stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Service) sweepOnce(ctx context.Context) {
	n, err := s.SweepExpiredPending(ctx)
	if err != nil {
		logger.Error("pending sweep failed", "error", err.Error())
		return
	}
	if n > 0 {
		logger.Info("pending events swept", "deleted", n)
	}
}
