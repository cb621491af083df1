package game

import (
	"context"
	"time"
)

// StartReaper sweeps the match table every interval until ctx is done.
// It blocks; run it in its own goroutine.
func (mm *MatchManager) StartReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	mm.logger.Info("reaper started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			mm.logger.Info("reaper stopped")
			return
		case <-ticker.C:
			expired, evicted := mm.Sweep(ctx)
			if expired > 0 || evicted > 0 {
				mm.logger.Debug("sweep", "expired", expired, "evicted", evicted)
			}
		}
	}
}
