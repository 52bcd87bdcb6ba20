package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/service"
)

// Sweeper refreshes every ticket summary.
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// StartRefreshWorker sweeps all ticket summaries every interval until ctx is
// done. The returned channel is closed once the worker has stopped.
func StartRefreshWorker(ctx context.Context, sweeper Sweeper, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if sweeper == nil || interval <= 0 {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := sweeper.Sweep(ctx)
				if err != nil {
					if ctx.Err() == nil {
						logger.Warn("refresh sweep failed", zap.Error(err))
					}
					continue
				}
				logger.Debug("refresh sweep finished",
					zap.Int("refreshed", res.Refreshed), zap.Int("failed", res.Failed))
			}
		}
	}()
	return done
}
