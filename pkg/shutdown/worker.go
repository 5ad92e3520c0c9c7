package shutdown

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PeriodicWorker runs a function on a fixed interval, including once
// immediately at startup, and stops when the shutdown manager drains
// it. The work function must return when its context is cancelled.
type PeriodicWorker struct {
	name     string
	interval time.Duration
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewPeriodicWorker creates a named periodic worker.
func NewPeriodicWorker(name string, interval time.Duration, logger *zap.Logger) *PeriodicWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &PeriodicWorker{
		name:     name,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the worker loop.
func (pw *PeriodicWorker) Start(work func(ctx context.Context)) {
	pw.wg.Add(1)

	go func() {
		defer pw.wg.Done()

		pw.logger.Info("Periodic worker started",
			zap.String("worker", pw.name),
			zap.Duration("interval", pw.interval),
		)

		ticker := time.NewTicker(pw.interval)
		defer ticker.Stop()

		work(pw.ctx)

		for {
			select {
			case <-pw.ctx.Done():
				pw.logger.Info("Periodic worker stopped",
					zap.String("worker", pw.name),
				)
				return
			case <-ticker.C:
				work(pw.ctx)
			}
		}
	}()
}

// Shutdown cancels the worker and waits for the loop to exit, bounded
// by ctx.
func (pw *PeriodicWorker) Shutdown(ctx context.Context) error {
	pw.cancel()

	done := make(chan struct{})
	go func() {
		pw.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		pw.logger.Warn("Periodic worker shutdown timeout",
			zap.String("worker", pw.name),
		)
		return ctx.Err()
	}
}
