package cachesweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

type sweeper interface {
	DeleteExpired() int
}

// Worker periodically evicts expired cache entries.
type Worker struct {
	cache    sweeper
	interval time.Duration
	stopCh   chan struct{}
}

// NewWorker creates a sweep worker running every cache.sweep_interval.
func NewWorker(c sweeper) *Worker {
	interval := viper.GetDuration("cache.sweep_interval")
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return &Worker{
		cache:    c,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start sweeps until ctx is done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Cache sweep worker started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if n := w.cache.DeleteExpired(); n > 0 {
				slog.Debug("Expired cache entries removed", "count", n)
			}
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}
