package cleanup

import (
	"context"
	"time"

	"github.com/carebridge/telemed-platform/pkg/logging"
)

// Worker runs the reconciliation sweep on a fixed interval. It is owned by
// the service's top-level composition and stops when its context is
// cancelled.
type Worker struct {
	service  *Service
	interval time.Duration
	logger   *logging.Logger
}

// NewWorker creates a sweep worker.
func NewWorker(service *Service, interval time.Duration, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Worker{service: service, interval: interval, logger: logger}
}

// Start runs the worker. Blocks until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting cleanup sweep worker", "interval", w.interval.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on startup to catch sessions abandoned while the
	// process was down.
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("cleanup sweep worker shutting down")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	if _, err := w.service.Run(ctx, TriggerCron); err != nil {
		w.logger.Error("scheduled cleanup sweep failed", "error", err)
	}
}
