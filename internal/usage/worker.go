package usage

import (
	"context"
	"log/slog"
	"time"
)

// Pruner deletes usage rows older than a cutoff.
type Pruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Worker prunes old usage rows periodically
type Worker struct {
	pruner    Pruner
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
}

// NewWorker creates a new retention worker
func NewWorker(pruner Pruner, logger *slog.Logger, interval, retention time.Duration) *Worker {
	return &Worker{
		pruner:    pruner,
		logger:    logger.With("component", "usage_retention"),
		interval:  interval,
		retention: retention,
	}
}

// Run starts the worker loop
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("usage retention worker started", "interval", w.interval, "retention", w.retention)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("usage retention worker stopped")
			return
		case <-ticker.C:
			w.prune(ctx)
		}
	}
}

func (w *Worker) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.retention).Truncate(24 * time.Hour)

	deleted, err := w.pruner.DeleteBefore(ctx, cutoff)
	if err != nil {
		w.logger.Error("failed to prune usage rows", "error", err)
		return
	}

	w.logger.Debug("usage rows pruned", "deleted", deleted, "cutoff", cutoff.Format(time.DateOnly))
}
