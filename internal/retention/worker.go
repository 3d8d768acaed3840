// Package retention prunes old journal rows in the background.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/assembly-coach/internal/pacing"
)

// DefaultInterval is how often the worker sweeps.
const DefaultInterval = 5 * time.Minute

// Pruner deletes journal rows older than cutoff.
type Pruner interface {
	PruneEvents(ctx context.Context, cutoff time.Time) (int64, error)
}

// Worker periodically removes journal rows older than the retention window.
type Worker struct {
	pruner    Pruner
	retention time.Duration
	interval  time.Duration
	clock     pacing.Clock
}

// NewWorker creates a worker. A zero interval uses DefaultInterval; a nil
// clock uses the wall clock.
func NewWorker(pruner Pruner, retention, interval time.Duration, clock pacing.Clock) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clock == nil {
		clock = pacing.RealClock{}
	}
	return &Worker{pruner: pruner, retention: retention, interval: interval, clock: clock}
}

// Start runs the worker until ctx is cancelled. A non-positive retention
// disables pruning.
func (w *Worker) Start(ctx context.Context) {
	if w.retention <= 0 {
		slog.Info("Journal retention disabled")
		return
	}

	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", w.interval, "retention", w.retention)

		for {
			select {
			case <-ticker.C:
				w.Sweep(ctx)
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep prunes once and returns the number of rows removed.
func (w *Worker) Sweep(ctx context.Context) int64 {
	cutoff := w.clock.Now().Add(-w.retention)
	deleted, err := w.pruner.PruneEvents(ctx, cutoff)
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Retention sweep cancelled", "error", err)
			return 0
		}
		slog.Error("Retention worker failed to prune events", "error", err, "cutoff", cutoff)
		return 0
	}
	if deleted > 0 {
		slog.Info("Retention worker pruned events", "count", deleted, "cutoff", cutoff)
	}
	return deleted
}
