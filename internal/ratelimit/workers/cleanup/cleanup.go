// Package cleanup prunes idle in-memory rate limit buckets.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"agentconsent/internal/ratelimit/metrics"
)

type BucketPruner interface {
	PruneIdle(ctx context.Context) (int, error)
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

type Worker struct {
	store    BucketPruner
	logger   *slog.Logger
	interval time.Duration
	metrics  *metrics.Metrics
}

func New(store BucketPruner, opts ...Option) *Worker {
	w := &Worker{
		store:    store,
		logger:   slog.Default(),
		interval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pruned, err := w.RunOnce(ctx)
			if err != nil {
				w.logger.Error("rate limit bucket cleanup failed", "error", err)
				continue
			}
			if pruned > 0 {
				w.logger.Debug("rate limit buckets pruned", "count", pruned)
			}
		case <-ctx.Done():
			w.logger.Info("rate limit cleanup worker stopping", "reason", ctx.Err())
			return nil
		}
	}
}

func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	pruned, err := w.store.PruneIdle(ctx)
	if err != nil {
		return 0, err
	}
	w.metrics.AddPruned(pruned)
	return pruned, nil
}
