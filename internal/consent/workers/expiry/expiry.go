// Package expiry runs the periodic consent expiry sweep.
package expiry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Expirer transitions past-expiry consent requests to expired.
type Expirer interface {
	ExpireOldRequests(ctx context.Context) (int, error)
}

// OutboxPurger removes relayed outbox entries.
type OutboxPurger interface {
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

// Result summarizes one sweep.
type Result struct {
	Expired      int
	PurgedOutbox int64
}

// Worker periodically expires consent requests and, when configured, trims
// relayed outbox entries older than the retention window.
type Worker struct {
	expirer   Expirer
	outbox    OutboxPurger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Worker)

// WithInterval overrides the sweep interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithOutboxPurge enables purging processed outbox entries older than retention.
func WithOutboxPurge(purger OutboxPurger, retention time.Duration) Option {
	return func(w *Worker) {
		if purger != nil && retention > 0 {
			w.outbox = purger
			w.retention = retention
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// New constructs a Worker. The default interval is one minute.
func New(expirer Expirer, opts ...Option) (*Worker, error) {
	if expirer == nil {
		return nil, fmt.Errorf("expirer is required")
	}
	w := &Worker{
		expirer:  expirer,
		interval: time.Minute,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Start runs the sweep periodically until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "expiry sweep failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single sweep. Both steps run even if the first fails;
// errors are joined.
func (w *Worker) RunOnce(ctx context.Context) (Result, error) {
	var (
		res  Result
		errs []error
	)

	expired, err := w.expirer.ExpireOldRequests(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("expire consent requests: %w", err))
	} else {
		res.Expired = expired
	}

	if w.outbox != nil {
		purged, err := w.outbox.DeleteProcessedBefore(ctx, w.now().Add(-w.retention))
		if err != nil {
			errs = append(errs, fmt.Errorf("purge outbox: %w", err))
		} else {
			res.PurgedOutbox = purged
		}
	}

	if res.Expired > 0 || res.PurgedOutbox > 0 {
		w.logger.InfoContext(ctx, "expiry sweep completed",
			"expired", res.Expired,
			"purged_outbox", res.PurgedOutbox,
		)
	}
	return res, errors.Join(errs...)
}
