// Package worker relays outbox entries to Kafka.
package worker

import (
	"context"
	"log/slog"
	"time"

	"agentconsent/internal/platform/kafka/producer"
	"agentconsent/pkg/platform/audit/outbox"
	"agentconsent/pkg/platform/audit/outbox/metrics"
)

// Publisher is the subset of the Kafka producer the relay needs.
type Publisher interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

const (
	defaultTopic        = "agentconsent.consent.events"
	defaultBatchSize    = 100
	defaultPollInterval = time.Second
	drainTimeout        = 10 * time.Second
)

// Worker polls the outbox table and publishes pending entries. Delivery is
// at-least-once: an entry published but not marked is published again on the
// next poll, keyed by its id so consumers can deduplicate.
type Worker struct {
	store        outbox.Store
	publisher    Publisher
	topic        string
	batchSize    int
	pollInterval time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures the Worker.
type Option func(*Worker)

func WithTopic(topic string) Option {
	return func(w *Worker) {
		if topic != "" {
			w.topic = topic
		}
	}
}

// WithBatchSize sets the maximum number of entries to fetch per poll.
func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// New creates an outbox relay.
func New(store outbox.Store, publisher Publisher, opts ...Option) *Worker {
	w := &Worker{
		store:        store,
		publisher:    publisher,
		topic:        defaultTopic,
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled, then drains what is left with a short
// deadline of its own.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.log(ctx, slog.LevelInfo, "outbox relay started", "topic", w.topic, "interval", w.pollInterval)
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case <-ticker.C:
			w.RunOnce(ctx)
			w.updateMetrics(ctx)
		}
	}
}

// RunOnce relays a single batch and returns how many entries were published.
func (w *Worker) RunOnce(ctx context.Context) int {
	start := time.Now()
	entries, err := w.store.FetchUnprocessed(ctx, w.batchSize)
	if err != nil {
		w.log(ctx, slog.LevelError, "failed to fetch outbox entries", "error", err)
		if w.metrics != nil {
			w.metrics.IncPublishFailures()
		}
		return 0
	}
	if len(entries) == 0 {
		return 0
	}
	if w.metrics != nil {
		w.metrics.ObserveBatchSize(len(entries))
	}

	published := w.relay(ctx, entries)

	if w.metrics != nil {
		w.metrics.ObservePollDuration(time.Since(start).Seconds())
	}
	return published
}

func (w *Worker) relay(ctx context.Context, entries []*outbox.Entry) int {
	published := 0
	for _, entry := range entries {
		if err := w.publishEntry(ctx, entry); err != nil {
			w.log(ctx, slog.LevelError, "failed to publish outbox entry",
				"id", entry.ID,
				"event_type", entry.EventType,
				"error", err,
			)
			if w.metrics != nil {
				w.metrics.IncPublishFailures()
			}
			continue
		}
		if err := w.store.MarkProcessed(ctx, entry.ID, w.now()); err != nil {
			// Published but not marked: it goes out again next poll.
			w.log(ctx, slog.LevelError, "failed to mark outbox entry processed", "id", entry.ID, "error", err)
			continue
		}
		published++
		if w.metrics != nil {
			w.metrics.IncPublished()
		}
	}
	return published
}

func (w *Worker) publishEntry(ctx context.Context, entry *outbox.Entry) error {
	start := time.Now()
	err := w.publisher.Produce(ctx, &producer.Message{
		Topic: w.topic,
		Key:   []byte(entry.ID.String()),
		Value: entry.Payload,
		Headers: map[string]string{
			"aggregate_type": entry.AggregateType,
			"aggregate_id":   entry.AggregateID,
			"event_type":     entry.EventType,
		},
	})
	if err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.ObservePublishDuration(time.Since(start).Seconds())
	}
	return nil
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	w.log(ctx, slog.LevelInfo, "draining outbox relay")
	for ctx.Err() == nil {
		entries, err := w.store.FetchUnprocessed(ctx, w.batchSize)
		if err != nil {
			w.log(ctx, slog.LevelError, "failed to fetch entries during drain", "error", err)
			return
		}
		if len(entries) == 0 {
			return
		}
		if w.relay(ctx, entries) == 0 {
			// Nothing went through; the broker is likely down.
			return
		}
	}
}

func (w *Worker) updateMetrics(ctx context.Context) {
	if w.metrics == nil {
		return
	}
	count, err := w.store.CountPending(ctx)
	if err != nil {
		return
	}
	w.metrics.SetPendingDepth(count)

	age := 0.0
	if count > 0 {
		if oldest, err := w.store.FetchUnprocessed(ctx, 1); err == nil && len(oldest) == 1 {
			age = w.now().Sub(oldest[0].CreatedAt).Seconds()
		}
	}
	w.metrics.SetOldestPendingAge(age)
}

func (w *Worker) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if w.logger == nil {
		return
	}
	w.logger.Log(ctx, level, msg, args...)
}
