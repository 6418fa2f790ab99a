package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the outbox relay.
type Metrics struct {
	// Queue health metrics
	PendingDepth     prometheus.Gauge
	OldestPendingAge prometheus.Gauge

	// Processing metrics
	PublishedTotal  prometheus.Counter
	PublishFailures prometheus.Counter
	PublishDuration prometheus.Histogram
	BatchSize       prometheus.Histogram

	PollDuration prometheus.Histogram
}

// New registers the outbox metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PendingDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "agentconsent_outbox_pending_total",
			Help: "Current number of pending (unprocessed) outbox entries",
		}),
		OldestPendingAge: f.NewGauge(prometheus.GaugeOpts{
			Name: "agentconsent_outbox_oldest_pending_seconds",
			Help: "Age in seconds of the oldest pending outbox entry",
		}),
		PublishedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "agentconsent_outbox_published_total",
			Help: "Total number of outbox entries successfully relayed to Kafka",
		}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "agentconsent_outbox_publish_failures_total",
			Help: "Total number of outbox publish failures",
		}),
		PublishDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentconsent_outbox_publish_duration_seconds",
			Help:    "Time taken to publish an outbox entry to Kafka",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentconsent_outbox_batch_size",
			Help:    "Number of entries processed per batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		PollDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentconsent_outbox_poll_duration_seconds",
			Help:    "Time taken for each poll cycle",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// SetPendingDepth sets the current number of pending entries.
func (m *Metrics) SetPendingDepth(count int64) {
	m.PendingDepth.Set(float64(count))
}

// SetOldestPendingAge sets the age of the oldest pending entry in seconds.
func (m *Metrics) SetOldestPendingAge(ageSeconds float64) {
	m.OldestPendingAge.Set(ageSeconds)
}

// IncPublished increments the published counter.
func (m *Metrics) IncPublished() {
	m.PublishedTotal.Inc()
}

// IncPublishFailures increments the publish failures counter.
func (m *Metrics) IncPublishFailures() {
	m.PublishFailures.Inc()
}

// ObservePublishDuration records the publish operation latency.
func (m *Metrics) ObservePublishDuration(durationSeconds float64) {
	m.PublishDuration.Observe(durationSeconds)
}

// ObserveBatchSize records the size of a processed batch.
func (m *Metrics) ObserveBatchSize(size int) {
	m.BatchSize.Observe(float64(size))
}

// ObservePollDuration records the poll cycle latency.
func (m *Metrics) ObservePollDuration(durationSeconds float64) {
	m.PollDuration.Observe(durationSeconds)
}
