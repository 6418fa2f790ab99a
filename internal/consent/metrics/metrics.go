package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for consent operations.
type Metrics struct {
	RequestsCreated       *prometheus.CounterVec
	RequestsDeduped       *prometheus.CounterVec
	ConsentsGranted       *prometheus.CounterVec
	ConsentsRevoked       *prometheus.CounterVec
	ConsentsExpired       prometheus.Counter
	ConsentChecks         *prometheus.CounterVec
	Notifications         *prometheus.CounterVec
	ShardLockWait         prometheus.Histogram
	RequestLatency        prometheus.Histogram
	StoreOperationLatency *prometheus.HistogramVec
}

// New registers consent collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agentconsent_requests_created_total",
			Help: "Consent requests created, labeled by target contact type",
		}, []string{"contact_type"}),
		RequestsDeduped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agentconsent_requests_deduplicated_total",
			Help: "Consent requests answered from an existing record, labeled by the record status",
		}, []string{"status"}),
		ConsentsGranted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agentconsent_consents_granted_total",
			Help: "Consents granted, labeled by how the response arrived",
		}, []string{"reason"}),
		ConsentsRevoked: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agentconsent_consents_revoked_total",
			Help: "Consents denied or revoked, labeled by how the response arrived",
		}, []string{"reason"}),
		ConsentsExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "agentconsent_consents_expired_total",
			Help: "Requests moved to expired by the sweep",
		}),
		ConsentChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agentconsent_consent_checks_total",
			Help: "Consent checks, labeled by outcome (allowed, denied, error)",
		}, []string{"outcome"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agentconsent_notifications_total",
			Help: "Consent notifications attempted, labeled by provider and result",
		}, []string{"provider", "result"}),
		ShardLockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentconsent_consent_shard_lock_wait_seconds",
			Help:    "Time spent waiting to acquire a consent shard lock",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		RequestLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentconsent_request_consent_latency_seconds",
			Help:    "Latency of request_consent including notification delivery",
			Buckets: prometheus.DefBuckets,
		}),
		StoreOperationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentconsent_consent_store_operation_latency_seconds",
			Help:    "Latency of consent store operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementRequestsCreated(contactType string) {
	m.RequestsCreated.WithLabelValues(contactType).Inc()
}

func (m *Metrics) IncrementRequestsDeduped(status string) {
	m.RequestsDeduped.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementConsentsGranted(reason string) {
	m.ConsentsGranted.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementConsentsRevoked(reason string) {
	m.ConsentsRevoked.WithLabelValues(reason).Inc()
}

func (m *Metrics) AddConsentsExpired(n int) {
	m.ConsentsExpired.Add(float64(n))
}

func (m *Metrics) IncrementConsentCheck(outcome string) {
	m.ConsentChecks.WithLabelValues(outcome).Inc()
}

// IncrementNotification records a delivery attempt; result is "sent" or "failed".
func (m *Metrics) IncrementNotification(provider, result string) {
	m.Notifications.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) ObserveShardLockWait(durationSeconds float64) {
	m.ShardLockWait.Observe(durationSeconds)
}

func (m *Metrics) ObserveRequestLatency(durationSeconds float64) {
	m.RequestLatency.Observe(durationSeconds)
}

// ObserveStoreOperationLatency records the latency of a store operation.
func (m *Metrics) ObserveStoreOperationLatency(operation string, durationSeconds float64) {
	m.StoreOperationLatency.WithLabelValues(operation).Observe(durationSeconds)
}
