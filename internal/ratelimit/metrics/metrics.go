package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions     *prometheus.CounterVec
	StoreErrors   prometheus.Counter
	PrunedBuckets prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentconsent_ratelimit_decisions_total",
			Help: "Rate limit decisions by endpoint class and outcome",
		}, []string{"class", "outcome"}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentconsent_ratelimit_store_errors_total",
			Help: "Rate limit checks that failed open because the bucket store errored",
		}),
		PrunedBuckets: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentconsent_ratelimit_pruned_buckets_total",
			Help: "Idle in-memory buckets removed by the cleanup worker",
		}),
	}
}

func (m *Metrics) ObserveDecision(class string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	m.Decisions.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}

func (m *Metrics) AddPruned(n int) {
	if m == nil {
		return
	}
	m.PrunedBuckets.Add(float64(n))
}
