package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Failures *prometheus.CounterVec
}

// NewMetrics registers the authentication collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Failures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "agentconsent_auth_failures_total",
			Help: "Rejected requests by reason (missing_credentials, invalid_credentials, insufficient_scope)",
		}, []string{"reason"}),
	}
}

func (m *Metrics) IncrementFailure(reason string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(reason).Inc()
}
