// Package metrics provides Prometheus metrics for claim verification.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	VerificationsTotal          *prometheus.CounterVec
	VerificationDurationSeconds *prometheus.HistogramVec
}

// New registers the verification metrics on reg, or on the default registry when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		VerificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimsreg_verifications_total",
			Help: "Total number of verification verdicts by path, claim name and outcome",
		}, []string{"path", "claim", "outcome"}),
		VerificationDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "claimsreg_verification_duration_seconds",
			Help:    "Duration of verification calls by path",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"path"}),
	}
}

func (m *Metrics) IncVerdict(path, claim, outcome string) {
	m.VerificationsTotal.WithLabelValues(path, claim, outcome).Inc()
}

func (m *Metrics) ObserveDuration(path string, seconds float64) {
	m.VerificationDurationSeconds.WithLabelValues(path).Observe(seconds)
}
