// Package metrics provides Prometheus metrics for attestation storage.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AttestationsIssued  *prometheus.CounterVec // by claim name and policy outcome (created, replaced)
	AttestationsRevoked *prometheus.CounterVec // by claim name
	IssueRejected       *prometheus.CounterVec // by reason

	CacheHitsTotal             prometheus.Counter
	CacheMissesTotal           prometheus.Counter
	CacheEntries               prometheus.Gauge
	CacheLookupDurationSeconds prometheus.Histogram
}

// New registers the attestation metrics on reg, or on the default registry when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		AttestationsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimsreg_attestations_issued_total",
			Help: "Total number of attestations stored, labeled by claim name and whether an entry was replaced",
		}, []string{"claim", "result"}),
		AttestationsRevoked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimsreg_attestations_revoked_total",
			Help: "Total number of attestations revoked, labeled by claim name",
		}, []string{"claim"}),
		IssueRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimsreg_attestation_issue_rejected_total",
			Help: "Total number of rejected issue calls by reason",
		}, []string{"reason"}),
		CacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimsreg_attestation_cache_hits_total",
			Help: "Total number of attestation cache hits",
		}),
		CacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimsreg_attestation_cache_misses_total",
			Help: "Total number of attestation cache misses",
		}),
		CacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "claimsreg_attestation_cache_entries",
			Help: "Current number of attestations held in the read cache",
		}),
		CacheLookupDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "claimsreg_attestation_lookup_duration_seconds",
			Help:    "Duration of attestation lookups through the read cache",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}
}

func (m *Metrics) IncIssued(claim string, replaced bool) {
	result := "created"
	if replaced {
		result = "replaced"
	}
	m.AttestationsIssued.WithLabelValues(claim, result).Inc()
}

func (m *Metrics) IncRevoked(claim string) {
	m.AttestationsRevoked.WithLabelValues(claim).Inc()
}

func (m *Metrics) IncIssueRejected(reason string) {
	m.IssueRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordCacheHit(durationSeconds float64) {
	m.CacheHitsTotal.Inc()
	m.CacheLookupDurationSeconds.Observe(durationSeconds)
}

func (m *Metrics) RecordCacheMiss(durationSeconds float64) {
	m.CacheMissesTotal.Inc()
	m.CacheLookupDurationSeconds.Observe(durationSeconds)
}

func (m *Metrics) SetCacheEntries(n int) {
	m.CacheEntries.Set(float64(n))
}
