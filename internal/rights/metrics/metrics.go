package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks rights registry mutations.
type Metrics struct {
	IssuersTrusted   prometheus.Counter
	IssuersUntrusted prometheus.Counter
	ClaimsGranted    *prometheus.CounterVec
	ClaimsRevoked    *prometheus.CounterVec
}

// New registers the rights metrics on reg, or on the default registry when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		IssuersTrusted: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimsreg_issuers_trusted_total",
			Help: "Total number of issuers added to the trusted set",
		}),
		IssuersUntrusted: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimsreg_issuers_untrusted_total",
			Help: "Total number of issuers removed from the trusted set",
		}),
		ClaimsGranted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimsreg_claims_granted_total",
			Help: "Total number of claim rights granted, labeled by claim name",
		}, []string{"claim"}),
		ClaimsRevoked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimsreg_claims_revoked_total",
			Help: "Total number of claim rights revoked, labeled by claim name and cause",
		}, []string{"claim", "cause"}),
	}
}

func (m *Metrics) IncIssuerTrusted() {
	m.IssuersTrusted.Inc()
}

func (m *Metrics) IncIssuerUntrusted() {
	m.IssuersUntrusted.Inc()
}

func (m *Metrics) IncClaimGranted(claim string) {
	m.ClaimsGranted.WithLabelValues(claim).Inc()
}

// IncClaimRevoked counts a revocation. cause is "explicit" or "cascade".
func (m *Metrics) IncClaimRevoked(claim, cause string) {
	m.ClaimsRevoked.WithLabelValues(claim, cause).Inc()
}
