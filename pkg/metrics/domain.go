package metrics

import "github.com/prometheus/client_golang/prometheus"

// Document link outcomes.
const (
	LinkOutcomeDirect      = "direct"
	LinkOutcomeSigned      = "signed"
	LinkOutcomePublic      = "public"
	LinkOutcomePending     = "pending"
	LinkOutcomeUnavailable = "unavailable"
)

// DomainMetrics counts the back-office events operators alert on. A nil
// *DomainMetrics is valid and records nothing.
type DomainMetrics struct {
	enrichmentDegraded  *prometheus.CounterVec
	activationFailures  prometheus.Counter
	activationReconcile prometheus.Counter
	documentLinks       *prometheus.CounterVec
	signerCalls         prometheus.Counter
}

// NewDomainMetrics registers the domain counters on the provided registerer.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	m := &DomainMetrics{
		enrichmentDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrichment_degraded_total",
			Help: "Enrichment steps that failed and fell back to defaults.",
		}, []string{"step"}),
		activationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seller_activation_failures_total",
			Help: "Approved reviews whose seller activation call failed.",
		}),
		activationReconcile: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seller_activation_reconciled_total",
			Help: "Sellers activated by the reconcile job.",
		}),
		documentLinks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "document_link_resolutions_total",
			Help: "Document reference resolutions by outcome.",
		}, []string{"outcome"}),
		signerCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "document_link_signer_calls_total",
			Help: "Signed URL requests issued to object storage.",
		}),
	}
	reg.MustRegister(m.enrichmentDegraded, m.activationFailures, m.activationReconcile, m.documentLinks, m.signerCalls)
	return m
}

func (m *DomainMetrics) IncEnrichmentDegraded(step string) {
	if m == nil || m.enrichmentDegraded == nil {
		return
	}
	m.enrichmentDegraded.WithLabelValues(normalizeLabel(step)).Inc()
}

func (m *DomainMetrics) IncActivationFailure() {
	if m == nil || m.activationFailures == nil {
		return
	}
	m.activationFailures.Inc()
}

func (m *DomainMetrics) AddActivationReconciled(n int) {
	if m == nil || m.activationReconcile == nil || n <= 0 {
		return
	}
	m.activationReconcile.Add(float64(n))
}

func (m *DomainMetrics) IncDocumentLink(outcome string) {
	if m == nil || m.documentLinks == nil {
		return
	}
	m.documentLinks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *DomainMetrics) IncSignerCall() {
	if m == nil || m.signerCalls == nil {
		return
	}
	m.signerCalls.Inc()
}
