package metrics

import "github.com/prometheus/client_golang/prometheus"

// ApplicationMetrics counts applied status transitions.
type ApplicationMetrics struct {
	transitions *prometheus.CounterVec
	rejected    *prometheus.CounterVec
}

// NewApplicationMetrics registers the status machine metrics on reg.
func NewApplicationMetrics(reg prometheus.Registerer) *ApplicationMetrics {
	if reg == nil {
		return &ApplicationMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "application_status_transitions_total",
		Help: "Applied application status transitions.",
	}, []string{"from", "to"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "application_status_transitions_rejected_total",
		Help: "Status changes refused by the transition table.",
	}, []string{"reason"})
	reg.MustRegister(transitions, rejected)
	return &ApplicationMetrics{transitions: transitions, rejected: rejected}
}

// IncTransition records one committed transition.
func (m *ApplicationMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncRejected records a refused transition keyed by error code.
func (m *ApplicationMetrics) IncRejected(reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}
