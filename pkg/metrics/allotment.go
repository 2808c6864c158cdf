package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AllotmentMetrics tracks allotment letter delivery.
type AllotmentMetrics struct {
	emails    *prometheus.CounterVec
	schedules *prometheus.CounterVec
	send      prometheus.Histogram
}

// NewAllotmentMetrics registers the dispatcher metrics on reg.
func NewAllotmentMetrics(reg prometheus.Registerer) *AllotmentMetrics {
	if reg == nil {
		return &AllotmentMetrics{}
	}
	emails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allotment_emails_total",
		Help: "Allotment e-mails processed by outcome.",
	}, []string{"outcome"})
	schedules := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allotment_schedules_finished_total",
		Help: "Allotment schedules finished by final status.",
	}, []string{"status"})
	send := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "allotment_email_send_seconds",
		Help:    "Latency of a single allotment e-mail send.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(emails, schedules, send)
	return &AllotmentMetrics{emails: emails, schedules: schedules, send: send}
}

// IncEmail records one send attempt outcome (sent or failed).
func (m *AllotmentMetrics) IncEmail(outcome string) {
	if m == nil || m.emails == nil {
		return
	}
	m.emails.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncScheduleFinished records a schedule reaching a final status.
func (m *AllotmentMetrics) IncScheduleFinished(status string) {
	if m == nil || m.schedules == nil {
		return
	}
	m.schedules.WithLabelValues(normalizeLabel(status)).Inc()
}

// ObserveSend records how long one send took.
func (m *AllotmentMetrics) ObserveSend(duration time.Duration) {
	if m == nil || m.send == nil {
		return
	}
	m.send.Observe(duration.Seconds())
}
