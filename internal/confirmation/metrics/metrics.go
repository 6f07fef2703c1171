package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the confirmation ledger.
type Metrics struct {
	Submitted          *prometheus.CounterVec
	CooldownRejections prometheus.Counter
}

// New creates a Metrics instance with all ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		Submitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "deicer_ledger_submissions_total",
			Help: "Total confirmations accepted by the ledger, by outcome",
		}, []string{"outcome"}),
		CooldownRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "deicer_ledger_cooldown_rejections_total",
			Help: "Total submissions rejected because the device's cooldown was still active",
		}),
	}
}

// IncrementSubmitted records one accepted submission.
func (m *Metrics) IncrementSubmitted(present bool) {
	outcome := "present"
	if !present {
		outcome = "absent"
	}
	m.Submitted.WithLabelValues(outcome).Inc()
}

// IncrementCooldownRejection records one cooldown rejection.
func (m *Metrics) IncrementCooldownRejection() {
	m.CooldownRejections.Inc()
}
