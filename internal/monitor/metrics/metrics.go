package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the background monitor loop.
type Metrics struct {
	Cycles        *prometheus.CounterVec
	Notifications prometheus.Counter
}

// New creates a Metrics instance with all monitor metrics registered.
func New() *Metrics {
	return &Metrics{
		Cycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "deicer_monitor_cycles_total",
			Help: "Total monitor wake cycles, by outcome (ok/overlap/location_error/evaluate_error)",
		}, []string{"outcome"}),
		Notifications: promauto.NewCounter(prometheus.CounterOpts{
			Name: "deicer_monitor_notifications_total",
			Help: "Total notification requests emitted by the monitor",
		}),
	}
}

// IncrementCycle records one wake cycle with its outcome.
func (m *Metrics) IncrementCycle(outcome string) {
	m.Cycles.WithLabelValues(outcome).Inc()
}

// IncrementNotification records one emitted notification request.
func (m *Metrics) IncrementNotification() {
	m.Notifications.Inc()
}
