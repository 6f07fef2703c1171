package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the marker module: creation volume,
// confirmation outcomes, lifecycle transitions, and sweep durations.
type Metrics struct {
	MarkersCreated     *prometheus.CounterVec
	Confirmations      *prometheus.CounterVec
	MarkersDeactivated *prometheus.CounterVec
	SweepDuration      prometheus.Histogram
}

// New creates a Metrics instance with all marker module metrics registered.
func New() *Metrics {
	return &Metrics{
		MarkersCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "deicer_markers_created_total",
			Help: "Total number of markers created, by category",
		}, []string{"category"}),
		Confirmations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "deicer_confirmations_recorded_total",
			Help: "Total confirmations applied to markers, by outcome (present/absent)",
		}, []string{"outcome"}),
		MarkersDeactivated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "deicer_markers_deactivated_total",
			Help: "Total marker deactivations, by reason (score/stale)",
		}, []string{"reason"}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "deicer_expire_sweep_duration_seconds",
			Help:    "Duration of stale-marker expiry sweeps",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementCreated records a successful marker creation.
func (m *Metrics) IncrementCreated(category string) {
	m.MarkersCreated.WithLabelValues(category).Inc()
}

// IncrementConfirmation records one applied confirmation outcome.
func (m *Metrics) IncrementConfirmation(present bool) {
	outcome := "present"
	if !present {
		outcome = "absent"
	}
	m.Confirmations.WithLabelValues(outcome).Inc()
}

// IncrementDeactivated records a marker deactivation with its cause.
func (m *Metrics) IncrementDeactivated(reason string) {
	m.MarkersDeactivated.WithLabelValues(reason).Inc()
}

// ObserveSweep records the duration of an expiry sweep.
// Call with time.Now() captured at the start of the sweep.
func (m *Metrics) ObserveSweep(start time.Time) {
	m.SweepDuration.Observe(time.Since(start).Seconds())
}
