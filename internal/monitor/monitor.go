// Package monitor runs the periodic proximity check: wake, locate, evaluate,
// notify. Cycle failures are logged and skipped; only Stop (or a permission
// failure at Start) ends monitoring.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	monitormetrics "deicer/internal/monitor/metrics"
	"deicer/internal/notify"
	"deicer/internal/proximity"
	id "deicer/pkg/domain"
	dErrors "deicer/pkg/domain-errors"
	"deicer/pkg/geo"
)

// State is the monitor lifecycle state.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
)

// Location capability errors, reported by the host environment.
var (
	// ErrPermissionDenied means the host has not granted (or has revoked)
	// background location access.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrUnavailable means the location fix could not be obtained this
	// time; the next cycle may succeed.
	ErrUnavailable = errors.New("location unavailable")
)

// LocationProvider is the injected device-location capability.
type LocationProvider interface {
	// Authorize checks that background location access is granted.
	Authorize(ctx context.Context) error
	// CurrentLocation returns the device's current coordinates.
	CurrentLocation(ctx context.Context) (geo.Coordinate, error)
}

// Config bounds the monitor's tunables. Intervals outside [MinInterval,
// MaxInterval] are clamped, not rejected.
type Config struct {
	RadiusMiles float64
	MinInterval time.Duration
	MaxInterval time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		RadiusMiles: 5,
		MinInterval: 5 * time.Minute,
		MaxInterval: 60 * time.Minute,
	}
}

// Monitor bridges device location to notification requests on a schedule.
type Monitor struct {
	location  LocationProvider
	evaluator *proximity.Evaluator
	notifier  notify.Notifier
	scheduler Scheduler
	cfg       Config
	logger    *slog.Logger
	metrics   *monitormetrics.Metrics

	mu       sync.Mutex
	state    State
	handle   Handle
	notified map[id.MarkerID]struct{}

	// cycleInFlight serializes wake cycles: a wake that arrives while the
	// previous cycle is still working is dropped, not queued.
	cycleInFlight atomic.Bool
}

// Option configures optional monitor dependencies.
type Option func(*Monitor)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

func WithMetrics(metrics *monitormetrics.Metrics) Option {
	return func(m *Monitor) { m.metrics = metrics }
}

func WithConfig(cfg Config) Option {
	return func(m *Monitor) { m.cfg = cfg }
}

// New constructs a stopped monitor. Location, evaluator, notifier, and
// scheduler are required.
func New(location LocationProvider, evaluator *proximity.Evaluator, notifier notify.Notifier, scheduler Scheduler, opts ...Option) (*Monitor, error) {
	if location == nil {
		return nil, fmt.Errorf("location provider is required")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("proximity evaluator is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	m := &Monitor{
		location:  location,
		evaluator: evaluator,
		notifier:  notifier,
		scheduler: scheduler,
		cfg:       DefaultConfig(),
		logger:    slog.Default(),
		state:     StateStopped,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start transitions Stopped → Starting → Running and schedules recurring
// wake cycles at interval (clamped to the configured range). Fails with an
// unauthorized error and stays Stopped when location permission is missing.
// Starting an already-running monitor is a conflict; Stop first.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateStopped {
		return dErrors.New(dErrors.CodeConflict, "monitor is already running")
	}
	m.state = StateStarting

	if err := m.location.Authorize(ctx); err != nil {
		m.state = StateStopped
		if errors.Is(err, ErrPermissionDenied) {
			return dErrors.Wrap(err, dErrors.CodeUnauthorized, "location permission not granted")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "location capability check failed")
	}

	interval = m.clampInterval(interval)

	handle, err := m.scheduler.ScheduleRecurring(interval, m.runCycle)
	if err != nil {
		m.state = StateStopped
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to schedule monitoring")
	}

	m.handle = handle
	m.notified = make(map[id.MarkerID]struct{})
	m.state = StateRunning

	m.logger.Info("monitor started",
		"interval", interval,
		"radius_miles", m.cfg.RadiusMiles,
	)
	return nil
}

// Stop cancels the schedule and clears the notified set. Idempotent from
// any state. An in-flight cycle finishes; no further cycles run.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil {
		m.handle.Cancel()
		m.handle = nil
	}
	m.notified = nil
	if m.state != StateStopped {
		m.state = StateStopped
		m.logger.Info("monitor stopped")
	}
}

func (m *Monitor) clampInterval(interval time.Duration) time.Duration {
	if interval < m.cfg.MinInterval {
		return m.cfg.MinInterval
	}
	if interval > m.cfg.MaxInterval {
		return m.cfg.MaxInterval
	}
	return interval
}

// runCycle is the scheduler callback: locate, evaluate, notify. Every
// failure path logs and returns; the schedule keeps going.
func (m *Monitor) runCycle(ctx context.Context) {
	if !m.cycleInFlight.CompareAndSwap(false, true) {
		m.logger.Debug("previous monitor cycle still in flight, skipping wake")
		m.incrementCycle("overlap")
		return
	}
	defer m.cycleInFlight.Store(false)

	loc, err := m.location.CurrentLocation(ctx)
	if err != nil {
		m.logger.Warn("location fetch failed, skipping cycle", "error", err)
		m.incrementCycle("location_error")
		return
	}

	candidates, err := m.evaluator.Nearby(ctx, loc, m.cfg.RadiusMiles)
	if err != nil {
		m.logger.Warn("proximity evaluation failed, skipping cycle", "error", err)
		m.incrementCycle("evaluate_error")
		return
	}

	for _, candidate := range candidates {
		if !m.markNotified(candidate.MarkerID) {
			continue
		}
		req := notify.Request{
			Title:    "Community alert nearby",
			Body:     fmt.Sprintf("A %s marker was reported %.1f miles from you", candidate.Category, candidate.DistanceMiles),
			MarkerID: candidate.MarkerID,
		}
		if err := m.notifier.Notify(ctx, req); err != nil {
			// Unmark so the next cycle can retry delivery.
			m.unmarkNotified(candidate.MarkerID)
			m.logger.Warn("notification emit failed", "marker_id", candidate.MarkerID, "error", err)
			continue
		}
		if m.metrics != nil {
			m.metrics.IncrementNotification()
		}
	}

	m.incrementCycle("ok")
}

// markNotified records the marker in the per-run dedupe set. Returns false
// when the marker was already notified during this run.
func (m *Monitor) markNotified(markerID id.MarkerID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notified == nil {
		// Stopped mid-cycle; drop the notification.
		return false
	}
	if _, seen := m.notified[markerID]; seen {
		return false
	}
	m.notified[markerID] = struct{}{}
	return true
}

func (m *Monitor) unmarkNotified(markerID id.MarkerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notified != nil {
		delete(m.notified, markerID)
	}
}

func (m *Monitor) incrementCycle(outcome string) {
	if m.metrics != nil {
		m.metrics.IncrementCycle(outcome)
	}
}
