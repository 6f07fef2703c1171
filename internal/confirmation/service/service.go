// Package service implements the confirmation ledger: the only path by
// which marker reliability changes. It gates each (marker, device) pair
// behind a cooldown window and appends an immutable record per vote.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"deicer/internal/confirmation/cooldown"
	ledgermetrics "deicer/internal/confirmation/metrics"
	confirmationstore "deicer/internal/confirmation/store/confirmation"
	"deicer/internal/marker/models"
	id "deicer/pkg/domain"
	dErrors "deicer/pkg/domain-errors"
	"deicer/pkg/platform/sentinel"
	"deicer/pkg/requestcontext"
)

// MarkerRecorder is the slice of the marker service the ledger drives.
// Routing every reliability change through this interface is what keeps
// marker state single-writer.
type MarkerRecorder interface {
	RecordConfirmation(ctx context.Context, markerID id.MarkerID, present bool, now time.Time) (*models.Marker, error)
}

// Store is the append-only confirmation persistence port.
type Store = confirmationstore.Store

// Ledger gates and records confirmation events.
type Ledger struct {
	store   Store
	markers MarkerRecorder
	gate    cooldown.Gate
	window  time.Duration
	logger  *slog.Logger
	metrics *ledgermetrics.Metrics
}

// Option configures optional ledger dependencies.
type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func WithMetrics(m *ledgermetrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithGate installs a cooldown fast path (in-memory or Redis) ahead of the
// authoritative ledger lookup.
func WithGate(g cooldown.Gate) Option {
	return func(l *Ledger) { l.gate = g }
}

// DefaultCooldownWindow is how long a device waits before voting again on
// the same marker.
const DefaultCooldownWindow = 4 * time.Hour

// New constructs the ledger. The store and marker recorder are required.
func New(store Store, markers MarkerRecorder, window time.Duration, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("confirmation store is required")
	}
	if markers == nil {
		return nil, fmt.Errorf("marker recorder is required")
	}
	if window <= 0 {
		window = DefaultCooldownWindow
	}
	l := &Ledger{
		store:   store,
		markers: markers,
		window:  window,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Window exposes the configured cooldown duration.
func (l *Ledger) Window() time.Duration { return l.window }

// Submit records one vote from deviceID on markerID.
//
// The cooldown check is two-tier: the gate answers fast (and, for the Redis
// gate, across replicas), then the ledger's own latest entry is consulted as
// the authority. Marker state is only touched after both pass, and the gate
// is marked only after the whole submission lands, so a failed submission
// never burns the device's window.
func (l *Ledger) Submit(ctx context.Context, markerID id.MarkerID, deviceID string, present bool) (*models.Confirmation, error) {
	if markerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "marker id is required")
	}
	if deviceID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "device id is required")
	}

	now := requestcontext.Now(ctx)

	if l.gate != nil {
		remaining, err := l.gate.Remaining(ctx, markerID, deviceID, now)
		if err != nil {
			// A broken gate must not block voting; the store check below
			// still enforces the window.
			l.logger.WarnContext(ctx, "cooldown gate unavailable, falling back to ledger",
				"marker_id", markerID, "error", err)
		} else if remaining > 0 {
			return nil, l.cooldownActive(remaining)
		}
	}

	latest, err := l.store.FindLatest(ctx, markerID, deviceID)
	switch {
	case err == nil:
		if remaining := latest.CooldownExpiresAt.Sub(now); remaining > 0 {
			return nil, l.cooldownActive(remaining)
		}
	case errors.Is(err, sentinel.ErrNotFound):
		// First vote from this pair.
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check cooldown")
	}

	c, err := models.NewConfirmation(id.NewConfirmationID(), markerID, deviceID, present, now, l.window)
	if err != nil {
		return nil, err
	}

	if _, err := l.markers.RecordConfirmation(ctx, markerID, present, now); err != nil {
		return nil, err
	}

	if err := l.store.Append(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist confirmation")
	}

	if l.gate != nil {
		if err := l.gate.Mark(ctx, markerID, deviceID, l.window, now); err != nil {
			l.logger.WarnContext(ctx, "cooldown gate mark failed",
				"marker_id", markerID, "error", err)
		}
	}

	if l.metrics != nil {
		l.metrics.IncrementSubmitted(present)
	}
	l.logger.InfoContext(ctx, "confirmation recorded",
		"marker_id", markerID,
		"present", present,
	)
	return c, nil
}

// History returns a marker's ledger entries newest-first.
func (l *Ledger) History(ctx context.Context, markerID id.MarkerID) ([]*models.Confirmation, error) {
	if markerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "marker id is required")
	}
	entries, err := l.store.ListByMarker(ctx, markerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list confirmations")
	}
	return entries, nil
}

// CooldownActiveError carries the remaining wait so transports can surface
// retry-after information. Always wrapped in a CodeConflict domain error.
type CooldownActiveError struct {
	Remaining time.Duration
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("cooldown active for another %s", e.Remaining.Round(time.Second))
}

func (l *Ledger) cooldownActive(remaining time.Duration) error {
	if l.metrics != nil {
		l.metrics.IncrementCooldownRejection()
	}
	return dErrors.Wrap(
		&CooldownActiveError{Remaining: remaining},
		dErrors.CodeConflict,
		fmt.Sprintf("cooldown active, retry in %s", remaining.Round(time.Second)),
	)
}
