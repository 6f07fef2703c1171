package models

import (
	"time"

	id "deicer/pkg/domain"
	dErrors "deicer/pkg/domain-errors"
	"deicer/pkg/geo"
)

// Marker is the aggregate root for a community-reported location marker.
//
// Invariants:
//   - Category is a member of the closed set (ice, observer)
//   - Location is within WGS-84 bounds and immutable after creation
//   - ReliabilityScore stays within the configured [min, max] range
//   - Confirmations and NegativeConfirmations never decrease
//   - Active flips false exactly once per deactivation (score threshold,
//     negative margin, or staleness sweep); LastStatusChangeAt tracks it
//   - CreatedAt is immutable after construction
//
// The marker service is the only writer of Active, the score, and the
// counters. The confirmation ledger reaches them exclusively through
// the service's RecordConfirmation, preserving single-writer discipline.
type Marker struct {
	ID                    id.MarkerID    `json:"id"`
	Category              Category       `json:"category"`
	Location              geo.Coordinate `json:"location"`
	Description           string         `json:"description,omitempty"`
	ImageRef              string         `json:"image_ref,omitempty"`
	Active                bool           `json:"active"`
	Confirmations         int            `json:"confirmations_count"`
	NegativeConfirmations int            `json:"negative_confirmations"`
	ReliabilityScore      float64        `json:"reliability_score"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	// LastConfirmedAt is zero until the first positive confirmation.
	LastConfirmedAt    time.Time `json:"last_confirmed_at,omitempty"`
	LastStatusChangeAt time.Time `json:"last_status_change_at"`
	// Version guards read-modify-write cycles in the Postgres store.
	// Conditional updates fail when it has moved underneath the writer.
	Version int64 `json:"-"`
}

// NewMarker constructs an active marker with a neutral reliability score.
func NewMarker(markerID id.MarkerID, category Category, location geo.Coordinate, description, imageRef string, cfg ScoringConfig, now time.Time) (*Marker, error) {
	if !category.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid category %q", category)
	}
	if !location.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid coordinate (%f, %f)", location.Lat, location.Lng)
	}
	return &Marker{
		ID:                 markerID,
		Category:           category,
		Location:           location,
		Description:        description,
		ImageRef:           imageRef,
		Active:             true,
		ReliabilityScore:   cfg.Baseline,
		CreatedAt:          now,
		UpdatedAt:          now,
		LastStatusChangeAt: now,
	}, nil
}

// CanConfirm checks that the marker is still accepting confirmations.
func (m *Marker) CanConfirm() error {
	if !m.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "marker is inactive")
	}
	return nil
}

// ApplyConfirmation records one confirmation outcome and recomputes the
// reliability score: passive decay first, then the signed step, clamped to
// the configured range. Deactivates the marker when the score reaches the
// threshold or negatives outnumber positives by the configured margin.
// Call CanConfirm first.
func (m *Marker) ApplyConfirmation(present bool, now time.Time, cfg ScoringConfig) {
	score := m.ReliabilityScore - m.decay(now, cfg)

	if present {
		m.Confirmations++
		m.LastConfirmedAt = now
		score += cfg.PositiveStep
	} else {
		m.NegativeConfirmations++
		score -= cfg.NegativeStep
	}

	m.ReliabilityScore = clamp(score, cfg.MinScore, cfg.MaxScore)
	m.UpdatedAt = now

	if m.ReliabilityScore <= cfg.DeactivateBelow ||
		m.NegativeConfirmations-m.Confirmations >= cfg.NegativeMargin {
		m.applyStatusChange(false, now)
	}
}

// decay returns the passive score reduction accrued since the previous
// recompute. Intervals are counted from the last confirmation (or creation,
// if never confirmed) beyond the grace period; intervals already charged by
// the recompute at UpdatedAt are excluded, so back-to-back disputes do not
// re-subtract the same idle time.
func (m *Marker) decay(now time.Time, cfg ScoringConfig) float64 {
	if cfg.DecayInterval <= 0 {
		return 0
	}
	since := m.LastConfirmedAt
	if since.IsZero() {
		since = m.CreatedAt
	}
	pending := decayIntervals(since, now, cfg) - decayIntervals(since, m.UpdatedAt, cfg)
	if pending <= 0 {
		return 0
	}
	return float64(pending) * cfg.DecayPerInterval
}

func decayIntervals(since, until time.Time, cfg ScoringConfig) int64 {
	elapsed := until.Sub(since) - cfg.DecayGrace
	if elapsed <= 0 {
		return 0
	}
	return int64(elapsed / cfg.DecayInterval)
}

// IsStale reports whether the marker has gone unconfirmed past maxAge. A
// never-confirmed marker ages from its creation time.
func (m *Marker) IsStale(now time.Time, maxAge time.Duration) bool {
	since := m.LastConfirmedAt
	if since.IsZero() {
		since = m.CreatedAt
	}
	return now.Sub(since) > maxAge
}

// ApplyDeactivation flips the marker inactive. No-op when already inactive,
// keeping the staleness sweep idempotent.
func (m *Marker) ApplyDeactivation(now time.Time) {
	if !m.Active {
		return
	}
	m.applyStatusChange(false, now)
	m.UpdatedAt = now
}

func (m *Marker) applyStatusChange(active bool, now time.Time) {
	if m.Active == active {
		return
	}
	m.Active = active
	m.LastStatusChangeAt = now
}

// Clone returns a deep copy so stores can hand out snapshots without
// exposing their internal records to mutation.
func (m *Marker) Clone() *Marker {
	cp := *m
	return &cp
}
