package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "deicer/pkg/domain"
	dErrors "deicer/pkg/domain-errors"
	"deicer/pkg/geo"
)

var testLoc = geo.Coordinate{Lat: 40.0, Lng: -75.0}

func newTestMarker(t *testing.T, now time.Time) *Marker {
	t.Helper()
	m, err := NewMarker(id.NewMarkerID(), CategoryIce, testLoc, "corner of 5th", "", DefaultScoringConfig(), now)
	require.NoError(t, err)
	return m
}

func TestNewMarker_Validation(t *testing.T) {
	now := time.Now()
	cfg := DefaultScoringConfig()

	t.Run("rejects unknown category", func(t *testing.T) {
		_, err := NewMarker(id.NewMarkerID(), Category("drone"), testLoc, "", "", cfg, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects out-of-range latitude", func(t *testing.T) {
		_, err := NewMarker(id.NewMarkerID(), CategoryIce, geo.Coordinate{Lat: 91, Lng: 0}, "", "", cfg, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects out-of-range longitude", func(t *testing.T) {
		_, err := NewMarker(id.NewMarkerID(), CategoryObserver, geo.Coordinate{Lat: 0, Lng: -181}, "", "", cfg, now)
		require.Error(t, err)
	})

	t.Run("starts active at baseline", func(t *testing.T) {
		m := newTestMarker(t, now)
		assert.True(t, m.Active)
		assert.Equal(t, cfg.Baseline, m.ReliabilityScore)
		assert.Zero(t, m.Confirmations)
		assert.Zero(t, m.NegativeConfirmations)
		assert.True(t, m.LastConfirmedAt.IsZero())
	})
}

func TestApplyConfirmation_Positive(t *testing.T) {
	now := time.Now()
	cfg := DefaultScoringConfig()
	m := newTestMarker(t, now)

	m.ApplyConfirmation(true, now.Add(time.Minute), cfg)

	assert.Equal(t, 1, m.Confirmations)
	assert.Equal(t, cfg.Baseline+cfg.PositiveStep, m.ReliabilityScore)
	assert.True(t, m.Active)
	assert.Equal(t, now.Add(time.Minute), m.LastConfirmedAt)
}

func TestApplyConfirmation_ScoreBounds(t *testing.T) {
	now := time.Now()
	cfg := DefaultScoringConfig()

	t.Run("never exceeds max", func(t *testing.T) {
		m := newTestMarker(t, now)
		for i := 0; i < 50; i++ {
			m.ApplyConfirmation(true, now.Add(time.Duration(i)*time.Minute), cfg)
		}
		assert.Equal(t, cfg.MaxScore, m.ReliabilityScore)
		assert.Equal(t, 50, m.Confirmations)
	})

	t.Run("never falls below min", func(t *testing.T) {
		m := newTestMarker(t, now)
		for i := 0; i < 50; i++ {
			m.ApplyConfirmation(false, now.Add(time.Duration(i)*time.Minute), cfg)
		}
		assert.Equal(t, cfg.MinScore, m.ReliabilityScore)
	})
}

func TestApplyConfirmation_DeactivatesAtThreshold(t *testing.T) {
	now := time.Now()
	cfg := DefaultScoringConfig()
	m := newTestMarker(t, now)

	// 50 baseline, -15 per dispute: the third dispute lands at 5 <= 10.
	for i := 1; i <= 3; i++ {
		m.ApplyConfirmation(false, now.Add(time.Duration(i)*time.Minute), cfg)
	}
	assert.False(t, m.Active)
	assert.Equal(t, 3, m.NegativeConfirmations)
	assert.Equal(t, 5.0, m.ReliabilityScore)
}

func TestApplyConfirmation_NegativeMargin(t *testing.T) {
	now := time.Now()
	cfg := DefaultScoringConfig()
	cfg.NegativeStep = 1 // score alone will not cross the threshold
	m := newTestMarker(t, now)

	for i := 1; i <= cfg.NegativeMargin; i++ {
		m.ApplyConfirmation(false, now.Add(time.Duration(i)*time.Minute), cfg)
	}

	assert.False(t, m.Active, "negative margin must deactivate even with a healthy score")
	assert.Equal(t, now.Add(time.Duration(cfg.NegativeMargin)*time.Minute), m.LastStatusChangeAt)
}

func TestApplyConfirmation_TimeDecay(t *testing.T) {
	now := time.Now()
	cfg := DefaultScoringConfig()
	m := newTestMarker(t, now)

	// Confirm once so LastConfirmedAt is set, then let it sit well past the
	// grace period before the next confirmation.
	m.ApplyConfirmation(true, now, cfg)
	scoreAfterFirst := m.ReliabilityScore

	idle := cfg.DecayGrace + 4*cfg.DecayInterval
	m.ApplyConfirmation(true, now.Add(idle), cfg)

	expected := scoreAfterFirst - 4*cfg.DecayPerInterval + cfg.PositiveStep
	assert.InDelta(t, expected, m.ReliabilityScore, 1e-9)
}

func TestApplyConfirmation_DecayChargedOnce(t *testing.T) {
	now := time.Now()
	cfg := DefaultScoringConfig()
	cfg.NegativeMargin = 10 // keep the marker active across repeated disputes
	m := newTestMarker(t, now)

	// Disputes never advance LastConfirmedAt, so the idle span measured
	// from creation stays the same across recomputes. The decay already
	// subtracted by the first dispute must not be subtracted again.
	idle := cfg.DecayGrace + 2*cfg.DecayInterval
	m.ApplyConfirmation(false, now.Add(idle), cfg)
	expected := cfg.Baseline - 2*cfg.DecayPerInterval - cfg.NegativeStep
	assert.InDelta(t, expected, m.ReliabilityScore, 1e-9)

	m.ApplyConfirmation(false, now.Add(idle).Add(time.Minute), cfg)
	expected -= cfg.NegativeStep
	assert.InDelta(t, expected, m.ReliabilityScore, 1e-9)

	// Once more idle time passes, only the newly elapsed intervals count.
	m.ApplyConfirmation(false, now.Add(idle).Add(cfg.DecayInterval+time.Minute), cfg)
	expected -= cfg.DecayPerInterval + cfg.NegativeStep
	assert.InDelta(t, expected, m.ReliabilityScore, 1e-9)
}

func TestApplyConfirmation_NoDecayWithinGrace(t *testing.T) {
	now := time.Now()
	cfg := DefaultScoringConfig()
	m := newTestMarker(t, now)

	m.ApplyConfirmation(true, now, cfg)
	before := m.ReliabilityScore
	m.ApplyConfirmation(true, now.Add(cfg.DecayGrace/2), cfg)

	assert.Equal(t, before+cfg.PositiveStep, m.ReliabilityScore)
}

func TestIsStale(t *testing.T) {
	now := time.Now()
	maxAge := 8 * time.Hour
	m := newTestMarker(t, now)

	t.Run("never-confirmed marker ages from creation", func(t *testing.T) {
		assert.False(t, m.IsStale(now.Add(maxAge), maxAge))
		assert.True(t, m.IsStale(now.Add(maxAge+time.Second), maxAge))
	})

	t.Run("confirmation resets the clock", func(t *testing.T) {
		m2 := newTestMarker(t, now)
		confirmedAt := now.Add(2 * time.Hour)
		m2.ApplyConfirmation(true, confirmedAt, DefaultScoringConfig())
		assert.False(t, m2.IsStale(now.Add(maxAge+time.Hour), maxAge))
		assert.True(t, m2.IsStale(confirmedAt.Add(maxAge+time.Second), maxAge))
	})
}

func TestApplyDeactivation_Idempotent(t *testing.T) {
	now := time.Now()
	m := newTestMarker(t, now)

	m.ApplyDeactivation(now.Add(time.Hour))
	firstChange := m.LastStatusChangeAt
	m.ApplyDeactivation(now.Add(2 * time.Hour))

	assert.False(t, m.Active)
	assert.Equal(t, firstChange, m.LastStatusChangeAt, "second deactivation must not move the status timestamp")
}

func TestCanConfirm(t *testing.T) {
	now := time.Now()
	m := newTestMarker(t, now)
	require.NoError(t, m.CanConfirm())

	m.ApplyDeactivation(now)
	err := m.CanConfirm()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestParseCategory(t *testing.T) {
	for _, valid := range []string{"ice", "observer"} {
		c, err := ParseCategory(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, c.String())
	}
	_, err := ParseCategory("ICE")
	require.Error(t, err, "categories are case-sensitive at the boundary")
}
