package models

import "time"

// ScoringConfig parameterizes the reliability algorithm. The shape is the
// contract (bounded score, positive/negative steps, time decay, threshold
// deactivation); the numbers are tunables with the defaults below.
type ScoringConfig struct {
	// MinScore and MaxScore bound the reliability score.
	MinScore float64
	MaxScore float64
	// Baseline is the neutral score assigned at creation.
	Baseline float64
	// PositiveStep is added per positive confirmation.
	PositiveStep float64
	// NegativeStep is subtracted per "not present" report. Larger than
	// PositiveStep so disputes outweigh drive-by confirmations.
	NegativeStep float64
	// DecayGrace is how long after the last confirmation the score holds
	// steady before passive decay starts.
	DecayGrace time.Duration
	// DecayPerInterval points are subtracted per DecayInterval elapsed
	// beyond the grace period, applied at recompute time.
	DecayPerInterval float64
	DecayInterval    time.Duration
	// DeactivateBelow flips a marker inactive once the score reaches or
	// falls below it.
	DeactivateBelow float64
	// NegativeMargin deactivates a marker once negative confirmations
	// exceed positives by this many, regardless of score.
	NegativeMargin int
}

// DefaultScoringConfig returns the documented defaults.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		MinScore:         0,
		MaxScore:         100,
		Baseline:         50,
		PositiveStep:     10,
		NegativeStep:     15,
		DecayGrace:       time.Hour,
		DecayPerInterval: 1,
		DecayInterval:    30 * time.Minute,
		DeactivateBelow:  10,
		NegativeMargin:   3,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
