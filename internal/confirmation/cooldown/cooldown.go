// Package cooldown gates repeat votes from the same device on the same
// marker. The gate is a fast path in front of the ledger's authoritative
// latest-entry check; a cold gate (process restart, Redis flush) only
// costs one extra store lookup, never a correctness violation.
package cooldown

import (
	"context"
	"time"

	id "deicer/pkg/domain"
)

// Gate tracks per-(marker, device) cooldown windows.
type Gate interface {
	// Remaining returns the time left before the pair may vote again.
	// Zero means no active window is known to the gate.
	Remaining(ctx context.Context, markerID id.MarkerID, deviceID string, now time.Time) (time.Duration, error)
	// Mark opens a new window for the pair after a successful submission.
	Mark(ctx context.Context, markerID id.MarkerID, deviceID string, window time.Duration, now time.Time) error
}
