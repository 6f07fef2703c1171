package cooldown

import (
	"context"
	"sync"
	"time"

	id "deicer/pkg/domain"
)

type pairKey struct {
	markerID id.MarkerID
	deviceID string
}

// InMemoryGate implements Gate with a mutex-guarded expiry map. Expired
// windows are dropped lazily on read and wholesale once per sweep interval.
type InMemoryGate struct {
	mu      sync.Mutex
	windows map[pairKey]time.Time
	// lastSweep throttles full-map cleanup so long-lived processes don't
	// accumulate dead pairs.
	lastSweep time.Time
}

const sweepEvery = 10 * time.Minute

func NewInMemoryGate() *InMemoryGate {
	return &InMemoryGate{windows: make(map[pairKey]time.Time)}
}

func (g *InMemoryGate) Remaining(ctx context.Context, markerID id.MarkerID, deviceID string, now time.Time) (time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.sweep(now)

	key := pairKey{markerID: markerID, deviceID: deviceID}
	expiry, ok := g.windows[key]
	if !ok {
		return 0, nil
	}
	remaining := expiry.Sub(now)
	if remaining <= 0 {
		delete(g.windows, key)
		return 0, nil
	}
	return remaining, nil
}

func (g *InMemoryGate) Mark(ctx context.Context, markerID id.MarkerID, deviceID string, window time.Duration, now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.windows[pairKey{markerID: markerID, deviceID: deviceID}] = now.Add(window)
	return nil
}

// sweep drops expired windows. Must be called holding g.mu.
func (g *InMemoryGate) sweep(now time.Time) {
	if now.Sub(g.lastSweep) < sweepEvery {
		return
	}
	g.lastSweep = now
	for key, expiry := range g.windows {
		if !expiry.After(now) {
			delete(g.windows, key)
		}
	}
}
