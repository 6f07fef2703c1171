package confirmation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"deicer/internal/marker/models"
	id "deicer/pkg/domain"
	"deicer/pkg/platform/sentinel"
)

type pairKey struct {
	markerID id.MarkerID
	deviceID string
}

// InMemory implements Store with mutex-guarded maps. The latest-entry index
// makes the cooldown lookup O(1) instead of scanning the ledger.
type InMemory struct {
	mu      sync.RWMutex
	entries []*models.Confirmation
	latest  map[pairKey]*models.Confirmation
}

func NewInMemory() *InMemory {
	return &InMemory{latest: make(map[pairKey]*models.Confirmation)}
}

func (s *InMemory) Append(ctx context.Context, c *models.Confirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	s.entries = append(s.entries, &cp)
	s.latest[pairKey{markerID: c.MarkerID, deviceID: c.DeviceID}] = &cp
	return nil
}

func (s *InMemory) FindLatest(ctx context.Context, markerID id.MarkerID, deviceID string) (*models.Confirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.latest[pairKey{markerID: markerID, deviceID: deviceID}]
	if !ok {
		return nil, fmt.Errorf("find latest confirmation for marker %s: %w", markerID, sentinel.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (s *InMemory) ListByMarker(ctx context.Context, markerID id.MarkerID) ([]*models.Confirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Confirmation
	for _, rec := range s.entries {
		if rec.MarkerID == markerID {
			cp := *rec
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ConfirmedAt.After(result[j].ConfirmedAt)
	})
	return result, nil
}

func (s *InMemory) DeleteAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.entries)
	s.entries = nil
	s.latest = make(map[pairKey]*models.Confirmation)
	return count, nil
}
