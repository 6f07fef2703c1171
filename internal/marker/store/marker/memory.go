package marker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"deicer/internal/marker/models"
	id "deicer/pkg/domain"
	"deicer/pkg/platform/sentinel"
)

// InMemory implements Store with a mutex-guarded map. Used in tests and in
// single-process deployments without Postgres. Records are cloned on the way
// in and out so callers never share state with the store.
type InMemory struct {
	mu      sync.RWMutex
	markers map[id.MarkerID]*models.Marker
}

func NewInMemory() *InMemory {
	return &InMemory{markers: make(map[id.MarkerID]*models.Marker)}
}

func (s *InMemory) Create(ctx context.Context, m *models.Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.markers[m.ID]; exists {
		return fmt.Errorf("create marker %s: %w", m.ID, sentinel.ErrConflict)
	}
	rec := m.Clone()
	rec.Version = 1
	s.markers[m.ID] = rec
	m.Version = rec.Version
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, markerID id.MarkerID) (*models.Marker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.markers[markerID]
	if !ok {
		return nil, fmt.Errorf("find marker %s: %w", markerID, sentinel.ErrNotFound)
	}
	return rec.Clone(), nil
}

func (s *InMemory) ListActive(ctx context.Context, filter Filter) ([]*models.Marker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Marker, 0, len(s.markers))
	for _, rec := range s.markers {
		if !rec.Active {
			continue
		}
		if filter.Category != nil && rec.Category != *filter.Category {
			continue
		}
		if filter.Box != nil && !filter.Box.Contains(rec.Location) {
			continue
		}
		result = append(result, rec.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Update writes m back conditionally on its version, mirroring the Postgres
// store's optimistic concurrency so services behave identically over both.
func (s *InMemory) Update(ctx context.Context, m *models.Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.markers[m.ID]
	if !ok {
		return fmt.Errorf("update marker %s: %w", m.ID, sentinel.ErrNotFound)
	}
	if rec.Version != m.Version {
		return fmt.Errorf("update marker %s: version %d moved: %w", m.ID, m.Version, sentinel.ErrConflict)
	}
	next := m.Clone()
	next.Version = rec.Version + 1
	s.markers[m.ID] = next
	m.Version = next.Version
	return nil
}

func (s *InMemory) DeactivateStale(ctx context.Context, cutoff, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, rec := range s.markers {
		if !rec.Active {
			continue
		}
		since := rec.LastConfirmedAt
		if since.IsZero() {
			since = rec.CreatedAt
		}
		if since.Before(cutoff) {
			rec.ApplyDeactivation(now)
			rec.Version++
			count++
		}
	}
	return count, nil
}

func (s *InMemory) DeleteAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.markers)
	s.markers = make(map[id.MarkerID]*models.Marker)
	return count, nil
}
