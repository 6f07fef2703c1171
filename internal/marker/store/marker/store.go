// Package marker provides the persistence layer for marker records.
// Stores are pure I/O; reliability rules live in the service.
package marker

import (
	"context"
	"time"

	"deicer/internal/marker/models"
	id "deicer/pkg/domain"
	"deicer/pkg/geo"
)

// Filter narrows ListActive results. Nil fields mean "no constraint".
// The bounding box is a coarse pre-filter only; callers that need an exact
// radius apply the haversine cut on the result.
type Filter struct {
	Category *models.Category
	Box      *geo.BoundingBox
}

// Store is the marker persistence port.
//
// Update is conditional on Marker.Version: implementations must reject the
// write with sentinel.ErrConflict when the stored version has moved, so the
// service's read-modify-write of the reliability score stays correct under
// concurrent confirmations.
type Store interface {
	Create(ctx context.Context, m *models.Marker) error
	FindByID(ctx context.Context, markerID id.MarkerID) (*models.Marker, error)
	// ListActive returns active markers newest-first.
	ListActive(ctx context.Context, filter Filter) ([]*models.Marker, error)
	Update(ctx context.Context, m *models.Marker) error
	// DeactivateStale flips active=false on markers whose last confirmation
	// (or creation, if never confirmed) precedes cutoff. Returns the number
	// deactivated; running twice with the same cutoff deactivates nothing
	// the second time.
	DeactivateStale(ctx context.Context, cutoff, now time.Time) (int, error)
	// DeleteAll physically removes every marker. Dependent confirmations
	// are removed alongside (cascade in Postgres, caller-coordinated in
	// memory). Administrative use only.
	DeleteAll(ctx context.Context) (int, error)
}
