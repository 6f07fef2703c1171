// Package confirmation provides the append-only persistence layer for
// confirmation ledger entries. Entries are never updated; they disappear
// only when their marker is physically deleted.
package confirmation

import (
	"context"

	"deicer/internal/marker/models"
	id "deicer/pkg/domain"
)

// Store is the confirmation ledger persistence port.
type Store interface {
	Append(ctx context.Context, c *models.Confirmation) error
	// FindLatest returns the most recent entry for (marker, device), or
	// sentinel.ErrNotFound when the pair has never voted.
	FindLatest(ctx context.Context, markerID id.MarkerID, deviceID string) (*models.Confirmation, error)
	// ListByMarker returns a marker's entries newest-first.
	ListByMarker(ctx context.Context, markerID id.MarkerID) ([]*models.Confirmation, error)
	// DeleteAll removes every entry. Administrative clear only.
	DeleteAll(ctx context.Context) (int, error)
}
