// Package proximity answers "which active markers are near this point",
// ranked nearest-first. It is stateless; each call reads the current active
// set from the marker service.
package proximity

import (
	"context"
	"fmt"
	"sort"

	"deicer/internal/marker/models"
	markerservice "deicer/internal/marker/service"
	id "deicer/pkg/domain"
	dErrors "deicer/pkg/domain-errors"
	"deicer/pkg/geo"
)

// MarkerSource is the slice of the marker service the evaluator reads.
type MarkerSource interface {
	FetchActive(ctx context.Context, filter markerservice.Filter) ([]*models.Marker, error)
}

// Candidate is an ephemeral match produced per evaluation; it is never
// persisted.
type Candidate struct {
	MarkerID      id.MarkerID     `json:"marker_id"`
	Category      models.Category `json:"category"`
	DistanceMiles float64         `json:"distance_miles"`
}

// Evaluator ranks active markers by distance from a query point.
type Evaluator struct {
	markers MarkerSource
}

// New constructs an evaluator over the given marker source.
func New(markers MarkerSource) (*Evaluator, error) {
	if markers == nil {
		return nil, fmt.Errorf("marker source is required")
	}
	return &Evaluator{markers: markers}, nil
}

// Nearby returns active markers within radiusMiles of origin, ascending by
// distance with ties broken newest-first. The store-level bounding box is a
// coarse pre-filter; the haversine cut here is authoritative, so results do
// not depend on which store backs the marker service. An empty slice (not
// an error) means nothing qualifies.
func (e *Evaluator) Nearby(ctx context.Context, origin geo.Coordinate, radiusMiles float64, categories ...models.Category) ([]Candidate, error) {
	if !origin.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid coordinate (%f, %f)", origin.Lat, origin.Lng)
	}
	if radiusMiles < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "radius must be non-negative")
	}

	box := geo.BoxAround(origin, radiusMiles*geo.KmPerMile)
	filter := markerservice.Filter{Box: &box}
	if len(categories) == 1 {
		filter.Category = &categories[0]
	}

	markers, err := e.markers.FetchActive(ctx, filter)
	if err != nil {
		return nil, err
	}

	type scored struct {
		candidate Candidate
		createdAt int64
	}
	matches := make([]scored, 0, len(markers))
	for _, m := range markers {
		if len(categories) > 1 && !containsCategory(categories, m.Category) {
			continue
		}
		d := geo.DistanceMiles(origin, m.Location)
		if d > radiusMiles {
			continue
		}
		matches = append(matches, scored{
			candidate: Candidate{MarkerID: m.ID, Category: m.Category, DistanceMiles: d},
			createdAt: m.CreatedAt.UnixNano(),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].candidate.DistanceMiles != matches[j].candidate.DistanceMiles {
			return matches[i].candidate.DistanceMiles < matches[j].candidate.DistanceMiles
		}
		return matches[i].createdAt > matches[j].createdAt
	})

	result := make([]Candidate, len(matches))
	for i, m := range matches {
		result[i] = m.candidate
	}
	return result, nil
}

func containsCategory(categories []models.Category, c models.Category) bool {
	for _, candidate := range categories {
		if candidate == c {
			return true
		}
	}
	return false
}
