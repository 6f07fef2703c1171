package monitor

import (
	"context"
	"fmt"

	"deicer/pkg/geo"
)

// StaticProvider serves a fixed coordinate. Server deployments monitor a
// configured area rather than a moving device; mobile hosts inject their
// own provider instead.
type StaticProvider struct {
	Location geo.Coordinate
}

func (p StaticProvider) Authorize(context.Context) error {
	if !p.Location.Valid() {
		return fmt.Errorf("invalid monitor location (%f, %f)", p.Location.Lat, p.Location.Lng)
	}
	return nil
}

func (p StaticProvider) CurrentLocation(context.Context) (geo.Coordinate, error) {
	return p.Location, nil
}
