// Package geo provides great-circle distance math for marker proximity
// queries. Haversine accuracy is sufficient for the 1-50 mile radii this
// system works with; no ellipsoidal correction is applied.
package geo

import "math"

const (
	earthRadiusKm = 6371.0

	// KmPerMile converts between the internal unit (kilometers) and the
	// user-facing unit (miles).
	KmPerMile = 1.609344
)

// Coordinate is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate lies within WGS-84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// DistanceKm returns the haversine great-circle distance between a and b
// in kilometers.
func DistanceKm(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// DistanceMiles returns the haversine distance between a and b in miles.
func DistanceMiles(a, b Coordinate) float64 {
	return DistanceKm(a, b) / KmPerMile
}

// WithinRadiusKm reports whether point lies within radiusKm of center.
// A zero radius passes only exact-location matches.
func WithinRadiusKm(center, point Coordinate, radiusKm float64) bool {
	return DistanceKm(center, point) <= radiusKm
}

// WithinRadiusMiles reports whether point lies within radiusMiles of center.
func WithinRadiusMiles(center, point Coordinate, radiusMiles float64) bool {
	return DistanceMiles(center, point) <= radiusMiles
}

// BoundingBox is an axis-aligned lat/lng region used as a coarse pre-filter
// before the exact haversine cut. It never replaces the exact check.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Contains reports whether c lies inside the box.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lng >= b.MinLng && c.Lng <= b.MaxLng
}

// BoxAround returns a bounding box that fully contains the circle of
// radiusKm around center. Longitude spans widen toward the poles; near the
// poles the box degenerates to the full longitude range, which is safe
// because the box is only a pre-filter.
func BoxAround(center Coordinate, radiusKm float64) BoundingBox {
	latDelta := radiusKm / earthRadiusKm * 180 / math.Pi

	cosLat := math.Cos(center.Lat * math.Pi / 180)
	lngDelta := 180.0
	if cosLat > 1e-6 {
		lngDelta = latDelta / cosLat
	}

	return BoundingBox{
		MinLat: math.Max(center.Lat-latDelta, -90),
		MaxLat: math.Min(center.Lat+latDelta, 90),
		MinLng: math.Max(center.Lng-lngDelta, -180),
		MaxLng: math.Min(center.Lng+lngDelta, 180),
	}
}
