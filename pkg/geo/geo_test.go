package geo

import (
	"math"
	"testing"
)

// Known distance: Philadelphia City Hall to Independence Hall is roughly
// 1.2 km. Philadelphia to New York City is roughly 130 km.
func TestDistanceKm_KnownPairs(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Coordinate
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "philadelphia to nyc",
			a:         Coordinate{Lat: 39.9526, Lng: -75.1652},
			b:         Coordinate{Lat: 40.7128, Lng: -74.0060},
			wantKm:    130.0,
			tolerance: 5.0,
		},
		{
			name:      "one degree of latitude at equator",
			a:         Coordinate{Lat: 0, Lng: 0},
			b:         Coordinate{Lat: 1, Lng: 0},
			wantKm:    111.19,
			tolerance: 0.5,
		},
		{
			name:      "antipodal points",
			a:         Coordinate{Lat: 0, Lng: 0},
			b:         Coordinate{Lat: 0, Lng: 180},
			wantKm:    math.Pi * earthRadiusKm,
			tolerance: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Fatalf("DistanceKm(%v, %v) = %f, want %f ± %f", tt.a, tt.b, got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestDistance_Identity(t *testing.T) {
	points := []Coordinate{
		{Lat: 0, Lng: 0},
		{Lat: 40.0, Lng: -75.0},
		{Lat: -89.9, Lng: 179.9},
	}
	for _, p := range points {
		if d := DistanceKm(p, p); d != 0 {
			t.Fatalf("DistanceKm(%v, %v) = %f, want 0", p, p, d)
		}
	}
}

func TestDistance_Symmetry(t *testing.T) {
	a := Coordinate{Lat: 40.0, Lng: -75.0}
	b := Coordinate{Lat: 51.5, Lng: -0.12}
	if DistanceKm(a, b) != DistanceKm(b, a) {
		t.Fatalf("distance is not symmetric: %f vs %f", DistanceKm(a, b), DistanceKm(b, a))
	}
}

func TestWithinRadius(t *testing.T) {
	center := Coordinate{Lat: 40.0, Lng: -75.0}
	near := Coordinate{Lat: 40.001, Lng: -75.001}

	if !WithinRadiusKm(center, near, 1.0) {
		t.Fatal("expected point ~150m away to be within 1km")
	}
	if WithinRadiusKm(center, near, 0.05) {
		t.Fatal("expected point ~150m away to be outside 50m")
	}

	t.Run("zero radius passes only exact matches", func(t *testing.T) {
		if !WithinRadiusKm(center, center, 0) {
			t.Fatal("identical points must pass a zero radius")
		}
		if WithinRadiusKm(center, near, 0) {
			t.Fatal("distinct points must fail a zero radius")
		}
	})

	t.Run("monotonic in radius", func(t *testing.T) {
		d := DistanceKm(center, near)
		for _, r := range []float64{d, d * 2, d * 10} {
			if !WithinRadiusKm(center, near, r) {
				t.Fatalf("point at %f km must be within radius %f", d, r)
			}
		}
	})
}

func TestUnitsRoundTrip(t *testing.T) {
	a := Coordinate{Lat: 40.0, Lng: -75.0}
	b := Coordinate{Lat: 40.1, Lng: -75.1}
	km := DistanceKm(a, b)
	mi := DistanceMiles(a, b)
	if math.Abs(km-mi*KmPerMile) > 1e-9 {
		t.Fatalf("unit conversion mismatch: %f km vs %f mi", km, mi)
	}
}

func TestBoxAround_ContainsCircle(t *testing.T) {
	center := Coordinate{Lat: 40.0, Lng: -75.0}
	const radiusKm = 10.0
	box := BoxAround(center, radiusKm)

	// Points just inside the circle must be inside the box.
	offsets := []Coordinate{
		{Lat: 40.089, Lng: -75.0},  // ~9.9 km north
		{Lat: 39.911, Lng: -75.0},  // ~9.9 km south
		{Lat: 40.0, Lng: -74.884},  // ~9.9 km east
		{Lat: 40.0, Lng: -75.116},  // ~9.9 km west
	}
	for _, p := range offsets {
		if DistanceKm(center, p) > radiusKm {
			continue // guard against a sloppy fixture
		}
		if !box.Contains(p) {
			t.Fatalf("box %+v must contain in-circle point %v", box, p)
		}
	}
}

func TestBoxAround_NearPole(t *testing.T) {
	box := BoxAround(Coordinate{Lat: 89.99, Lng: 0}, 50)
	if box.MinLng != -180 || box.MaxLng != 180 {
		t.Fatalf("near-pole box should span all longitudes, got %+v", box)
	}
	if box.MaxLat != 90 {
		t.Fatalf("near-pole box must clamp latitude to 90, got %f", box.MaxLat)
	}
}
