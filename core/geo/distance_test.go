package geo

import (
	"math"
	"testing"
)

func TestDistanceCoincidentIsZero(t *testing.T) {
	points := []Point{{0, 0}, {12.97, 77.59}, {-90, 180}, {90, -180}, {-33.86, 151.2}}
	for _, p := range points {
		if d := DistanceKm(p.Lat, p.Lng, p.Lat, p.Lng); d != 0 {
			t.Fatalf("expected 0 for %v, got %v", p, d)
		}
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a := Point{12.97, 77.59}
	b := Point{13.08, 80.27}
	if Distance(a, b) != Distance(b, a) {
		t.Fatalf("distance not symmetric: %v vs %v", Distance(a, b), Distance(b, a))
	}
}

func TestDistanceAntipodal(t *testing.T) {
	cases := [][2]Point{
		{{0, 0}, {0, 180}},
		{{90, 0}, {-90, 0}},
		{{45, 30}, {-45, -150}},
	}
	half := math.Pi * EarthRadiusKm
	for _, c := range cases {
		d := Distance(c[0], c[1])
		if math.IsNaN(d) {
			t.Fatalf("NaN for %v", c)
		}
		if math.Abs(d-half) > 0.01 {
			t.Fatalf("expected ~%v km for %v, got %v", half, c, d)
		}
	}
}

func TestDistanceKnownPair(t *testing.T) {
	// Bengaluru to Chennai is roughly 290 km as the crow flies.
	d := DistanceKm(12.9716, 77.5946, 13.0827, 80.2707)
	if d < 280 || d > 300 {
		t.Fatalf("unexpected distance %v", d)
	}
}

func TestWithinRadius(t *testing.T) {
	viewer := Point{12.97, 77.59}
	near := Point{13.0, 77.6}
	far := Point{13.2, 77.59}
	if !Within(viewer, near, 10) {
		t.Fatalf("expected near point within 10km")
	}
	if Within(viewer, far, 10) {
		t.Fatalf("expected far point outside 10km")
	}
}

func TestPointValid(t *testing.T) {
	if (Point{91, 0}).Valid() || (Point{0, -181}).Valid() || (Point{math.NaN(), 0}).Valid() {
		t.Fatalf("expected invalid points to fail")
	}
	if !(Point{-90, 180}).Valid() {
		t.Fatalf("boundary point should be valid")
	}
}
