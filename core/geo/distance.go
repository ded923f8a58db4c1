package geo

import "math"

const EarthRadiusKm = 6371.0

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) Valid() bool {
	return ValidLat(p.Lat) && ValidLng(p.Lng)
}

func ValidLat(v float64) bool {
	return !math.IsNaN(v) && v >= -90 && v <= 90
}

func ValidLng(v float64) bool {
	return !math.IsNaN(v) && v >= -180 && v <= 180
}

// DistanceKm is the haversine great-circle distance. The intermediate term is
// clamped to [0,1] so rounding near antipodal points cannot produce NaN.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	if lat1 == lat2 && lng1 == lng2 {
		return 0
	}
	dLat := deg2rad(lat2 - lat1)
	dLng := deg2rad(lng2 - lng1)
	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	a := sinLat*sinLat + math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*sinLng*sinLng
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func Distance(a, b Point) float64 {
	return DistanceKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

func Within(viewer, target Point, radiusKm float64) bool {
	return Distance(viewer, target) <= radiusKm
}

func deg2rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}
