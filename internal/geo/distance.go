package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for all distance estimates.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in kilometers.
func HaversineKm(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// PathKm sums the Haversine distance over consecutive points, unrounded.
func PathKm(pts []Point) float64 {
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += HaversineKm(pts[i-1], pts[i])
	}
	return total
}

// DistanceKm is the total polyline length rounded to one decimal.
// Fewer than two points yields 0.
func DistanceKm(line Polyline) float64 {
	if len(line) < 2 {
		return 0
	}
	return Round(PathKm(line), 1)
}
