// Package geo holds the canonical point and polyline types and the
// great-circle math shared by the reconciliation pipeline.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Point is a validated WGS84 coordinate.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// IsValidLat reports whether v is a usable latitude.
func IsValidLat(v float64) bool { return !math.IsNaN(v) && math.Abs(v) <= 90 }

// IsValidLon reports whether v is a usable longitude.
func IsValidLon(v float64) bool { return !math.IsNaN(v) && math.Abs(v) <= 180 }

// Valid reports whether both axes are inside their ranges.
func (p Point) Valid() bool { return IsValidLat(p.Lat) && IsValidLon(p.Lon) }

// NearZero reports whether the point sits on the (0,0) placeholder used for
// missing coordinates.
func (p Point) NearZero() bool {
	return math.Abs(p.Lat) < SentinelEpsilon && math.Abs(p.Lon) < SentinelEpsilon
}

// SentinelEpsilon bounds the "technical" (0,0) placeholder.
const SentinelEpsilon = 1e-4

// LonLat returns the point in provider axis order.
func (p Point) LonLat() [2]float64 { return [2]float64{p.Lon, p.Lat} }

// Orb converts to an orb.Point (x=lon, y=lat).
func (p Point) Orb() orb.Point { return orb.Point{p.Lon, p.Lat} }

// FromOrb converts an orb.Point back.
func FromOrb(op orb.Point) Point { return Point{Lat: op.Lat(), Lon: op.Lon()} }

func (p Point) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Lat, p.Lon)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
