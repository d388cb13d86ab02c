// Package reconcile turns raw, partially trusted points into canonical
// route points: shape extraction, axis-order resolution and deduplication.
package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPoint means no coordinate shape could be extracted.
	ErrMalformedPoint = errors.New("malformed point")
	// ErrUnresolvableCoordinates means neither axis reading is in range and
	// no trusted coordinates exist for the point.
	ErrUnresolvableCoordinates = errors.New("unresolvable coordinates")
	// ErrMissingCoordinate means the point sits on the (0,0) placeholder.
	ErrMissingCoordinate = errors.New("missing coordinate placeholder")
)

// AxisOrder is the reading tried first for an ambiguous pair.
type AxisOrder int

const (
	LatLon AxisOrder = iota
	LonLat
)

func (o AxisOrder) String() string {
	if o == LonLat {
		return "lon,lat"
	}
	return "lat,lon"
}

// Candidate is an extracted but not yet range-checked pair.
type Candidate struct {
	ID    string
	Title string
	A, B  float64
	Order AxisOrder
	// Shape names the extraction that produced the pair.
	Shape string
}

type extraction struct {
	shape string
	fn    func(RawPoint) (float64, float64, bool)
}

func fieldPair(x, y string) func(RawPoint) (float64, float64, bool) {
	return func(r RawPoint) (float64, float64, bool) {
		if r.obj == nil {
			return 0, 0, false
		}
		a, ok1 := asFinite(r.obj[x])
		b, ok2 := asFinite(r.obj[y])
		return a, b, ok1 && ok2
	}
}

func sliceFinitePair(v any) (float64, float64, bool) {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case []float64:
		items = []any{}
		for _, f := range t {
			items = append(items, f)
		}
	default:
		return 0, 0, false
	}
	if len(items) < 2 {
		return 0, 0, false
	}
	a, ok1 := asFinite(items[0])
	b, ok2 := asFinite(items[1])
	return a, b, ok1 && ok2
}

// extractions in priority order; the first yielding two finite numbers wins.
var extractions = []extraction{
	{"latitude/longitude", fieldPair("latitude", "longitude")},
	{"lat/lon", fieldPair("lat", "lon")},
	{"lat/lng", fieldPair("lat", "lng")},
	{"pair", func(r RawPoint) (float64, float64, bool) {
		if r.arr == nil || len(r.arr) != 2 {
			return 0, 0, false
		}
		return sliceFinitePair(r.arr)
	}},
	{"coordinates", func(r RawPoint) (float64, float64, bool) {
		if r.obj == nil {
			return 0, 0, false
		}
		return sliceFinitePair(r.obj["coordinates"])
	}},
}

// Normalize extracts a coordinate pair from a raw point without validating
// ranges. All shapes are read lat-first; the resolver decides the final order.
func Normalize(raw RawPoint) (Candidate, error) {
	for _, ex := range extractions {
		a, b, ok := ex.fn(raw)
		if !ok {
			continue
		}
		return Candidate{
			ID:    raw.ID(),
			Title: raw.Title(),
			A:     a,
			B:     b,
			Order: LatLon,
			Shape: ex.shape,
		}, nil
	}
	return Candidate{ID: raw.ID(), Title: raw.Title()}, fmt.Errorf("%w: no coordinate shape matched", ErrMalformedPoint)
}
