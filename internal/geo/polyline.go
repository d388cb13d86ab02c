package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
)

// Polyline is an ordered path. It carries no distance below two points.
type Polyline []Point

// LineString converts to orb geometry.
func (l Polyline) LineString() orb.LineString {
	ls := make(orb.LineString, len(l))
	for i, p := range l {
		ls[i] = p.Orb()
	}
	return ls
}

// PolylineFromLineString converts orb geometry back into a Polyline.
func PolylineFromLineString(ls orb.LineString) Polyline {
	out := make(Polyline, len(ls))
	for i, p := range ls {
		out[i] = FromOrb(p)
	}
	return out
}

// Bound returns the bounding box, or nil for an empty polyline.
func (l Polyline) Bound() *orb.Bound {
	if len(l) == 0 {
		return nil
	}
	b := l.LineString().Bound()
	return &b
}

// Clone returns an independent copy.
func (l Polyline) Clone() Polyline {
	if l == nil {
		return nil
	}
	return append(Polyline(nil), l...)
}

// Simplify thins the polyline with Douglas-Peucker; threshold is in degrees.
// Endpoints are always kept.
func (l Polyline) Simplify(threshold float64) Polyline {
	if len(l) < 3 || threshold <= 0 {
		return l.Clone()
	}
	ls := simplify.DouglasPeucker(threshold).LineString(l.LineString())
	return PolylineFromLineString(ls)
}

// Feature wraps the polyline as a GeoJSON feature with the given properties.
func (l Polyline) Feature(props map[string]any) *geojson.Feature {
	f := geojson.NewFeature(l.LineString())
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}
