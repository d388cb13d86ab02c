package reconcile

import (
	"context"
	"fmt"

	"tripnav/internal/geo"
)

// Registry is the read-only source of trusted coordinates, keyed by point id.
type Registry interface {
	Lookup(ctx context.Context, id string) (geo.Point, bool)
}

// Resolution is the outcome of axis resolution for one candidate.
type Resolution struct {
	Point        geo.Point
	Swapped      bool
	Ambiguous    bool
	FromRegistry bool
}

// Resolver decides the axis order of candidate pairs.
type Resolver struct {
	registry Registry
}

// NewResolver returns a resolver; registry may be nil.
func NewResolver(registry Registry) *Resolver {
	return &Resolver{registry: registry}
}

func (r *Resolver) lookup(ctx context.Context, id string) (geo.Point, bool) {
	if r == nil || r.registry == nil || id == "" {
		return geo.Point{}, false
	}
	p, ok := r.registry.Lookup(ctx, id)
	if !ok || !p.Valid() || p.NearZero() {
		return geo.Point{}, false
	}
	return p, true
}

// Resolve applies, in order: preferred reading in range, swapped reading in
// range, registry substitution, rejection. A result on the (0,0) placeholder
// is replaced from the registry or rejected.
func (r *Resolver) Resolve(ctx context.Context, c Candidate) (Resolution, error) {
	pref := geo.Point{Lat: c.A, Lon: c.B}
	alt := geo.Point{Lat: c.B, Lon: c.A}
	if c.Order == LonLat {
		pref, alt = alt, pref
	}
	prefOK, altOK := pref.Valid(), alt.Valid()

	var res Resolution
	switch {
	case prefOK && altOK && pref != alt:
		res = Resolution{Point: pref, Ambiguous: true}
		if trusted, ok := r.lookup(ctx, c.ID); ok {
			res.Ambiguous = false
			if geo.HaversineKm(alt, trusted) < geo.HaversineKm(pref, trusted) {
				res.Point = alt
				res.Swapped = true
			}
		}
	case prefOK:
		res = Resolution{Point: pref}
	case altOK:
		res = Resolution{Point: alt, Swapped: true}
	default:
		trusted, ok := r.lookup(ctx, c.ID)
		if !ok {
			return Resolution{}, fmt.Errorf("%w: (%v, %v)", ErrUnresolvableCoordinates, c.A, c.B)
		}
		return Resolution{Point: trusted, FromRegistry: true}, nil
	}

	if res.Point.NearZero() {
		trusted, ok := r.lookup(ctx, c.ID)
		if !ok {
			return Resolution{}, fmt.Errorf("%w: %s", ErrMissingCoordinate, res.Point)
		}
		return Resolution{Point: trusted, FromRegistry: true}, nil
	}
	return res, nil
}

// ResolvePair resolves a bare pair without an identifier.
func (r *Resolver) ResolvePair(ctx context.Context, a, b float64, order AxisOrder) (geo.Point, error) {
	res, err := r.Resolve(ctx, Candidate{A: a, B: b, Order: order})
	if err != nil {
		return geo.Point{}, err
	}
	return res.Point, nil
}
