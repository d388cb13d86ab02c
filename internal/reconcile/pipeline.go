package reconcile

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"tripnav/internal/geo"
	"tripnav/internal/model"
)

// Rejection records a point excluded from the pipeline.
type Rejection struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// ReasonOf maps a per-point error to a short, stable label.
func ReasonOf(err error) string {
	switch {
	case errors.Is(err, ErrMalformedPoint):
		return "malformed_point"
	case errors.Is(err, ErrMissingCoordinate):
		return "missing_coordinate"
	case errors.Is(err, ErrUnresolvableCoordinates):
		return "unresolvable_coordinates"
	default:
		return "unknown"
	}
}

// Result is the reconciled point set.
type Result struct {
	Points     []model.RoutePoint
	Rejected   []Rejection
	Duplicates int
}

// Reconciler runs normalize -> resolve -> dedup over an ordered batch.
type Reconciler struct {
	resolver *Resolver
}

// NewReconciler returns a reconciler backed by the given registry (may be nil).
func NewReconciler(registry Registry) *Reconciler {
	return &Reconciler{resolver: NewResolver(registry)}
}

// Resolver exposes the underlying axis resolver.
func (rc *Reconciler) Resolver() *Resolver { return rc.resolver }

// Point reconciles a single raw point.
func (rc *Reconciler) Point(ctx context.Context, raw RawPoint) (model.RoutePoint, error) {
	c, err := Normalize(raw)
	if err != nil {
		return model.RoutePoint{}, err
	}
	res, err := rc.resolver.Resolve(ctx, c)
	if err != nil {
		return model.RoutePoint{}, err
	}
	return model.RoutePoint{
		ID:        c.ID,
		Title:     c.Title,
		Lat:       res.Point.Lat,
		Lon:       res.Point.Lon,
		Ambiguous: res.Ambiguous,
	}, nil
}

// Run reconciles raws in order. Per-point failures are recorded, never fatal.
// Surviving points are deduplicated and re-indexed from 0.
func (rc *Reconciler) Run(ctx context.Context, raws []RawPoint) Result {
	var out Result
	pts := make([]model.RoutePoint, 0, len(raws))
	for i, raw := range raws {
		p, err := rc.Point(ctx, raw)
		if err != nil {
			out.Rejected = append(out.Rejected, Rejection{Index: i, ID: raw.ID(), Reason: ReasonOf(err), Err: err})
			continue
		}
		pts = append(pts, p)
	}
	deduped := DedupPoints(pts)
	out.Duplicates = len(pts) - len(deduped)
	for i := range deduped {
		deduped[i].OrderIndex = i
	}
	out.Points = deduped
	return out
}

// Polyline projects route points onto their coordinates.
func Polyline(points []model.RoutePoint) geo.Polyline {
	line := make(geo.Polyline, len(points))
	for i, p := range points {
		line[i] = geo.Point{Lat: p.Lat, Lon: p.Lon}
	}
	return line
}

var placeholderTitle = regexp.MustCompile(`^(точка|point)\s*\d+$`)

// InvalidFavorites flags placeholder titles and unusable coordinates.
func InvalidFavorites(favs []model.Favorite) []model.InvalidFavorite {
	var out []model.InvalidFavorite
	for _, f := range favs {
		p := geo.Point{Lat: f.Lat, Lon: f.Lon}
		switch {
		case placeholderTitle.MatchString(strings.ToLower(strings.TrimSpace(f.Title))):
			out = append(out, model.InvalidFavorite{Favorite: f, Reason: "placeholder_title"})
		case !p.Valid():
			out = append(out, model.InvalidFavorite{Favorite: f, Reason: "out_of_range"})
		case p.NearZero():
			out = append(out, model.InvalidFavorite{Favorite: f, Reason: "missing_coordinate"})
		}
	}
	return out
}
