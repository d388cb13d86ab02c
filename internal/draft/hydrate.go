package draft

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"tripnav/internal/events"
	"tripnav/internal/geo"
	"tripnav/internal/model"
	"tripnav/internal/reconcile"
	"tripnav/internal/transport"
)

// Hydrate creates an idle draft from a stored route. Embedded points are
// staged as stored, with missing coordinates filled from the registry by id;
// waypoint references are resolved through the registry and dropped with a
// warning when the favorite no longer exists.
func (e *Engine) Hydrate(ctx context.Context, route model.StoredRoute) (Draft, error) {
	var staged []StagedPoint
	var warnings []Warning

	if len(route.Points) > 0 {
		pts := append([]model.RoutePoint(nil), route.Points...)
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].OrderIndex < pts[j].OrderIndex })
		for _, p := range pts {
			pt := geo.Point{Lat: p.Lat, Lon: p.Lon}
			title := p.Title
			if pt.NearZero() || title == "" {
				fav, ok := e.favorite(ctx, p.ID)
				if title == "" && ok {
					title = fav.Title
				}
				if pt.NearZero() {
					if trusted, valid := usable(fav, ok); valid {
						pt = trusted
					} else {
						warnings = append(warnings, Warning{Code: WarnMissingFavorite, Message: "point has no coordinates and no favorite", PointID: p.ID})
					}
				}
			}
			staged = append(staged, e.stagedFrom(p.ID, title, pt))
		}
	} else {
		wps := append([]model.Waypoint(nil), route.Waypoints...)
		sort.SliceStable(wps, func(i, j int) bool { return wps[i].OrderIndex < wps[j].OrderIndex })
		for _, w := range wps {
			fav, ok := e.favorite(ctx, w.MarkerID)
			pt, valid := usable(fav, ok)
			if !valid {
				warnings = append(warnings, Warning{Code: WarnMissingFavorite, Message: fmt.Sprintf("favorite %s not found", w.MarkerID), PointID: w.MarkerID})
				continue
			}
			title := fav.Title
			if title == "" {
				title = w.Notes
			}
			staged = append(staged, e.stagedFrom(w.MarkerID, title, pt))
		}
	}
	if len(staged) == 0 {
		return Draft{}, ErrNoPoints
	}
	keys := map[string]bool{}
	for i := range staged {
		staged[i].OrderIndex = i
		if keys[staged[i].ID] {
			staged[i].ID = newID()
		}
		keys[staged[i].ID] = true
	}

	profile := transport.Car
	if route.Profile != "" {
		if p, err := transport.Parse(route.Profile); err == nil {
			profile = p
		}
	}
	now := e.now()
	s := &state{Draft: Draft{
		ID:        newID(),
		Title:     route.Title,
		Status:    Idle,
		Profile:   profile,
		Staged:    staged,
		Warnings:  warnings,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	e.mu.Lock()
	e.drafts[s.ID] = s
	d := s.snapshot()
	e.mu.Unlock()
	if len(warnings) > 0 {
		e.logger.Info("hydrated route with missing points", zap.String("route_id", route.ID), zap.Int("warnings", len(warnings)))
	}
	e.publish(ctx, events.DraftCreated, d.ID, map[string]any{"fromRoute": route.ID, "staged": len(staged)})
	return d, nil
}

func (e *Engine) stagedFrom(id, title string, p geo.Point) StagedPoint {
	raw := reconcile.LatLonPoint(id, title, p.Lat, p.Lon)
	if id == "" {
		id = newID()
		raw = raw.WithID(id)
	}
	return StagedPoint{ID: id, Title: title, Raw: raw}
}

// FavoriteSource is implemented by registries that can return the whole
// favorite, not just its coordinates.
type FavoriteSource interface {
	Favorite(ctx context.Context, id string) (model.Favorite, bool)
}

func (e *Engine) favorite(ctx context.Context, id string) (model.Favorite, bool) {
	if e.registry == nil || id == "" {
		return model.Favorite{}, false
	}
	if src, ok := e.registry.(FavoriteSource); ok {
		return src.Favorite(ctx, id)
	}
	p, ok := e.registry.Lookup(ctx, id)
	return model.Favorite{ID: id, Lat: p.Lat, Lon: p.Lon}, ok
}

func usable(f model.Favorite, ok bool) (geo.Point, bool) {
	p := geo.Point{Lat: f.Lat, Lon: f.Lon}
	if !ok || !p.Valid() || p.NearZero() {
		return geo.Point{}, false
	}
	return p, true
}
