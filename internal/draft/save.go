package draft

import (
	"context"

	"go.uber.org/zap"

	"tripnav/internal/events"
	"tripnav/internal/model"
)

// Save stores a built draft as a route. An empty title keeps the draft's.
func (e *Engine) Save(ctx context.Context, id, title string) (model.StoredRoute, error) {
	if e.saver == nil {
		return model.StoredRoute{}, ErrNoStore
	}
	e.mu.Lock()
	s, ok := e.drafts[id]
	if !ok {
		e.mu.Unlock()
		return model.StoredRoute{}, ErrDraftNotFound
	}
	if s.Status != Built {
		e.mu.Unlock()
		return model.StoredRoute{}, ErrNotBuilt
	}
	d := s.snapshot()
	e.mu.Unlock()

	if title == "" {
		title = d.Title
	}
	if title == "" {
		title = "Route"
	}
	line := d.Polyline
	if e.simplify > 0 {
		line = line.Simplify(e.simplify)
	}
	poly := make([][2]float64, len(line))
	for i, p := range line {
		poly[i] = [2]float64{p.Lat, p.Lon}
	}
	route, err := e.saver.SaveRoute(ctx, model.StoredRoute{
		Title:         title,
		Points:        d.Points,
		Polyline:      poly,
		Profile:       string(d.Profile),
		Outcome:       string(d.Outcome),
		DistanceKm:    d.DistanceKm,
		DurationHours: d.DurationHours,
		CostCurrency:  d.CostCurrency,
	})
	if err != nil {
		return model.StoredRoute{}, err
	}
	e.logger.Info("route saved", zap.String("draft_id", id), zap.String("route_id", route.ID), zap.Int("vertices", len(poly)))
	e.publish(ctx, events.RouteSaved, id, map[string]any{"routeId": route.ID})
	return route, nil
}
