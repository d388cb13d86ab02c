package draft

import (
	"context"
	"fmt"

	"tripnav/internal/events"
	"tripnav/internal/geo"
	"tripnav/internal/routing"
)

// optimizeIterations bounds the 2-opt passes over a draft.
const optimizeIterations = 50

// OptimizeOrder reorders the intermediate staged points to shorten the
// straight-line path. The first and last points keep their positions. Every
// staged point must resolve to coordinates.
func (e *Engine) OptimizeOrder(ctx context.Context, id string) (Draft, error) {
	e.mu.Lock()
	s, err := e.editable(id)
	if err != nil {
		e.mu.Unlock()
		return Draft{}, err
	}
	rev := s.rev
	staged := append([]StagedPoint(nil), s.Staged...)
	e.mu.Unlock()

	pts := make([]geo.Point, len(staged))
	for i, sp := range staged {
		rp, err := e.reconciler.Point(ctx, sp.Raw)
		if err != nil {
			return Draft{}, fmt.Errorf("point %s: %w", sp.ID, err)
		}
		pts[i] = geo.Point{Lat: rp.Lat, Lon: rp.Lon}
	}
	order := routing.ImproveOrder(pts, optimizeIterations)

	e.mu.Lock()
	s, err = e.editable(id)
	if err != nil {
		e.mu.Unlock()
		return Draft{}, err
	}
	if s.rev != rev {
		e.mu.Unlock()
		return Draft{}, ErrDraftChanged
	}
	changed := false
	next := make([]StagedPoint, len(order))
	for i, j := range order {
		next[i] = staged[j]
		changed = changed || i != j
	}
	if changed {
		s.Staged = next
		s.reindex()
		e.edited(s)
	}
	d := s.snapshot()
	e.mu.Unlock()
	if changed {
		e.publish(ctx, events.DraftPointsChanged, id, map[string]any{"staged": len(next), "optimized": true})
	}
	return d, nil
}
