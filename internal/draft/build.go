package draft

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tripnav/internal/events"
	"tripnav/internal/geo"
	"tripnav/internal/metrics"
	"tripnav/internal/reconcile"
	"tripnav/internal/routing"
)

// Build reconciles the staged points and produces geometry and statistics.
// Provider failures are absorbed by the straight-line fallback; only
// ErrInsufficientPoints ends a build in the failed state.
func (e *Engine) Build(ctx context.Context, id string, opts BuildOptions) (Draft, error) {
	e.mu.Lock()
	s, ok := e.drafts[id]
	if !ok {
		e.mu.Unlock()
		return Draft{}, ErrDraftNotFound
	}
	if s.Status == Building {
		e.mu.Unlock()
		return Draft{}, ErrBuildInProgress
	}
	if len(s.Staged) == 0 {
		e.mu.Unlock()
		return Draft{}, ErrNoPoints
	}
	if !s.Status.CanTransitionTo(Building) {
		e.mu.Unlock()
		return Draft{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, Building)
	}
	profile := opts.Profile
	if profile == "" {
		profile = s.Profile
	}
	s.Status = Building
	s.Profile = profile
	s.clearResult()
	s.UpdatedAt = e.now()
	gen := s.generation
	raws := make([]reconcile.RawPoint, len(s.Staged))
	for i, p := range s.Staged {
		raws[i] = p.Raw
	}
	e.mu.Unlock()
	e.publish(ctx, events.DraftBuildStarted, id, map[string]any{"profile": string(profile), "staged": len(raws)})

	rec := e.reconciler.Run(ctx, raws)
	warnings := reconcileWarnings(rec)
	for _, r := range rec.Rejected {
		metrics.PointsRejected.WithLabelValues(r.Reason).Inc()
	}

	if len(rec.Points) < 2 {
		metrics.RouteBuildFailures.WithLabelValues("insufficient_points").Inc()
		d, err := e.commit(gen, id, func(s *state) {
			s.Status = Failed
			s.Points = rec.Points
			s.Warnings = warnings
		})
		if err != nil {
			return d, err
		}
		e.logger.Info("route build failed",
			zap.String("draft_id", id),
			zap.Int("staged", len(raws)),
			zap.Int("valid", len(rec.Points)))
		e.publish(ctx, events.DraftFailed, id, map[string]any{"reason": "insufficient_points", "valid": len(rec.Points)})
		return d, ErrInsufficientPoints
	}

	spec := e.estimator.Table().Spec(profile)
	res, err := e.builder.Build(ctx, reconcile.Polyline(rec.Points), spec.ProviderProfile)
	if err != nil {
		// never leave the draft in building
		metrics.RouteBuildFailures.WithLabelValues("builder").Inc()
		d, cerr := e.commit(gen, id, func(s *state) {
			s.Status = Failed
			s.Points = rec.Points
			s.Warnings = warnings
		})
		if cerr != nil {
			return d, cerr
		}
		return d, err
	}
	if res.Outcome == routing.FallbackStraight {
		msg := "route approximated by straight segments"
		if res.ProviderErr != nil {
			msg = fmt.Sprintf("%s: %v", msg, res.ProviderErr)
		}
		warnings = append(warnings, Warning{Code: WarnDegradedRoute, Message: msg})
	}

	dist := geo.DistanceKm(res.Polyline)
	est := e.estimator.Estimate(dist, profile, opts.Fuel)
	d, err := e.commit(gen, id, func(s *state) {
		s.Status = Built
		s.Points = rec.Points
		s.Polyline = res.Polyline
		s.Outcome = res.Outcome
		s.DistanceKm = dist
		s.DurationHours = est.DurationHours
		s.CostCurrency = est.CostCurrency
		s.Warnings = warnings
	})
	if err != nil {
		return d, err
	}
	metrics.RouteBuilds.WithLabelValues(string(profile), string(res.Outcome)).Inc()
	e.logger.Info("route built",
		zap.String("draft_id", id),
		zap.String("profile", string(profile)),
		zap.String("outcome", string(res.Outcome)),
		zap.Bool("cached", res.Cached),
		zap.Float64("distance_km", dist))
	e.publish(ctx, events.DraftBuilt, id, map[string]any{
		"outcome":       string(res.Outcome),
		"distanceKm":    dist,
		"durationHours": est.DurationHours,
		"costCurrency":  est.CostCurrency,
	})
	return d, nil
}

// commit applies a build result unless the draft was reset or deleted meanwhile.
func (e *Engine) commit(gen uint64, id string, apply func(*state)) (Draft, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.drafts[id]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	if s.generation != gen || s.Status != Building {
		return s.snapshot(), ErrBuildDiscarded
	}
	apply(s)
	s.UpdatedAt = e.now()
	return s.snapshot(), nil
}

func reconcileWarnings(rec reconcile.Result) []Warning {
	var out []Warning
	for _, r := range rec.Rejected {
		msg := r.Reason
		if r.Err != nil {
			msg = r.Err.Error()
		}
		out = append(out, Warning{Code: WarnRejectedPoint, Message: msg, PointID: r.ID})
	}
	if rec.Duplicates > 0 {
		out = append(out, Warning{Code: WarnDuplicatePoint, Message: fmt.Sprintf("%d duplicate points dropped", rec.Duplicates)})
	}
	for _, p := range rec.Points {
		if p.Ambiguous {
			out = append(out, Warning{
				Code:    WarnAmbiguousAxis,
				Message: "both axis orders are valid; read as latitude, longitude",
				PointID: p.ID,
			})
		}
	}
	return out
}
