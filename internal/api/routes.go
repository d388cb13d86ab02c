package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb/geojson"

	"tripnav/internal/geo"
	"tripnav/internal/model"
	"tripnav/internal/reconcile"
)

// ListRoutes pages saved routes in creation order; ?dedup=true collapses
// routes sharing the title and point count within the returned page, keeping
// the oldest. Copies on different pages are not collapsed.
func (s *Server) ListRoutes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", err.Error(), r.URL.Path)
			return
		}
		limit = n
	}
	items, next, err := s.Store.ListRoutes(r.Context(), q.Get("cursor"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if q.Get("dedup") == "true" {
		items = reconcile.DedupRoutes(items)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

func (s *Server) GetRoute(w http.ResponseWriter, r *http.Request) {
	route, err := s.Store.GetRoute(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "geojson" {
		writeGeoJSON(w, routeFeatures(route))
		return
	}
	writeJSON(w, http.StatusOK, route)
}

func (s *Server) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.DeleteRoute(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HydrateRoute opens a saved route as a new draft.
func (s *Server) HydrateRoute(w http.ResponseWriter, r *http.Request) {
	route, err := s.Store.GetRoute(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.Engine.Hydrate(r.Context(), route)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func routeFeatures(route model.StoredRoute) *geojson.FeatureCollection {
	line := make(geo.Polyline, len(route.Polyline))
	for i, p := range route.Polyline {
		line[i] = geo.Point{Lat: p[0], Lon: p[1]}
	}
	fc := geojson.NewFeatureCollection()
	if len(line) >= 2 {
		fc.Append(line.Feature(map[string]any{
			"routeId":       route.ID,
			"title":         route.Title,
			"profile":       route.Profile,
			"outcome":       route.Outcome,
			"distanceKm":    route.DistanceKm,
			"durationHours": route.DurationHours,
			"costCurrency":  route.CostCurrency,
		}))
		if b := line.Bound(); b != nil {
			fc.BBox = geojson.NewBBox(*b)
		}
	}
	for _, p := range route.Points {
		f := geojson.NewFeature(pointOrb(p.Lat, p.Lon))
		f.ID = p.ID
		f.Properties["title"] = p.Title
		f.Properties["orderIndex"] = p.OrderIndex
		fc.Append(f)
	}
	return fc
}
