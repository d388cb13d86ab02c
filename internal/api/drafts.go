package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"tripnav/internal/draft"
	"tripnav/internal/geo"
	"tripnav/internal/reconcile"
	"tripnav/internal/transport"
)

func (s *Server) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  string               `json:"title"`
		Points []reconcile.RawPoint `json:"points"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	d := s.Engine.Create(r.Context(), req.Title)
	for _, raw := range req.Points {
		if _, err := s.Engine.StagePoint(r.Context(), d.ID, raw); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if len(req.Points) > 0 {
		var err error
		if d, err = s.Engine.Snapshot(d.ID); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) ListDrafts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Engine.List()})
}

// GetDraft returns the draft, or a GeoJSON FeatureCollection with
// ?format=geojson.
func (s *Server) GetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.Engine.Snapshot(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "geojson" {
		writeGeoJSON(w, draftFeatures(d))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StagePoint accepts any supported raw point shape; ?at=N inserts at N.
func (s *Server) StagePoint(w http.ResponseWriter, r *http.Request) {
	var raw reconcile.RawPoint
	if !decodeJSON(w, r, &raw) {
		return
	}
	id := mux.Vars(r)["id"]
	var (
		sp  draft.StagedPoint
		err error
	)
	if v := r.URL.Query().Get("at"); v != "" {
		at, perr := strconv.Atoi(v)
		if perr != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid position", perr.Error(), r.URL.Path)
			return
		}
		var h draft.PickHandle
		if h, err = s.Engine.BeginPick(id, at); err == nil {
			sp, err = s.Engine.CompletePick(r.Context(), h.ID, raw)
		}
	} else {
		sp, err = s.Engine.StagePoint(r.Context(), id, raw)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}

func (s *Server) RemovePoint(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if err := s.Engine.RemovePoint(r.Context(), v["id"], v["pointId"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ReorderPoints(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Order []string `json:"order"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	id := mux.Vars(r)["id"]
	if err := s.Engine.ReorderPoints(r.Context(), id, req.Order); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeSnapshot(w, r, id)
}

func (s *Server) OptimizeOrder(w http.ResponseWriter, r *http.Request) {
	d, err := s.Engine.OptimizeOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type buildRequest struct {
	Profile string                 `json:"profile"`
	Fuel    transport.FuelOverride `json:"fuel"`
}

// buildFailure carries the failed draft next to the problem details.
type buildFailure struct {
	Problem
	Draft draft.Draft `json:"draft"`
}

func (s *Server) BuildDraft(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	var opts draft.BuildOptions
	if req.Profile != "" {
		p, err := transport.Parse(req.Profile)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid profile", err.Error(), r.URL.Path)
			return
		}
		opts.Profile = p
	}
	if req.Fuel.ConsumptionPer100Km < 0 || req.Fuel.PricePerUnit < 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid fuel model", "fuel values must be >= 0", r.URL.Path)
		return
	}
	opts.Fuel = req.Fuel

	d, err := s.Engine.Build(r.Context(), mux.Vars(r)["id"], opts)
	if errors.Is(err, draft.ErrInsufficientPoints) {
		status := http.StatusUnprocessableEntity
		writeJSON(w, status, buildFailure{
			Problem: Problem{Type: "about:blank", Title: "Route build failed", Status: status, Detail: err.Error(), Instance: r.URL.Path},
			Draft:   d,
		})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) ResetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.Engine.Reset(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	route, err := s.Engine.Save(r.Context(), mux.Vars(r)["id"], req.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, route)
}

func (s *Server) BeginPick(w http.ResponseWriter, r *http.Request) {
	req := struct {
		InsertAt *int `json:"insertAt"`
	}{}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	at := -1
	if req.InsertAt != nil {
		at = *req.InsertAt
	}
	h, err := s.Engine.BeginPick(mux.Vars(r)["id"], at)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) CompletePick(w http.ResponseWriter, r *http.Request) {
	var raw reconcile.RawPoint
	if !decodeJSON(w, r, &raw) {
		return
	}
	sp, err := s.Engine.CompletePick(r.Context(), mux.Vars(r)["pickId"], raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}

func (s *Server) CancelPick(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.CancelPick(mux.Vars(r)["pickId"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeSnapshot(w http.ResponseWriter, r *http.Request, id string) {
	d, err := s.Engine.Snapshot(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func draftFeatures(d draft.Draft) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if len(d.Polyline) >= 2 {
		fc.Append(d.Polyline.Feature(map[string]any{
			"draftId":       d.ID,
			"status":        string(d.Status),
			"outcome":       string(d.Outcome),
			"profile":       string(d.Profile),
			"distanceKm":    d.DistanceKm,
			"durationHours": d.DurationHours,
			"costCurrency":  d.CostCurrency,
		}))
		if b := d.Polyline.Bound(); b != nil {
			fc.BBox = geojson.NewBBox(*b)
		}
	}
	for _, p := range d.Points {
		f := geojson.NewFeature(pointOrb(p.Lat, p.Lon))
		f.ID = p.ID
		f.Properties["title"] = p.Title
		f.Properties["orderIndex"] = p.OrderIndex
		if p.Ambiguous {
			f.Properties["ambiguous"] = true
		}
		fc.Append(f)
	}
	return fc
}

func writeGeoJSON(w http.ResponseWriter, fc *geojson.FeatureCollection) {
	data, err := fc.MarshalJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func pointOrb(lat, lon float64) orb.Point { return geo.Point{Lat: lat, Lon: lon}.Orb() }
