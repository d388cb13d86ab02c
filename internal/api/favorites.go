package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"tripnav/internal/model"
	"tripnav/internal/reconcile"
)

func (s *Server) ListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := s.Store.ListFavorites(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": favs})
}

func (s *Server) GetFavorite(w http.ResponseWriter, r *http.Request) {
	f, err := s.Store.GetFavorite(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// PutFavorite creates (POST) or replaces (PUT /{id}) a favorite. Coordinates
// go through the same reconciliation as route points, so any supported shape
// is accepted.
func (s *Server) PutFavorite(w http.ResponseWriter, r *http.Request) {
	var raw reconcile.RawPoint
	if !decodeJSON(w, r, &raw) {
		return
	}
	id := mux.Vars(r)["id"]
	if id != "" {
		raw = raw.WithID(id)
	}
	rp, err := reconcile.NewReconciler(nil).Point(r.Context(), raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := s.Store.PutFavorite(r.Context(), model.Favorite{
		ID:       rp.ID,
		Title:    rp.Title,
		Lat:      rp.Lat,
		Lon:      rp.Lon,
		Category: raw.Text("category"),
		Address:  raw.Text("address"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if id != "" {
		status = http.StatusOK
	}
	writeJSON(w, status, f)
}

func (s *Server) DeleteFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.DeleteFavorite(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) FavoriteDuplicates(w http.ResponseWriter, r *http.Request) {
	favs, err := s.Store.ListFavorites(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reconcile.FavoriteDuplicates(favs))
}

func (s *Server) InvalidFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := s.Store.ListFavorites(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := reconcile.InvalidFavorites(favs)
	if items == nil {
		items = []model.InvalidFavorite{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(favs)})
}
