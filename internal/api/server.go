package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tripnav/internal/draft"
	"tripnav/internal/events"
	"tripnav/internal/metrics"
	"tripnav/internal/store"
	"tripnav/internal/transport"
)

type Server struct {
	Engine   *draft.Engine
	Store    store.Store
	Stream   events.Stream
	Profiles *transport.Table
	Logger   *zap.Logger
	// Settings is echoed by /debug/info; it must not hold secrets.
	Settings map[string]any
	// CORSOrigins restricts cross-origin callers; empty allows any origin.
	CORSOrigins []string
}

// Handler builds the routed, instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	if s.Profiles == nil {
		s.Profiles = transport.DefaultTable()
	}
	metrics.RegisterDefault()

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/healthz", s.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.ReadyHandler).Methods(http.MethodGet)
	router.HandleFunc("/debug/info", s.DebugJSON).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/profiles", s.ProfilesHandler).Methods(http.MethodGet)

	v1.HandleFunc("/drafts", s.CreateDraft).Methods(http.MethodPost)
	v1.HandleFunc("/drafts", s.ListDrafts).Methods(http.MethodGet)
	v1.HandleFunc("/drafts/{id}", s.GetDraft).Methods(http.MethodGet)
	v1.HandleFunc("/drafts/{id}", s.DeleteDraft).Methods(http.MethodDelete)
	v1.HandleFunc("/drafts/{id}/points", s.StagePoint).Methods(http.MethodPost)
	v1.HandleFunc("/drafts/{id}/points/{pointId}", s.RemovePoint).Methods(http.MethodDelete)
	v1.HandleFunc("/drafts/{id}/order", s.ReorderPoints).Methods(http.MethodPut)
	v1.HandleFunc("/drafts/{id}/optimize", s.OptimizeOrder).Methods(http.MethodPost)
	v1.HandleFunc("/drafts/{id}/build", s.BuildDraft).Methods(http.MethodPost)
	v1.HandleFunc("/drafts/{id}/reset", s.ResetDraft).Methods(http.MethodPost)
	v1.HandleFunc("/drafts/{id}/save", s.SaveDraft).Methods(http.MethodPost)
	v1.HandleFunc("/drafts/{id}/picks", s.BeginPick).Methods(http.MethodPost)
	v1.HandleFunc("/drafts/{id}/events/stream", s.DraftEventsSSE).Methods(http.MethodGet)
	v1.HandleFunc("/drafts/{id}/ws", s.DraftEventsWS).Methods(http.MethodGet)
	v1.HandleFunc("/picks/{pickId}", s.CompletePick).Methods(http.MethodPost)
	v1.HandleFunc("/picks/{pickId}", s.CancelPick).Methods(http.MethodDelete)

	v1.HandleFunc("/favorites", s.ListFavorites).Methods(http.MethodGet)
	v1.HandleFunc("/favorites", s.PutFavorite).Methods(http.MethodPost)
	v1.HandleFunc("/favorites/duplicates", s.FavoriteDuplicates).Methods(http.MethodGet)
	v1.HandleFunc("/favorites/invalid", s.InvalidFavorites).Methods(http.MethodGet)
	v1.HandleFunc("/favorites/{id}", s.GetFavorite).Methods(http.MethodGet)
	v1.HandleFunc("/favorites/{id}", s.PutFavorite).Methods(http.MethodPut)
	v1.HandleFunc("/favorites/{id}", s.DeleteFavorite).Methods(http.MethodDelete)

	v1.HandleFunc("/routes", s.ListRoutes).Methods(http.MethodGet)
	v1.HandleFunc("/routes/{id}", s.GetRoute).Methods(http.MethodGet)
	v1.HandleFunc("/routes/{id}", s.DeleteRoute).Methods(http.MethodDelete)
	v1.HandleFunc("/routes/{id}/hydrate", s.HydrateRoute).Methods(http.MethodPost)

	router.Use(s.accessLog)

	var opts []handlers.CORSOption
	opts = append(opts,
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	if len(s.CORSOrigins) > 0 {
		opts = append(opts, handlers.AllowedOrigins(s.CORSOrigins))
	}
	recovery := handlers.RecoveryHandler(handlers.RecoveryLogger(zapRecoveryLogger{s.Logger}), handlers.PrintRecoveryStack(false))
	return recovery(handlers.CORS(opts...)(router))
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if s.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := s.Store.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) ProfilesHandler(w http.ResponseWriter, r *http.Request) {
	out := map[string]transport.Spec{}
	for _, p := range s.Profiles.Profiles() {
		out[string(p)] = s.Profiles.Spec(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": out})
}

type zapRecoveryLogger struct{ l *zap.Logger }

func (z zapRecoveryLogger) Println(v ...any) {
	z.l.Error("panic recovered", zap.Any("panic", v))
}
