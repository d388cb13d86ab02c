package api

import (
	"net/http"
	"time"

	"tripnav/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"build":    buildinfo.Info(),
		"time":     time.Now().UTC().Format(time.RFC3339),
		"config":   s.Settings,
		"drafts":   len(s.Engine.List()),
		"profiles": s.Profiles.Profiles(),
	})
}
