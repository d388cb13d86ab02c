package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"tripnav/internal/draft"
	"tripnav/internal/reconcile"
	"tripnav/internal/store"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, title := errorStatus(err)
	writeProblem(w, status, title, err.Error(), r.URL.Path)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, draft.ErrDraftNotFound),
		errors.Is(err, draft.ErrPointNotFound),
		errors.Is(err, draft.ErrPickNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, draft.ErrBuildInProgress),
		errors.Is(err, draft.ErrBuildDiscarded),
		errors.Is(err, draft.ErrDraftChanged),
		errors.Is(err, draft.ErrInvalidTransition):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, draft.ErrNoPoints),
		errors.Is(err, draft.ErrInsufficientPoints),
		errors.Is(err, draft.ErrNotBuilt):
		return http.StatusUnprocessableEntity, "Unprocessable Route"
	case errors.Is(err, draft.ErrInvalidOrder),
		errors.Is(err, reconcile.ErrMalformedPoint),
		errors.Is(err, reconcile.ErrUnresolvableCoordinates),
		errors.Is(err, reconcile.ErrMissingCoordinate):
		return http.StatusBadRequest, "Invalid Point"
	case errors.Is(err, draft.ErrNoStore):
		return http.StatusServiceUnavailable, "Storage Unavailable"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// decodeJSON reads a JSON body, writing a 400 problem on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return false
	}
	return true
}
