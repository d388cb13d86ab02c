// Package draft owns route drafts: staged points, the build state machine
// and the derived geometry and statistics.
package draft

import (
	"errors"
	"time"

	"tripnav/internal/geo"
	"tripnav/internal/model"
	"tripnav/internal/reconcile"
	"tripnav/internal/routing"
	"tripnav/internal/transport"
)

var (
	ErrDraftNotFound      = errors.New("draft not found")
	ErrNoPoints           = errors.New("no points staged")
	ErrInsufficientPoints = errors.New("fewer than two valid points")
	ErrBuildInProgress    = errors.New("build already in progress")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrBuildDiscarded     = errors.New("draft was reset during build")
	ErrPointNotFound      = errors.New("point not found")
	ErrInvalidOrder       = errors.New("order must list every staged point exactly once")
	ErrPickNotFound       = errors.New("pick not found")
	ErrNotBuilt           = errors.New("draft has no built route")
	ErrNoStore            = errors.New("no route store configured")
	ErrDraftChanged       = errors.New("draft changed concurrently")
)

// Warning codes attached to a draft.
const (
	WarnRejectedPoint   = "rejected_point"
	WarnDuplicatePoint  = "duplicate_point"
	WarnAmbiguousAxis   = "ambiguous_axis"
	WarnDegradedRoute   = "degraded_route"
	WarnMissingFavorite = "missing_favorite"
)

// Warning is a non-fatal note about the last operation on a draft.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	PointID string `json:"pointId,omitempty"`
}

// StagedPoint is a raw point waiting for the next build. ID is unique within
// the draft; it equals the raw point's id unless that id is staged twice.
type StagedPoint struct {
	ID         string             `json:"id"`
	Title      string             `json:"title,omitempty"`
	OrderIndex int                `json:"orderIndex"`
	Raw        reconcile.RawPoint `json:"raw"`
}

// BuildOptions selects the travel profile and fuel model for a build.
type BuildOptions struct {
	Profile transport.Profile      `json:"profile,omitempty"`
	Fuel    transport.FuelOverride `json:"fuel,omitempty"`
}

// Draft is a point-in-time copy of a route draft.
type Draft struct {
	ID            string             `json:"id"`
	Title         string             `json:"title,omitempty"`
	Status        Status             `json:"status"`
	Profile       transport.Profile  `json:"profile"`
	Staged        []StagedPoint      `json:"staged"`
	Points        []model.RoutePoint `json:"points"`
	Polyline      geo.Polyline       `json:"polyline"`
	Outcome       routing.Outcome    `json:"outcome,omitempty"`
	DistanceKm    float64            `json:"distanceKm"`
	DurationHours float64            `json:"durationHours"`
	CostCurrency  int64              `json:"costCurrency"`
	Warnings      []Warning          `json:"warnings,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// state is the engine-owned mutable draft.
type state struct {
	Draft
	// generation changes on every reset; a build only commits if it is unchanged.
	generation uint64
	// rev changes on every edit of the staged points.
	rev uint64
}

func (s *state) snapshot() Draft {
	d := s.Draft
	d.Staged = append([]StagedPoint(nil), s.Staged...)
	d.Points = append([]model.RoutePoint(nil), s.Points...)
	d.Polyline = s.Polyline.Clone()
	d.Warnings = append([]Warning(nil), s.Warnings...)
	return d
}

func (s *state) clearResult() {
	s.Points = nil
	s.Polyline = nil
	s.Outcome = ""
	s.DistanceKm = 0
	s.DurationHours = 0
	s.CostCurrency = 0
	s.Warnings = nil
}

func (s *state) reindex() {
	for i := range s.Staged {
		s.Staged[i].OrderIndex = i
	}
}

// stagedKey returns pointID when no staged point uses it yet, otherwise a
// fresh key. The raw point keeps its own id for dedup and registry lookups.
func (s *state) stagedKey(pointID string) string {
	if s.indexOf(pointID) < 0 {
		return pointID
	}
	return newID()
}

func (s *state) indexOf(pointID string) int {
	for i, p := range s.Staged {
		if p.ID == pointID {
			return i
		}
	}
	return -1
}
