package store

import (
	"context"
	"errors"

	"tripnav/internal/geo"
	"tripnav/internal/model"
)

// Store is the persistence interface used by the API server and the draft
// engine. Favorites double as the trusted coordinate registry.
type Store interface {
	// Favorites
	ListFavorites(ctx context.Context) ([]model.Favorite, error)
	GetFavorite(ctx context.Context, id string) (model.Favorite, error)
	PutFavorite(ctx context.Context, f model.Favorite) (model.Favorite, error)
	DeleteFavorite(ctx context.Context, id string) error

	// Saved routes
	SaveRoute(ctx context.Context, r model.StoredRoute) (model.StoredRoute, error)
	GetRoute(ctx context.Context, id string) (model.StoredRoute, error)
	ListRoutes(ctx context.Context, cursor string, limit int) ([]model.StoredRoute, string, error)
	DeleteRoute(ctx context.Context, id string) error

	Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

// Registry exposes a Store's favorites as trusted coordinates.
type Registry struct {
	Store Store
}

// Lookup returns the favorite's coordinates. Missing favorites and storage
// errors both report false.
func (r Registry) Lookup(ctx context.Context, id string) (geo.Point, bool) {
	if r.Store == nil || id == "" {
		return geo.Point{}, false
	}
	f, err := r.Store.GetFavorite(ctx, id)
	if err != nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: f.Lat, Lon: f.Lon}, true
}

// Favorite returns the whole favorite for hydration, false when missing.
func (r Registry) Favorite(ctx context.Context, id string) (model.Favorite, bool) {
	if r.Store == nil || id == "" {
		return model.Favorite{}, false
	}
	f, err := r.Store.GetFavorite(ctx, id)
	if err != nil {
		return model.Favorite{}, false
	}
	return f, true
}

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

func pageSize(limit int) int {
	if limit <= 0 || limit > maxPageSize {
		return defaultPageSize
	}
	return limit
}
