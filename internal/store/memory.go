package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tripnav/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu       sync.Mutex
	favs     map[string]model.Favorite
	favOrder []string
	routes   map[string]model.StoredRoute
	order    []string // route ids in insertion order
}

func NewMemory() *Memory {
	return &Memory{
		favs:   map[string]model.Favorite{},
		routes: map[string]model.StoredRoute{},
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) ListFavorites(context.Context) ([]model.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Favorite, 0, len(m.favOrder))
	for _, id := range m.favOrder {
		out = append(out, m.favs[id])
	}
	return out, nil
}

func (m *Memory) GetFavorite(_ context.Context, id string) (model.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.favs[id]
	if !ok {
		return model.Favorite{}, ErrNotFound
	}
	return f, nil
}

func (m *Memory) PutFavorite(_ context.Context, f model.Favorite) (model.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if _, ok := m.favs[f.ID]; !ok {
		m.favOrder = append(m.favOrder, f.ID)
	}
	m.favs[f.ID] = f
	return f, nil
}

func (m *Memory) DeleteFavorite(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.favs[id]; !ok {
		return ErrNotFound
	}
	delete(m.favs, id)
	m.favOrder = without(m.favOrder, id)
	return nil
}

func (m *Memory) SaveRoute(_ context.Context, r model.StoredRoute) (model.StoredRoute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt == "" {
		r.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if _, ok := m.routes[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.routes[r.ID] = r
	return r, nil
}

func (m *Memory) GetRoute(_ context.Context, id string) (model.StoredRoute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[id]
	if !ok {
		return model.StoredRoute{}, ErrNotFound
	}
	return r, nil
}

// ListRoutes pages through routes in insertion order; cursor is the last id seen.
func (m *Memory) ListRoutes(_ context.Context, cursor string, limit int) ([]model.StoredRoute, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := 0
	if cursor != "" {
		for i, id := range m.order {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	limit = pageSize(limit)
	out := []model.StoredRoute{}
	for i := start; i < len(m.order) && len(out) < limit; i++ {
		out = append(out, m.routes[m.order[i]])
	}
	next := ""
	if len(out) == limit && start+limit < len(m.order) {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (m *Memory) DeleteRoute(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[id]; !ok {
		return ErrNotFound
	}
	delete(m.routes, id)
	m.order = without(m.order, id)
	return nil
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
