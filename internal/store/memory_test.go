package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripnav/internal/model"
)

func TestMemoryFavorites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	f, err := m.PutFavorite(ctx, model.Favorite{Title: "Red Square", Lat: 55.7539, Lon: 37.6208})
	require.NoError(t, err)
	require.NotEmpty(t, f.ID)

	_, err = m.PutFavorite(ctx, model.Favorite{ID: f.ID, Title: "Red Square", Lat: 55.754, Lon: 37.6208})
	require.NoError(t, err)
	list, err := m.ListFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 55.754, list[0].Lat)

	pt, ok := Registry{Store: m}.Lookup(ctx, f.ID)
	assert.True(t, ok)
	assert.Equal(t, 37.6208, pt.Lon)
	_, ok = Registry{Store: m}.Lookup(ctx, "nope")
	assert.False(t, ok)

	require.NoError(t, m.DeleteFavorite(ctx, f.ID))
	assert.ErrorIs(t, m.DeleteFavorite(ctx, f.ID), ErrNotFound)
}

func TestMemoryRoutesPaging(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := 0; i < 5; i++ {
		_, err := m.SaveRoute(ctx, model.StoredRoute{ID: fmt.Sprintf("r%d", i), Title: "t"})
		require.NoError(t, err)
	}
	page, next, err := m.ListRoutes(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, "r1", next)

	page, next, err = m.ListRoutes(ctx, next, 10)
	require.NoError(t, err)
	assert.Len(t, page, 3)
	assert.Empty(t, next)

	r, err := m.GetRoute(ctx, "r3")
	require.NoError(t, err)
	assert.NotEmpty(t, r.CreatedAt)

	require.NoError(t, m.DeleteRoute(ctx, "r3"))
	_, err = m.GetRoute(ctx, "r3")
	assert.ErrorIs(t, err, ErrNotFound)
}
