package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripnav/internal/model"
)

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	assert.Equal(t, "x", nullIfEmpty("x"))
}

func TestJSONColumns(t *testing.T) {
	v, err := toJSON[model.Waypoint](nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = toJSON([][2]float64{{55.75, 37.61}})
	require.NoError(t, err)
	assert.Equal(t, "[[55.75,37.61]]", v)

	var line [][2]float64
	require.NoError(t, fromJSON([]byte(v.(string)), &line))
	assert.Equal(t, [][2]float64{{55.75, 37.61}}, line)

	var none []model.RoutePoint
	require.NoError(t, fromJSON(nil, &none))
	assert.Nil(t, none)
}

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS favorites")
	assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS routes")
}

func TestListRoutesCreationOrder(t *testing.T) {
	for _, q := range []string{listRoutesFirst, listRoutesAfter} {
		assert.Contains(t, q, "ORDER BY created_at, id")
	}
	assert.Contains(t, listRoutesAfter, "(created_at, id) >")
}
