package ors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteDecodesLineString(t *testing.T) {
	var got directionsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/directions/driving-car/geojson", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},
			"geometry":{"type":"LineString","coordinates":[[37.6173,55.7558],[38.5,55.9],[40.4066,56.1286]]}}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	out, err := c.Route(context.Background(), [][2]float64{{37.6173, 55.7558}, {40.4066, 56.1286}}, "driving-car")
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, [2]float64{40.4066, 56.1286}, out[2])
	assert.Equal(t, []int{SnapRadiusMeters, SnapRadiusMeters}, got.Radiuses)
	assert.Equal(t, [2]float64{37.6173, 55.7558}, got.Coordinates[0])
}

func TestRouteNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":2010,"message":"Could not find routable point"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Route(context.Background(), [][2]float64{{0, 1}, {1, 1}}, "driving-car")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "routable point")
}

func TestRouteEmptyCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Route(context.Background(), [][2]float64{{0, 1}, {1, 1}}, "foot-walking")
	assert.Error(t, err)
}

func TestRouteHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(srv.URL, "").Route(ctx, [][2]float64{{0, 1}, {1, 1}}, "driving-car")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
