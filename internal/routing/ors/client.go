// Package ors is a client for the OpenRouteService directions API.
package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public ORS endpoint.
	DefaultBaseURL = "https://api.openrouteservice.org"
	// SnapRadiusMeters is how far ORS may move an input to reach a road.
	SnapRadiusMeters = 500
)

// Client calls POST /v2/directions/{profile}/geojson.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			if burst <= 0 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.logger = l } }

// New returns a client. An empty baseURL selects DefaultBaseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type directionsRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
	Radiuses    []int        `json:"radiuses"`
}

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Route returns the route geometry as (lon, lat) pairs.
func (c *Client) Route(ctx context.Context, coords [][2]float64, profile string) ([][2]float64, error) {
	if len(coords) < 2 {
		return nil, errors.New("ors: at least two coordinates required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "ors: rate limit wait")
	}
	radiuses := make([]int, len(coords))
	for i := range radiuses {
		radiuses[i] = SnapRadiusMeters
	}
	body, err := json.Marshal(directionsRequest{Coordinates: coords, Radiuses: radiuses})
	if err != nil {
		return nil, errors.Wrap(err, "ors: encode request")
	}
	url := fmt.Sprintf("%s/v2/directions/%s/geojson", c.baseURL, profile)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "ors: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, application/geo+json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "ors: request")
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, errors.Wrap(err, "ors: read response")
	}
	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		c.logger.Debug("ors non-200", zap.Int("status", resp.StatusCode), zap.String("message", eb.Error.Message))
		return nil, errors.Errorf("ors: status %d: %s", resp.StatusCode, eb.Error.Message)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "ors: decode geojson")
	}
	if len(fc.Features) == 0 || fc.Features[0].Geometry == nil {
		return nil, errors.New("ors: empty route")
	}
	ls, ok := fc.Features[0].Geometry.(orb.LineString)
	if !ok {
		return nil, errors.Errorf("ors: unexpected geometry %s", fc.Features[0].Geometry.GeoJSONType())
	}
	out := make([][2]float64, len(ls))
	for i, p := range ls {
		out[i] = [2]float64{p[0], p[1]}
	}
	return out, nil
}
