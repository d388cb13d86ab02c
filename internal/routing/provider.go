// Package routing builds route geometry through an external routing
// provider and falls back to a straight polyline when it cannot.
package routing

import (
	"context"
	"errors"
)

var (
	// ErrProviderUnavailable covers transport and protocol failures.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrProviderTimeout means the bounded provider call ran out of time.
	ErrProviderTimeout = errors.New("routing provider timeout")
	// ErrTooFewPoints is returned when a build is asked for fewer than two points.
	ErrTooFewPoints = errors.New("at least two points are required")
)

// Provider computes road geometry. coords are (lon, lat); the returned pairs
// may come back in either axis order.
type Provider interface {
	Route(ctx context.Context, coords [][2]float64, profile string) ([][2]float64, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, coords [][2]float64, profile string) ([][2]float64, error)

func (f ProviderFunc) Route(ctx context.Context, coords [][2]float64, profile string) ([][2]float64, error) {
	return f(ctx, coords, profile)
}

// Unavailable is a provider that always fails; used when none is configured.
var Unavailable Provider = ProviderFunc(func(context.Context, [][2]float64, string) ([][2]float64, error) {
	return nil, ErrProviderUnavailable
})

// Outcome tags where a route's geometry came from.
type Outcome string

const (
	ProviderSnapped  Outcome = "provider_snapped"
	FallbackStraight Outcome = "fallback_straight"
)

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrProviderTimeout
	}
	return ErrProviderUnavailable
}
