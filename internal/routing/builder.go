package routing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tripnav/internal/geo"
	"tripnav/internal/metrics"
	"tripnav/internal/reconcile"
)

const (
	// DefaultTimeout bounds the single provider attempt of a build.
	DefaultTimeout = 10 * time.Second
	// DefaultCacheTimeout bounds each geometry cache read and write.
	DefaultCacheTimeout = 500 * time.Millisecond
)

// Result is the geometry produced by one build.
type Result struct {
	Polyline geo.Polyline
	Outcome  Outcome
	// ProviderErr is why the fallback was taken, nil when snapped.
	ProviderErr error
	Cached      bool
}

// Builder issues exactly one provider attempt per build; a rebuild by the
// caller is the only retry.
type Builder struct {
	provider     Provider
	cache        Cache
	resolver     *reconcile.Resolver
	timeout      time.Duration
	cacheTimeout time.Duration
	logger       *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithCache enables geometry caching.
func WithCache(c Cache) Option { return func(b *Builder) { b.cache = c } }

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(b *Builder) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithCacheTimeout overrides DefaultCacheTimeout.
func WithCacheTimeout(d time.Duration) Option {
	return func(b *Builder) {
		if d > 0 {
			b.cacheTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(b *Builder) { b.logger = l } }

// NewBuilder returns a builder. A nil provider always falls back.
func NewBuilder(p Provider, opts ...Option) *Builder {
	if p == nil {
		p = Unavailable
	}
	b := &Builder{
		provider:     p,
		resolver:     reconcile.NewResolver(nil),
		timeout:      DefaultTimeout,
		cacheTimeout: DefaultCacheTimeout,
		logger:       zap.NewNop(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build returns a snapped polyline when the provider delivers at least two
// usable points, otherwise the input points themselves.
func (b *Builder) Build(ctx context.Context, points geo.Polyline, providerProfile string) (Result, error) {
	if len(points) < 2 {
		return Result{}, ErrTooFewPoints
	}
	key := CacheKey(points, providerProfile)
	if b.cache != nil {
		if line, ok := b.cacheGet(ctx, key); ok && len(line) >= 2 {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return Result{Polyline: line, Outcome: ProviderSnapped, Cached: true}, nil
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	line, err := b.snap(ctx, points, providerProfile)
	if err != nil {
		b.logger.Warn("routing provider failed, using straight fallback",
			zap.String("profile", providerProfile),
			zap.Int("points", len(points)),
			zap.Error(err))
		return Result{Polyline: points.Clone(), Outcome: FallbackStraight, ProviderErr: err}, nil
	}
	if b.cache != nil {
		b.cacheSet(ctx, key, line)
	}
	return Result{Polyline: line, Outcome: ProviderSnapped}, nil
}

func (b *Builder) snap(parent context.Context, points geo.Polyline, profile string) (geo.Polyline, error) {
	ctx, cancel := context.WithTimeout(parent, b.timeout)
	defer cancel()

	coords := make([][2]float64, len(points))
	for i, p := range points {
		coords[i] = p.LonLat()
	}
	start := time.Now()
	raw, err := b.provider.Route(ctx, coords, profile)
	metrics.ProviderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		cls := classify(ctx, err)
		metrics.ProviderRequests.WithLabelValues(resultLabel(cls)).Inc()
		return nil, fmt.Errorf("%w: %v", cls, err)
	}

	line := make(geo.Polyline, 0, len(raw))
	for _, pair := range raw {
		p, err := b.resolver.ResolvePair(ctx, pair[0], pair[1], reconcile.LonLat)
		if err != nil {
			continue
		}
		line = append(line, p)
	}
	if len(line) < 2 {
		metrics.ProviderRequests.WithLabelValues("short").Inc()
		return nil, fmt.Errorf("%w: provider returned %d usable points", ErrProviderUnavailable, len(line))
	}
	metrics.ProviderRequests.WithLabelValues("ok").Inc()
	return line, nil
}

func (b *Builder) cacheGet(parent context.Context, key string) (geo.Polyline, bool) {
	ctx, cancel := context.WithTimeout(parent, b.cacheTimeout)
	defer cancel()
	return b.cache.Get(ctx, key)
}

func (b *Builder) cacheSet(parent context.Context, key string, line geo.Polyline) {
	ctx, cancel := context.WithTimeout(parent, b.cacheTimeout)
	defer cancel()
	b.cache.Set(ctx, key, line)
}

func resultLabel(err error) string {
	if err == ErrProviderTimeout {
		return "timeout"
	}
	return "error"
}
