package routing

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tripnav/internal/geo"
)

// RedisCache shares snapped geometry between instances with a TTL.
type RedisCache struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewRedisCache connects using a redis:// URL.
func NewRedisCache(url string, ttl time.Duration, logger *zap.Logger) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisCacheClient(redis.NewClient(opt), ttl, logger), nil
}

// NewRedisCacheClient wraps an existing client.
func NewRedisCacheClient(rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: "routegeom:", logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) (geo.Polyline, bool) {
	data, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("route cache get failed", zap.Error(err))
		}
		return nil, false
	}
	var line geo.Polyline
	if err := json.Unmarshal(data, &line); err != nil {
		return nil, false
	}
	return line, true
}

func (c *RedisCache) Set(ctx context.Context, key string, line geo.Polyline) {
	data, err := json.Marshal(line)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Debug("route cache set failed", zap.Error(err))
	}
}

// Close releases the client.
func (c *RedisCache) Close() error { return c.rdb.Close() }
