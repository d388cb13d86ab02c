package routing

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"tripnav/internal/geo"
)

// DefaultCacheSize matches the number of distinct geometries kept in memory.
const DefaultCacheSize = 100

// Cache stores snapped geometry keyed by CacheKey.
type Cache interface {
	Get(ctx context.Context, key string) (geo.Polyline, bool)
	Set(ctx context.Context, key string, line geo.Polyline)
}

// CacheKey identifies a request by profile and coordinates rounded to four
// decimals (about 11 m), so nearby re-clicks share an entry.
func CacheKey(points geo.Polyline, profile string) string {
	var sb strings.Builder
	sb.WriteString(profile)
	for _, p := range points {
		sb.WriteByte('|')
		sb.WriteString(strconv.FormatFloat(p.Lat, 'f', 4, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(p.Lon, 'f', 4, 64))
	}
	return sb.String()
}

// MemoryCache is a bounded FIFO cache; the oldest insert is evicted first.
type MemoryCache struct {
	mu    sync.Mutex
	max   int
	items map[string]geo.Polyline
	order []string
}

// NewMemoryCache returns a FIFO cache holding at most size entries.
func NewMemoryCache(size int) *MemoryCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &MemoryCache{max: size, items: make(map[string]geo.Polyline, size)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (geo.Polyline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	line, ok := c.items[key]
	if !ok {
		return nil, false
	}
	return line.Clone(), true
}

func (c *MemoryCache) Set(_ context.Context, key string, line geo.Polyline) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		if len(c.order) >= c.max {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.items, oldest)
		}
		c.order = append(c.order, key)
	}
	c.items[key] = line.Clone()
}

// Len reports the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
