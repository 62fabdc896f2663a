// Package weather provides a job-scoped memoizing wrapper around a weather
// provider. A fresh Cache is created for every job: weather does not change
// mid-search, so entries are never invalidated within a job's lifetime.
package weather

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
	"github.com/ShowzZzie/holiday-destination-finder/internal/provider"
)

// Cache memoizes weather lookups keyed by (coordinates, departure, return).
// Safe for concurrent use by the destination workers of one job; concurrent
// requests for the same key share a single in-flight fetch.
type Cache struct {
	source provider.WeatherProvider

	mu      sync.RWMutex
	entries map[string]model.WeatherSummary
	group   singleflight.Group
}

// NewCache wraps source with a fresh, empty cache.
func NewCache(source provider.WeatherProvider) *Cache {
	return &Cache{
		source:  source,
		entries: make(map[string]model.WeatherSummary),
	}
}

// Lookup returns the cached summary for the key, fetching it at most once.
func (c *Cache) Lookup(ctx context.Context, lat, lon float64, departure, ret string) (model.WeatherSummary, error) {
	key := fmt.Sprintf("%.4f:%.4f:%s:%s", lat, lon, departure, ret)

	c.mu.RLock()
	summary, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return summary, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		fetched, err := c.source.Lookup(ctx, lat, lon, departure, ret)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = fetched
		c.mu.Unlock()
		return fetched, nil
	})
	if err != nil {
		return model.WeatherSummary{}, err
	}
	return v.(model.WeatherSummary), nil
}
