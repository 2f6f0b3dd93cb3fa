package geo

import (
	"context"
	"sync"

	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/service"
)

// CachingGeocoder memoises successful lookups of an underlying geocoder.
// Misses and errors are not cached, so a city that fails now may resolve later.
type CachingGeocoder struct {
	next    service.Geocoder
	entries map[string]model.Coordinates
	mu      sync.RWMutex
}

// NewCachingGeocoder wraps next with an in-memory cache.
func NewCachingGeocoder(next service.Geocoder) *CachingGeocoder {
	return &CachingGeocoder{
		next:    next,
		entries: make(map[string]model.Coordinates),
	}
}

// Coords returns cached coordinates or asks the wrapped geocoder.
func (c *CachingGeocoder) Coords(ctx context.Context, city string) (model.Coordinates, bool, error) {
	if coords, ok := c.get(city); ok {
		return coords, true, nil
	}

	coords, ok, err := c.next.Coords(ctx, city)
	if err != nil || !ok {
		return coords, ok, err
	}

	c.mu.Lock()
	c.entries[city] = coords
	c.mu.Unlock()

	return coords, true, nil
}

func (c *CachingGeocoder) get(city string) (model.Coordinates, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	coords, ok := c.entries[city]
	return coords, ok
}
