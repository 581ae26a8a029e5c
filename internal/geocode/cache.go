// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	// coordPrecision is the precision used to quantize coordinates (0.01 degrees ≈ 1.1 km)
	coordPrecision = 1e-2
	// pruneThreshold is the number of entries above which expired entries are dropped on write
	pruneThreshold = 256
)

type reverseKey struct {
	Provider string
	LatQ     int32
	LonQ     int32
}

type searchKey struct {
	Provider string
	Query    string
	Limit    int
}

type reverseResult struct {
	City  City
	Found bool
}

type cacheEntry[V any] struct {
	Value  V
	Expiry time.Time
}

// ttlCache is a map whose entries expire individually.
type ttlCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]cacheEntry[V]
	now     func() time.Time
}

func newTTLCache[K comparable, V any]() *ttlCache[K, V] {
	return &ttlCache[K, V]{entries: make(map[K]cacheEntry[V]), now: time.Now}
}

func (c *ttlCache[K, V]) get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || !c.now().Before(entry.Expiry) {
		var zero V
		return zero, false
	}
	return entry.Value, true
}

func (c *ttlCache[K, V]) set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if len(c.entries) >= pruneThreshold {
		for k, entry := range c.entries {
			if !now.Before(entry.Expiry) {
				delete(c.entries, k)
			}
		}
	}
	c.entries[key] = cacheEntry[V]{Value: value, Expiry: now.Add(ttl)}
}

func (c *ttlCache[K, V]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CachedGeocoder caches the results of a Geocoder. Reverse lookups are keyed by quantized
// coordinates, searches by their case-folded query and limit. Results that found nothing
// are kept for ttlMiss, failed lookups are not cached.
type CachedGeocoder struct {
	coder   Geocoder
	ttlHit  time.Duration
	ttlMiss time.Duration

	reverse *ttlCache[reverseKey, reverseResult]
	search  *ttlCache[searchKey, []City]
}

func NewCachedGeocoder(coder Geocoder, ttlHit, ttlMiss time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		coder:   coder,
		ttlHit:  ttlHit,
		ttlMiss: ttlMiss,
		reverse: newTTLCache[reverseKey, reverseResult](),
		search:  newTTLCache[searchKey, []City](),
	}
}

func (c *CachedGeocoder) Name() string {
	return "geocoder cache using " + c.coder.Name()
}

func (c *CachedGeocoder) Search(ctx context.Context, query string, limit int) ([]City, error) {
	// the key must not share memory with query
	key := searchKey{
		Provider: c.coder.Name(),
		Query:    strings.Clone(strings.ToLower(strings.TrimSpace(query))),
		Limit:    limit,
	}
	if cities, ok := c.search.get(key); ok {
		return markCached(cities), nil
	}

	cities, err := c.coder.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	ttl := c.ttlHit
	if len(cities) == 0 {
		ttl = c.ttlMiss
	}
	c.search.set(key, slices.Clone(cities), ttl)
	return cities, nil
}

func (c *CachedGeocoder) Reverse(ctx context.Context, lat, lon float64) (City, error) {
	key := newReverseKey(c.coder.Name(), lat, lon)
	if result, ok := c.reverse.get(key); ok {
		if !result.Found {
			return City{}, ErrNotFound
		}
		city := result.City
		city.CacheHit = true
		return city, nil
	}

	city, err := c.coder.Reverse(ctx, lat, lon)
	found := true
	switch {
	case errors.Is(err, ErrNotFound):
		found = false
	case err != nil:
		return city, err
	}

	ttl := c.ttlHit
	if !found {
		ttl = c.ttlMiss
	}
	c.reverse.set(key, reverseResult{City: city, Found: found}, ttl)
	return city, err
}

// markCached returns a copy of cities with CacheHit set, the cached slice stays untouched.
func markCached(cities []City) []City {
	if cities == nil {
		return nil
	}
	cached := make([]City, len(cities))
	for i, city := range cities {
		city.CacheHit = true
		cached[i] = city
	}
	return cached
}

func quantizeCoord(val float64) int32 {
	return int32(math.Round(val / coordPrecision))
}

func newReverseKey(provider string, lat, lon float64) reverseKey {
	return reverseKey{
		Provider: provider,
		LatQ:     quantizeCoord(lat),
		LonQ:     quantizeCoord(lon),
	}
}
