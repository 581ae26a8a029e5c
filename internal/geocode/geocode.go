// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a lookup succeeded but yielded no city.
	ErrNotFound = errors.New("city not found")
	// ErrQueryTooShort is returned for queries below MinQueryLength.
	ErrQueryTooShort = errors.New("query too short")
)

// City is the canonical identity of a place as returned by the geocoding APIs.
type City struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`

	// CacheHit is set when the city was served from a CachedGeocoder.
	CacheHit bool `json:"-"`
}

// Label returns the "Name, CountryCode" form used for searches and history entries.
func (c City) Label() string {
	if c.Country == "" {
		return c.Name
	}
	return c.Name + ", " + c.Country
}

// Geocoder is implemented by each geocoding API backend. Search returns at most limit
// candidates, an empty result is not an error. Reverse returns ErrNotFound if no city
// matches the coordinates.
type Geocoder interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]City, error)
	Reverse(ctx context.Context, lat, lon float64) (City, error)
}
