// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

const (
	// MinQueryLength is the minimum number of characters a query needs before it is sent
	// to the geocoding API.
	MinQueryLength = 2
	// SuggestLimit caps the number of autocomplete candidates.
	SuggestLimit = 5
	// LookupLimit is used when the caller resolves a final search.
	LookupLimit = 1
)

// Resolver turns free-text queries and coordinates into cities.
type Resolver struct {
	coder   Geocoder
	limiter *rate.Limiter
}

// NewResolver returns a Resolver for coder that sends at most rps requests per second.
func NewResolver(coder Geocoder, rps float64, burst int) *Resolver {
	return &Resolver{
		coder:   coder,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Name returns the name of the underlying geocoder.
func (r *Resolver) Name() string {
	return r.coder.Name()
}

// Suggest returns up to SuggestLimit candidates for query. Queries shorter than
// MinQueryLength yield no candidates and no request.
func (r *Resolver) Suggest(ctx context.Context, query string) ([]City, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil, nil
	}
	return r.search(ctx, query, SuggestLimit)
}

// Lookup resolves query to the single best matching city. It returns ErrQueryTooShort for
// short queries and ErrNotFound if the API knows no such city.
func (r *Resolver) Lookup(ctx context.Context, query string) (City, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return City{}, ErrQueryTooShort
	}
	cities, err := r.search(ctx, query, LookupLimit)
	if err != nil {
		return City{}, err
	}
	if len(cities) == 0 {
		return City{}, fmt.Errorf("%w: %q", ErrNotFound, query)
	}
	return cities[0], nil
}

// Reverse resolves coordinates to a city. It returns ErrNotFound if there is none.
func (r *Resolver) Reverse(ctx context.Context, lat, lon float64) (City, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return City{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	city, err := r.coder.Reverse(ctx, lat, lon)
	if err != nil {
		return City{}, fmt.Errorf("failed to reverse geocode coordinates: %w", err)
	}
	return city, nil
}

func (r *Resolver) search(ctx context.Context, query string, limit int) ([]City, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	cities, err := r.coder.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode %q: %w", query, err)
	}
	if len(cities) > limit {
		cities = cities[:limit]
	}
	return cities, nil
}
