// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weather

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Provider so that at most rps requests per second (with the
// given burst) reach the upstream API.
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimitedProvider wraps provider with a token bucket limiter.
func NewRateLimitedProvider(provider Provider, rps float64, burst int) *RateLimitedProvider {
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Name returns the name of the wrapped provider.
func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

// Current waits for the limiter before forwarding the request to the wrapped provider.
func (r *RateLimitedProvider) Current(ctx context.Context, lat, lon float64) (*Payload, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.provider.Current(ctx, lat, lon)
}

var _ Provider = (*RateLimitedProvider)(nil)
