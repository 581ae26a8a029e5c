// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package http

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

const (
	breakerMaxRequests  = 1
	breakerInterval     = time.Minute
	breakerTimeout      = time.Second * 30
	breakerTripFailures = 5
)

// ErrCircuitOpen is returned while the breaker rejects requests to a failing API.
var ErrCircuitOpen = errors.New("API temporarily unavailable")

// BreakerClient guards a Client with a circuit breaker. Only transient failures, as
// reported by IsTransient, count towards opening the circuit. Requests are never retried.
type BreakerClient struct {
	client  *Client
	circuit *gobreaker.CircuitBreaker
}

// NewBreakerClient returns a BreakerClient named after the API it protects.
func NewBreakerClient(client *Client, name string) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: breakerMaxRequests,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripFailures
		},
		IsSuccessful: func(err error) bool {
			return !IsTransient(err)
		},
	}
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		if client.logger == nil {
			return
		}
		client.logger.Warn("circuit breaker state changed", "api", name, "from", from.String(),
			"to", to.String())
	}
	return &BreakerClient{client: client, circuit: gobreaker.NewCircuitBreaker(settings)}
}

// GetWithTimeout performs Client.GetWithTimeout through the circuit breaker.
func (b *BreakerClient) GetWithTimeout(ctx context.Context, endpoint string, target any, query url.Values,
	headers map[string]string, timeout time.Duration,
) (int, error) {
	code, err := b.circuit.Execute(func() (any, error) {
		return b.client.GetWithTimeout(ctx, endpoint, target, query, headers, timeout)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return 0, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	status, _ := code.(int)
	return status, err
}

// State returns the current state of the breaker.
func (b *BreakerClient) State() gobreaker.State {
	return b.circuit.State()
}
