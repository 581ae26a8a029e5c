// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geolocation determines the current position of the machine from a set of
// location providers.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/wneessen/weather-cards/internal/logger"
)

const (
	accuracyEpsilon = 1e-6

	// DefaultTimeout bounds a single position request.
	DefaultTimeout = time.Second * 10
	// DefaultMaxAge is how long a position is reused without asking the providers again.
	DefaultMaxAge = time.Second * 60
)

// Accuracy levels in meters that providers report when they have no measured accuracy.
const (
	AccuracyExact   = 10
	AccuracyStreet  = 1000
	AccuracyZip     = 3000
	AccuracyCity    = 15000
	AccuracyRegion  = 100000
	AccuracyCountry = 300000
	AccuracyUnknown = 1000000
	TruncPrecision  = 4
)

var (
	// ErrPermissionDenied is returned if a provider refused to share the position.
	ErrPermissionDenied = errors.New("location access denied")
	// ErrPositionUnavailable is returned if no provider could determine a position.
	ErrPositionUnavailable = errors.New("location information unavailable")
	// ErrTimeout is returned if no provider answered within the timeout.
	ErrTimeout = errors.New("location request timed out")
)

// Provider is a single source of positions. Locate returns a wrapped ErrPermissionDenied
// if the source refuses access.
type Provider interface {
	Name() string
	Locate(ctx context.Context) (Position, error)
}

// Position is a located coordinate with its accuracy radius.
type Position struct {
	Lat, Lon       float64
	AccuracyMeters float64
	Source         string
	At             time.Time

	CacheHit bool `json:"-"`
}

// BetterThan reports whether p is more accurate than prev. An empty prev is always worse.
func (p Position) BetterThan(prev Position) bool {
	if prev.Source == "" {
		return true
	}
	return p.AccuracyMeters < prev.AccuracyMeters-accuracyEpsilon
}

// Valid checks if the coordinate is valid according to the EPSG logic
func (p Position) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lon)
}

// Locator asks all providers concurrently for the position and picks the most accurate
// answer. The last answer is reused until it is older than the maximum age.
type Locator struct {
	providers []Provider
	timeout   time.Duration
	maxAge    time.Duration
	log       *logger.Logger
	now       func() time.Time

	mu   sync.Mutex
	last Position
}

// New returns a Locator over providers. Providers listed first win ties in accuracy.
func New(log *logger.Logger, timeout, maxAge time.Duration, providers ...Provider) *Locator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Locator{
		providers: providers,
		timeout:   timeout,
		maxAge:    maxAge,
		log:       log.Component("geolocation"),
		now:       time.Now,
	}
}

type attempt struct {
	index    int
	position Position
	err      error
}

// Locate returns the current position. It returns as soon as a provider reports a
// street-level position, otherwise when all providers answered or the timeout expired.
func (l *Locator) Locate(ctx context.Context) (Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.last.Source != "" && l.maxAge > 0 && l.now().Sub(l.last.At) <= l.maxAge {
		cached := l.last
		cached.CacheHit = true
		return cached, nil
	}
	if len(l.providers) == 0 {
		return Position{}, ErrPositionUnavailable
	}

	ctxLocate, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	attempts := make(chan attempt, len(l.providers))
	for i, p := range l.providers {
		go func() {
			pos, err := safeLocate(ctxLocate, p)
			attempts <- attempt{index: i, position: pos, err: err}
		}()
	}

	var best Position
	bestIndex := -1
	var errs []error
	timedOut := false
collect:
	for range l.providers {
		select {
		case <-ctxLocate.Done():
			timedOut = true
			break collect
		case a := <-attempts:
			name := l.providers[a.index].Name()
			if a.err != nil {
				l.log.Debug("location provider failed", logger.Err(a.err), "provider", name)
				errs = append(errs, a.err)
				continue
			}
			if !a.position.Valid() {
				l.log.Debug("location provider returned invalid coordinates", "provider", name)
				errs = append(errs, fmt.Errorf("%s: %w", name, ErrPositionUnavailable))
				continue
			}
			a.position.Source = name
			if bestIndex == -1 || a.position.BetterThan(best) ||
				(!best.BetterThan(a.position) && a.index < bestIndex) {
				best, bestIndex = a.position, a.index
			}
			if best.AccuracyMeters <= AccuracyStreet {
				break collect
			}
		}
	}

	if bestIndex == -1 {
		if err := ctx.Err(); err != nil {
			return Position{}, fmt.Errorf("location request canceled: %w", err)
		}
		for _, err := range errs {
			if errors.Is(err, ErrPermissionDenied) {
				return Position{}, ErrPermissionDenied
			}
		}
		if timedOut || errors.Is(ctxLocate.Err(), context.DeadlineExceeded) {
			return Position{}, ErrTimeout
		}
		return Position{}, ErrPositionUnavailable
	}

	if best.At.IsZero() {
		best.At = l.now()
	}
	l.last = best
	l.log.Debug("position located", "provider", best.Source, "accuracy", best.AccuracyMeters)
	return best, nil
}

// safeLocate invokes the Locate method of a Provider and recovers from potential panics.
func safeLocate(ctx context.Context, provider Provider) (pos Position, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider %s panicked: %v", provider.Name(), r)
		}
	}()
	return provider.Locate(ctx)
}

func Truncate(x float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Trunc(x*p) / p
}
