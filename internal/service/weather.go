// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wneessen/weather-cards/internal/analysis"
	"github.com/wneessen/weather-cards/internal/geocode"
	"github.com/wneessen/weather-cards/internal/geolocation"
	"github.com/wneessen/weather-cards/internal/history"
	"github.com/wneessen/weather-cards/internal/logger"
	"github.com/wneessen/weather-cards/internal/weather"
)

const FetchTimeout = time.Second * 10

var (
	// ErrEmptyQuery is returned by Search for blank queries.
	ErrEmptyQuery = errors.New("empty search query")
	// ErrInvalidCoordinates is returned by SearchCoordinates for coordinates out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrNoCity is returned by Locate if the position could not be resolved to a city.
	ErrNoCity = errors.New("could not determine city name from coordinates")
	// ErrLocateFailed is returned by Locate for failures other than the geolocation errors.
	ErrLocateFailed = errors.New("failed to get location")
	// ErrAnalysisFailed is returned by Analyze if a valid image could not be analyzed.
	ErrAnalysisFailed = errors.New("failed to analyze image")
	// ErrStorage is returned if a resolved result could not be written to the store.
	ErrStorage = errors.New("failed to save data")
)

// Located is the result of a successful Locate.
type Located struct {
	Position geolocation.Position `json:"position"`
	City     geocode.City         `json:"city"`
	Record   weather.Record       `json:"record"`
}

// Search resolves query to a city, fetches its current conditions, stores the card and
// records the query in the search history.
func (s *Service) Search(ctx context.Context, query string) (weather.Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return weather.Record{}, ErrEmptyQuery
	}
	city, err := s.resolver.Lookup(ctx, query)
	if err != nil {
		return weather.Record{}, fmt.Errorf("failed to resolve city: %w", err)
	}
	record, err := s.fetch(ctx, city.Lat, city.Lon, query, city.Country)
	if err != nil {
		return weather.Record{}, err
	}
	s.store.AddSearch(ctx, query)
	return record, nil
}

// SearchCoordinates fetches the current conditions for a selected suggestion and stores
// the card under label. An empty label is resolved with a reverse lookup.
func (s *Service) SearchCoordinates(ctx context.Context, lat, lon float64, label string) (weather.Record, error) {
	if !(geolocation.Position{Lat: lat, Lon: lon}).Valid() {
		return weather.Record{}, fmt.Errorf("%w: %f/%f", ErrInvalidCoordinates, lat, lon)
	}
	label = strings.TrimSpace(label)
	country := ""
	if label == "" {
		city, err := s.resolver.Reverse(ctx, lat, lon)
		if err != nil {
			return weather.Record{}, fmt.Errorf("%w: %w", ErrNoCity, err)
		}
		label, country = city.Label(), city.Country
	}
	return s.fetch(ctx, lat, lon, label, country)
}

// Suggest returns autocomplete candidates for query.
func (s *Service) Suggest(ctx context.Context, query string) ([]geocode.City, error) {
	cities, err := s.resolver.Suggest(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest cities: %w", err)
	}
	return cities, nil
}

// AddFavorite resolves query to a city and stores it as favorite.
func (s *Service) AddFavorite(ctx context.Context, query string) (history.Favorite, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return history.Favorite{}, ErrEmptyQuery
	}
	city, err := s.resolver.Lookup(ctx, query)
	if err != nil {
		return history.Favorite{}, fmt.Errorf("failed to resolve city: %w", err)
	}
	favorite := history.Favorite{
		Name:    city.Name,
		Country: city.Country,
		State:   city.State,
		Lat:     city.Lat,
		Lon:     city.Lon,
	}
	if !s.store.AddFavorite(ctx, favorite) {
		return history.Favorite{}, ErrStorage
	}
	return favorite, nil
}

// Locate determines the position of the machine, resolves it to a city and fetches the
// weather at that position. The city label is recorded in the search history.
func (s *Service) Locate(ctx context.Context) (Located, error) {
	pos, err := s.locator.Locate(ctx)
	if err != nil {
		switch {
		case errors.Is(err, geolocation.ErrPermissionDenied),
			errors.Is(err, geolocation.ErrPositionUnavailable),
			errors.Is(err, geolocation.ErrTimeout):
			return Located{}, err
		}
		return Located{}, fmt.Errorf("%w: %w", ErrLocateFailed, err)
	}
	city, err := s.resolver.Reverse(ctx, pos.Lat, pos.Lon)
	if err != nil {
		return Located{}, fmt.Errorf("%w: %w", ErrNoCity, err)
	}
	record, err := s.fetch(ctx, pos.Lat, pos.Lon, city.Label(), city.Country)
	if err != nil {
		return Located{}, err
	}
	s.store.AddSearch(ctx, city.Label())
	s.logger.Info("location detected", "city", city.Label(), "provider", pos.Source)
	return Located{Position: pos, City: city, Record: record}, nil
}

// Analyze runs the simulated image analysis on r and stores the result.
func (s *Service) Analyze(ctx context.Context, r io.Reader) (history.Analysis, error) {
	return AnalyzeImage(ctx, s.analyzer, s.store, s.logger, r)
}

// AnalyzeImage runs analyzer on r and stores the result in store. It talks to no provider,
// so it works without a Service.
func AnalyzeImage(ctx context.Context, analyzer *analysis.Analyzer, store *history.Store, log *logger.Logger,
	r io.Reader,
) (history.Analysis, error) {
	result, err := analyzer.Analyze(ctx, r)
	if err != nil {
		if errors.Is(err, analysis.ErrNotAnImage) {
			return history.Analysis{}, err
		}
		return history.Analysis{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	entry, ok := store.AddAnalysis(ctx, result)
	if !ok {
		log.Warn("analysis result could not be stored")
	}
	return entry, nil
}

// fetch queries the weather provider, normalizes the payload under label and stores the
// card. country fills in the country code if the provider did not report one.
func (s *Service) fetch(ctx context.Context, lat, lon float64, label, country string) (weather.Record, error) {
	ctxFetch, cancelFetch := context.WithTimeout(ctx, FetchTimeout)
	defer cancelFetch()

	payload, err := s.weather.Current(ctxFetch, lat, lon)
	if err != nil {
		s.logger.Error("failed to get weather data", logger.Err(err), "city", label)
		return weather.Record{}, fmt.Errorf("failed to fetch weather data: %w", err)
	}
	record, err := s.normalizer.Normalize(payload, label)
	if err != nil {
		return weather.Record{}, fmt.Errorf("failed to normalize weather data: %w", err)
	}
	if record.Country == "" {
		record.Country = country
	}
	if !s.store.AppendWeather(ctx, record) {
		s.logger.Warn("weather card could not be stored", "city", label)
	}
	return record, nil
}
