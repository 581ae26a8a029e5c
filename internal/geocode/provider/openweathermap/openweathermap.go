// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package openweathermap

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/wneessen/weather-cards/internal/geocode"
	"github.com/wneessen/weather-cards/internal/http"
)

const (
	APIDirectEndpoint  = "https://api.openweathermap.org/geo/1.0/direct"
	APIReverseEndpoint = "https://api.openweathermap.org/geo/1.0/reverse"
	APITimeout         = time.Second * 10
	name               = "openweathermap"
)

var ErrMissingAPIKey = errors.New("OpenWeatherMap API key is required")

type OpenWeatherMap struct {
	apikey string
	http   *http.BreakerClient
}

// Result is a single entry of the geocoding API response.
type Result struct {
	Name       string            `json:"name"`
	LocalNames map[string]string `json:"local_names"`
	Lat        float64           `json:"lat"`
	Lon        float64           `json:"lon"`
	Country    string            `json:"country"`
	State      string            `json:"state"`
}

func New(client *http.Client, apikey string) (*OpenWeatherMap, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if apikey == "" {
		return nil, ErrMissingAPIKey
	}
	return &OpenWeatherMap{
		apikey: apikey,
		http:   http.NewBreakerClient(client, "openweathermap-geocoding"),
	}, nil
}

func (o *OpenWeatherMap) Name() string {
	return name
}

func (o *OpenWeatherMap) Search(ctx context.Context, query string, limit int) ([]geocode.City, error) {
	var results []Result

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("appid", o.apikey)

	if _, err := o.http.GetWithTimeout(ctx, APIDirectEndpoint, &results, params, nil, APITimeout); err != nil {
		return nil, fmt.Errorf("failed to fetch cities from OpenWeatherMap geocoding API: %w", err)
	}

	cities := make([]geocode.City, 0, len(results))
	for _, result := range results {
		cities = append(cities, result.city())
	}
	return cities, nil
}

func (o *OpenWeatherMap) Reverse(ctx context.Context, lat, lon float64) (geocode.City, error) {
	var results []Result

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("limit", "1")
	params.Set("appid", o.apikey)

	if _, err := o.http.GetWithTimeout(ctx, APIReverseEndpoint, &results, params, nil, APITimeout); err != nil {
		return geocode.City{}, fmt.Errorf("failed to fetch city from OpenWeatherMap geocoding API: %w", err)
	}
	if len(results) == 0 {
		return geocode.City{}, geocode.ErrNotFound
	}
	return results[0].city(), nil
}

func (r Result) city() geocode.City {
	return geocode.City{
		Name:    r.Name,
		Country: r.Country,
		State:   r.State,
		Lat:     r.Lat,
		Lon:     r.Lon,
	}
}
