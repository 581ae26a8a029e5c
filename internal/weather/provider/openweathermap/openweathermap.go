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

	"github.com/wneessen/weather-cards/internal/http"
	"github.com/wneessen/weather-cards/internal/weather"
)

const (
	name        = "openweathermap"
	apiEndpoint = "https://api.openweathermap.org/data/2.5/weather"
	apiTimeout  = time.Second * 10
)

var ErrMissingAPIKey = errors.New("OpenWeatherMap API key is required")

type OpenWeatherMap struct {
	apikey   string
	endpoint string
	http     *http.BreakerClient
}

func New(client *http.Client, apikey string) (*OpenWeatherMap, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if apikey == "" {
		return nil, ErrMissingAPIKey
	}
	return &OpenWeatherMap{
		apikey:   apikey,
		endpoint: apiEndpoint,
		http:     http.NewBreakerClient(client, name),
	}, nil
}

func (o *OpenWeatherMap) Name() string {
	return name
}

// Current fetches the current conditions for the coordinates. The API is always queried
// in metric units.
func (o *OpenWeatherMap) Current(ctx context.Context, lat, lon float64) (*weather.Payload, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("appid", o.apikey)
	query.Set("units", "metric")

	payload := new(weather.Payload)
	if _, err := o.http.GetWithTimeout(ctx, o.endpoint, payload, query, nil, apiTimeout); err != nil {
		return nil, fmt.Errorf("failed to retrieve weather data from OpenWeatherMap API: %w", err)
	}
	return payload, nil
}
