// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weather

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrMalformedPayload is returned by Normalize if the payload lacks the nested fields a
// record is built from.
var ErrMalformedPayload = errors.New("malformed weather payload")

// compassLabels holds the 16 compass points, starting at north and turning clockwise.
var compassLabels = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// Provider is implemented by each weather API backend. Current returns the current
// conditions for the given coordinates in metric units.
type Provider interface {
	Name() string
	Current(ctx context.Context, lat, lon float64) (*Payload, error)
}

// Payload is the current-conditions document of the weather API. Providers that speak a
// different dialect translate their response into this shape.
type Payload struct {
	Name string `json:"name"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Weather    []Condition `json:"weather"`
	Visibility float64     `json:"visibility"`
	Sys        struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	// Dt is the observation time in Unix seconds
	Dt int64 `json:"dt"`
}

// Condition describes the observed weather condition.
type Condition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Record is one normalized weather observation. Temperatures are in °C, wind speed in
// km/h, visibility in km and pressure in hPa.
type Record struct {
	ID            int64     `json:"id"`
	City          string    `json:"city"`
	Country       string    `json:"country"`
	Temperature   int       `json:"temperature"`
	FeelsLike     int       `json:"feelsLike"`
	Humidity      int       `json:"humidity"`
	Pressure      int       `json:"pressure"`
	WindSpeed     int       `json:"windSpeed"`
	WindDirection string    `json:"windDirection"`
	Description   string    `json:"description"`
	Icon          string    `json:"icon"`
	Visibility    float64   `json:"visibility"`
	Sunrise       time.Time `json:"sunrise"`
	Sunset        time.Time `json:"sunset"`
	Timestamp     time.Time `json:"timestamp"`
}

// Normalizer turns provider payloads into records. The clock is replaceable so that
// record ids are predictable in tests.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer returns a Normalizer that uses the wall clock.
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Normalize converts payload into a Record labeled with city using the wall clock.
func Normalize(payload *Payload, city string) (Record, error) {
	return NewNormalizer().Normalize(payload, city)
}

// Normalize converts payload into a Record labeled with city. The record id is the current
// time in milliseconds since the epoch, two records normalized within the same millisecond
// share an id.
func (n *Normalizer) Normalize(payload *Payload, city string) (Record, error) {
	if payload == nil || len(payload.Weather) == 0 {
		return Record{}, ErrMalformedPayload
	}

	now := n.now()
	observed := now
	if payload.Dt > 0 {
		observed = time.Unix(payload.Dt, 0)
	}

	return Record{
		ID:            now.UnixMilli(),
		City:          city,
		Country:       payload.Sys.Country,
		Temperature:   int(math.Round(payload.Main.Temp)),
		FeelsLike:     int(math.Round(payload.Main.FeelsLike)),
		Humidity:      int(math.Round(payload.Main.Humidity)),
		Pressure:      int(math.Round(payload.Main.Pressure)),
		WindSpeed:     WindSpeedKmh(payload.Wind.Speed),
		WindDirection: WindDirection(payload.Wind.Deg),
		Description:   payload.Weather[0].Description,
		Icon:          payload.Weather[0].Icon,
		Visibility:    math.Max(payload.Visibility, 0) / 1000,
		Sunrise:       time.Unix(payload.Sys.Sunrise, 0),
		Sunset:        time.Unix(payload.Sys.Sunset, 0),
		Timestamp:     observed,
	}, nil
}

// WindDirection maps a bearing in degrees onto one of the 16 compass labels. Bearings
// outside of [0, 360) wrap around.
func WindDirection(deg float64) string {
	idx := int(math.Round(deg/22.5)) % len(compassLabels)
	if idx < 0 {
		idx += len(compassLabels)
	}
	return compassLabels[idx]
}

// WindSpeedKmh converts a wind speed in m/s into km/h, rounded to the nearest integer.
// Negative speeds are treated as calm.
func WindSpeedKmh(speed float64) int {
	if speed <= 0 {
		return 0
	}
	return int(math.Round(speed * 3.6))
}

// CompassLabels returns a copy of the 16 compass labels in clockwise order.
func CompassLabels() []string {
	labels := make([]string, len(compassLabels))
	copy(labels, compassLabels[:])
	return labels
}
