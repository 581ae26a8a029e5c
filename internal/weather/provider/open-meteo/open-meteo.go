// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package openmeteo

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hectormalot/omgo"
	"github.com/nathan-osman/go-sunrise"

	"github.com/wneessen/weather-cards/internal/logger"
	"github.com/wneessen/weather-cards/internal/weather"
)

const (
	name       = "open-meteo"
	apiTimeout = time.Second * 10
)

var hourlyMetrics = []string{
	"apparent_temperature", "relative_humidity_2m", "pressure_msl", "visibility", "is_day",
}

// wmoCondition maps a WMO weather code to a description and the day/night neutral prefix
// of the matching provider icon code.
type wmoCondition struct {
	Description string
	Icon        string
}

var wmoConditions = map[int]wmoCondition{
	0:  {"clear sky", "01"},
	1:  {"mainly clear", "02"},
	2:  {"partly cloudy", "03"},
	3:  {"overcast", "04"},
	45: {"fog", "50"},
	48: {"depositing rime fog", "50"},
	51: {"light drizzle", "09"},
	53: {"moderate drizzle", "09"},
	55: {"dense drizzle", "09"},
	56: {"light freezing drizzle", "09"},
	57: {"dense freezing drizzle", "09"},
	61: {"slight rain", "10"},
	63: {"moderate rain", "10"},
	65: {"heavy rain", "10"},
	66: {"light freezing rain", "13"},
	67: {"heavy freezing rain", "13"},
	71: {"slight snow fall", "13"},
	73: {"moderate snow fall", "13"},
	75: {"heavy snow fall", "13"},
	77: {"snow grains", "13"},
	80: {"slight rain showers", "09"},
	81: {"moderate rain showers", "09"},
	82: {"violent rain showers", "09"},
	85: {"slight snow showers", "13"},
	86: {"heavy snow showers", "13"},
	95: {"thunderstorm", "11"},
	96: {"thunderstorm with slight hail", "11"},
	99: {"thunderstorm with heavy hail", "11"},
}

// forecaster is satisfied by omgo.Client.
type forecaster interface {
	Forecast(ctx context.Context, loc omgo.Location, opts *omgo.Options) (*omgo.Forecast, error)
}

type OpenMeteo struct {
	client forecaster
	log    *logger.Logger
}

func New(log *logger.Logger) (*OpenMeteo, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	client, err := omgo.NewClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create Open-Meteo client: %w", err)
	}
	return &OpenMeteo{client: client, log: log}, nil
}

func (o *OpenMeteo) Name() string {
	return name
}

// Current fetches the current conditions for the coordinates and translates them into the
// provider payload shape. Wind speeds are requested in m/s.
func (o *OpenMeteo) Current(ctx context.Context, lat, lon float64) (*weather.Payload, error) {
	ctxFetch, cancelFetch := context.WithTimeout(ctx, apiTimeout)
	defer cancelFetch()

	location, err := omgo.NewLocation(lat, lon)
	if err != nil {
		return nil, fmt.Errorf("failed create Open-Meteo location from coordinates: %w", err)
	}
	opts := &omgo.Options{
		TemperatureUnit:   "celsius",
		WindspeedUnit:     "ms",
		PrecipitationUnit: "mm",
		Timezone:          "UTC",
		HourlyMetrics:     hourlyMetrics,
	}
	forecast, err := o.client.Forecast(ctxFetch, location, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve weather data from Open-Meteo API: %w", err)
	}
	if forecast == nil {
		return nil, fmt.Errorf("Open-Meteo API returned no forecast")
	}

	current := forecast.CurrentWeather
	observed := current.Time.Time
	if observed.IsZero() {
		observed = time.Now()
	}
	idx := nearestHour(forecast.HourlyTimes, observed)
	hourly := func(metric string, fallback float64) float64 {
		values, ok := forecast.HourlyMetrics[metric]
		if !ok || idx < 0 || idx >= len(values) {
			return fallback
		}
		return values[idx]
	}

	rise, set := sunrise.SunriseSunset(lat, lon, observed.Year(), observed.Month(), observed.Day())
	isDay := observed.After(rise) && observed.Before(set)
	if dayMetric := hourly("is_day", -1); dayMetric >= 0 {
		isDay = dayMetric == 1
	}

	code := int(current.WeatherCode)
	cond, ok := wmoConditions[code]
	if !ok {
		o.log.Debug("unknown WMO weather code", "code", code)
		cond = wmoConditions[3]
	}
	icon := cond.Icon + "n"
	if isDay {
		icon = cond.Icon + "d"
	}

	payload := new(weather.Payload)
	payload.Main.Temp = current.Temperature
	payload.Main.FeelsLike = hourly("apparent_temperature", current.Temperature)
	payload.Main.Humidity = hourly("relative_humidity_2m", 0)
	payload.Main.Pressure = hourly("pressure_msl", 0)
	payload.Wind.Speed = current.WindSpeed
	payload.Wind.Deg = current.WindDirection
	payload.Weather = []weather.Condition{{Description: cond.Description, Icon: icon}}
	payload.Visibility = hourly("visibility", 0)
	payload.Sys.Sunrise = rise.Unix()
	payload.Sys.Sunset = set.Unix()
	payload.Dt = observed.Unix()

	return payload, nil
}

// nearestHour returns the index of the hourly entry closest to t or -1 if there is none.
func nearestHour(times []time.Time, t time.Time) int {
	idx := -1
	best := math.MaxFloat64
	for i, ht := range times {
		if diff := math.Abs(float64(ht.Sub(t))); diff < best {
			best = diff
			idx = i
		}
	}
	return idx
}
