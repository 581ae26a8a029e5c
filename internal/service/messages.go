// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"errors"

	"github.com/vorlif/spreak"

	"github.com/wneessen/weather-cards/internal/analysis"
	"github.com/wneessen/weather-cards/internal/geocode"
	"github.com/wneessen/weather-cards/internal/geolocation"
	"github.com/wneessen/weather-cards/internal/http"
)

// UserMessage returns the localized message shown to the user for an error returned by
// one of the service operations.
func (s *Service) UserMessage(err error) string {
	return UserMessage(s.t, err)
}

// UserMessage maps err onto a localized user-facing message. Errors without a specific
// message get the generic fetch failure.
func UserMessage(t *spreak.Localizer, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyQuery):
		return t.Get("Please enter a city name.")
	case errors.Is(err, ErrNoCity):
		return t.Get("Could not determine city name from coordinates")
	case errors.Is(err, geolocation.ErrPermissionDenied):
		return t.Get("Location access denied. Please enable location services.")
	case errors.Is(err, geolocation.ErrPositionUnavailable):
		return t.Get("Location information unavailable.")
	case errors.Is(err, geolocation.ErrTimeout):
		return t.Get("Location request timed out.")
	case errors.Is(err, ErrLocateFailed):
		return t.Get("Failed to get your location")
	case errors.Is(err, analysis.ErrNotAnImage):
		return t.Get("Please select a valid image file")
	case errors.Is(err, ErrAnalysisFailed):
		return t.Get("Failed to analyze image")
	case errors.Is(err, geocode.ErrNotFound), errors.Is(err, geocode.ErrQueryTooShort),
		errors.Is(err, http.ErrNotFound):
		return t.Get("City not found. Please check the spelling and try again.")
	case errors.Is(err, ErrStorage):
		return t.Get("Failed to save data. The storage may be full or unavailable.")
	case errors.Is(err, ErrMissingAPIKey), errors.Is(err, http.ErrUnauthorized):
		return t.Get("API key error. Please check your OpenWeatherMap API key.")
	case errors.Is(err, http.ErrRateLimited):
		return t.Get("Too many requests. Please wait a moment and try again.")
	case errors.Is(err, http.ErrCircuitOpen):
		return t.Get("Weather service is currently unavailable. Please try again later.")
	default:
		return t.Get("Failed to fetch weather data. Please try again.")
	}
}

// LocationMessage returns the localized success message of a Locate.
func (s *Service) LocationMessage(located Located) string {
	return s.t.Getf("Location detected: %s", located.City.Label())
}
