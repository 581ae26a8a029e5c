// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"

	"github.com/wneessen/weather-cards/internal/config"
	"github.com/wneessen/weather-cards/internal/geocode"
	geocodeowm "github.com/wneessen/weather-cards/internal/geocode/provider/openweathermap"
	"github.com/wneessen/weather-cards/internal/geocode/provider/opencage"
	nominatim "github.com/wneessen/weather-cards/internal/geocode/provider/osm-nominatim"
	"github.com/wneessen/weather-cards/internal/geolocation"
	"github.com/wneessen/weather-cards/internal/geolocation/provider/file"
	"github.com/wneessen/weather-cards/internal/geolocation/provider/geoclue"
	"github.com/wneessen/weather-cards/internal/geolocation/provider/geoip"
	"github.com/wneessen/weather-cards/internal/geolocation/provider/gpsd"
	"github.com/wneessen/weather-cards/internal/geolocation/provider/ichnaea"
	"github.com/wneessen/weather-cards/internal/http"
	"github.com/wneessen/weather-cards/internal/logger"
	"github.com/wneessen/weather-cards/internal/storage"
	"github.com/wneessen/weather-cards/internal/storage/redis"
	"github.com/wneessen/weather-cards/internal/storage/sqlite"
	"github.com/wneessen/weather-cards/internal/weather"
	openmeteo "github.com/wneessen/weather-cards/internal/weather/provider/open-meteo"
	weatherowm "github.com/wneessen/weather-cards/internal/weather/provider/openweathermap"
)

// selectGeolocationProviders returns the enabled providers, most precise first.
func (s *Service) selectGeolocationProviders() []geolocation.Provider {
	httpClient := http.New(s.logger)
	var provider []geolocation.Provider

	if !s.config.GeoLocation.DisableFile {
		provider = append(provider, file.New(s.config.GeoLocation.File))
	}
	if !s.config.GeoLocation.DisableGeoClue {
		provider = append(provider, geoclue.New())
	}
	if !s.config.GeoLocation.DisableGPSD {
		provider = append(provider, gpsd.New(gpsd.DefaultHost, gpsd.DefaultPort))
	}
	if !s.config.GeoLocation.DisableICHNAEA {
		provider = append(provider, ichnaea.New(httpClient, s.logger))
	}
	if !s.config.GeoLocation.DisableGeoIP {
		provider = append(provider, geoip.New(httpClient))
	}
	if len(provider) == 0 {
		s.logger.Warn("no geolocation providers enabled")
	}
	return provider
}

func (s *Service) selectGeocodeProvider() (geocode.Geocoder, error) {
	var coder geocode.Geocoder
	var err error
	client := http.New(s.logger)
	lang := s.t.Language()

	switch {
	case providerIs(s.config.GeoCoder.Provider, "openweathermap"):
		coder, err = geocodeowm.New(client, s.config.APIKey)
	case providerIs(s.config.GeoCoder.Provider, "nominatim"):
		coder = nominatim.New(client, lang)
	case providerIs(s.config.GeoCoder.Provider, "opencage"):
		coder, err = opencage.New(client, lang, s.config.GeoCoder.APIKey)
	default:
		return nil, fmt.Errorf("unsupported geocoder type: %s", s.config.GeoCoder.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s geocoder: %w", s.config.GeoCoder.Provider, err)
	}
	return geocode.NewCachedGeocoder(coder, s.config.GeoCoder.CacheTTL, cacheMissTTL), nil
}

func (s *Service) selectWeatherProvider() (provider weather.Provider, err error) {
	switch {
	case providerIs(s.config.Weather.Provider, "openweathermap"):
		provider, err = weatherowm.New(http.New(s.logger), s.config.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenWeatherMap weather provider: %w", err)
		}
	case providerIs(s.config.Weather.Provider, "open-meteo"):
		provider, err = openmeteo.New(s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Open-Meteo weather provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported weather provider: %s", s.config.Weather.Provider)
	}
	return provider, nil
}

// OpenBackend opens the storage backend selected in conf.
func OpenBackend(ctx context.Context, conf *config.Config, log *logger.Logger) (storage.Backend, error) {
	switch conf.Storage.Backend {
	case "memory":
		return storage.NewMemory(), nil
	case "redis":
		backend, err := redis.New(ctx, redis.Options{
			Addr:     conf.Storage.RedisAddr,
			Password: conf.Storage.RedisPassword,
			DB:       conf.Storage.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open redis storage: %w", err)
		}
		return backend, nil
	case "sqlite":
		backend, err := sqlite.New(ctx, conf.Storage.Path, log.Component("sqlite"))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", conf.Storage.Backend)
	}
}
