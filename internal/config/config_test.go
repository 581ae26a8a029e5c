// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	const (
		expectDefaultUnits        = "metric"
		expectLogLevel            = slog.LevelInfo
		expectGeolocationTimeout  = time.Second * 10
		expectGeolocationMaxAge   = time.Second * 60
		expectStorageBackend      = "sqlite"
		expectStorageQuota        = 5 * 1024 * 1024
		expectIntervalRefresh     = time.Minute * 15
		expectWeatherProvider     = "openweathermap"
		expectAnalysisDelay       = time.Second * 2
		expectServerListenAddress = "127.0.0.1:8080"
	)
	t.Run("new config with all defaults set", func(t *testing.T) {
		conf, err := New()
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.Units != expectDefaultUnits {
			t.Errorf("expected units to be: %s, got %s", expectDefaultUnits, conf.Units)
		}
		if conf.LogLevel != expectLogLevel {
			t.Errorf("expected log level to be: %s, got %s", expectLogLevel, conf.LogLevel)
		}
		if conf.GeoLocation.Timeout != expectGeolocationTimeout {
			t.Errorf("expected geolocation timeout to be: %s, got %s", expectGeolocationTimeout,
				conf.GeoLocation.Timeout)
		}
		if conf.GeoLocation.MaxAge != expectGeolocationMaxAge {
			t.Errorf("expected geolocation max age to be: %s, got %s", expectGeolocationMaxAge,
				conf.GeoLocation.MaxAge)
		}
		if conf.Storage.Backend != expectStorageBackend {
			t.Errorf("expected storage backend to be: %s, got %s", expectStorageBackend, conf.Storage.Backend)
		}
		if conf.Storage.Quota != expectStorageQuota {
			t.Errorf("expected storage quota to be: %d, got %d", expectStorageQuota, conf.Storage.Quota)
		}
		if conf.Storage.Path == "" {
			t.Error("expected storage path to be derived")
		}
		if conf.Intervals.Refresh != expectIntervalRefresh {
			t.Errorf("expected refresh interval to be: %s, got %s", expectIntervalRefresh, conf.Intervals.Refresh)
		}
		if conf.Weather.Provider != expectWeatherProvider {
			t.Errorf("expected weather provider to be: %s, got %s", expectWeatherProvider, conf.Weather.Provider)
		}
		if conf.Analysis.Delay != expectAnalysisDelay {
			t.Errorf("expected analysis delay to be: %s, got %s", expectAnalysisDelay, conf.Analysis.Delay)
		}
		if conf.Server.Listen != expectServerListenAddress {
			t.Errorf("expected listen address to be: %s, got %s", expectServerListenAddress, conf.Server.Listen)
		}
		if conf.Templates.Card != DefaultCardTpl {
			t.Error("expected default card template to be set")
		}
		if conf.Templates.Analysis != DefaultAnalysisTpl {
			t.Error("expected default analysis template to be set")
		}
		if !conf.NeedsAPIKey() {
			t.Error("expected default providers to require an API key")
		}
	})
	t.Run("open-meteo with nominatim needs no API key", func(t *testing.T) {
		t.Setenv("WEATHERCARDS_WEATHER_PROVIDER", "open-meteo")
		t.Setenv("WEATHERCARDS_GEOCODER_PROVIDER", "nominatim")
		conf, err := New()
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.NeedsAPIKey() {
			t.Error("expected no API key to be required")
		}
	})
	t.Run("the API key is read from a .env file", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("WEATHERCARDS_APIKEY=from-dotenv\n"), 0o600); err != nil {
			t.Fatalf("failed to write .env file: %s", err)
		}
		t.Chdir(dir)
		t.Setenv("WEATHERCARDS_APIKEY", "")
		if err := os.Unsetenv("WEATHERCARDS_APIKEY"); err != nil {
			t.Fatalf("failed to unset env: %s", err)
		}
		conf, err := New()
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.APIKey != "from-dotenv" {
			t.Errorf("expected API key to be read from .env, got %q", conf.APIKey)
		}
	})
	t.Run("new config with invalid values from env", func(t *testing.T) {
		t.Setenv("WEATHERCARDS_LOGLEVEL", "invalid")
		_, err := New()
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
	t.Run("zero values fall back to the defaults", func(t *testing.T) {
		t.Setenv("WEATHERCARDS_WEATHER_RATE_LIMIT", "0")
		t.Setenv("WEATHERCARDS_GEOLOCATION_TIMEOUT", "0s")
		t.Setenv("WEATHERCARDS_INTERVALS_REFRESH", "0s")
		conf, err := New()
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.Weather.RateLimit != 5 {
			t.Errorf("expected rate limit 5, got %f", conf.Weather.RateLimit)
		}
		if conf.GeoLocation.Timeout != 10*time.Second {
			t.Errorf("expected geolocation timeout 10s, got %s", conf.GeoLocation.Timeout)
		}
		if conf.Intervals.Refresh != 15*time.Minute {
			t.Errorf("expected refresh interval 15m, got %s", conf.Intervals.Refresh)
		}
	})
	t.Run("config validation fails", func(t *testing.T) {
		tests := []struct {
			name  string
			key   string
			value string
		}{
			{"units", "WEATHERCARDS_UNITS", "invalid"},
			{"weather provider", "WEATHERCARDS_WEATHER_PROVIDER", "invalid"},
			{"geocoder provider", "WEATHERCARDS_GEOCODER_PROVIDER", "invalid"},
			{"rate limit", "WEATHERCARDS_WEATHER_RATE_LIMIT", "-1"},
			{"geolocation timeout", "WEATHERCARDS_GEOLOCATION_TIMEOUT", "-1s"},
			{"geolocation max age", "WEATHERCARDS_GEOLOCATION_MAX_AGE", "-1s"},
			{"burst", "WEATHERCARDS_WEATHER_BURST", "-1"},
			{"analysis delay", "WEATHERCARDS_ANALYSIS_DELAY", "-1s"},
			{"storage backend", "WEATHERCARDS_STORAGE_BACKEND", "invalid"},
			{"storage quota", "WEATHERCARDS_STORAGE_QUOTA", "-1"},
			{"refresh interval", "WEATHERCARDS_INTERVALS_REFRESH", "-1s"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				t.Setenv(tc.key, tc.value)
				if _, err := New(); err == nil {
					t.Error("expected config to fail, but didn't")
				}
			})
		}
	})
}

func TestNewFromFile(t *testing.T) {
	t.Run("reading config from valid file succeeds", func(t *testing.T) {
		conf, err := NewFromFile("../../etc", "config.toml")
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.Units != "metric" {
			t.Errorf("expected units to be: metric, got %s", conf.Units)
		}
		if conf.GeoCoder.CacheTTL != time.Hour {
			t.Errorf("expected geocoder cache TTL to be: 1h, got %s", conf.GeoCoder.CacheTTL)
		}
		if conf.Weather.Burst != 5 {
			t.Errorf("expected weather burst to be: 5, got %d", conf.Weather.Burst)
		}
	})
	t.Run("reading config from non-existent file fails", func(t *testing.T) {
		_, err := NewFromFile("../../etc", "non-existent.toml")
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
	t.Run("reading invalid config file fails", func(t *testing.T) {
		_, err := NewFromFile("../../testdata", "invalid.toml")
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
}
