// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geoip

import (
	"errors"
	"log/slog"
	stdhttp "net/http"
	"testing"

	"github.com/wneessen/weather-cards/internal/geolocation"
	"github.com/wneessen/weather-cards/internal/http"
	"github.com/wneessen/weather-cards/internal/logger"
	"github.com/wneessen/weather-cards/internal/testhelper"
)

const (
	cityFile    = "../../../../testdata/geoip_berlin.json"
	countryFile = "../../../../testdata/geoip_country.json"
)

func TestProvider_Name(t *testing.T) {
	provider := New(http.New(logger.New(slog.LevelDebug)))
	if provider.Name() != name {
		t.Errorf("expected provider name to be %s, got %s", name, provider.Name())
	}
}

func TestProvider_Locate(t *testing.T) {
	t.Run("locate with zip code succeeds", func(t *testing.T) {
		provider := testProvider(t, testhelper.FileResponder(t, cityFile, 200))
		pos, err := provider.Locate(t.Context())
		if err != nil {
			t.Fatalf("failed to locate: %s", err)
		}
		if pos.Lat != 52.5196 {
			t.Errorf("expected latitude to be truncated to 52.5196, got %f", pos.Lat)
		}
		if pos.Lon != 13.4055 {
			t.Errorf("expected longitude to be truncated to 13.4055, got %f", pos.Lon)
		}
		if pos.AccuracyMeters != geolocation.AccuracyZip {
			t.Errorf("expected zip accuracy, got %f", pos.AccuracyMeters)
		}
	})
	t.Run("locate with country only succeeds", func(t *testing.T) {
		provider := testProvider(t, testhelper.FileResponder(t, countryFile, 200))
		pos, err := provider.Locate(t.Context())
		if err != nil {
			t.Fatalf("failed to locate: %s", err)
		}
		if pos.AccuracyMeters != geolocation.AccuracyCountry {
			t.Errorf("expected country accuracy, got %f", pos.AccuracyMeters)
		}
	})
	t.Run("service failure is returned", func(t *testing.T) {
		provider := testProvider(t, testhelper.BodyResponder("unavailable", 503))
		_, err := provider.Locate(t.Context())
		if !errors.Is(err, http.ErrUpstream) {
			t.Errorf("expected error to be %s, got %v", http.ErrUpstream, err)
		}
	})
	t.Run("online lookup succeeds", func(t *testing.T) {
		testhelper.PerformIntegrationTests(t)
		pos, err := New(http.New(logger.New(slog.LevelDebug))).Locate(t.Context())
		if err != nil {
			t.Fatalf("failed to locate: %s", err)
		}
		if !pos.Valid() {
			t.Errorf("expected valid position, got %f/%f", pos.Lat, pos.Lon)
		}
	})
}

func testProvider(t *testing.T, fn func(*stdhttp.Request) (*stdhttp.Response, error)) *Provider {
	t.Helper()
	client := http.New(logger.New(slog.LevelDebug))
	client.Transport = testhelper.MockRoundTripper{Fn: fn}
	return New(client)
}
