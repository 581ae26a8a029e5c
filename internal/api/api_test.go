// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wneessen/weather-cards/internal/analysis"
	"github.com/wneessen/weather-cards/internal/config"
	"github.com/wneessen/weather-cards/internal/geocode"
	"github.com/wneessen/weather-cards/internal/geolocation"
	"github.com/wneessen/weather-cards/internal/history"
	apiclient "github.com/wneessen/weather-cards/internal/http"
	"github.com/wneessen/weather-cards/internal/i18n"
	"github.com/wneessen/weather-cards/internal/logger"
	"github.com/wneessen/weather-cards/internal/service"
	"github.com/wneessen/weather-cards/internal/storage"
	"github.com/wneessen/weather-cards/internal/weather"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestServer_Health(t *testing.T) {
	server := testServer(t, &mockWeather{})
	resp, body := doRequest(t, server, http.MethodGet, "/health", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var health struct {
		Status  string `json:"status"`
		Storage bool   `json:"storage"`
	}
	decode(t, body, &health)
	if health.Status != "ok" || !health.Storage {
		t.Errorf("unexpected health response: %s", body)
	}
}

func TestServer_Search(t *testing.T) {
	t.Run("search by city name", func(t *testing.T) {
		server := testServer(t, &mockWeather{})
		resp, body := doJSON(t, server, http.MethodPost, "/api/v1/search", `{"city":"Paris"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, resp.StatusCode, body)
		}
		var record weather.Record
		decode(t, body, &record)
		if record.City != "Paris" || record.Temperature != 15 {
			t.Errorf("unexpected record: %+v", record)
		}

		_, body = doRequest(t, server, http.MethodGet, "/api/v1/cards", nil, "")
		var cards []weather.Record
		decode(t, body, &cards)
		if len(cards) != 1 {
			t.Errorf("expected one card, got %d", len(cards))
		}
		_, body = doRequest(t, server, http.MethodGet, "/api/v1/history", nil, "")
		var searches []string
		decode(t, body, &searches)
		if len(searches) != 1 || searches[0] != "Paris" {
			t.Errorf("expected search history [Paris], got %v", searches)
		}
	})
	t.Run("search by coordinates", func(t *testing.T) {
		server := testServer(t, &mockWeather{})
		resp, body := doJSON(t, server, http.MethodPost, "/api/v1/search",
			`{"lat":48.8566,"lon":2.3522,"label":"Paris, FR"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, resp.StatusCode, body)
		}
		var record weather.Record
		decode(t, body, &record)
		if record.City != "Paris, FR" {
			t.Errorf("expected label Paris, FR, got %s", record.City)
		}
	})
	t.Run("failed searches", func(t *testing.T) {
		tests := []struct {
			name    string
			body    string
			err     error
			status  int
			message string
		}{
			{"empty city", `{"city":"  "}`, nil, http.StatusBadRequest, "Please enter a city name."},
			{
				"unknown city", `{"city":"Atlantis"}`, nil, http.StatusNotFound,
				"City not found. Please check the spelling and try again.",
			},
			{"latitude only", `{"lat":48.8}`, nil, http.StatusBadRequest, "lat and lon are required together"},
			{"invalid body", `{"city":`, nil, http.StatusBadRequest, "invalid request body"},
			{
				"rate limited", `{"city":"Paris"}`, &apiclient.StatusError{Code: 429}, http.StatusTooManyRequests,
				"Too many requests. Please wait a moment and try again.",
			},
			{
				"upstream failure", `{"city":"Paris"}`, &apiclient.StatusError{Code: 500}, http.StatusBadGateway,
				"Failed to fetch weather data. Please try again.",
			},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				server := testServer(t, &mockWeather{err: tc.err})
				resp, body := doJSON(t, server, http.MethodPost, "/api/v1/search", tc.body)
				if resp.StatusCode != tc.status {
					t.Fatalf("expected status %d, got %d: %s", tc.status, resp.StatusCode, body)
				}
				var errResp struct {
					Error   bool   `json:"error"`
					Message string `json:"message"`
				}
				decode(t, body, &errResp)
				if !errResp.Error || errResp.Message != tc.message {
					t.Errorf("expected error message %q, got %q", tc.message, errResp.Message)
				}
			})
		}
	})
}

func TestServer_Suggest(t *testing.T) {
	server := testServer(t, &mockWeather{})
	_, body := doRequest(t, server, http.MethodGet, "/api/v1/suggest?q=Par", nil, "")
	var cities []geocode.City
	decode(t, body, &cities)
	if len(cities) != 1 || cities[0].Name != "Paris" {
		t.Errorf("expected Paris suggestion, got %s", body)
	}
	_, body = doRequest(t, server, http.MethodGet, "/api/v1/suggest?q=P", nil, "")
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("expected empty list for short query, got %s", body)
	}
}

func TestServer_Suggest_cachedQueries(t *testing.T) {
	recorder := &recordingGeocoder{}
	coder := geocode.NewCachedGeocoder(recorder, time.Hour, time.Minute)
	server := testServerWithGeocoder(t, &mockWeather{}, coder)
	for _, query := range []string{"berlin", "london", "berlin", "london", "paris"} {
		resp, _ := doRequest(t, server, http.MethodGet, "/api/v1/suggest?q="+query, nil, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200 for %s, got %d", query, resp.StatusCode)
		}
	}
	want := []string{"berlin", "london", "paris"}
	if got := recorder.recorded(); !slices.Equal(got, want) {
		t.Errorf("expected upstream queries %v, got %v", want, got)
	}
}

func TestServer_Locate(t *testing.T) {
	server := testServer(t, &mockWeather{})
	resp, body := doRequest(t, server, http.MethodPost, "/api/v1/locate", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, resp.StatusCode, body)
	}
	var located struct {
		City    geocode.City   `json:"city"`
		Record  weather.Record `json:"record"`
		Message string         `json:"message"`
	}
	decode(t, body, &located)
	if located.Message != "Location detected: Paris, FR" {
		t.Errorf("unexpected location message %q", located.Message)
	}
	if located.Record.City != "Paris, FR" {
		t.Errorf("expected record for Paris, FR, got %s", located.Record.City)
	}
}

func TestServer_Cards(t *testing.T) {
	server := testServer(t, &mockWeather{})
	_, body := doJSON(t, server, http.MethodPost, "/api/v1/search", `{"city":"Paris"}`)
	var record weather.Record
	decode(t, body, &record)

	t.Run("cards rendered as text", func(t *testing.T) {
		resp, body := doRequest(t, server, http.MethodGet, "/api/v1/cards?format=text", nil, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
		}
		if !strings.Contains(string(body), "Paris, FR") {
			t.Errorf("expected rendered card for Paris, got %s", body)
		}
	})
	t.Run("removing a card with an invalid id fails", func(t *testing.T) {
		resp, _ := doRequest(t, server, http.MethodDelete, "/api/v1/cards/abc", nil, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
		}
	})
	t.Run("removing a card", func(t *testing.T) {
		resp, _ := doRequest(t, server, http.MethodDelete, "/api/v1/cards/"+strconv.FormatInt(record.ID, 10), nil, "")
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected status %d, got %d", http.StatusNoContent, resp.StatusCode)
		}
		_, body := doRequest(t, server, http.MethodGet, "/api/v1/cards", nil, "")
		if strings.TrimSpace(string(body)) != "[]" {
			t.Errorf("expected no cards, got %s", body)
		}
	})
}

func TestServer_Favorites(t *testing.T) {
	server := testServer(t, &mockWeather{})
	resp, body := doJSON(t, server, http.MethodPost, "/api/v1/favorites",
		`{"name":"New York","country":"US","lat":40.7128,"lon":-74.006}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, resp.StatusCode, body)
	}
	resp, _ = doJSON(t, server, http.MethodPost, "/api/v1/favorites", `{"name":"Nowhere","lat":123,"lon":0}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	_, body = doRequest(t, server, http.MethodGet, "/api/v1/favorites", nil, "")
	var favorites []history.Favorite
	decode(t, body, &favorites)
	if len(favorites) != 1 || favorites[0].Name != "New York" {
		t.Fatalf("expected New York as favorite, got %s", body)
	}

	resp, body = doJSON(t, server, http.MethodPost, "/api/v1/favorites", `{"city":"Berlin"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, resp.StatusCode, body)
	}
	resp, _ = doRequest(t, server, http.MethodDelete, "/api/v1/favorites/Berlin", nil, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, resp.StatusCode)
	}

	resp, _ = doRequest(t, server, http.MethodDelete, "/api/v1/favorites/New%20York", nil, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, resp.StatusCode)
	}
	_, body = doRequest(t, server, http.MethodGet, "/api/v1/favorites", nil, "")
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("expected no favorites, got %s", body)
	}
}

func TestServer_Preferences(t *testing.T) {
	server := testServer(t, &mockWeather{})
	resp, body := doJSON(t, server, http.MethodPut, "/api/v1/preferences", `{"units":"imperial"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, resp.StatusCode, body)
	}
	var prefs history.Preferences
	decode(t, body, &prefs)
	if prefs.Units != "imperial" || prefs.Language != "en" || !prefs.Notifications {
		t.Errorf("unexpected preferences: %+v", prefs)
	}

	resp, _ = doJSON(t, server, http.MethodPut, "/api/v1/preferences", `{"units":"kelvin"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
	_, body = doRequest(t, server, http.MethodGet, "/api/v1/preferences", nil, "")
	decode(t, body, &prefs)
	if prefs.Units != "imperial" {
		t.Errorf("expected rejected update to keep imperial units, got %s", prefs.Units)
	}
}

func TestServer_Theme(t *testing.T) {
	server := testServer(t, &mockWeather{})
	var theme struct {
		Theme string `json:"theme"`
	}
	_, body := doRequest(t, server, http.MethodGet, "/api/v1/theme", nil, "")
	decode(t, body, &theme)
	if theme.Theme != history.ThemeLight {
		t.Errorf("expected default theme light, got %s", theme.Theme)
	}

	_, body = doJSON(t, server, http.MethodPut, "/api/v1/theme", `{"theme":"toggle"}`)
	decode(t, body, &theme)
	if theme.Theme != history.ThemeDark {
		t.Errorf("expected toggled theme dark, got %s", theme.Theme)
	}
	_, body = doJSON(t, server, http.MethodPut, "/api/v1/theme", `{"theme":"light"}`)
	decode(t, body, &theme)
	if theme.Theme != history.ThemeLight {
		t.Errorf("expected theme light, got %s", theme.Theme)
	}

	resp, _ := doJSON(t, server, http.MethodPut, "/api/v1/theme", `{"theme":"blue"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestServer_Analysis(t *testing.T) {
	t.Run("uploading an image", func(t *testing.T) {
		server := testServer(t, &mockWeather{})
		body, contentType := multipartBody(t, imageField, pngHeader)
		resp, respBody := doRequest(t, server, http.MethodPost, "/api/v1/analysis", body, contentType)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, resp.StatusCode, respBody)
		}
		var entry history.Analysis
		decode(t, respBody, &entry)
		if entry.ID == 0 || entry.SkyCondition == "" {
			t.Errorf("unexpected analysis: %+v", entry)
		}

		_, respBody = doRequest(t, server, http.MethodGet, "/api/v1/analysis", nil, "")
		var analyses []history.Analysis
		decode(t, respBody, &analyses)
		if len(analyses) != 1 {
			t.Errorf("expected one analysis, got %d", len(analyses))
		}
	})
	t.Run("uploading text fails", func(t *testing.T) {
		server := testServer(t, &mockWeather{})
		body, contentType := multipartBody(t, imageField, []byte("just some text"))
		resp, respBody := doRequest(t, server, http.MethodPost, "/api/v1/analysis", body, contentType)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
		}
		if !strings.Contains(string(respBody), "Please select a valid image file") {
			t.Errorf("unexpected response: %s", respBody)
		}
	})
	t.Run("missing form file fails", func(t *testing.T) {
		server := testServer(t, &mockWeather{})
		body, contentType := multipartBody(t, "photo", pngHeader)
		resp, _ := doRequest(t, server, http.MethodPost, "/api/v1/analysis", body, contentType)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
		}
	})
}

func TestServer_ExportImport(t *testing.T) {
	source := testServer(t, &mockWeather{})
	doJSON(t, source, http.MethodPost, "/api/v1/search", `{"city":"Paris"}`)
	doJSON(t, source, http.MethodPut, "/api/v1/theme", `{"theme":"dark"}`)

	resp, exported := doRequest(t, source, http.MethodGet, "/api/v1/export", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Disposition"), "attachment") {
		t.Errorf("expected attachment, got %q", resp.Header.Get("Content-Disposition"))
	}

	target := testServer(t, &mockWeather{})
	resp, body := doRequest(t, target, http.MethodPost, "/api/v1/import", bytes.NewReader(exported),
		"application/json")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d: %s", http.StatusNoContent, resp.StatusCode, body)
	}
	_, body = doRequest(t, target, http.MethodGet, "/api/v1/theme", nil, "")
	if !strings.Contains(string(body), history.ThemeDark) {
		t.Errorf("expected imported theme dark, got %s", body)
	}
	_, body = doRequest(t, target, http.MethodGet, "/api/v1/history", nil, "")
	if !strings.Contains(string(body), "Paris") {
		t.Errorf("expected imported search history, got %s", body)
	}

	resp, _ = doRequest(t, target, http.MethodPost, "/api/v1/import", strings.NewReader("not json"),
		"application/json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestServer_Clear(t *testing.T) {
	server := testServer(t, &mockWeather{})
	doJSON(t, server, http.MethodPost, "/api/v1/search", `{"city":"Paris"}`)

	resp, _ := doRequest(t, server, http.MethodDelete, "/api/v1/data?bucket=search", nil, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, resp.StatusCode)
	}
	_, body := doRequest(t, server, http.MethodGet, "/api/v1/history", nil, "")
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("expected empty search history, got %s", body)
	}
	_, body = doRequest(t, server, http.MethodGet, "/api/v1/cards", nil, "")
	if strings.TrimSpace(string(body)) == "[]" {
		t.Error("expected cards to survive clearing the search history")
	}

	resp, _ = doRequest(t, server, http.MethodDelete, "/api/v1/data?bucket=invalid", nil, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	resp, _ = doRequest(t, server, http.MethodDelete, "/api/v1/data", nil, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, resp.StatusCode)
	}
	_, body = doRequest(t, server, http.MethodGet, "/api/v1/cards", nil, "")
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("expected no cards, got %s", body)
	}
}

func TestServer_Storage(t *testing.T) {
	server := testServer(t, &mockWeather{})
	doJSON(t, server, http.MethodPost, "/api/v1/search", `{"city":"Paris"}`)
	_, body := doRequest(t, server, http.MethodGet, "/api/v1/storage", nil, "")
	var info struct {
		Available bool         `json:"available"`
		Usage     history.Info `json:"usage"`
	}
	decode(t, body, &info)
	if !info.Available {
		t.Error("expected storage to be available")
	}
	if info.Usage.Used <= 0 || info.Usage.Available <= 0 {
		t.Errorf("unexpected storage usage: %+v", info.Usage)
	}
}

func TestServer_Serve(t *testing.T) {
	server := testServer(t, &mockWeather{})
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, "127.0.0.1:0") }()
	cancel()
	if err := <-done; err != nil {
		t.Errorf("failed to shut down server: %s", err)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty query", service.ErrEmptyQuery, http.StatusBadRequest},
		{"not an image", analysis.ErrNotAnImage, http.StatusBadRequest},
		{"city not found", geocode.ErrNotFound, http.StatusNotFound},
		{"no city", service.ErrNoCity, http.StatusNotFound},
		{"permission denied", geolocation.ErrPermissionDenied, http.StatusForbidden},
		{"geolocation timeout", geolocation.ErrTimeout, http.StatusGatewayTimeout},
		{"circuit open", apiclient.ErrCircuitOpen, http.StatusServiceUnavailable},
		{"unauthorized", &apiclient.StatusError{Code: 401}, http.StatusBadGateway},
		{"upstream not found", &apiclient.StatusError{Code: 404}, http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := statusCode(tc.err); got != tc.want {
				t.Errorf("expected status %d, got %d", tc.want, got)
			}
		})
	}
}

type (
	mockWeather struct {
		err error
	}
	mockGeocoder struct{}
	mockLocation struct{}
)

var cities = []geocode.City{
	{Name: "Paris", Country: "FR", Lat: 48.8566, Lon: 2.3522},
	{Name: "Berlin", Country: "DE", Lat: 52.52, Lon: 13.405},
}

func (m *mockWeather) Name() string { return "mock weather provider" }

func (m *mockWeather) Current(context.Context, float64, float64) (*weather.Payload, error) {
	if m.err != nil {
		return nil, m.err
	}
	payload := &weather.Payload{Name: "Paris", Visibility: 10000, Dt: 1700020000}
	payload.Main.Temp = 15.4
	payload.Main.FeelsLike = 14.1
	payload.Main.Humidity = 60
	payload.Main.Pressure = 1012
	payload.Wind.Speed = 3.0
	payload.Wind.Deg = 90
	payload.Weather = []weather.Condition{{Description: "clear sky", Icon: "01d"}}
	payload.Sys.Country = "FR"
	payload.Sys.Sunrise = 1700000000
	payload.Sys.Sunset = 1700040000
	return payload, nil
}

func (m *mockGeocoder) Name() string { return "mock geocoder" }

func (m *mockGeocoder) Search(_ context.Context, query string, limit int) ([]geocode.City, error) {
	var found []geocode.City
	for _, city := range cities {
		if strings.HasPrefix(strings.ToLower(city.Label()), strings.ToLower(query)) && len(found) < limit {
			found = append(found, city)
		}
	}
	return found, nil
}

func (m *mockGeocoder) Reverse(_ context.Context, lat, lon float64) (geocode.City, error) {
	for _, city := range cities {
		if int(city.Lat) == int(lat) && int(city.Lon) == int(lon) {
			return city, nil
		}
	}
	return geocode.City{}, geocode.ErrNotFound
}

// recordingGeocoder records every query that reaches it.
type recordingGeocoder struct {
	mockGeocoder
	mu      sync.Mutex
	queries []string
}

func (r *recordingGeocoder) Search(ctx context.Context, query string, limit int) ([]geocode.City, error) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	r.mu.Unlock()
	return r.mockGeocoder.Search(ctx, query, limit)
}

func (r *recordingGeocoder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.queries)
}

func (m *mockLocation) Name() string { return "mock location" }

func (m *mockLocation) Locate(context.Context) (geolocation.Position, error) {
	return geolocation.Position{Lat: 48.85, Lon: 2.35, AccuracyMeters: 25}, nil
}

func testServer(t *testing.T, provider weather.Provider) *Server {
	t.Helper()
	return testServerWithGeocoder(t, provider, &mockGeocoder{})
}

func testServerWithGeocoder(t *testing.T, provider weather.Provider, coder geocode.Geocoder) *Server {
	t.Helper()
	t.Setenv("WEATHERCARDS_APIKEY", "secret")
	t.Setenv("WEATHERCARDS_LOCALE", "en")
	t.Setenv("WEATHERCARDS_STORAGE_BACKEND", "memory")
	t.Setenv("WEATHERCARDS_ANALYSIS_DELAY", "1ms")
	conf, err := config.New()
	if err != nil {
		t.Fatalf("failed to load config: %s", err)
	}
	loc, err := i18n.New("en")
	if err != nil {
		t.Fatalf("failed to create localizer: %s", err)
	}
	log := logger.NewLogger(slog.LevelError, io.Discard)
	serv, err := service.New(t.Context(), conf, log, loc,
		service.WithBackend(storage.NewMemory()),
		service.WithWeatherProvider(provider),
		service.WithGeocoder(coder),
		service.WithGeolocationProviders(&mockLocation{}),
		service.WithoutSleepMonitor(),
	)
	if err != nil {
		t.Fatalf("failed to create service: %s", err)
	}
	return New(serv, log, nil)
}

func doJSON(t *testing.T, server *Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	return doRequest(t, server, method, path, strings.NewReader(body), "application/json")
}

func doRequest(t *testing.T, server *Server, method, path string, body io.Reader, contentType string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := server.app.Test(req, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %s", err)
	}
	return resp, data
}

func multipartBody(t *testing.T, field string, content []byte) (io.Reader, string) {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile(field, "upload.png")
	if err != nil {
		t.Fatalf("failed to create form file: %s", err)
	}
	if _, err = part.Write(content); err != nil {
		t.Fatalf("failed to write form file: %s", err)
	}
	if err = writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %s", err)
	}
	return buf, writer.FormDataContentType()
}

func decode(t *testing.T, data []byte, target any) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to decode response %q: %s", data, err)
	}
}
