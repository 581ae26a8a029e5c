// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kkyr/fig"
)

const (
	configEnv = "WEATHERCARDS"

	DefaultCardTpl = "{{.ConditionIcon}} {{.Title}}\n" +
		"{{.Record.Temperature}}{{.TempUnit}} {{title .Record.Description}}\n" +
		"{{loc \"feelslike\"}}: {{.Record.FeelsLike}}{{.TempUnit}}\n" +
		"{{loc \"humidity\"}}: {{.Record.Humidity}}%\n" +
		"{{loc \"windspeed\"}}: {{.Record.WindSpeed}} {{.SpeedUnit}} {{.Record.WindDirection}}\n" +
		"{{loc \"pressure\"}}: {{.Record.Pressure}} hPa\n" +
		"{{loc \"visibility\"}}: {{floatFormat .Record.Visibility 1}} {{.DistanceUnit}}\n" +
		"{{loc \"sunrise\"}}: {{localizedTime .Record.Sunrise}}\n" +
		"{{loc \"sunset\"}}: {{localizedTime .Record.Sunset}}\n" +
		"{{loc \"moonphase\"}}: {{.MoonPhaseIcon}} {{loc .MoonPhase}}\n" +
		"{{loc \"observed\"}}: {{naturalTime .Record.Timestamp}}"
	DefaultAnalysisTpl = "{{loc \"skycondition\"}}: {{loc .SkyCondition}}\n" +
		"{{loc \"visibility\"}}: {{loc .Visibility}}\n" +
		"{{loc \"lighting\"}}: {{loc .Lighting}}\n" +
		"{{loc \"tempestimate\"}}: {{.TemperatureEstimate}}°C\n" +
		"{{loc \"insights\"}}: {{.Insights}}"
)

// Config represents the application's configuration structure. Fields with a default
// tag use the default when set to their zero value.
type Config struct {
	// APIKey is the OpenWeatherMap API key
	APIKey string `fig:"apikey"`
	// Allowed values: metric, imperial
	Units    string     `fig:"units" default:"metric"`
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`
	// Allowed values: text, json
	LogFormat string `fig:"logformat" default:"text"`

	Weather struct {
		// Allowed values: openweathermap, open-meteo
		Provider  string  `fig:"provider" default:"openweathermap"`
		RateLimit float64 `fig:"rate_limit" default:"5"`
		Burst     int     `fig:"burst" default:"5"`
	} `fig:"weather"`

	GeoCoder struct {
		// Allowed values: openweathermap, nominatim, opencage
		Provider string        `fig:"provider" default:"openweathermap"`
		APIKey   string        `fig:"apikey"`
		CacheTTL time.Duration `fig:"cache_ttl" default:"1h"`
	} `fig:"geocoder"`

	GeoLocation struct {
		Timeout        time.Duration `fig:"timeout" default:"10s"`
		MaxAge         time.Duration `fig:"max_age" default:"60s"`
		File           string        `fig:"file"`
		DisableFile    bool          `fig:"disable_file"`
		DisableGeoClue bool          `fig:"disable_geoclue"`
		DisableGPSD    bool          `fig:"disable_gpsd"`
		DisableICHNAEA bool          `fig:"disable_ichnaea"`
		DisableGeoIP   bool          `fig:"disable_geoip"`
	} `fig:"geolocation"`

	Storage struct {
		// Allowed values: sqlite, redis, memory
		Backend       string `fig:"backend" default:"sqlite"`
		Path          string `fig:"path"`
		Quota         int    `fig:"quota" default:"5242880"`
		RedisAddr     string `fig:"redis_addr" default:"localhost:6379"`
		RedisPassword string `fig:"redis_password"`
		RedisDB       int    `fig:"redis_db"`
	} `fig:"storage"`

	Templates struct {
		Card     string `fig:"card"`
		Analysis string `fig:"analysis"`
	} `fig:"templates"`

	Analysis struct {
		Delay time.Duration `fig:"delay" default:"2s"`
	} `fig:"analysis"`

	Intervals struct {
		Refresh time.Duration `fig:"refresh" default:"15m"`
	} `fig:"intervals"`

	Server struct {
		Listen string `fig:"listen" default:"127.0.0.1:8080"`
	} `fig:"server"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = loadDotEnv(); err != nil {
		return conf, err
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := loadDotEnv(); err != nil {
		return conf, err
	}
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.Units != "metric" && c.Units != "imperial" {
		return fmt.Errorf("invalid units: %s", c.Units)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s", c.LogFormat)
	}
	if c.Locale == "" {
		c.Locale = getLocale()
	}

	switch strings.ToLower(c.Weather.Provider) {
	case "openweathermap", "open-meteo":
	default:
		return fmt.Errorf("unsupported weather provider: %s", c.Weather.Provider)
	}
	switch strings.ToLower(c.GeoCoder.Provider) {
	case "openweathermap", "nominatim":
	case "opencage":
		if c.GeoCoder.APIKey == "" {
			return fmt.Errorf("geocoder %s requires an API key", c.GeoCoder.Provider)
		}
	default:
		return fmt.Errorf("unsupported geocoder type: %s", c.GeoCoder.Provider)
	}
	if c.Weather.RateLimit <= 0 || c.Weather.Burst < 1 {
		return fmt.Errorf("invalid rate limit: %f requests/s with burst %d", c.Weather.RateLimit, c.Weather.Burst)
	}

	if c.GeoLocation.Timeout <= 0 {
		return fmt.Errorf("invalid geolocation timeout: %s", c.GeoLocation.Timeout)
	}
	if c.GeoLocation.MaxAge < 0 {
		return fmt.Errorf("invalid geolocation max age: %s", c.GeoLocation.MaxAge)
	}
	if c.GeoLocation.File == "" {
		home, _ := os.UserHomeDir()
		c.GeoLocation.File = filepath.Join(home, ".config", "weather-cards", "geolocation")
	}

	switch c.Storage.Backend {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.Storage.Backend)
	}
	if c.Storage.Quota <= 0 {
		return fmt.Errorf("invalid storage quota: %d", c.Storage.Quota)
	}
	if c.Storage.Path == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = os.TempDir()
		}
		c.Storage.Path = filepath.Join(dir, "weather-cards", "storage.db")
	}

	if c.Templates.Card == "" {
		c.Templates.Card = DefaultCardTpl
	}
	if c.Templates.Analysis == "" {
		c.Templates.Analysis = DefaultAnalysisTpl
	}
	if c.Analysis.Delay < 0 {
		return fmt.Errorf("invalid analysis delay: %s", c.Analysis.Delay)
	}
	if c.Intervals.Refresh <= 0 {
		return fmt.Errorf("invalid refresh interval: %s", c.Intervals.Refresh)
	}

	return nil
}

// NeedsAPIKey reports whether one of the configured providers talks to OpenWeatherMap.
func (c *Config) NeedsAPIKey() bool {
	return strings.EqualFold(c.Weather.Provider, "openweathermap") ||
		strings.EqualFold(c.GeoCoder.Provider, "openweathermap")
}

// loadDotEnv reads a .env file from the working directory into the environment. Variables
// that are already set take precedence.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
