// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package service ties the resolver, the weather providers, the history store and the
// presenter together into the operations offered by the CLI and the API.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/vorlif/spreak"

	"github.com/wneessen/weather-cards/internal/analysis"
	"github.com/wneessen/weather-cards/internal/config"
	"github.com/wneessen/weather-cards/internal/geocode"
	"github.com/wneessen/weather-cards/internal/geolocation"
	"github.com/wneessen/weather-cards/internal/history"
	"github.com/wneessen/weather-cards/internal/logger"
	"github.com/wneessen/weather-cards/internal/presenter"
	"github.com/wneessen/weather-cards/internal/storage"
	"github.com/wneessen/weather-cards/internal/weather"
)

const (
	DesktopID    = "weather-cards"
	refreshJob   = "favorites_refresh_job"
	cacheMissTTL = time.Minute * 5
)

// ErrMissingAPIKey is returned by New if an OpenWeatherMap provider is configured without
// an API key.
var ErrMissingAPIKey = errors.New("an OpenWeatherMap API key is required")

// Service is the application context. It is created once at startup and shared by every
// command.
type Service struct {
	SignalSrc signalSource

	config     *config.Config
	logger     *logger.Logger
	t          *spreak.Localizer
	backend    storage.Backend
	store      *history.Store
	resolver   *geocode.Resolver
	weather    weather.Provider
	normalizer *weather.Normalizer
	presenter  *presenter.Presenter
	analyzer   *analysis.Analyzer
	locator    *geolocation.Locator

	outputLock sync.Mutex
	output     io.Writer
	sleepWatch bool
}

type options struct {
	backend      storage.Backend
	weather      weather.Provider
	geocoder     geocode.Geocoder
	geoProviders []geolocation.Provider
	geoSet       bool
	output       io.Writer
	sleepWatch   bool
}

// Option overrides a component that New would otherwise build from the config.
type Option func(*options)

// WithBackend uses backend instead of the configured storage backend.
func WithBackend(backend storage.Backend) Option {
	return func(o *options) { o.backend = backend }
}

// WithWeatherProvider uses provider instead of the configured weather provider.
func WithWeatherProvider(provider weather.Provider) Option {
	return func(o *options) { o.weather = provider }
}

// WithGeocoder uses coder instead of the configured geocoder.
func WithGeocoder(coder geocode.Geocoder) Option {
	return func(o *options) { o.geocoder = coder }
}

// WithGeolocationProviders replaces the configured geolocation providers.
func WithGeolocationProviders(providers ...geolocation.Provider) Option {
	return func(o *options) {
		o.geoProviders = providers
		o.geoSet = true
	}
}

// WithOutput sets the writer that watch mode renders cards to.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// WithoutSleepMonitor disables the refresh after a system resume in watch mode.
func WithoutSleepMonitor() Option {
	return func(o *options) { o.sleepWatch = false }
}

// New builds the application context from conf.
func New(ctx context.Context, conf *config.Config, log *logger.Logger, t *spreak.Localizer, opts ...Option) (*Service, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if t == nil {
		return nil, errors.New("localizer is required")
	}
	o := options{output: os.Stdout, sleepWatch: true}
	for _, opt := range opts {
		opt(&o)
	}
	if (o.weather == nil || o.geocoder == nil) && conf.NeedsAPIKey() && conf.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	pres, err := presenter.New(conf, t)
	if err != nil {
		return nil, err
	}

	service := &Service{
		SignalSrc:  osSignals{},
		config:     conf,
		logger:     log,
		t:          t,
		normalizer: weather.NewNormalizer(),
		presenter:  pres,
		analyzer:   analysis.New(conf.Analysis.Delay),
		output:     o.output,
		sleepWatch: o.sleepWatch,
	}

	provider := o.weather
	if provider == nil {
		if provider, err = service.selectWeatherProvider(); err != nil {
			return nil, err
		}
	}
	service.weather = weather.NewRateLimitedProvider(provider, conf.Weather.RateLimit, conf.Weather.Burst)

	coder := o.geocoder
	if coder == nil {
		if coder, err = service.selectGeocodeProvider(); err != nil {
			return nil, err
		}
	}
	service.resolver = geocode.NewResolver(coder, conf.Weather.RateLimit, conf.Weather.Burst)

	geoProviders := o.geoProviders
	if !o.geoSet {
		geoProviders = service.selectGeolocationProviders()
	}
	service.locator = geolocation.New(log, conf.GeoLocation.Timeout, conf.GeoLocation.MaxAge, geoProviders...)

	service.backend = o.backend
	if service.backend == nil {
		if service.backend, err = OpenBackend(ctx, conf, log); err != nil {
			return nil, err
		}
	}
	service.store = history.New(service.backend, log, conf.Storage.Quota)

	log.Debug("service initialized", "weather", service.weather.Name(), "geocoder",
		service.resolver.Name(), "storage", service.backend.Name())
	return service, nil
}

// NewStore opens the configured storage backend and returns a history store on top of it,
// for commands that need no weather provider. The caller closes the returned backend.
func NewStore(ctx context.Context, conf *config.Config, log *logger.Logger) (*history.Store, storage.Backend, error) {
	backend, err := OpenBackend(ctx, conf, log)
	if err != nil {
		return nil, nil, err
	}
	return history.New(backend, log, conf.Storage.Quota), backend, nil
}

// Store returns the history store of the service.
func (s *Service) Store() *history.Store {
	return s.store
}

// Presenter returns the presenter configured with the stored unit preference.
func (s *Service) Presenter(ctx context.Context) *presenter.Presenter {
	return s.presenter.WithUnits(s.store.Preferences(ctx).Units)
}

// Close releases the storage backend.
func (s *Service) Close() error {
	if err := s.backend.Close(); err != nil {
		return fmt.Errorf("failed to close storage backend: %w", err)
	}
	return nil
}

// Watch refreshes the favorite cities every refresh interval and renders their cards to
// the output until ctx is canceled. A system resume or one of the watch signals triggers
// an immediate refresh.
func (s *Service) Watch(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err = s.createScheduledJob(ctx, scheduler, s.config.Intervals.Refresh, s.refresh, refreshJob); err != nil {
		return err
	}
	scheduler.Start()
	s.refresh(ctx)

	if s.sleepWatch {
		go s.monitorSleepResume(ctx)
	}
	sigChan := make(chan os.Signal, 1)
	s.SignalSrc.Notify(sigChan, watchSignals...)
	go func() {
		defer s.SignalSrc.Stop(sigChan)
		s.HandleSignals(ctx, sigChan)
	}()

	<-ctx.Done()
	if err = scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}
	return nil
}

func (s *Service) createScheduledJob(ctx context.Context, scheduler gocron.Scheduler, interval time.Duration,
	task func(context.Context), jobName string,
) error {
	_, err := scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

// refresh updates the cards of all favorites and renders them to the output.
func (s *Service) refresh(ctx context.Context) {
	records := s.RefreshFavorites(ctx)
	if len(records) == 0 {
		return
	}
	cards, err := s.Presenter(ctx).RenderCards(records)
	if err != nil {
		s.logger.Error("failed to render weather cards", logger.Err(err))
		return
	}

	buf := bytes.NewBufferString(cards)
	buf.WriteString("\n")
	s.outputLock.Lock()
	defer s.outputLock.Unlock()
	if _, err = buf.WriteTo(s.output); err != nil {
		s.logger.Error("failed to write weather cards", logger.Err(err))
	}
}

// RefreshFavorites fetches the current conditions of every favorite city and replaces
// their cards. Failing cities are logged and skipped.
func (s *Service) RefreshFavorites(ctx context.Context) []weather.Record {
	favorites := s.store.Favorites(ctx)
	records := make([]weather.Record, 0, len(favorites))
	for _, fav := range favorites {
		record, err := s.fetch(ctx, fav.Lat, fav.Lon, fav.Name, fav.Country)
		if err != nil {
			s.logger.Error("failed to refresh favorite city", logger.Err(err), "city", fav.Name)
			continue
		}
		records = append(records, record)
	}
	s.logger.Debug("favorites refreshed", "count", len(records))
	return records
}

func providerIs(name, want string) bool {
	return strings.EqualFold(name, want)
}
