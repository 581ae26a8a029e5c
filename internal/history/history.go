// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package history persists weather cards, searches, analyses, preferences, favorites and
// the theme as JSON buckets in a storage backend. Lists are bounded, writes replace a whole
// bucket and failures are reported as false or as an empty fallback.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/wneessen/weather-cards/internal/analysis"
	"github.com/wneessen/weather-cards/internal/logger"
	"github.com/wneessen/weather-cards/internal/storage"
	"github.com/wneessen/weather-cards/internal/weather"
)

const (
	// WeatherCap is the number of weather cards kept, the oldest is dropped first.
	WeatherCap = 10
	// SearchCap is the number of search terms kept, newest first.
	SearchCap = 10
	// AnalysisCap is the number of analysis results kept, newest first.
	AnalysisCap = 5

	// DefaultQuota is the default number of bytes all buckets may occupy together.
	DefaultQuota = 5 * 1024 * 1024

	ThemeLight = "light"
	ThemeDark  = "dark"

	probeKey = "__storage_test__"
)

var (
	// ErrQuotaExceeded is logged when a write would exceed the storage quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrInvalidImport is returned for import documents that cannot be restored.
	ErrInvalidImport = errors.New("invalid import data")
	// ErrUnknownBucket is returned by ParseBucket for unknown bucket names.
	ErrUnknownBucket = errors.New("unknown bucket")
)

// Bucket is the storage key of one persisted entity.
type Bucket string

const (
	BucketWeather     Bucket = "weatherAppData"
	BucketSearch      Bucket = "searchHistory"
	BucketAnalyses    Bucket = "aiAnalyses"
	BucketPreferences Bucket = "userPreferences"
	BucketFavorites   Bucket = "favoriteCities"
	BucketTheme       Bucket = "theme"
)

// Buckets returns all buckets in export order.
func Buckets() []Bucket {
	return []Bucket{BucketWeather, BucketSearch, BucketAnalyses, BucketPreferences, BucketFavorites, BucketTheme}
}

// ParseBucket resolves a bucket by its storage key, its export key or its short name.
func ParseBucket(name string) (Bucket, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "weatherappdata", "weatherdata", "weather", "cards":
		return BucketWeather, nil
	case "searchhistory", "search", "history":
		return BucketSearch, nil
	case "aianalyses", "analyses", "analysis":
		return BucketAnalyses, nil
	case "userpreferences", "preferences", "prefs":
		return BucketPreferences, nil
	case "favoritecities", "favorites":
		return BucketFavorites, nil
	case "theme":
		return BucketTheme, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownBucket, name)
}

// Analysis is a stored analysis result.
type Analysis struct {
	analysis.Result
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// Favorite is a city the user marked as favorite. Favorites are keyed by name.
type Favorite struct {
	Name    string  `json:"name" validate:"required"`
	Country string  `json:"country,omitempty"`
	State   string  `json:"state,omitempty"`
	Lat     float64 `json:"lat" validate:"latitude"`
	Lon     float64 `json:"lon" validate:"longitude"`
}

// Info describes the storage usage against the quota.
type Info struct {
	Used       int     `json:"used"`
	Available  int     `json:"available"`
	Percentage float64 `json:"percentage"`
}

// Store gives typed access to the buckets. A mutex serializes every read-modify-write
// cycle of one Store, writers of different processes sharing a backend still race and the
// last write of a bucket wins.
type Store struct {
	backend storage.Backend
	log     *logger.Logger
	quota   int
	now     func() time.Time
	mu      sync.Mutex
}

// New returns a Store on top of backend. A quota <= 0 selects DefaultQuota.
func New(backend storage.Backend, log *logger.Logger, quota int) *Store {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &Store{
		backend: backend,
		log:     log.Component("history"),
		quota:   quota,
		now:     time.Now,
	}
}

// AppendWeather stores record. A card of the same city (compared case-insensitively) is
// replaced in place, otherwise the record is appended and the oldest cards beyond
// WeatherCap are dropped.
func (s *Store) AppendWeather(ctx context.Context, record weather.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := getList[weather.Record](ctx, s, BucketWeather)
	idx := slices.IndexFunc(records, func(r weather.Record) bool {
		return strings.EqualFold(r.City, record.City)
	})
	if idx >= 0 {
		records[idx] = record
	} else {
		records = append(records, record)
	}
	return s.write(ctx, BucketWeather, trimFront(records, WeatherCap))
}

// RemoveWeather deletes every card with the given id.
func (s *Store) RemoveWeather(ctx context.Context, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := getList[weather.Record](ctx, s, BucketWeather)
	records = slices.DeleteFunc(records, func(r weather.Record) bool { return r.ID == id })
	return s.write(ctx, BucketWeather, records)
}

// Weather returns the stored cards, oldest first.
func (s *Store) Weather(ctx context.Context) []weather.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getList[weather.Record](ctx, s, BucketWeather)
}

// AddSearch puts city in front of the search history. An exact duplicate is moved rather
// than added twice.
func (s *Store) AddSearch(ctx context.Context, city string) bool {
	if strings.TrimSpace(city) == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	terms := getList[string](ctx, s, BucketSearch)
	terms = slices.DeleteFunc(terms, func(term string) bool { return term == city })
	terms = append([]string{city}, terms...)
	return s.write(ctx, BucketSearch, trimBack(terms, SearchCap))
}

// SearchHistory returns the search terms, newest first.
func (s *Store) SearchHistory(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getList[string](ctx, s, BucketSearch)
}

// AddAnalysis stamps result with an id and a timestamp and puts it in front of the
// analysis history.
func (s *Store) AddAnalysis(ctx context.Context, result analysis.Result) (Analysis, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry := Analysis{Result: result, ID: now.UnixMilli(), Timestamp: now.UTC()}
	entries := getList[Analysis](ctx, s, BucketAnalyses)
	entries = append([]Analysis{entry}, entries...)
	return entry, s.write(ctx, BucketAnalyses, trimBack(entries, AnalysisCap))
}

// Analyses returns the stored analysis results, newest first.
func (s *Store) Analyses(ctx context.Context) []Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getList[Analysis](ctx, s, BucketAnalyses)
}

// Favorites returns the favorite cities in insertion order.
func (s *Store) Favorites(ctx context.Context) []Favorite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getList[Favorite](ctx, s, BucketFavorites)
}

// AddFavorite adds city unless a favorite with the same name exists. Adding an existing
// favorite succeeds without a write.
func (s *Store) AddFavorite(ctx context.Context, city Favorite) bool {
	if err := validate.Struct(city); err != nil {
		s.log.Error("invalid favorite city", logger.Err(err))
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	favorites := getList[Favorite](ctx, s, BucketFavorites)
	if slices.ContainsFunc(favorites, func(f Favorite) bool { return f.Name == city.Name }) {
		return true
	}
	return s.write(ctx, BucketFavorites, append(favorites, city))
}

// RemoveFavorite removes the favorite with the given name.
func (s *Store) RemoveFavorite(ctx context.Context, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	favorites := getList[Favorite](ctx, s, BucketFavorites)
	favorites = slices.DeleteFunc(favorites, func(f Favorite) bool { return f.Name == name })
	return s.write(ctx, BucketFavorites, favorites)
}

// Theme returns the stored theme, ThemeLight if none is stored.
func (s *Store) Theme(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme(ctx)
}

// SetTheme stores theme, which has to be ThemeLight or ThemeDark.
func (s *Store) SetTheme(ctx context.Context, theme string) bool {
	if theme != ThemeLight && theme != ThemeDark {
		s.log.Error("failed to save theme", logger.Err(fmt.Errorf("unsupported theme: %q", theme)))
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeRaw(ctx, BucketTheme, []byte(theme))
}

// ToggleTheme switches between the light and the dark theme and returns the new theme.
func (s *Store) ToggleTheme(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	theme := ThemeDark
	if s.theme(ctx) == ThemeDark {
		theme = ThemeLight
	}
	return theme, s.writeRaw(ctx, BucketTheme, []byte(theme))
}

// Clear deletes a single bucket.
func (s *Store) Clear(ctx context.Context, bucket Bucket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Delete(ctx, string(bucket)); err != nil {
		s.log.Error("failed to clear bucket", logger.Err(err), "bucket", bucket)
		return false
	}
	return true
}

// ClearAll deletes every bucket.
func (s *Store) ClearAll(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(Buckets()))
	for _, bucket := range Buckets() {
		keys = append(keys, string(bucket))
	}
	if err := s.backend.Delete(ctx, keys...); err != nil {
		s.log.Error("failed to clear all data", logger.Err(err))
		return false
	}
	return true
}

// Available reports whether the backend accepts writes.
func (s *Store) Available(ctx context.Context) bool {
	if err := s.backend.Set(ctx, probeKey, []byte(probeKey)); err != nil {
		return false
	}
	return s.backend.Delete(ctx, probeKey) == nil
}

// Info returns the current usage of the buckets against the quota.
func (s *Store) Info(ctx context.Context) Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := s.usage(ctx, "")
	return Info{
		Used:       used,
		Available:  s.quota - used,
		Percentage: float64(used) / float64(s.quota) * 100,
	}
}

func (s *Store) theme(ctx context.Context) string {
	data, err := s.backend.Get(ctx, string(BucketTheme))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Error("failed to load theme", logger.Err(err))
		}
		return ThemeLight
	}
	if theme := string(data); theme == ThemeDark {
		return theme
	}
	return ThemeLight
}

// write serializes value into bucket. Failures are logged and reported as false.
func (s *Store) write(ctx context.Context, bucket Bucket, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		s.log.Error("failed to serialize bucket", logger.Err(err), "bucket", bucket)
		return false
	}
	return s.writeRaw(ctx, bucket, data)
}

func (s *Store) writeRaw(ctx context.Context, bucket Bucket, data []byte) bool {
	if used := s.usage(ctx, bucket); used+len(bucket)+len(data) > s.quota {
		s.log.Error("failed to save bucket", logger.Err(ErrQuotaExceeded), "bucket", bucket,
			"used", used, "size", len(data), "quota", s.quota)
		return false
	}
	if err := s.backend.Set(ctx, string(bucket), data); err != nil {
		s.log.Error("failed to save bucket", logger.Err(err), "bucket", bucket)
		return false
	}
	return true
}

// usage sums up key and value sizes of all buckets except skip.
func (s *Store) usage(ctx context.Context, skip Bucket) int {
	used := 0
	for _, bucket := range Buckets() {
		if bucket == skip {
			continue
		}
		data, err := s.backend.Get(ctx, string(bucket))
		if err != nil {
			continue
		}
		used += len(bucket) + len(data)
	}
	return used
}

// getList loads a list bucket. Unset buckets and undecodable values yield an empty list.
func getList[T any](ctx context.Context, s *Store, bucket Bucket) []T {
	list := make([]T, 0)
	data, err := s.backend.Get(ctx, string(bucket))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Error("failed to load bucket", logger.Err(err), "bucket", bucket)
		}
		return list
	}
	if err = json.Unmarshal(data, &list); err != nil {
		s.log.Warn("ignoring corrupt bucket", logger.Err(err), "bucket", bucket)
		return make([]T, 0)
	}
	if list == nil {
		list = make([]T, 0)
	}
	return list
}

// trimFront drops the first elements of list until at most limit remain.
func trimFront[T any](list []T, limit int) []T {
	if len(list) > limit {
		return list[len(list)-limit:]
	}
	return list
}

// trimBack drops the last elements of list until at most limit remain.
func trimBack[T any](list []T, limit int) []T {
	if len(list) > limit {
		return list[:limit]
	}
	return list
}
