// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wneessen/weather-cards/internal/logger"
	"github.com/wneessen/weather-cards/internal/weather"
)

// Snapshot is the export document of all buckets. On import, a nil list, a nil preference
// set or an empty theme leaves the corresponding bucket untouched.
type Snapshot struct {
	WeatherData    []weather.Record `json:"weatherData"`
	SearchHistory  []string         `json:"searchHistory"`
	AIAnalyses     []Analysis       `json:"aiAnalyses"`
	Preferences    *Preferences     `json:"preferences"`
	FavoriteCities []Favorite       `json:"favoriteCities" validate:"omitempty,dive"`
	Theme          string           `json:"theme" validate:"omitempty,oneof=light dark"`
	ExportDate     time.Time        `json:"exportDate"`
}

// UnmarshalJSON decodes a stored preference set over DefaultPreferences, so that fields
// missing from the document keep their defaults.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type plain Snapshot
	doc := struct {
		*plain
		Preferences json.RawMessage `json:"preferences"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	s.Preferences = nil
	if len(doc.Preferences) == 0 || bytes.Equal(doc.Preferences, []byte("null")) {
		return nil
	}
	prefs := DefaultPreferences()
	if err := json.Unmarshal(doc.Preferences, &prefs); err != nil {
		return fmt.Errorf("failed to decode preferences: %w", err)
	}
	s.Preferences = &prefs
	return nil
}

// Snapshot collects the content of every bucket.
func (s *Store) Snapshot(ctx context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := s.preferences(ctx)
	return Snapshot{
		WeatherData:    getList[weather.Record](ctx, s, BucketWeather),
		SearchHistory:  getList[string](ctx, s, BucketSearch),
		AIAnalyses:     getList[Analysis](ctx, s, BucketAnalyses),
		Preferences:    &prefs,
		FavoriteCities: getList[Favorite](ctx, s, BucketFavorites),
		Theme:          s.theme(ctx),
		ExportDate:     s.now().UTC(),
	}
}

// Export returns the indented JSON export document of every bucket.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	data, err := json.MarshalIndent(s.Snapshot(ctx), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize export: %w", err)
	}
	return data, nil
}

// ParseSnapshot decodes and validates an export document. Errors wrap ErrInvalidImport.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidImport)
	}
	snapshot := new(Snapshot)
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}
	if err := validate.Struct(snapshot); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}
	return snapshot, nil
}

// Restore writes every bucket present in snapshot. Lists longer than their bucket's cap
// are truncated by the bucket's eviction rule.
func (s *Store) Restore(ctx context.Context, snapshot *Snapshot) bool {
	if snapshot == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := true
	if snapshot.WeatherData != nil {
		ok = s.write(ctx, BucketWeather, trimFront(snapshot.WeatherData, WeatherCap)) && ok
	}
	if snapshot.SearchHistory != nil {
		ok = s.write(ctx, BucketSearch, trimBack(snapshot.SearchHistory, SearchCap)) && ok
	}
	if snapshot.AIAnalyses != nil {
		ok = s.write(ctx, BucketAnalyses, trimBack(snapshot.AIAnalyses, AnalysisCap)) && ok
	}
	if snapshot.Preferences != nil {
		ok = s.write(ctx, BucketPreferences, snapshot.Preferences) && ok
	}
	if snapshot.FavoriteCities != nil {
		ok = s.write(ctx, BucketFavorites, snapshot.FavoriteCities) && ok
	}
	if snapshot.Theme != "" {
		ok = s.writeRaw(ctx, BucketTheme, []byte(snapshot.Theme)) && ok
	}
	return ok
}

// Import restores an export document. Malformed documents are rejected as a whole.
func (s *Store) Import(ctx context.Context, data []byte) bool {
	snapshot, err := ParseSnapshot(data)
	if err != nil {
		s.log.Error("failed to import data", logger.Err(err))
		return false
	}
	return s.Restore(ctx, snapshot)
}
