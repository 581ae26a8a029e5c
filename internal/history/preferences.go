// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/wneessen/weather-cards/internal/logger"
	"github.com/wneessen/weather-cards/internal/storage"
	"github.com/wneessen/weather-cards/internal/vartype"
)

var validate = validator.New()

// Preferences are the user settings.
type Preferences struct {
	Units         string `json:"units" validate:"oneof=metric imperial"`
	Language      string `json:"language" validate:"required,bcp47_language_tag"`
	Notifications bool   `json:"notifications"`
	AutoLocation  bool   `json:"autoLocation"`
}

// DefaultPreferences returns the settings used while none are stored.
func DefaultPreferences() Preferences {
	return Preferences{
		Units:         "metric",
		Language:      "en",
		Notifications: true,
		AutoLocation:  false,
	}
}

// Validate checks the settings for supported values.
func (p Preferences) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid preferences: %w", err)
	}
	return nil
}

// PreferencesUpdate changes the fields of Preferences that are set.
type PreferencesUpdate struct {
	Units         vartype.VarString `json:"units"`
	Language      vartype.VarString `json:"language"`
	Notifications vartype.VarBool   `json:"notifications"`
	AutoLocation  vartype.VarBool   `json:"autoLocation"`
}

// Apply returns prefs with the set fields of the update applied.
func (u PreferencesUpdate) Apply(prefs Preferences) Preferences {
	prefs.Units = u.Units.ValueOr(prefs.Units)
	prefs.Language = u.Language.ValueOr(prefs.Language)
	prefs.Notifications = u.Notifications.ValueOr(prefs.Notifications)
	prefs.AutoLocation = u.AutoLocation.ValueOr(prefs.AutoLocation)
	return prefs
}

// Preferences returns the stored settings. Fields missing from the stored value and
// unreadable values fall back to DefaultPreferences.
func (s *Store) Preferences(ctx context.Context) Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preferences(ctx)
}

// SavePreferences validates and stores prefs.
func (s *Store) SavePreferences(ctx context.Context, prefs Preferences) bool {
	if err := prefs.Validate(); err != nil {
		s.log.Error("failed to save preferences", logger.Err(err))
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, BucketPreferences, prefs)
}

// UpdatePreferences applies update to the stored settings and stores the result.
func (s *Store) UpdatePreferences(ctx context.Context, update PreferencesUpdate) (Preferences, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := update.Apply(s.preferences(ctx))
	if err := prefs.Validate(); err != nil {
		s.log.Error("failed to update preferences", logger.Err(err))
		return prefs, false
	}
	return prefs, s.write(ctx, BucketPreferences, prefs)
}

func (s *Store) preferences(ctx context.Context) Preferences {
	data, err := s.backend.Get(ctx, string(BucketPreferences))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Error("failed to load preferences", logger.Err(err))
		}
		return DefaultPreferences()
	}
	prefs := DefaultPreferences()
	if err = json.Unmarshal(data, &prefs); err != nil {
		s.log.Warn("ignoring corrupt preferences", logger.Err(err))
		return DefaultPreferences()
	}
	return prefs
}
