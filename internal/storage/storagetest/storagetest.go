// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package storagetest provides a behavioral test suite for storage backends.
package storagetest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/wneessen/weather-cards/internal/storage"
)

// Run exercises backend with the behavior every storage.Backend has to provide. The
// backend must be empty when Run is called.
func Run(t *testing.T, backend storage.Backend) {
	t.Helper()
	t.Run("getting an unset key returns ErrNotFound", func(t *testing.T) {
		if _, err := backend.Get(t.Context(), "unset"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected error to be %s, got %v", storage.ErrNotFound, err)
		}
	})
	t.Run("a value can be set and read back", func(t *testing.T) {
		want := []byte(`[{"id":1,"city":"Paris"}]`)
		if err := backend.Set(t.Context(), "weatherAppData", want); err != nil {
			t.Fatalf("failed to set value: %s", err)
		}
		got, err := backend.Get(t.Context(), "weatherAppData")
		if err != nil {
			t.Fatalf("failed to get value: %s", err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("expected value to be %q, got %q", want, got)
		}
	})
	t.Run("setting a key replaces the whole value", func(t *testing.T) {
		if err := backend.Set(t.Context(), "theme", []byte("light-with-a-long-tail")); err != nil {
			t.Fatalf("failed to set value: %s", err)
		}
		if err := backend.Set(t.Context(), "theme", []byte("dark")); err != nil {
			t.Fatalf("failed to set value: %s", err)
		}
		got, err := backend.Get(t.Context(), "theme")
		if err != nil {
			t.Fatalf("failed to get value: %s", err)
		}
		if string(got) != "dark" {
			t.Errorf("expected value to be %q, got %q", "dark", got)
		}
	})
	t.Run("modifying a returned value does not change the stored value", func(t *testing.T) {
		if err := backend.Set(t.Context(), "searchHistory", []byte(`["Paris"]`)); err != nil {
			t.Fatalf("failed to set value: %s", err)
		}
		got, err := backend.Get(t.Context(), "searchHistory")
		if err != nil {
			t.Fatalf("failed to get value: %s", err)
		}
		got[2] = 'X'
		again, err := backend.Get(t.Context(), "searchHistory")
		if err != nil {
			t.Fatalf("failed to get value: %s", err)
		}
		if string(again) != `["Paris"]` {
			t.Errorf("expected stored value to be unchanged, got %q", again)
		}
	})
	t.Run("deleting keys removes them", func(t *testing.T) {
		if err := backend.Delete(t.Context(), "weatherAppData", "theme", "never-set"); err != nil {
			t.Fatalf("failed to delete keys: %s", err)
		}
		for _, key := range []string{"weatherAppData", "theme"} {
			if _, err := backend.Get(t.Context(), key); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("expected %q to be deleted, got %v", key, err)
			}
		}
		if _, err := backend.Get(t.Context(), "searchHistory"); err != nil {
			t.Errorf("expected other keys to survive, got %s", err)
		}
	})
	t.Run("empty values are stored", func(t *testing.T) {
		if err := backend.Set(t.Context(), "empty", []byte{}); err != nil {
			t.Fatalf("failed to set value: %s", err)
		}
		got, err := backend.Get(t.Context(), "empty")
		if err != nil {
			t.Fatalf("failed to get value: %s", err)
		}
		if len(got) != 0 {
			t.Errorf("expected empty value, got %q", got)
		}
	})
}
