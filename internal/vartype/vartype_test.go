// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package vartype

import (
	"encoding/json"
	"testing"
)

func TestVariable(t *testing.T) {
	t.Run("a new variable is set", func(t *testing.T) {
		v := NewVariable("imperial")
		if !v.IsSet() {
			t.Fatal("expected variable to be set")
		}
		if v.Value() != "imperial" {
			t.Errorf("expected value to be %q, got %q", "imperial", v.Value())
		}
		if v.String() != "imperial" {
			t.Errorf("expected string to be %q, got %q", "imperial", v.String())
		}
	})
	t.Run("reset clears the value", func(t *testing.T) {
		v := NewVariable(true)
		v.Reset()
		if v.IsSet() {
			t.Error("expected variable to be unset")
		}
		if v.Value() {
			t.Error("expected value to be the zero value")
		}
		if v.String() != "unset" {
			t.Errorf("expected string to be %q, got %q", "unset", v.String())
		}
	})
	t.Run("ValueOr falls back for unset variables", func(t *testing.T) {
		var v VarString
		if got := v.ValueOr("metric"); got != "metric" {
			t.Errorf("expected fallback %q, got %q", "metric", got)
		}
		v.Set("")
		if got := v.ValueOr("metric"); got != "" {
			t.Errorf("expected set empty value, got %q", got)
		}
	})
}

func TestVariable_JSON(t *testing.T) {
	type patch struct {
		Units         VarString `json:"units"`
		Notifications VarBool   `json:"notifications"`
	}
	t.Run("absent and null fields stay unset", func(t *testing.T) {
		var p patch
		if err := json.Unmarshal([]byte(`{"notifications":null}`), &p); err != nil {
			t.Fatalf("failed to unmarshal: %s", err)
		}
		if p.Units.IsSet() || p.Notifications.IsSet() {
			t.Errorf("expected fields to be unset, got %+v", p)
		}
	})
	t.Run("present fields are set, also to zero values", func(t *testing.T) {
		var p patch
		if err := json.Unmarshal([]byte(`{"units":"imperial","notifications":false}`), &p); err != nil {
			t.Fatalf("failed to unmarshal: %s", err)
		}
		if !p.Units.IsSet() || p.Units.Value() != "imperial" {
			t.Errorf("expected units to be imperial, got %s", p.Units)
		}
		if !p.Notifications.IsSet() || p.Notifications.Value() {
			t.Errorf("expected notifications to be set to false, got %s", p.Notifications)
		}
	})
	t.Run("wrong types fail", func(t *testing.T) {
		var p patch
		if err := json.Unmarshal([]byte(`{"units":5}`), &p); err == nil {
			t.Error("expected unmarshal to fail")
		}
	})
	t.Run("unset fields marshal as null", func(t *testing.T) {
		p := patch{Units: NewVariable("metric")}
		data, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("failed to marshal: %s", err)
		}
		want := `{"units":"metric","notifications":null}`
		if string(data) != want {
			t.Errorf("expected %s, got %s", want, data)
		}
	})
}
