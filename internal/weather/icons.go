// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weather

// DefaultIcon is shown for unknown icon codes.
const DefaultIcon = "☁️"

// conditionIcons maps the provider icon codes to emoji for day (d) and night (n)
var conditionIcons = map[string]string{
	"01d": "☀️",
	"01n": "🌙",
	"02d": "🌤️",
	"02n": "☁️",
	"03d": "☁️",
	"03n": "☁️",
	"04d": "🌥️",
	"04n": "🌥️",
	"09d": "🌧️",
	"09n": "🌧️",
	"10d": "🌦️",
	"10n": "🌧️",
	"11d": "🌩️",
	"11n": "🌩️",
	"13d": "🌨️",
	"13n": "🌨️",
	"50d": "🌫️",
	"50n": "🌫️",
}

// ConditionIcon returns the emoji for a provider icon code.
func ConditionIcon(code string) string {
	if icon, ok := conditionIcons[code]; ok {
		return icon
	}
	return DefaultIcon
}
