// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import "github.com/vorlif/spreak/localize"

// MoonPhaseIcon is a map where moon phase names are keys and their corresponding emoji representations are values.
var MoonPhaseIcon = map[string]string{
	"New Moon":        "🌑",
	"Waxing Crescent": "🌒",
	"First Quarter":   "🌓",
	"Waxing Gibbous":  "🌔",
	"Full Moon":       "🌕",
	"Waning Gibbous":  "🌖",
	"Third Quarter":   "🌗",
	"Waning Crescent": "🌘",
}

// i18nVars maps the lower-cased template keys to their message ids.
var i18nVars = map[string]localize.MsgID{
	"feelslike":    "Feels like",
	"humidity":     "Humidity",
	"windspeed":    "Wind speed",
	"winddir":      "Wind direction",
	"pressure":     "Pressure",
	"visibility":   "Visibility",
	"sunrise":      "Sunrise",
	"sunset":       "Sunset",
	"moonphase":    "Moon phase",
	"observed":     "Observed",
	"skycondition": "Sky condition",
	"lighting":     "Lighting",
	"tempestimate": "Temperature estimate",
	"insights":     "Insights",

	"new moon":        "New moon",
	"waxing crescent": "Waxing crescent",
	"first quarter":   "First quarter",
	"waxing gibbous":  "Waxing gibbous",
	"full moon":       "Full moon",
	"waning gibbous":  "Waning gibbous",
	"third quarter":   "Third quarter",
	"waning crescent": "Waning crescent",

	"clear":         "Clear",
	"cloudy":        "Cloudy",
	"partly cloudy": "Partly cloudy",
	"overcast":      "Overcast",
	"excellent":     "Excellent",
	"good":          "Good",
	"moderate":      "Moderate",
	"poor":          "Poor",
	"bright":        "Bright",
	"normal":        "Normal",
	"dim":           "Dim",
	"dark":          "Dark",
}
