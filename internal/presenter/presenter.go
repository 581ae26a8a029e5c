// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package presenter renders weather cards and analysis results as text.
package presenter

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/vorlif/humanize"
	"github.com/vorlif/humanize/locale/de"
	"github.com/vorlif/spreak"
	"github.com/wneessen/go-moonphase"

	"github.com/wneessen/weather-cards/internal/analysis"
	"github.com/wneessen/weather-cards/internal/config"
	"github.com/wneessen/weather-cards/internal/weather"
)

const (
	UnitsMetric   = "metric"
	UnitsImperial = "imperial"

	kmPerMile = 1.609344
)

// CardContext is the data a card template is executed with. Record holds the values in
// the display units.
type CardContext struct {
	Record weather.Record
	// Title is the city label, with the country code appended unless the label carries it
	Title         string
	ConditionIcon string
	TempUnit      string
	SpeedUnit     string
	DistanceUnit  string
	MoonPhase     string
	MoonPhaseIcon string
}

type Presenter struct {
	card      *template.Template
	analysis  *template.Template
	localizer *spreak.Localizer
	humanizer *humanize.Humanizer
	units     string
	location  *time.Location
}

// New parses the card and analysis templates of conf. Both templates are test-rendered
// with sample data so that broken templates fail at startup.
func New(conf *config.Config, loc *spreak.Localizer) (*Presenter, error) {
	collection, err := humanize.New(humanize.WithLocale(de.New()))
	if err != nil {
		return nil, fmt.Errorf("failed to create humanizer: %w", err)
	}
	pres := &Presenter{
		localizer: loc,
		humanizer: collection.CreateHumanizer(loc.Language()),
		units:     conf.Units,
		location:  time.Local,
	}

	pres.card, err = template.New("card").Funcs(pres.templateFuncMap()).Parse(conf.Templates.Card)
	if err != nil {
		return nil, fmt.Errorf("failed to parse card template: %w", err)
	}
	pres.analysis, err = template.New("analysis").Funcs(pres.templateFuncMap()).Parse(conf.Templates.Analysis)
	if err != nil {
		return nil, fmt.Errorf("failed to parse analysis template: %w", err)
	}

	sample := weather.Record{City: "Sample", Country: "XX", Timestamp: time.Now()}
	if err = pres.card.Execute(io.Discard, pres.CardContext(sample)); err != nil {
		return nil, fmt.Errorf("failed to render card template: %w", err)
	}
	if err = pres.analysis.Execute(io.Discard, analysis.Result{}); err != nil {
		return nil, fmt.Errorf("failed to render analysis template: %w", err)
	}

	return pres, nil
}

// WithUnits returns a copy of the presenter that displays values in the given units.
// Unknown units keep the current ones.
func (p *Presenter) WithUnits(units string) *Presenter {
	if units != UnitsMetric && units != UnitsImperial {
		return p
	}
	clone := *p
	clone.units = units
	return &clone
}

// CardContext converts record into the display units and adds the presentation fields.
func (p *Presenter) CardContext(record weather.Record) CardContext {
	moon := moonphase.New(record.Timestamp)
	ctx := CardContext{
		Record:        record,
		Title:         cardTitle(record),
		ConditionIcon: weather.ConditionIcon(record.Icon),
		TempUnit:      "°C",
		SpeedUnit:     "km/h",
		DistanceUnit:  "km",
		MoonPhase:     moon.PhaseName(),
		MoonPhaseIcon: MoonPhaseIcon[moon.PhaseName()],
	}
	if p.units == UnitsImperial {
		ctx.Record.Temperature = fahrenheit(record.Temperature)
		ctx.Record.FeelsLike = fahrenheit(record.FeelsLike)
		ctx.Record.WindSpeed = int(math.Round(float64(record.WindSpeed) / kmPerMile))
		ctx.Record.Visibility = record.Visibility / kmPerMile
		ctx.TempUnit = "°F"
		ctx.SpeedUnit = "mph"
		ctx.DistanceUnit = "mi"
	}
	return ctx
}

func cardTitle(record weather.Record) string {
	if record.Country == "" || strings.HasSuffix(record.City, ", "+record.Country) {
		return record.City
	}
	return record.City + ", " + record.Country
}

// RenderCard renders record with the card template.
func (p *Presenter) RenderCard(record weather.Record) (string, error) {
	buf := bytes.NewBuffer(nil)
	if err := p.card.Execute(buf, p.CardContext(record)); err != nil {
		return "", fmt.Errorf("failed to render card: %w", err)
	}
	return buf.String(), nil
}

// RenderCards renders every record as a framed card.
func (p *Presenter) RenderCards(records []weather.Record) (string, error) {
	cards := make([]string, 0, len(records))
	for _, record := range records {
		card, err := p.RenderCard(record)
		if err != nil {
			return "", err
		}
		cards = append(cards, Box(card))
	}
	return strings.Join(cards, "\n"), nil
}

// RenderAnalysis renders result with the analysis template.
func (p *Presenter) RenderAnalysis(result analysis.Result) (string, error) {
	buf := bytes.NewBuffer(nil)
	if err := p.analysis.Execute(buf, result); err != nil {
		return "", fmt.Errorf("failed to render analysis: %w", err)
	}
	return buf.String(), nil
}

// Box draws a frame around text. Emoji and other wide runes are measured by their cell
// width so that the right border lines up.
func Box(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	width := 0
	for _, line := range lines {
		width = max(width, runewidth.StringWidth(line))
	}

	buf := strings.Builder{}
	buf.WriteString("┌" + strings.Repeat("─", width+2) + "┐\n")
	for _, line := range lines {
		buf.WriteString("│ " + runewidth.FillRight(line, width) + " │\n")
	}
	buf.WriteString("└" + strings.Repeat("─", width+2) + "┘\n")
	return buf.String()
}

func fahrenheit(celsius int) int {
	return int(math.Round(float64(celsius)*9/5 + 32))
}
