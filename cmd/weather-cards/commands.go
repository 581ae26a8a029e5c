// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/vorlif/spreak"

	"github.com/wneessen/weather-cards/internal/analysis"
	"github.com/wneessen/weather-cards/internal/api"
	"github.com/wneessen/weather-cards/internal/history"
	"github.com/wneessen/weather-cards/internal/presenter"
	"github.com/wneessen/weather-cards/internal/service"
	"github.com/wneessen/weather-cards/internal/weather"
)

var errUsage = errors.New("usage")

type command struct {
	usage string
	// needsService reports whether the command talks to the weather or geocoding providers
	needsService func(args []string) bool
	run          func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"search":    {"[-lat N -lon N [-label L]] <city>  search the weather of a city", always, runSearch},
	"suggest":   {"<query>  list matching cities", always, runSuggest},
	"locate":    {"search the weather at the current location", always, runLocate},
	"cards":     {"[-json]  show the stored weather cards", never, runCards},
	"remove":    {"<id>  remove a weather card", never, runRemove},
	"history":   {"show the recent searches", never, runHistory},
	"favorites": {"[add <city> | remove <name> | refresh]  manage favorite cities", favoritesNeedService, runFavorites},
	"prefs":     {"[key=value...]  show or change the preferences", never, runPrefs},
	"theme":     {"[light|dark|toggle]  show or change the theme", never, runTheme},
	"analyze":   {"<image>  analyze a photo of the sky", never, runAnalyze},
	"analyses":  {"[-json]  show the stored analyses", never, runAnalyses},
	"export":    {"[file]  export all data as JSON", never, runExport},
	"import":    {"<file|->  import data exported before", never, runImport},
	"clear":     {"[bucket]  delete one or all buckets", never, runClear},
	"info":      {"show the storage usage", never, runInfo},
	"watch":     {"refresh and print the favorites periodically", always, runWatch},
	"serve":     {"[-listen addr]  serve the JSON API", always, runServe},
}

func always([]string) bool { return true }

func never([]string) bool { return false }

func favoritesNeedService(args []string) bool {
	return len(args) > 0 && (args[0] == "add" || args[0] == "refresh")
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// commandMessage returns the message printed for a failed command.
func commandMessage(t *spreak.Localizer, err error) string {
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, errUsage), errors.Is(err, history.ErrInvalidImport),
		errors.Is(err, history.ErrUnknownBucket), errors.As(err, &pathErr):
		return err.Error()
	default:
		return service.UserMessage(t, err)
	}
}

func runSearch(ctx context.Context, a *app, args []string) error {
	flags := flag.NewFlagSet("search", flag.ContinueOnError)
	lat := flags.Float64("lat", 0, "latitude of the city")
	lon := flags.Float64("lon", 0, "longitude of the city")
	label := flags.String("label", "", "label of the card, resolved from the coordinates if empty")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	coordinates := false
	flags.Visit(func(f *flag.Flag) {
		coordinates = coordinates || f.Name == "lat" || f.Name == "lon"
	})

	var record weather.Record
	var err error
	if coordinates {
		record, err = a.serv.SearchCoordinates(ctx, *lat, *lon, *label)
	} else {
		record, err = a.serv.Search(ctx, strings.Join(flags.Args(), " "))
	}
	if err != nil {
		return err
	}
	return a.printCards(ctx, record)
}

func runSuggest(ctx context.Context, a *app, args []string) error {
	cities, err := a.serv.Suggest(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if len(cities) == 0 {
		fmt.Fprintln(a.out, a.t.Get("No matching cities found"))
		return nil
	}
	for _, city := range cities {
		name := city.Label()
		if city.State != "" {
			name += " (" + city.State + ")"
		}
		fmt.Fprintf(a.out, "%s\t%.4f %.4f\n", name, city.Lat, city.Lon)
	}
	return nil
}

func runLocate(ctx context.Context, a *app, _ []string) error {
	located, err := a.serv.Locate(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, a.serv.LocationMessage(located))
	return a.printCards(ctx, located.Record)
}

func runCards(ctx context.Context, a *app, args []string) error {
	flags := flag.NewFlagSet("cards", flag.ContinueOnError)
	asJSON := flags.Bool("json", false, "print the cards as JSON")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	records := a.store.Weather(ctx)
	if *asJSON {
		return a.printJSON(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, a.t.Get("No weather cards yet"))
		return nil
	}
	return a.printCards(ctx, records...)
}

func runRemove(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: remove <id>", errUsage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid card id %q", errUsage, args[0])
	}
	if !a.store.RemoveWeather(ctx, id) {
		return service.ErrStorage
	}
	return nil
}

func runHistory(ctx context.Context, a *app, _ []string) error {
	for _, search := range a.store.SearchHistory(ctx) {
		fmt.Fprintln(a.out, search)
	}
	return nil
}

func runFavorites(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		for _, favorite := range a.store.Favorites(ctx) {
			name := favorite.Name
			if favorite.Country != "" {
				name += ", " + favorite.Country
			}
			fmt.Fprintf(a.out, "%s\t%.4f %.4f\n", name, favorite.Lat, favorite.Lon)
		}
		return nil
	}

	switch args[0] {
	case "add":
		favorite, err := a.serv.AddFavorite(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, a.t.Getf("Added %s to the favorites", favorite.Name))
	case "remove":
		if len(args) < 2 {
			return fmt.Errorf("%w: favorites remove <name>", errUsage)
		}
		if !a.store.RemoveFavorite(ctx, strings.Join(args[1:], " ")) {
			return service.ErrStorage
		}
	case "refresh":
		records := a.serv.RefreshFavorites(ctx)
		if len(records) == 0 {
			return nil
		}
		return a.printCards(ctx, records...)
	default:
		return fmt.Errorf("%w: favorites [add <city> | remove <name> | refresh]", errUsage)
	}
	return nil
}

func runPrefs(ctx context.Context, a *app, args []string) error {
	prefs := a.store.Preferences(ctx)
	if len(args) > 0 {
		update, err := parsePreferences(args)
		if err != nil {
			return err
		}
		if err = update.Apply(prefs).Validate(); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		var ok bool
		if prefs, ok = a.store.UpdatePreferences(ctx, update); !ok {
			return service.ErrStorage
		}
	}
	fmt.Fprintf(a.out, "units = %s\nlanguage = %s\nnotifications = %t\nautoLocation = %t\n",
		prefs.Units, prefs.Language, prefs.Notifications, prefs.AutoLocation)
	return nil
}

// parsePreferences turns key=value arguments into a preferences update.
func parsePreferences(args []string) (history.PreferencesUpdate, error) {
	var update history.PreferencesUpdate
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return update, fmt.Errorf("%w: expected key=value, got %q", errUsage, arg)
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "units":
			update.Units.Set(strings.TrimSpace(value))
		case "language":
			update.Language.Set(strings.TrimSpace(value))
		case "notifications", "autolocation":
			enabled, err := strconv.ParseBool(strings.TrimSpace(value))
			if err != nil {
				return update, fmt.Errorf("%w: invalid value for %s: %q", errUsage, key, value)
			}
			if strings.EqualFold(key, "notifications") {
				update.Notifications.Set(enabled)
			} else {
				update.AutoLocation.Set(enabled)
			}
		default:
			return update, fmt.Errorf("%w: unknown preference %q", errUsage, key)
		}
	}
	return update, nil
}

func runTheme(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, a.store.Theme(ctx))
		return nil
	}

	theme := args[0]
	switch theme {
	case "toggle":
		var ok bool
		if theme, ok = a.store.ToggleTheme(ctx); !ok {
			return service.ErrStorage
		}
	case history.ThemeLight, history.ThemeDark:
		if !a.store.SetTheme(ctx, theme) {
			return service.ErrStorage
		}
	default:
		return fmt.Errorf("%w: theme [light|dark|toggle]", errUsage)
	}
	fmt.Fprintln(a.out, theme)
	return nil
}

func runAnalyze(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: analyze <image>", errUsage)
	}
	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	fmt.Fprintln(a.out, a.t.Get("Analyzing image..."))
	analyzer := analysis.New(a.conf.Analysis.Delay)
	entry, err := service.AnalyzeImage(ctx, analyzer, a.store, a.log, file)
	if err != nil {
		return err
	}
	return a.printAnalyses(ctx, entry)
}

func runAnalyses(ctx context.Context, a *app, args []string) error {
	flags := flag.NewFlagSet("analyses", flag.ContinueOnError)
	asJSON := flags.Bool("json", false, "print the analyses as JSON")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	entries := a.store.Analyses(ctx)
	if *asJSON {
		return a.printJSON(entries)
	}
	return a.printAnalyses(ctx, entries...)
}

func runExport(ctx context.Context, a *app, args []string) error {
	data, err := a.store.Export(ctx)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		_, err = fmt.Fprintln(a.out, string(data))
		return err
	}
	if err = os.WriteFile(args[0], data, 0o600); err != nil {
		return err
	}
	fmt.Fprintln(a.out, a.t.Getf("Exported data to %s", args[0]))
	return nil
}

func runImport(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: import <file|->", errUsage)
	}
	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	snapshot, err := history.ParseSnapshot(data)
	if err != nil {
		return err
	}
	if !a.store.Restore(ctx, snapshot) {
		return service.ErrStorage
	}
	fmt.Fprintln(a.out, a.t.Get("Data imported successfully"))
	return nil
}

func runClear(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		if !a.store.ClearAll(ctx) {
			return service.ErrStorage
		}
		return nil
	}
	for _, name := range args {
		bucket, err := history.ParseBucket(name)
		if err != nil {
			return err
		}
		if !a.store.Clear(ctx, bucket) {
			return service.ErrStorage
		}
	}
	return nil
}

func runInfo(ctx context.Context, a *app, _ []string) error {
	info := a.store.Info(ctx)
	fmt.Fprintf(a.out, "backend:   %s\navailable: %t\nused:      %d bytes (%.2f%%)\nfree:      %d bytes\n",
		a.conf.Storage.Backend, a.store.Available(ctx), info.Used, info.Percentage, info.Available)
	return nil
}

func runWatch(ctx context.Context, a *app, _ []string) error {
	return a.serv.Watch(ctx)
}

func runServe(ctx context.Context, a *app, args []string) error {
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	listen := flags.String("listen", a.conf.Server.Listen, "address the API listens on")
	quiet := flags.Bool("quiet", false, "do not log requests")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	var accessLog io.Writer = os.Stderr
	if *quiet {
		accessLog = nil
	}
	return api.New(a.serv, a.log.Component("api"), accessLog).Serve(ctx, *listen)
}

// presenter returns the presenter for the stored unit preference.
func (a *app) presenter(ctx context.Context) (*presenter.Presenter, error) {
	if a.serv != nil {
		return a.serv.Presenter(ctx), nil
	}
	pres, err := presenter.New(a.conf, a.t)
	if err != nil {
		return nil, err
	}
	return pres.WithUnits(a.store.Preferences(ctx).Units), nil
}

// printCards prints each record as a framed card headed by its id.
func (a *app) printCards(ctx context.Context, records ...weather.Record) error {
	pres, err := a.presenter(ctx)
	if err != nil {
		return err
	}
	for _, record := range records {
		card, err := pres.RenderCard(record)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "#%d\n%s\n", record.ID, presenter.Box(card))
	}
	return nil
}

func (a *app) printAnalyses(ctx context.Context, entries ...history.Analysis) error {
	pres, err := a.presenter(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		text, err := pres.RenderAnalysis(entry.Result)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s\n%s\n", entry.Timestamp.Local().Format(time.DateTime), presenter.Box(text))
	}
	return nil
}

func (a *app) printJSON(value any) error {
	encoder := json.NewEncoder(a.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
