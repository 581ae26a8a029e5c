// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package main implements the weather-cards command line client.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vorlif/spreak"

	"github.com/wneessen/weather-cards/internal/config"
	"github.com/wneessen/weather-cards/internal/history"
	"github.com/wneessen/weather-cards/internal/i18n"
	"github.com/wneessen/weather-cards/internal/logger"
	"github.com/wneessen/weather-cards/internal/service"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app carries what a command needs. serv is only set for commands that talk to the
// weather and geocoding providers.
type app struct {
	conf  *config.Config
	log   *logger.Logger
	t     *spreak.Localizer
	serv  *service.Service
	store *history.Store
	out   io.Writer
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGABRT, os.Interrupt)
	defer cancel()

	// Initialize logger
	log := logger.NewLogger(slog.LevelError, os.Stderr)

	confPath := flag.String("config", "", "path to the config file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Usage = usage
	flag.Parse()
	if *showVersion {
		fmt.Printf("weather-cards %s (commit: %s, built: %s)\n", version, commit, date)
		return 0
	}
	if flag.NArg() == 0 {
		usage()
		return 2
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", flag.Arg(0))
		usage()
		return 2
	}
	args := flag.Args()[1:]

	conf, err := loadConfig(*confPath)
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		return 1
	}
	log = logger.NewWithFormat(conf.LogLevel, conf.LogFormat, os.Stderr)
	t, err := i18n.New(conf.Locale)
	if err != nil {
		log.Error("failed to initialize localizer", logger.Err(err))
		return 1
	}

	a := &app{conf: conf, log: log, t: t, out: os.Stdout}
	if cmd.needsService(args) {
		a.serv, err = service.New(ctx, conf, log, t)
		if err != nil {
			log.Error("failed to initialize weather-cards service", logger.Err(err))
			fmt.Fprintln(os.Stderr, service.UserMessage(t, err))
			return 1
		}
		defer closeService(log, a.serv)
		a.store = a.serv.Store()
	} else {
		store, backend, err := service.NewStore(ctx, conf, log)
		if err != nil {
			log.Error("failed to open storage", logger.Err(err))
			return 1
		}
		defer func() {
			if err := backend.Close(); err != nil {
				log.Error("failed to close storage", logger.Err(err))
			}
		}()
		a.store = store
	}

	log.Debug("running command", slog.String("command", flag.Arg(0)), slog.String("version", version))
	if err = cmd.run(ctx, a, args); err != nil {
		log.Debug("command failed", logger.Err(err), slog.String("command", flag.Arg(0)))
		fmt.Fprintln(os.Stderr, commandMessage(t, err))
		return 1
	}
	return 0
}

// loadConfig reads the config from path, from the default location if path is empty, or
// from the environment alone if there is no config file.
func loadConfig(confPath string) (*config.Config, error) {
	if confPath != "" {
		return config.NewFromFile(filepath.Dir(confPath), filepath.Base(confPath))
	}
	if path, file := findConfigFile(); path != "" && file != "" {
		return config.NewFromFile(path, file)
	}
	return config.New()
}

func findConfigFile() (string, string) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}
	exts := []string{"toml", "yaml", "yml", "json"}
	for _, ext := range exts {
		path := filepath.Join(homedir, ".config", "weather-cards", "config."+ext)
		if _, err = os.Stat(path); err == nil {
			return filepath.Dir(path), filepath.Base(path)
		}
	}
	return "", ""
}

func closeService(log *logger.Logger, serv *service.Service) {
	if err := serv.Close(); err != nil {
		log.Error("failed to close service", logger.Err(err))
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: weather-cards [-config file] <command> [arguments]\n\nCommands:\n")
	for _, name := range commandNames() {
		fmt.Fprintf(out, "  %-10s %s\n", name, commands[name].usage)
	}
	fmt.Fprintf(out, "\nFlags:\n")
	flag.PrintDefaults()
}
