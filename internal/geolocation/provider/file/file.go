// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package file provides a geolocation provider that reads a fixed position from a local file.
// The file holds a "lat,lon" pair per line, lines starting with # are ignored.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/wneessen/weather-cards/internal/geolocation"
)

const name = "file"

var ErrNoCoordinates = errors.New("no valid coordinates found in geolocation file")

// Provider reads the position from a file on every request so that edits are picked up
// without a restart.
type Provider struct {
	path string
}

func New(path string) *Provider {
	return &Provider{path: path}
}

func (p *Provider) Name() string {
	return name
}

// Locate returns the first valid coordinate pair in the file.
func (p *Provider) Locate(ctx context.Context) (geolocation.Position, error) {
	if err := ctx.Err(); err != nil {
		return geolocation.Position{}, err
	}
	lat, lon, err := p.readFile()
	if err != nil {
		return geolocation.Position{}, err
	}
	return geolocation.Position{Lat: lat, Lon: lon, AccuracyMeters: geolocation.AccuracyExact}, nil
}

func (p *Provider) readFile() (lat, lon float64, err error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return 0, 0, fmt.Errorf("failed to read geolocation file %q: %w", p.path, geolocation.ErrPermissionDenied)
		}
		return 0, 0, fmt.Errorf("failed to read geolocation file %q: %w", p.path, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		coords := strings.Split(line, ",")
		if len(coords) != 2 {
			continue
		}
		lat, err = strconv.ParseFloat(strings.TrimSpace(coords[0]), 64)
		if err != nil {
			continue
		}
		lon, err = strconv.ParseFloat(strings.TrimSpace(coords[1]), 64)
		if err != nil {
			continue
		}
		return lat, lon, nil
	}
	return 0, 0, ErrNoCoordinates
}
