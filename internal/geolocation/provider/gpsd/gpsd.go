// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package gpsd provides a geolocation provider that reads the current fix from a local gpsd.
package gpsd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/weather-cards/internal/geolocation"
)

const (
	DefaultHost = "localhost"
	DefaultPort = "2947"
	name        = "gpsd"

	fallbackAccuracy3DFix = 10  // ~10 m typical consumer GPS in open sky
	fallbackAccuracy2DFix = 25  // worse than 3D, but still accurate enough
	fallbackAccuracyNoFix = 1e6 // effectively unusable
	watchTimeout          = time.Second * 2
)

var (
	ErrNoTPV = errors.New("no TPV report received from gpsd")
	ErrNoFix = errors.New("gpsd has no 2D fix")
)

// Provider connects to gpsd once per request and waits for the first TPV report.
type Provider struct {
	Addr string
}

type report struct {
	Class string `json:"class"`
}

// tpvReport adds the horizontal error estimate that newer gpsd releases send.
type tpvReport struct {
	gpsd.TPVReport
	Eph float64 `json:"eph"`
}

func New(host, port string) *Provider {
	return &Provider{Addr: net.JoinHostPort(host, port)}
}

func (p *Provider) Name() string {
	return name
}

// Locate returns the first TPV report with at least a 2D fix.
func (p *Provider) Locate(ctx context.Context) (geolocation.Position, error) {
	tpv, err := p.poll(ctx)
	if err != nil {
		return geolocation.Position{}, err
	}
	if tpv.Mode < gpsd.Mode2D {
		return geolocation.Position{}, ErrNoFix
	}
	return geolocation.Position{
		Lat:            geolocation.Truncate(tpv.Lat, geolocation.TruncPrecision),
		Lon:            geolocation.Truncate(tpv.Lon, geolocation.TruncPrecision),
		AccuracyMeters: geolocation.Truncate(horizontalAccuracyMeters(tpv), geolocation.TruncPrecision),
	}, nil
}

func (p *Provider) poll(ctx context.Context) (tpvReport, error) {
	var zero tpvReport

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return zero, fmt.Errorf("failed to dial gpsd: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(watchTimeout))
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err = fmt.Fprint(conn, `?WATCH={"enable":true,"json":true}`+"\n"); err != nil {
		return zero, fmt.Errorf("failed to send WATCH to gpsd: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		var r report
		if err = json.Unmarshal(line, &r); err != nil || r.Class != "TPV" {
			continue
		}
		var tpv tpvReport
		if err = json.Unmarshal(line, &tpv); err != nil {
			continue
		}
		return tpv, nil
	}
	if err = ctx.Err(); err != nil {
		return zero, err
	}
	if err = scanner.Err(); err != nil {
		return zero, fmt.Errorf("failed to read gpsd response: %w", err)
	}
	return zero, ErrNoTPV
}

func horizontalAccuracyMeters(tpv tpvReport) float64 {
	switch {
	case tpv.Eph > 0:
		return tpv.Eph
	case tpv.Epx > 0 && tpv.Epy > 0:
		return math.Hypot(tpv.Epx, tpv.Epy)
	}
	switch tpv.Mode {
	case gpsd.Mode3D:
		return fallbackAccuracy3DFix
	case gpsd.Mode2D:
		return fallbackAccuracy2DFix
	default:
		return fallbackAccuracyNoFix
	}
}
