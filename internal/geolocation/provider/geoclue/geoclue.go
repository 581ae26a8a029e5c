// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geoclue provides a geolocation provider that asks the GeoClue2 service on the
// system bus for the position.
package geoclue

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/weather-cards/internal/geolocation"
)

const (
	DesktopID = "weather-cards"
	name      = "geoclue"

	busName          = "org.freedesktop.GeoClue2"
	managerPath      = "/org/freedesktop/GeoClue2/Manager"
	managerInterface = "org.freedesktop.GeoClue2.Manager"
	clientInterface  = "org.freedesktop.GeoClue2.Client"
	locationIface    = "org.freedesktop.GeoClue2.Location"
	accessDenied     = "org.freedesktop.DBus.Error.AccessDenied"

	// accuracyLevelExact is GCLUE_ACCURACY_LEVEL_EXACT
	accuracyLevelExact uint32 = 8
	signalBufferSize          = 4
)

var ErrInvalidProperty = errors.New("unexpected GeoClue property type")

type Provider struct {
	desktopID string
}

func New() *Provider {
	return &Provider{desktopID: DesktopID}
}

func (p *Provider) Name() string {
	return name
}

// Locate starts a GeoClue client and waits for its first location.
func (p *Provider) Locate(ctx context.Context) (pos geolocation.Position, err error) {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return pos, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	var clientPath dbus.ObjectPath
	manager := conn.Object(busName, managerPath)
	if err = manager.CallWithContext(ctx, managerInterface+".GetClient", 0).Store(&clientPath); err != nil {
		return pos, mapError("failed to get GeoClue client", err)
	}
	client := conn.Object(busName, clientPath)
	if err = client.SetProperty(clientInterface+".DesktopId", dbus.MakeVariant(p.desktopID)); err != nil {
		return pos, mapError("failed to set desktop id", err)
	}
	if err = client.SetProperty(clientInterface+".RequestedAccuracyLevel", dbus.MakeVariant(accuracyLevelExact)); err != nil {
		return pos, mapError("failed to set requested accuracy level", err)
	}

	if err = conn.AddMatchSignalContext(ctx, dbus.WithMatchObjectPath(clientPath),
		dbus.WithMatchInterface(clientInterface), dbus.WithMatchMember("LocationUpdated")); err != nil {
		return pos, fmt.Errorf("failed to subscribe to location updates: %w", err)
	}
	signals := make(chan *dbus.Signal, signalBufferSize)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	if err = client.CallWithContext(ctx, clientInterface+".Start", 0).Err; err != nil {
		return pos, mapError("failed to start GeoClue client", err)
	}
	defer func() {
		_ = client.CallWithContext(context.WithoutCancel(ctx), clientInterface+".Stop", 0).Err
	}()

	if path, err := client.GetProperty(clientInterface + ".Location"); err == nil {
		if locPath, ok := path.Value().(dbus.ObjectPath); ok && locPath != "/" {
			return readLocation(conn.Object(busName, locPath))
		}
	}
	for {
		select {
		case <-ctx.Done():
			return pos, ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return pos, geolocation.ErrPositionUnavailable
			}
			if len(sig.Body) < 2 {
				continue
			}
			locPath, ok := sig.Body[1].(dbus.ObjectPath)
			if !ok {
				continue
			}
			return readLocation(conn.Object(busName, locPath))
		}
	}
}

func readLocation(obj dbus.BusObject) (geolocation.Position, error) {
	lat, err := floatProperty(obj, "Latitude")
	if err != nil {
		return geolocation.Position{}, err
	}
	lon, err := floatProperty(obj, "Longitude")
	if err != nil {
		return geolocation.Position{}, err
	}
	acc, err := floatProperty(obj, "Accuracy")
	if err != nil {
		return geolocation.Position{}, err
	}
	return geolocation.Position{
		Lat:            geolocation.Truncate(lat, geolocation.TruncPrecision),
		Lon:            geolocation.Truncate(lon, geolocation.TruncPrecision),
		AccuracyMeters: acc,
	}, nil
}

func floatProperty(obj dbus.BusObject, property string) (float64, error) {
	variant, err := obj.GetProperty(locationIface + "." + property)
	if err != nil {
		return 0, fmt.Errorf("failed to read location %s: %w", property, err)
	}
	return variantFloat(variant)
}

func variantFloat(variant dbus.Variant) (float64, error) {
	val, ok := variant.Value().(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidProperty, variant.Signature())
	}
	return val, nil
}

// mapError turns a refused authorization into geolocation.ErrPermissionDenied.
func mapError(msg string, err error) error {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) && dbusErr.Name == accessDenied {
		return fmt.Errorf("%s: %w", msg, geolocation.ErrPermissionDenied)
	}
	var dbusErrPtr *dbus.Error
	if errors.As(err, &dbusErrPtr) && dbusErrPtr.Name == accessDenied {
		return fmt.Errorf("%s: %w", msg, geolocation.ErrPermissionDenied)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
