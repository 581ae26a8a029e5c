// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package ichnaea provides a geolocation provider that sends the visible WiFi access points
// to an Ichnaea compatible service, by default BeaconDB.
package ichnaea

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mdlayher/wifi"

	"github.com/wneessen/weather-cards/internal/geolocation"
	"github.com/wneessen/weather-cards/internal/http"
	"github.com/wneessen/weather-cards/internal/logger"
)

const (
	APIEndpoint   = "https://api.beacondb.net/v1/geolocate"
	LookupTimeout = time.Second * 5
	name          = "ichnaea"
)

// Scanner lists the WiFi networks in range.
type Scanner interface {
	Scan() ([]WirelessNetwork, error)
}

type Provider struct {
	http     *http.Client
	scanner  Scanner
	endpoint string
	log      *logger.Logger
}

type APIResult struct {
	Location struct {
		Latitude  float64 `json:"lat"`
		Longitude float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
}

type WirelessNetwork struct {
	LastSeen       int64  `json:"age"`
	MACAddress     string `json:"macAddress"`
	SignalStrength int32  `json:"signalStrength"`
}

type request struct {
	ConsiderIP   bool              `json:"considerIp"`
	Accesspoints []WirelessNetwork `json:"wifiAccessPoints,omitempty"`
}

// New returns a Provider scanning with the nl80211 interface of the machine. Without WiFi
// support the service falls back to the IP address of the request.
func New(client *http.Client, log *logger.Logger) *Provider {
	var scanner Scanner
	wlan, err := wifi.New()
	if err != nil {
		log.Debug("wifi scanning unavailable, using IP based lookup", logger.Err(err))
	} else {
		scanner = &wlanScanner{wlan: wlan}
	}
	return NewWithScanner(client, log, scanner)
}

// NewWithScanner returns a Provider that uses scanner to find access points. A nil scanner
// disables the WiFi scan.
func NewWithScanner(client *http.Client, log *logger.Logger, scanner Scanner) *Provider {
	return &Provider{
		http:     client,
		scanner:  scanner,
		endpoint: APIEndpoint,
		log:      log.Component(name),
	}
}

func (p *Provider) Name() string {
	return name
}

// Locate scans for access points and asks the service for the matching position.
func (p *Provider) Locate(ctx context.Context) (geolocation.Position, error) {
	req := request{ConsiderIP: true}
	if p.scanner != nil {
		list, err := p.scanner.Scan()
		if err != nil {
			p.log.Debug("failed to scan for wifi access points", logger.Err(err))
		}
		req.Accesspoints = list
	}

	bodyBuffer := bytes.NewBuffer(nil)
	if err := json.NewEncoder(bodyBuffer).Encode(req); err != nil {
		return geolocation.Position{}, fmt.Errorf("failed to encode wifi list to JSON: %w", err)
	}
	result := new(APIResult)
	if _, err := p.http.PostWithTimeout(ctx, p.endpoint, result, bodyBuffer,
		map[string]string{"Content-Type": "application/json"}, LookupTimeout); err != nil {
		return geolocation.Position{}, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}

	acc := result.Accuracy
	if acc <= 0 {
		acc = geolocation.AccuracyUnknown
	}
	return geolocation.Position{
		Lat:            geolocation.Truncate(result.Location.Latitude, geolocation.TruncPrecision),
		Lon:            geolocation.Truncate(result.Location.Longitude, geolocation.TruncPrecision),
		AccuracyMeters: geolocation.Truncate(acc, geolocation.TruncPrecision),
	}, nil
}

type wlanScanner struct {
	wlan *wifi.Client
}

func (s *wlanScanner) Scan() ([]WirelessNetwork, error) {
	ifaces, err := s.wlan.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	var list []WirelessNetwork
	for _, iface := range ifaces {
		if iface.Type != wifi.InterfaceTypeStation {
			continue
		}
		aps, err := s.wlan.AccessPoints(iface)
		if err != nil {
			continue
		}
		list = append(list, networks(aps)...)
	}
	return list, nil
}

// networks converts scan results, skipping hidden networks and those that opted out of
// mapping with the _nomap suffix.
func networks(aps []*wifi.BSS) []WirelessNetwork {
	var list []WirelessNetwork
	for _, ap := range aps {
		if ap.SSID == "" || ap.SSID[0] == '\x00' || strings.HasSuffix(ap.SSID, "_nomap") {
			continue
		}
		list = append(list, WirelessNetwork{
			SignalStrength: ap.Signal / 100,
			MACAddress:     ap.BSSID.String(),
			LastSeen:       ap.LastSeen.Milliseconds(),
		})
	}
	return list
}
