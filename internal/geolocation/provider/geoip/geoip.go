// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geoip provides a geolocation provider that derives the position from the public
// IP address of the machine.
package geoip

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/weather-cards/internal/geolocation"
	"github.com/wneessen/weather-cards/internal/http"
)

const (
	APIEndpoint   = "https://reallyfreegeoip.org/json/"
	LookupTimeout = time.Second * 5
	name          = "geoip"
)

type Provider struct {
	http *http.Client
}

type APIResult struct {
	IP          string  `json:"ip"`
	CountryCode string  `json:"country_code"`
	Country     string  `json:"country_name"`
	RegionCode  string  `json:"region_code,omitempty"`
	Region      string  `json:"region_name,omitempty"`
	City        string  `json:"city,omitempty"`
	ZipCode     string  `json:"zip_code,omitempty"`
	TimeZone    string  `json:"time_zone"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	MetroCode   int     `json:"metro_code"`
}

func New(client *http.Client) *Provider {
	return &Provider{http: client}
}

func (p *Provider) Name() string {
	return name
}

// Locate asks the GeoIP service for the position. The accuracy follows the most specific
// field the service filled in.
func (p *Provider) Locate(ctx context.Context) (geolocation.Position, error) {
	result := new(APIResult)
	if _, err := p.http.GetWithTimeout(ctx, APIEndpoint, result, nil, nil, LookupTimeout); err != nil {
		return geolocation.Position{}, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}

	acc := float64(geolocation.AccuracyUnknown)
	switch {
	case result.ZipCode != "":
		acc = geolocation.AccuracyZip
	case result.City != "":
		acc = geolocation.AccuracyCity
	case result.RegionCode != "":
		acc = geolocation.AccuracyRegion
	case result.CountryCode != "":
		acc = geolocation.AccuracyCountry
	}

	return geolocation.Position{
		Lat:            geolocation.Truncate(result.Latitude, geolocation.TruncPrecision),
		Lon:            geolocation.Truncate(result.Longitude, geolocation.TruncPrecision),
		AccuracyMeters: acc,
	}, nil
}
