// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package nominatim

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/wneessen/weather-cards/internal/geocode"
	"github.com/wneessen/weather-cards/internal/http"
)

const (
	APISearchEndpoint  = "https://nominatim.openstreetmap.org/search"
	APIReverseEndpoint = "https://nominatim.openstreetmap.org/reverse"
	APITimeout         = time.Second * 10
	name               = "osm-nominatim"

	// reverseZoom limits reverse lookups to city level
	reverseZoom = "10"
)

type Nominatim struct {
	http *http.Client
	lang language.Tag
}

type Result struct {
	APILat      string  `json:"lat"`
	APILon      string  `json:"lon"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Address     Address `json:"address"`
	Error       string  `json:"error"`
}

type Address struct {
	Municipality string `json:"municipality"`
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	State        string `json:"state"`
	Country      string `json:"country"`
	CountryCode  string `json:"country_code"`
}

func New(client *http.Client, lang language.Tag) *Nominatim {
	return &Nominatim{
		lang: lang,
		http: client,
	}
}

func (n *Nominatim) Name() string {
	return name
}

func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) (geocode.City, error) {
	var result Result

	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("lat", fmt.Sprintf("%f", lat))
	query.Set("lon", fmt.Sprintf("%f", lon))
	query.Set("zoom", reverseZoom)
	query.Set("accept-language", n.lang.String())

	if _, err := n.http.GetWithTimeout(ctx, APIReverseEndpoint, &result, query, nil, APITimeout); err != nil {
		return geocode.City{}, fmt.Errorf("failed to fetch reverse address details from Nominatim API: %w", err)
	}
	if result.Error != "" {
		return geocode.City{}, geocode.ErrNotFound
	}
	return result.city()
}

func (n *Nominatim) Search(ctx context.Context, search string, limit int) ([]geocode.City, error) {
	var results []Result

	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("q", search)
	query.Set("limit", strconv.Itoa(limit))
	query.Set("addressdetails", "1")
	query.Set("featureType", "city")
	query.Set("accept-language", n.lang.String())

	if _, err := n.http.GetWithTimeout(ctx, APISearchEndpoint, &results, query, nil, APITimeout); err != nil {
		return nil, fmt.Errorf("failed to fetch address details from Nominatim API: %w", err)
	}

	cities := make([]geocode.City, 0, len(results))
	for _, result := range results {
		city, err := result.city()
		if err != nil {
			return nil, err
		}
		cities = append(cities, city)
	}
	return cities, nil
}

func (r Result) city() (geocode.City, error) {
	var err error
	city := geocode.City{
		Name:    r.Address.City,
		Country: strings.ToUpper(r.Address.CountryCode),
		State:   r.Address.State,
	}
	if city.Name == "" && r.Address.Town != "" {
		city.Name = r.Address.Town
	}
	if city.Name == "" && r.Address.Village != "" {
		city.Name = r.Address.Village
	}
	if city.Name == "" && r.Address.Municipality != "" {
		city.Name = r.Address.Municipality
	}
	if city.Name == "" {
		city.Name = r.Name
	}
	city.Lat, err = strconv.ParseFloat(r.APILat, 64)
	if err != nil {
		return geocode.City{}, fmt.Errorf("failed to parse latitude from Nominatim API response: %w", err)
	}
	city.Lon, err = strconv.ParseFloat(r.APILon, 64)
	if err != nil {
		return geocode.City{}, fmt.Errorf("failed to parse longitude from Nominatim API response: %w", err)
	}
	return city, nil
}
