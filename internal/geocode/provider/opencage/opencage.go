// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package opencage

import (
	"context"
	"errors"
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
	APIEndpoint = "https://api.opencagedata.com/geocode/v1/json"
	APITimeout  = time.Second * 10
	name        = "opencage"
)

var ErrMissingAPIKey = errors.New("OpenCage API key is required")

type OpenCage struct {
	apikey string
	http   *http.Client
	lang   language.Tag
}

type Response struct {
	Results      []Result `json:"results"`
	TotalResults int      `json:"total_results"`
}

type Result struct {
	Components  Components `json:"components"`
	DisplayName string     `json:"formatted"`
	Geometry    Geometry   `json:"geometry"`
}

type Components struct {
	NormalizedCity string `json:"_normalized_city"`
	City           string `json:"city"`
	CountryCode    string `json:"country_code"`
	State          string `json:"state"`
	Town           string `json:"town"`
	Village        string `json:"village"`
}

type Geometry struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

func New(client *http.Client, lang language.Tag, apikey string) (*OpenCage, error) {
	if apikey == "" {
		return nil, ErrMissingAPIKey
	}
	return &OpenCage{
		apikey: apikey,
		lang:   lang,
		http:   client,
	}, nil
}

func (o *OpenCage) Name() string {
	return name
}

func (o *OpenCage) Search(ctx context.Context, search string, limit int) ([]geocode.City, error) {
	response, err := o.query(ctx, search, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve cities from OpenCage API: %w", err)
	}
	cities := make([]geocode.City, 0, len(response.Results))
	for _, result := range response.Results {
		cities = append(cities, result.city())
	}
	return cities, nil
}

func (o *OpenCage) Reverse(ctx context.Context, lat, lon float64) (geocode.City, error) {
	response, err := o.query(ctx, fmt.Sprintf("%f,%f", lat, lon), 1)
	if err != nil {
		return geocode.City{}, fmt.Errorf("failed to retrieve address details from OpenCage API: %w", err)
	}
	if response.TotalResults < 1 || len(response.Results) < 1 {
		return geocode.City{}, geocode.ErrNotFound
	}
	return response.Results[0].city(), nil
}

func (o *OpenCage) query(ctx context.Context, q string, limit int) (Response, error) {
	var response Response

	query := url.Values{}
	query.Set("key", o.apikey)
	query.Set("q", q)
	query.Set("limit", strconv.Itoa(limit))
	query.Set("no_annotations", "1")
	query.Set("no_record", "1")
	query.Set("language", o.lang.String())

	_, err := o.http.GetWithTimeout(ctx, APIEndpoint, &response, query, nil, APITimeout)
	return response, err
}

func (r Result) city() geocode.City {
	city := geocode.City{
		Name:    r.Components.NormalizedCity,
		Country: strings.ToUpper(r.Components.CountryCode),
		State:   r.Components.State,
		Lat:     r.Geometry.Lat,
		Lon:     r.Geometry.Lon,
	}
	if city.Name == "" {
		city.Name = r.Components.City
	}
	if city.Name == "" && r.Components.Town != "" {
		city.Name = r.Components.Town
	}
	if city.Name == "" && r.Components.Village != "" {
		city.Name = r.Components.Village
	}
	return city
}
