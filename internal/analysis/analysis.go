// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package analysis implements the simulated image analysis. It performs no computer vision,
// every result is picked at random from a fixed table of canned descriptions.
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// DefaultDelay is the simulated processing time of an analysis.
	DefaultDelay = time.Second * 2

	// MaxImageSize caps how many bytes of an upload are read.
	MaxImageSize = 10 << 20

	minTemperature   = 5
	temperatureRange = 40
)

// ErrNotAnImage is returned for uploads that do not sniff as an image.
var ErrNotAnImage = errors.New("upload is not a valid image file")

var (
	skyConditions = []string{"Clear", "Cloudy", "Partly Cloudy", "Overcast"}
	visibilities  = []string{"Excellent", "Good", "Moderate", "Poor"}
	lightings     = []string{"Bright", "Normal", "Dim", "Dark"}
	insights      = []string{
		"Based on the sky conditions, today appears to be a great day for outdoor activities.",
		"The lighting conditions suggest optimal visibility for photography.",
		"Temperature patterns indicate comfortable weather conditions.",
		"Atmospheric conditions are favorable for clear visibility.",
		"Weather patterns show stable conditions with minimal precipitation risk.",
	}
)

// Result is the descriptive record of one analysis.
type Result struct {
	SkyCondition        string `json:"skyCondition"`
	Visibility          string `json:"visibility"`
	Lighting            string `json:"lighting"`
	TemperatureEstimate int    `json:"temperatureEstimate"`
	Insights            string `json:"insights"`
}

// Analyzer produces simulated analysis results.
type Analyzer struct {
	delay  time.Duration
	intn   func(int) int
	detect func([]byte) string
}

// New returns an Analyzer that waits delay before every result.
func New(delay time.Duration) *Analyzer {
	return &Analyzer{
		delay:  delay,
		intn:   rand.IntN,
		detect: func(data []byte) string { return mimetype.Detect(data).String() },
	}
}

// Analyze reads the image from r and returns a simulated result. The call blocks for the
// configured delay unless ctx is canceled first.
func (a *Analyzer) Analyze(ctx context.Context, r io.Reader) (Result, error) {
	if _, err := a.Validate(r); err != nil {
		return Result{}, err
	}

	timer := time.NewTimer(a.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("analysis canceled: %w", ctx.Err())
	case <-timer.C:
	}

	return Result{
		SkyCondition:        a.pick(skyConditions),
		Visibility:          a.pick(visibilities),
		Lighting:            a.pick(lightings),
		TemperatureEstimate: a.intn(temperatureRange) + minTemperature,
		Insights:            a.pick(insights),
	}, nil
}

// Validate sniffs the content of r and returns its MIME type. Anything that is not an
// image/* type is rejected with ErrNotAnImage.
func (a *Analyzer) Validate(r io.Reader) (string, error) {
	if r == nil {
		return "", ErrNotAnImage
	}
	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, io.LimitReader(r, MaxImageSize)); err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if buf.Len() == 0 {
		return "", ErrNotAnImage
	}
	mime := a.detect(buf.Bytes())
	if !strings.HasPrefix(mime, "image/") {
		return mime, ErrNotAnImage
	}
	return mime, nil
}

func (a *Analyzer) pick(values []string) string {
	return values[a.intn(len(values))]
}
