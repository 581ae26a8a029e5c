// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/wneessen/weather-cards/internal/geolocation"
)

const (
	tpvFull = `{"class":"TPV","device":"/dev/ttyACM0","mode":3,"time":"2025-11-24T10:44:41.000Z","leapseconds":18,"ept":0.005,"lat":51.000000000,"lon":7.000000000,"altHAE":120.0000,"altMSL":75.0000,"alt":75.0000,"epx":8.100,"epy":11.400,"epv":27.600,"track":332.6961,"speed":0.229,"climb":-0.217,"eps":1.02,"epc":55.20,"eph":17.670,"sep":28.880}`
)

func TestNew(t *testing.T) {
	provider := New("localhost", "2497")
	if provider.Addr != "localhost:2497" {
		t.Errorf("expected address to be localhost:2497, got %s", provider.Addr)
	}
	if provider.Name() != name {
		t.Errorf("expected provider name to be %s, got %s", name, provider.Name())
	}
}

func TestProvider_Locate(t *testing.T) {
	t.Run("locate succeeds with different TPV reports", func(t *testing.T) {
		tests := []struct {
			name string
			tpv  string
			acc  float64
		}{
			{"full report", tpvFull, 17.67},
			{
				"no eph uses epx and epy",
				`{"class":"TPV","mode":3,"lat":51.0,"lon":7.0,"epx":8.100,"epy":11.400}`,
				geolocation.Truncate(math.Hypot(8.100, 11.400), geolocation.TruncPrecision),
			},
			{"3D fix fallback", `{"class":"TPV","mode":3,"lat":51.0,"lon":7.0}`, fallbackAccuracy3DFix},
			{"2D fix fallback", `{"class":"TPV","mode":2,"lat":51.0,"lon":7.0}`, fallbackAccuracy2DFix},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				pos, err := testProvider(t, tc.tpv).Locate(t.Context())
				if err != nil {
					t.Fatalf("failed to locate: %s", err)
				}
				if pos.Lat != 51 || pos.Lon != 7 {
					t.Errorf("expected 51/7, got %f/%f", pos.Lat, pos.Lon)
				}
				if pos.AccuracyMeters != tc.acc {
					t.Errorf("expected accuracy to be %f, got %f", tc.acc, pos.AccuracyMeters)
				}
			})
		}
	})
	t.Run("locate without fix fails", func(t *testing.T) {
		_, err := testProvider(t, `{"class":"TPV","mode":1,"lat":51.0,"lon":7.0}`).Locate(t.Context())
		if !errors.Is(err, ErrNoFix) {
			t.Errorf("expected error to be %s, got %v", ErrNoFix, err)
		}
	})
	t.Run("locate with canceled context fails", func(t *testing.T) {
		provider := testProvider(t, tpvFull)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if _, err := provider.Locate(ctx); err == nil {
			t.Fatal("expected locate to fail with canceled context")
		}
	})
	t.Run("locate with broken JSON fails", func(t *testing.T) {
		if _, err := testProvider(t, "invalid").Locate(t.Context()); err == nil {
			t.Fatal("expected locate to fail on broken JSON")
		}
	})
	t.Run("locate without gpsd fails", func(t *testing.T) {
		ln, err := net.Listen("tcp", "localhost:0")
		if err != nil {
			t.Fatalf("failed to listen: %s", err)
		}
		host, port, _ := net.SplitHostPort(ln.Addr().String())
		_ = ln.Close()
		if _, err = New(host, port).Locate(t.Context()); err == nil {
			t.Fatal("expected locate to fail without gpsd")
		}
	})
}

func testProvider(t *testing.T, tpv string) *Provider {
	t.Helper()
	host, port, err := net.SplitHostPort(startMockGPSD(t.Context(), t, tpv))
	if err != nil {
		t.Fatalf("failed to parse mock gpsd address: %s", err)
	}
	return New(host, port)
}

func startMockGPSD(ctx context.Context, t *testing.T, tpv string) string {
	t.Helper()

	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("failed to listen for mock gpsd: %s", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		handleMockGPSDConnection(ctx, conn, t, tpv)
	}()

	t.Cleanup(func() {
		if closeErr := ln.Close(); closeErr != nil {
			t.Logf("failed to close mock gpsd listener: %s", closeErr)
		}
		wg.Wait()
	})
	return ln.Addr().String()
}

func handleMockGPSDConnection(ctx context.Context, conn net.Conn, t *testing.T, tpv string) {
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(time.Millisecond * 200))
	_, _ = bufio.NewReader(conn).ReadString('\n')
	_ = conn.SetReadDeadline(time.Time{})

	lines := []string{
		`{"class":"VERSION","release":"gpsd 3.26","proto_major":3,"proto_minor":14}`,
		`{"class":"DEVICES","devices":[{"class":"DEVICE","path":"/dev/ttyACM0","driver":"MockGPS","native":0}]}`,
		tpv,
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(conn, line); err != nil {
			t.Logf("failed to write mock gpsd response: %s", err)
			return
		}
	}
}
