// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wneessen/weather-cards/internal/history"
	"github.com/wneessen/weather-cards/internal/presenter"
	"github.com/wneessen/weather-cards/internal/vartype"
)

// watchSignals are the signals handled in watch mode. SIGUSR1 refreshes the favorites,
// SIGUSR2 switches between metric and imperial units and refreshes.
var watchSignals = []os.Signal{syscall.SIGUSR1, syscall.SIGUSR2}

type signalSource interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

type osSignals struct{}

func (osSignals) Notify(c chan<- os.Signal, sig ...os.Signal) { signal.Notify(c, sig...) }

func (osSignals) Stop(c chan<- os.Signal) { signal.Stop(c) }

// HandleSignals reacts to the watch signals arriving on sigChan until ctx is canceled or
// sigChan is closed.
func (s *Service) HandleSignals(ctx context.Context, sigChan <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigChan:
			if !ok {
				return
			}
			s.logger.Debug("signal received", "signal", sig.String())
			if sig == syscall.SIGUSR2 {
				s.toggleUnits(ctx)
			}
			s.refresh(ctx)
		}
	}
}

// toggleUnits flips the stored unit preference.
func (s *Service) toggleUnits(ctx context.Context) {
	units := presenter.UnitsImperial
	if s.store.Preferences(ctx).Units == presenter.UnitsImperial {
		units = presenter.UnitsMetric
	}
	update := history.PreferencesUpdate{Units: vartype.NewVariable(units)}
	if _, ok := s.store.UpdatePreferences(ctx, update); !ok {
		s.logger.Warn("failed to switch units", "units", units)
	}
}
