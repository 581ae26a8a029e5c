// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/weather-cards/internal/logger"
)

const (
	login1Interface = "org.freedesktop.login1.Manager"
	login1Member    = "PrepareForSleep"

	resumeDebounce   = time.Second * 2
	signalBufferSize = 8

	busRetryDelay      = time.Second * 5
	networkWakeupDelay = time.Second * 10
)

// resumeGate drops resume events that arrive within resumeDebounce of the previous one.
type resumeGate struct {
	last atomic.Int64
	now  func() time.Time
}

func (g *resumeGate) allow() bool {
	now := g.now().UnixNano()
	prev := g.last.Load()
	if prev != 0 && time.Duration(now-prev) < resumeDebounce {
		return false
	}
	return g.last.CompareAndSwap(prev, now)
}

// monitorSleepResume refreshes the favorites once the system woke up from sleep. Lost bus
// connections are re-established until ctx is canceled.
func (s *Service) monitorSleepResume(ctx context.Context) {
	gate := &resumeGate{now: time.Now}
	for {
		if err := s.watchSleepSignals(ctx, gate); err != nil {
			s.logger.Debug("sleep monitor interrupted", logger.Err(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(busRetryDelay):
		}
	}
}

// watchSleepSignals subscribes to the logind sleep signal and blocks until the connection
// drops or ctx is canceled.
func (s *Service) watchSleepSignals(ctx context.Context, gate *resumeGate) error {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			s.logger.Debug("failed to close system bus connection", logger.Err(closeErr))
		}
	}()

	if err = conn.AddMatchSignalContext(ctx, dbus.WithMatchInterface(login1Interface),
		dbus.WithMatchMember(login1Member)); err != nil {
		return err
	}
	signals := make(chan *dbus.Signal, signalBufferSize)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)
	s.logger.Debug("subscribed to dbus signal", "interface", login1Interface, "member", login1Member)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			if !isResume(sig) || !gate.allow() {
				continue
			}
			go s.refreshAfterResume(ctx)
		}
	}
}

// isResume reports whether sig announces the end of a sleep.
func isResume(sig *dbus.Signal) bool {
	if sig == nil || len(sig.Body) != 1 {
		return false
	}
	sleeping, ok := sig.Body[0].(bool)
	return ok && !sleeping
}

// refreshAfterResume waits for the network to come back before refreshing.
func (s *Service) refreshAfterResume(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(networkWakeupDelay):
	}
	s.logger.Debug("resumed from sleep, refreshing favorite cities")
	s.refresh(ctx)
}
