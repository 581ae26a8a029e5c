// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package api serves the operations of the service as a local JSON API.
package api

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/wneessen/weather-cards/internal/analysis"
	"github.com/wneessen/weather-cards/internal/geocode"
	"github.com/wneessen/weather-cards/internal/geolocation"
	"github.com/wneessen/weather-cards/internal/history"
	"github.com/wneessen/weather-cards/internal/http"
	"github.com/wneessen/weather-cards/internal/logger"
	"github.com/wneessen/weather-cards/internal/service"
)

const (
	// ShutdownTimeout is the time in-flight requests get to finish after the context of
	// Serve is canceled.
	ShutdownTimeout = time.Second * 10

	appName      = "weather-cards"
	readTimeout  = time.Second * 10
	writeTimeout = time.Second * 30
	// analysis requests carry the image plus the multipart envelope
	bodyLimit = analysis.MaxImageSize + 1024*1024
)

var validate = validator.New()

// Server is the fiber application on top of a service.
type Server struct {
	app     *fiber.App
	service *service.Service
	logger  *logger.Logger
}

// New returns a Server for serv. Requests are logged to accessLog unless it is nil.
func New(serv *service.Service, log *logger.Logger, accessLog io.Writer) *Server {
	server := &Server{service: serv, logger: log}
	server.app = fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           readTimeout,
		WriteTimeout:          writeTimeout,
		BodyLimit:             bodyLimit,
		UnescapePath:          true,
		Immutable:             true,
		ErrorHandler:          server.errorHandler,
	})

	if accessLog != nil {
		server.app.Use(fiberlogger.New(fiberlogger.Config{Output: accessLog}))
	}
	server.app.Use(recover.New())

	server.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
			"storage": serv.Store().Available(c.UserContext()),
		})
	})
	server.registerRoutes()

	return server
}

// Serve listens on addr until ctx is canceled and shuts the server down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- s.app.Listen(addr)
	}()
	s.logger.Info("API server listening", "addr", addr)

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	ctxShutdown, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(ctxShutdown); err != nil {
		return err
	}
	s.logger.Info("API server stopped")
	return nil
}

// errorHandler renders every error as {"error":true,"message":...}. Service errors carry
// their localized user message.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error":   true,
			"message": fiberErr.Message,
		})
	}

	code := statusCode(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", logger.Err(err), "method", c.Method(), "path", c.Path())
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": s.service.UserMessage(err),
	})
}

// statusCode maps a service error onto the HTTP status of the response.
func statusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyQuery), errors.Is(err, service.ErrInvalidCoordinates),
		errors.Is(err, geocode.ErrQueryTooShort), errors.Is(err, analysis.ErrNotAnImage),
		errors.Is(err, history.ErrInvalidImport), errors.Is(err, history.ErrUnknownBucket):
		return fiber.StatusBadRequest
	case errors.Is(err, geocode.ErrNotFound), errors.Is(err, service.ErrNoCity), errors.Is(err, http.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, geolocation.ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, http.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, geolocation.ErrTimeout):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, geolocation.ErrPositionUnavailable), errors.Is(err, service.ErrLocateFailed),
		errors.Is(err, http.ErrCircuitOpen):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, http.ErrUnauthorized), errors.Is(err, http.ErrUpstream):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
