// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wneessen/weather-cards/internal/geocode"
	"github.com/wneessen/weather-cards/internal/history"
	"github.com/wneessen/weather-cards/internal/service"
)

const imageField = "image"

// searchRequest searches by city name, or by coordinates if both are given.
type searchRequest struct {
	City  string   `json:"city"`
	Lat   *float64 `json:"lat" validate:"omitempty,latitude"`
	Lon   *float64 `json:"lon" validate:"omitempty,longitude"`
	Label string   `json:"label"`
}

// favoriteRequest adds a favorite by city name, or by the given coordinates if no city
// is named.
type favoriteRequest struct {
	City string `json:"city"`
	history.Favorite
}

// themeRequest sets the theme, "toggle" switches it.
type themeRequest struct {
	Theme string `json:"theme" validate:"required,oneof=light dark toggle"`
}

// locateResponse is a Located with the localized success message.
type locateResponse struct {
	service.Located
	Message string `json:"message"`
}

func (s *Server) registerRoutes() {
	v1 := s.app.Group("/api/v1")

	v1.Post("/search", s.search)
	v1.Get("/suggest", s.suggest)
	v1.Post("/locate", s.locate)

	v1.Get("/cards", s.cards)
	v1.Delete("/cards/:id", s.removeCard)
	v1.Get("/history", func(c *fiber.Ctx) error {
		return c.JSON(nonNil(s.service.Store().SearchHistory(c.UserContext())))
	})

	v1.Get("/favorites", func(c *fiber.Ctx) error {
		return c.JSON(nonNil(s.service.Store().Favorites(c.UserContext())))
	})
	v1.Post("/favorites", s.addFavorite)
	v1.Delete("/favorites/:name", s.removeFavorite)

	v1.Get("/preferences", func(c *fiber.Ctx) error {
		return c.JSON(s.service.Store().Preferences(c.UserContext()))
	})
	v1.Put("/preferences", s.updatePreferences)
	v1.Get("/theme", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"theme": s.service.Store().Theme(c.UserContext())})
	})
	v1.Put("/theme", s.setTheme)

	v1.Post("/analysis", s.analyze)
	v1.Get("/analysis", func(c *fiber.Ctx) error {
		return c.JSON(nonNil(s.service.Store().Analyses(c.UserContext())))
	})

	v1.Get("/export", s.export)
	v1.Post("/import", s.importData)
	v1.Delete("/data", s.clear)
	v1.Get("/storage", func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		return c.JSON(fiber.Map{
			"available": s.service.Store().Available(ctx),
			"usage":     s.service.Store().Info(ctx),
		})
	})
}

func (s *Server) search(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if (req.Lat == nil) != (req.Lon == nil) {
		return fiber.NewError(fiber.StatusBadRequest, "lat and lon are required together")
	}

	if req.Lat != nil {
		record, err := s.service.SearchCoordinates(c.UserContext(), *req.Lat, *req.Lon, req.Label)
		if err != nil {
			return err
		}
		return c.JSON(record)
	}
	record, err := s.service.Search(c.UserContext(), req.City)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (s *Server) suggest(c *fiber.Ctx) error {
	cities, err := s.service.Suggest(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	if cities == nil {
		cities = []geocode.City{}
	}
	return c.JSON(cities)
}

func (s *Server) locate(c *fiber.Ctx) error {
	located, err := s.service.Locate(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(locateResponse{Located: located, Message: s.service.LocationMessage(located)})
}

// cards returns the stored cards as JSON, or rendered with the card template for
// ?format=text.
func (s *Server) cards(c *fiber.Ctx) error {
	ctx := c.UserContext()
	records := s.service.Store().Weather(ctx)
	if c.Query("format") != "text" {
		return c.JSON(nonNil(records))
	}
	out, err := s.service.Presenter(ctx).RenderCards(records)
	if err != nil {
		return err
	}
	return c.SendString(out)
}

func (s *Server) removeCard(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid card id")
	}
	if !s.service.Store().RemoveWeather(c.UserContext(), id) {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to remove card")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) addFavorite(c *fiber.Ctx) error {
	var req favoriteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.City != "" {
		favorite, err := s.service.AddFavorite(c.UserContext(), req.City)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(favorite)
	}

	if err := validate.Struct(req.Favorite); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if !s.service.Store().AddFavorite(c.UserContext(), req.Favorite) {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save favorite")
	}
	return c.Status(fiber.StatusCreated).JSON(req.Favorite)
}

func (s *Server) removeFavorite(c *fiber.Ctx) error {
	if !s.service.Store().RemoveFavorite(c.UserContext(), c.Params("name")) {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to remove favorite")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) updatePreferences(c *fiber.Ctx) error {
	var update history.PreferencesUpdate
	if err := c.BodyParser(&update); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	ctx := c.UserContext()
	if err := update.Apply(s.service.Store().Preferences(ctx)).Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	prefs, ok := s.service.Store().UpdatePreferences(ctx, update)
	if !ok {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save preferences")
	}
	return c.JSON(prefs)
}

func (s *Server) setTheme(c *fiber.Ctx) error {
	var req themeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx := c.UserContext()
	theme, ok := req.Theme, false
	if theme == "toggle" {
		theme, ok = s.service.Store().ToggleTheme(ctx)
	} else {
		ok = s.service.Store().SetTheme(ctx, theme)
	}
	if !ok {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save theme")
	}
	return c.JSON(fiber.Map{"theme": theme})
}

func (s *Server) analyze(c *fiber.Ctx) error {
	header, err := c.FormFile(imageField)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("missing %q form file", imageField))
	}
	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded image: %w", err)
	}
	defer func() { _ = file.Close() }()

	entry, err := s.service.Analyze(c.UserContext(), file)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (s *Server) export(c *fiber.Ctx) error {
	data, err := s.service.Store().Export(c.UserContext())
	if err != nil {
		return err
	}
	c.Attachment(fmt.Sprintf("weather-cards-export-%s.json", time.Now().Format(time.DateOnly)))
	return c.Send(data)
}

func (s *Server) importData(c *fiber.Ctx) error {
	snapshot, err := history.ParseSnapshot(c.Body())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if !s.service.Store().Restore(c.UserContext(), snapshot) {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to import data")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// clear deletes the bucket named by ?bucket=, or every bucket if none is named.
func (s *Server) clear(c *fiber.Ctx) error {
	ctx := c.UserContext()
	name := c.Query("bucket")
	if name == "" {
		if !s.service.Store().ClearAll(ctx) {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to clear data")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}

	bucket, err := history.ParseBucket(name)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if !s.service.Store().Clear(ctx, bucket) {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to clear data")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// nonNil turns a nil list into an empty one so that it encodes as [] instead of null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
