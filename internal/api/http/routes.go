package httpapi

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/rcastellanos/climawatch/internal/artifact"
	"github.com/rcastellanos/climawatch/internal/store"
	"github.com/rcastellanos/climawatch/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, artifacts artifact.Store) {
	v1 := app.Group("/api/v1")

	v1.Get("/cities", func(c *fiber.Ctx) error {
		list, err := service.Cities(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to list cities")
		}
		return c.JSON(fiber.Map{"cities": list})
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		code, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		obs, err := service.Latest(code)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for requested city")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}

		return c.JSON(obs)
	})

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		observations, err := service.History(req.City, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested city")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"city":         req.City,
			"from":         req.From,
			"to":           req.To,
			"observations": observations,
		})
	})

	v1.Get("/weather/forecast", func(c *fiber.Ctx) error {
		code, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		entries, err := service.Forecast(code)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no forecast for requested city")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch forecast")
		}

		return c.JSON(fiber.Map{
			"city":     code,
			"forecast": entries,
		})
	})

	v1.Get("/imagery/:city/animation", func(c *fiber.Ctx) error {
		code := strings.ToUpper(c.Params("city"))
		if code == "" {
			return fiber.NewError(fiber.StatusBadRequest, "city path parameter is required")
		}

		data, err := artifacts.Get(c.Context(), code+"/animation.png")
		if err != nil {
			if errors.Is(err, artifact.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no animation for requested city")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch animation")
		}

		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(data)
	})
}

// cityQuery holds the query parameter identifying a city.
type cityQuery struct {
	City string `validate:"required,alpha,len=3"`
}

func parseCityQuery(c *fiber.Ctx) (string, error) {
	q := cityQuery{City: strings.ToUpper(c.Query("city"))}
	if err := validate.Struct(q); err != nil {
		return "", err
	}
	return q.City, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	City string    `validate:"required,alpha,len=3"`
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	code, err := parseCityQuery(c)
	if err != nil {
		return err
	}
	h.City = code

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
