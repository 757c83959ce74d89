package httpapi

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/air-quality-prediction/internal/airq"
	"github.com/i474232898/air-quality-prediction/internal/common"
)

var validate = validator.New()

// maxCompareCities caps a single compare request.
const maxCompareCities = 10

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *airq.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/aqi/current", func(c *fiber.Ctx) error {
		city, err := requireCity(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		conditions, err := service.Current(c.UserContext(), city)
		if err != nil {
			return serviceError(err, "AQI data not available")
		}
		return c.JSON(conditions)
	})

	v1.Get("/aqi/predict", func(c *fiber.Ctx) error {
		req, err := parsePredictQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		outcome, err := service.Predict(c.UserContext(), req.City, req.Hours)
		if err != nil {
			return serviceError(err, "prediction not available")
		}
		return c.JSON(outcome)
	})

	v1.Get("/aqi/history", func(c *fiber.Ctx) error {
		req, err := parseHistoryQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		series, err := service.History(c.UserContext(), req.City, req.Days)
		if err != nil {
			return serviceError(err, "No historical data found")
		}
		return c.JSON(series)
	})

	v1.Get("/aqi/compare", func(c *fiber.Ctx) error {
		cities := common.SplitTrimmed(c.Query("cities"))
		if len(cities) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "cities query parameter is required")
		}
		if len(cities) > maxCompareCities {
			return fiber.NewError(fiber.StatusBadRequest, "Maximum 10 cities allowed")
		}

		results, err := service.Compare(c.UserContext(), cities)
		if err != nil {
			return serviceError(err, "comparison not available")
		}
		return c.JSON(fiber.Map{
			"cities": results,
			"count":  len(results),
		})
	})

	v1.Get("/locations/search", func(c *fiber.Ctx) error {
		req := searchQuery{Query: c.Query("q")}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		results, err := service.SearchLocations(c.UserContext(), req.Query)
		if err != nil {
			return serviceError(err, "search not available")
		}
		return c.JSON(fiber.Map{
			"results": results,
			"count":   len(results),
		})
	})

	v1.Get("/locations/nearby", func(c *fiber.Ctx) error {
		req, err := parseNearbyQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		locations, err := service.Nearby(c.UserContext(), req.Lat, req.Lon, req.RadiusKM)
		if err != nil {
			return serviceError(err, "nearby locations not available")
		}
		return c.JSON(fiber.Map{
			"locations": locations,
			"count":     len(locations),
		})
	})

	v1.Get("/locations", func(c *fiber.Ctx) error {
		locations, err := service.ListLocations(c.UserContext())
		if err != nil {
			return serviceError(err, "locations not available")
		}
		return c.JSON(fiber.Map{
			"locations": locations,
			"count":     len(locations),
		})
	})

	v1.Post("/locations", func(c *fiber.Ctx) error {
		city, err := requireCity(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		location, created, err := service.AddLocation(c.UserContext(), city)
		if err != nil {
			return serviceError(err, "location not available")
		}

		message := "Location already exists"
		if created {
			message = "Location added successfully"
		}
		return c.JSON(fiber.Map{
			"message":  message,
			"location": location,
		})
	})
}

// serviceError maps service sentinels onto HTTP statuses. Unresolved cities
// and empty lookups are 404s; anything else is opaque to clients.
func serviceError(err error, notFound string) error {
	switch {
	case errors.Is(err, airq.ErrCityNotFound):
		return fiber.NewError(fiber.StatusNotFound, "City not found")
	case errors.Is(err, airq.ErrNoData):
		return fiber.NewError(fiber.StatusNotFound, notFound)
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
	}
}

type cityQuery struct {
	City string `validate:"required"`
}

func requireCity(c *fiber.Ctx) (string, error) {
	q := cityQuery{City: c.Query("city")}
	if err := validate.Struct(q); err != nil {
		return "", err
	}
	return q.City, nil
}

// predictQuery holds the prediction parameters. Horizons must be positive;
// the engine saturates anything beyond the forecast range.
type predictQuery struct {
	City  string `validate:"required"`
	Hours []int  `validate:"required,min=1,dive,gte=1"`
}

func parsePredictQuery(c *fiber.Ctx) (predictQuery, error) {
	q := predictQuery{City: c.Query("city")}

	for _, part := range common.SplitTrimmed(c.Query("hours", "24,48,72")) {
		h, err := strconv.Atoi(part)
		if err != nil {
			return q, fmt.Errorf("invalid hours value %q", part)
		}
		q.Hours = append(q.Hours, h)
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// historyQuery holds the history parameters. Days defaults to a week.
type historyQuery struct {
	City string `validate:"required"`
	Days int    `validate:"gte=1,lte=90"`
}

func parseHistoryQuery(c *fiber.Ctx) (historyQuery, error) {
	q := historyQuery{City: c.Query("city"), Days: 7}

	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("invalid days value %q", raw)
		}
		q.Days = days
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

type searchQuery struct {
	Query string `validate:"required,min=2"`
}

// nearbyQuery holds the nearby parameters. Radius defaults to 50 km.
type nearbyQuery struct {
	Lat      float64 `validate:"gte=-90,lte=90"`
	Lon      float64 `validate:"gte=-180,lte=180"`
	RadiusKM int     `validate:"gte=1,lte=500"`
}

func parseNearbyQuery(c *fiber.Ctx) (nearbyQuery, error) {
	q := nearbyQuery{RadiusKM: 50}

	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return q, errors.New("lat and lon query parameters are required")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return q, fmt.Errorf("invalid lat value %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return q, fmt.Errorf("invalid lon value %q", lonStr)
	}
	q.Lat, q.Lon = lat, lon

	if raw := c.Query("radius_km"); raw != "" {
		radius, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("invalid radius_km value %q", raw)
		}
		q.RadiusKM = radius
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}
