package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/air-quality-prediction/internal/airq"
)

// Collector fetches current air quality and weather for monitored locations
// and persists one observation per location per run.
type Collector struct {
	store   airq.Store
	aqi     airq.AQIProvider
	weather airq.WeatherProvider
	logger  *zap.SugaredLogger
}

func New(store airq.Store, aqi airq.AQIProvider, weather airq.WeatherProvider, logger *zap.SugaredLogger) *Collector {
	return &Collector{
		store:   store,
		aqi:     aqi,
		weather: weather,
		logger:  logger,
	}
}

// CollectAndStore fetches one location and stores a single observation. The
// AQI reading is mandatory; weather only enriches the row and its absence
// leaves the weather columns null. The timestamp is server-assigned because
// provider clocks are not trusted.
func (c *Collector) CollectAndStore(ctx context.Context, loc airq.MonitoredLocation) error {
	reading, err := c.aqi.GetCurrentByCoordinates(ctx, loc.Lat, loc.Lon)
	if err != nil {
		c.logger.Warnw("air quality fetch failed, skipping observation", "city", loc.City, "error", err)
		return fmt.Errorf("failed to collect %s: %w", loc.City, err)
	}

	obs := airq.Observation{
		City:      loc.City,
		Country:   loc.Country,
		Lat:       loc.Lat,
		Lon:       loc.Lon,
		AQI:       reading.AQI,
		PM25:      reading.PM25,
		PM10:      reading.PM10,
		O3:        reading.O3,
		NO2:       reading.NO2,
		SO2:       reading.SO2,
		CO:        reading.CO,
		Timestamp: time.Now().UTC(),
	}
	if obs.Country == "" {
		obs.Country = "Unknown"
	}

	wx, err := c.weather.GetCurrentWeather(ctx, loc.Lat, loc.Lon)
	if err != nil {
		c.logger.Warnw("weather fetch failed, storing observation without weather",
			"city", loc.City, "error", err)
	} else {
		obs.Temp = &wx.Temperature
		obs.Humidity = &wx.Humidity
		obs.WindSpeed = &wx.WindSpeed
		obs.Pressure = &wx.Pressure
	}

	if err := c.store.InsertObservation(ctx, obs); err != nil {
		c.logger.Errorw("failed to store observation", "city", loc.City, "error", err)
		return fmt.Errorf("failed to store observation for %s: %w", loc.City, err)
	}
	return nil
}

// CollectAll runs one collection pass over every active location. Locations
// fail independently; the pass never aborts early.
func (c *Collector) CollectAll(ctx context.Context) (int, error) {
	locations, err := c.store.ListActiveLocations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list locations: %w", err)
	}

	runID := uuid.NewString()
	success := 0
	for _, loc := range locations {
		if err := c.CollectAndStore(ctx, loc); err != nil {
			continue
		}
		success++
	}

	c.logger.Infow("collection run finished",
		"run_id", runID, "succeeded", success, "failed", len(locations)-success)
	return success, nil
}

// SeedDefaultLocations inserts each default city missing from the locations
// registry. Rows already present, active or not, are left untouched.
func (c *Collector) SeedDefaultLocations(ctx context.Context) error {
	for _, loc := range airq.DefaultLocations {
		_, err := c.store.LocationByCity(ctx, loc.City)
		if err == nil {
			continue
		}
		if !errors.Is(err, airq.ErrNoData) {
			return fmt.Errorf("failed to check location %s: %w", loc.City, err)
		}
		if err := c.store.UpsertLocation(ctx, loc); err != nil {
			return fmt.Errorf("failed to seed location %s: %w", loc.City, err)
		}
		c.logger.Infow("seeded default location", "city", loc.City)
	}
	return nil
}
