package airq

import (
	"context"
	"errors"
	"time"
)

// ErrProviderUnavailable marks any upstream failure (network error, timeout,
// non-ok status, provider-level error payload). Callers recover from it with
// documented defaults or the fallback path; it never reaches API clients.
var ErrProviderUnavailable = errors.New("provider unavailable")

// ErrNoData is returned by stores when a lookup matches nothing.
var ErrNoData = errors.New("no data for location")

// WeatherProvider abstracts the weather/geocoding upstream.
type WeatherProvider interface {
	// GetCurrentWeather returns current conditions at the coordinates.
	GetCurrentWeather(ctx context.Context, lat, lon float64) (WeatherData, error)

	// GetForecast returns a forecast series covering up to the requested
	// number of hours at roughly 3-hour spacing.
	GetForecast(ctx context.Context, lat, lon float64, hours int) ([]ForecastPoint, error)

	// Geocode resolves a city name to coordinates. An unknown name is an
	// ErrProviderUnavailable-wrapped miss, not a panic.
	Geocode(ctx context.Context, city string) (GeoLocation, error)
}

// Geocoder resolves a city name to coordinates. WeatherProvider satisfies it;
// standalone implementations back it up when the weather upstream has no
// match.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (GeoLocation, error)
}

// AQIProvider abstracts the air-quality upstream.
type AQIProvider interface {
	GetCurrentByCoordinates(ctx context.Context, lat, lon float64) (AQIReading, error)

	// GetCurrentByName also resolves the station's coordinates.
	GetCurrentByName(ctx context.Context, city string) (AQIReading, error)

	// SearchStations returns stations matching the query, empty when none.
	SearchStations(ctx context.Context, query string) ([]StationResult, error)
}

// Store is the contract every observation store must satisfy. The store's own
// transaction mechanism is the only concurrency boundary; callers do no extra
// locking.
type Store interface {
	InsertObservation(ctx context.Context, obs Observation) error

	// ObservationsByCity returns observations in [from, to], ordered by
	// timestamp ascending.
	ObservationsByCity(ctx context.Context, city string, from, to time.Time) ([]Observation, error)

	// LatestObservation returns the most recent observation for the city.
	LatestObservation(ctx context.Context, city string) (Observation, error)

	// UpsertLocation inserts the location or updates its fields by city name.
	UpsertLocation(ctx context.Context, loc MonitoredLocation) error

	LocationByCity(ctx context.Context, city string) (MonitoredLocation, error)

	ListActiveLocations(ctx context.Context) ([]MonitoredLocation, error)

	Close() error
}

// Forecaster produces multi-horizon AQI predictions. Implemented by the ML
// prediction engine; defined here so the read-side service does not depend on
// the ml package.
type Forecaster interface {
	PredictWithFallback(ctx context.Context, city string, lat, lon float64, horizons []int) (PredictionResult, error)
}
