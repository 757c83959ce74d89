package airq

import (
	"strings"
	"time"
)

// Valid range for reported AQI values. Raw stored readings are kept as the
// provider sent them; only prediction output is clamped.
const (
	AQIMin = 0
	AQIMax = 500
)

// DefaultHorizons are the prediction offsets (in hours) used when a caller
// does not ask for specific ones.
var DefaultHorizons = []int{24, 48, 72}

// MonitoredLocation is a place we periodically collect data for.
// City is the natural key; deactivation is a soft flag because historical
// observations reference the location by name.
type MonitoredLocation struct {
	City     string  `json:"city" db:"city"`
	Country  string  `json:"country" db:"country"`
	Lat      float64 `json:"lat" db:"lat"`
	Lon      float64 `json:"lon" db:"lon"`
	IsActive bool    `json:"is_active" db:"is_active"`
}

// Key returns the canonical string key for indexing this location in stores.
func (l MonitoredLocation) Key() string {
	return strings.ToLower(l.City)
}

// Observation is one merged AQI + weather measurement for one location at one
// instant. Pollutant and weather fields are pointers because either provider
// may omit any of them independently; Timestamp is the ingestion instant in
// UTC, assigned by us, not by the provider.
type Observation struct {
	ID        int64     `json:"-" db:"id"`
	City      string    `json:"city" db:"city"`
	Country   string    `json:"country" db:"country"`
	Lat       float64   `json:"lat" db:"lat"`
	Lon       float64   `json:"lon" db:"lon"`
	AQI       float64   `json:"aqi" db:"aqi"`
	PM25      *float64  `json:"pm25" db:"pm25"`
	PM10      *float64  `json:"pm10" db:"pm10"`
	O3        *float64  `json:"o3" db:"o3"`
	NO2       *float64  `json:"no2" db:"no2"`
	SO2       *float64  `json:"so2" db:"so2"`
	CO        *float64  `json:"co" db:"co"`
	Temp      *float64  `json:"temperature" db:"temperature"`
	Humidity  *float64  `json:"humidity" db:"humidity"`
	WindSpeed *float64  `json:"wind_speed" db:"wind_speed"`
	Pressure  *float64  `json:"pressure" db:"pressure"`
	Timestamp time.Time `json:"timestamp" db:"ts"`
}

// AQIReading is the AQI provider's normalized current reading. City is the
// resolved station name, which may differ from the requested one.
type AQIReading struct {
	AQI  float64  `json:"aqi"`
	City string   `json:"city"`
	Lat  float64  `json:"lat,omitempty"`
	Lon  float64  `json:"lon,omitempty"`
	PM25 *float64 `json:"pm25"`
	PM10 *float64 `json:"pm10"`
	O3   *float64 `json:"o3"`
	NO2  *float64 `json:"no2"`
	SO2  *float64 `json:"so2"`
	CO   *float64 `json:"co"`
}

// WeatherData is the weather provider's normalized current reading.
type WeatherData struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	WindSpeed   float64 `json:"wind_speed"`
}

// ForecastPoint is one sample of a weather forecast series at roughly
// 3-hour spacing, ordered by Timestamp ascending.
type ForecastPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
	WindSpeed   float64   `json:"wind_speed"`
}

// GeoLocation is a geocoding result.
type GeoLocation struct {
	City    string  `json:"city"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// StationResult is one entry from an AQI station search.
type StationResult struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// PredictionEntry is the forecast for a single horizon.
// Temperature and Humidity are nil on the fallback path, which has no
// forecast data to echo back.
type PredictionEntry struct {
	Hours        int      `json:"hours"`
	Timestamp    string   `json:"timestamp"`
	PredictedAQI float64  `json:"predicted_aqi"`
	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
}

// PredictionResult is the full multi-horizon forecast for one location.
// Fallback reports whether the decay heuristic produced the entries instead
// of the trained model.
type PredictionResult struct {
	City        string            `json:"city"`
	CurrentAQI  float64           `json:"current_aqi"`
	Predictions []PredictionEntry `json:"predictions"`
	GeneratedAt string            `json:"generated_at"`
	Fallback    bool              `json:"fallback,omitempty"`
}
