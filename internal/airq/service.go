package airq

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// ErrCityNotFound marks a city name no geocoder could resolve.
var ErrCityNotFound = errors.New("city not found")

// currentFreshness is how recent a stored observation must be to serve the
// current endpoint without a live fetch.
const currentFreshness = time.Hour

// resultLimit caps list-style responses (popular and nearby locations).
const resultLimit = 20

// Pollutants is the pollutant sub-object of current conditions.
type Pollutants struct {
	PM25 *float64 `json:"pm25"`
	PM10 *float64 `json:"pm10"`
	O3   *float64 `json:"o3"`
	NO2  *float64 `json:"no2"`
	SO2  *float64 `json:"so2"`
	CO   *float64 `json:"co"`
}

// WeatherInfo is the weather sub-object of current conditions. Fields are
// null when the collecting run had a weather outage.
type WeatherInfo struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	WindSpeed   *float64 `json:"wind_speed"`
	Pressure    *float64 `json:"pressure"`
}

// CurrentConditions is the current-AQI payload. Weather and country are only
// known when the answer comes from a stored observation.
type CurrentConditions struct {
	City       string       `json:"city"`
	Country    string       `json:"country,omitempty"`
	AQI        float64      `json:"aqi"`
	Category   string       `json:"category"`
	Pollutants Pollutants   `json:"pollutants"`
	Weather    *WeatherInfo `json:"weather,omitempty"`
	Timestamp  string       `json:"timestamp"`
}

// PredictionOutcome decorates a prediction with the category and health tips
// for the current AQI.
type PredictionOutcome struct {
	PredictionResult
	AQICategory string   `json:"aqi_category"`
	HealthTips  []string `json:"health_tips"`
}

type HistoricalPoint struct {
	Timestamp   string   `json:"timestamp"`
	AQI         float64  `json:"aqi"`
	PM25        *float64 `json:"pm25"`
	PM10        *float64 `json:"pm10"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

type HistoricalSeries struct {
	City    string            `json:"city"`
	Country string            `json:"country"`
	Data    []HistoricalPoint `json:"data"`
	Count   int               `json:"count"`
}

type CityComparison struct {
	City      string  `json:"city"`
	Country   string  `json:"country"`
	AQI       float64 `json:"aqi"`
	Category  string  `json:"category"`
	Timestamp string  `json:"timestamp"`
}

type LocationInfo struct {
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
}

// Service answers read-side queries from the store and the live providers.
type Service struct {
	store    Store
	weather  WeatherProvider
	aqi      AQIProvider
	forecast Forecaster
	fallback Geocoder
	logger   *zap.SugaredLogger
}

// NewService creates a Service. fallback may be nil; it is consulted only
// when the weather upstream cannot geocode a city.
func NewService(store Store, weather WeatherProvider, aqi AQIProvider, forecast Forecaster, fallback Geocoder, logger *zap.SugaredLogger) *Service {
	return &Service{
		store:    store,
		weather:  weather,
		aqi:      aqi,
		forecast: forecast,
		fallback: fallback,
		logger:   logger,
	}
}

// geocode resolves a city through the weather upstream, then the fallback
// geocoder. Any unresolved name reports ErrCityNotFound.
func (s *Service) geocode(ctx context.Context, city string) (GeoLocation, error) {
	loc, err := s.weather.Geocode(ctx, city)
	if err == nil {
		return loc, nil
	}
	if ctx.Err() != nil {
		return GeoLocation{}, ctx.Err()
	}

	if s.fallback != nil {
		s.logger.Debugw("primary geocoding failed, trying fallback", "city", city, "error", err)
		if loc, err := s.fallback.Geocode(ctx, city); err == nil {
			return loc, nil
		}
		if ctx.Err() != nil {
			return GeoLocation{}, ctx.Err()
		}
	}
	return GeoLocation{}, fmt.Errorf("%w: %s", ErrCityNotFound, city)
}

// Current serves the stored latest observation when it is fresher than one
// hour, otherwise a live reading by city name.
func (s *Service) Current(ctx context.Context, city string) (CurrentConditions, error) {
	loc, err := s.geocode(ctx, city)
	if err != nil {
		return CurrentConditions{}, err
	}

	obs, err := s.store.LatestObservation(ctx, loc.City)
	switch {
	case err == nil && time.Since(obs.Timestamp) < currentFreshness:
		return CurrentConditions{
			City:     obs.City,
			Country:  obs.Country,
			AQI:      obs.AQI,
			Category: Category(obs.AQI),
			Pollutants: Pollutants{
				PM25: obs.PM25, PM10: obs.PM10, O3: obs.O3,
				NO2: obs.NO2, SO2: obs.SO2, CO: obs.CO,
			},
			Weather: &WeatherInfo{
				Temperature: obs.Temp,
				Humidity:    obs.Humidity,
				WindSpeed:   obs.WindSpeed,
				Pressure:    obs.Pressure,
			},
			Timestamp: obs.Timestamp.UTC().Format(time.RFC3339),
		}, nil
	case err != nil && !errors.Is(err, ErrNoData):
		return CurrentConditions{}, err
	}

	reading, err := s.aqi.GetCurrentByName(ctx, city)
	if err != nil {
		return CurrentConditions{}, fmt.Errorf("%w: no live air quality for %s", ErrNoData, city)
	}

	name := reading.City
	if name == "" {
		name = loc.City
	}
	return CurrentConditions{
		City:     name,
		AQI:      reading.AQI,
		Category: Category(reading.AQI),
		Pollutants: Pollutants{
			PM25: reading.PM25, PM10: reading.PM10, O3: reading.O3,
			NO2: reading.NO2, SO2: reading.SO2, CO: reading.CO,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Predict resolves the city and runs the forecaster, decorating the result
// with the category and health tips for the current AQI.
func (s *Service) Predict(ctx context.Context, city string, horizons []int) (PredictionOutcome, error) {
	loc, err := s.geocode(ctx, city)
	if err != nil {
		return PredictionOutcome{}, err
	}

	result, err := s.forecast.PredictWithFallback(ctx, loc.City, loc.Lat, loc.Lon, horizons)
	if err != nil {
		return PredictionOutcome{}, err
	}

	return PredictionOutcome{
		PredictionResult: result,
		AQICategory:      Category(result.CurrentAQI),
		HealthTips:       HealthTips(result.CurrentAQI),
	}, nil
}

// History returns the stored observations of the last `days` days.
func (s *Service) History(ctx context.Context, city string, days int) (HistoricalSeries, error) {
	now := time.Now().UTC()
	observations, err := s.store.ObservationsByCity(ctx, city, now.AddDate(0, 0, -days), now)
	if err != nil {
		return HistoricalSeries{}, err
	}
	if len(observations) == 0 {
		return HistoricalSeries{}, fmt.Errorf("%w: no history for %s", ErrNoData, city)
	}

	points := make([]HistoricalPoint, 0, len(observations))
	for _, obs := range observations {
		points = append(points, HistoricalPoint{
			Timestamp:   obs.Timestamp.UTC().Format(time.RFC3339),
			AQI:         obs.AQI,
			PM25:        obs.PM25,
			PM10:        obs.PM10,
			Temperature: obs.Temp,
			Humidity:    obs.Humidity,
		})
	}

	return HistoricalSeries{
		City:    observations[0].City,
		Country: observations[0].Country,
		Data:    points,
		Count:   len(points),
	}, nil
}

// Compare returns the latest stored AQI for each requested city. Cities with
// no stored data are skipped, not errors.
func (s *Service) Compare(ctx context.Context, cities []string) ([]CityComparison, error) {
	results := make([]CityComparison, 0, len(cities))
	for _, city := range cities {
		obs, err := s.store.LatestObservation(ctx, city)
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, CityComparison{
			City:      obs.City,
			Country:   obs.Country,
			AQI:       obs.AQI,
			Category:  Category(obs.AQI),
			Timestamp: obs.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return results, nil
}

// SearchLocations resolves a query to candidate locations: a geocoder match
// first, monitoring stations matching the name otherwise. An unknown query
// yields an empty result, not an error.
func (s *Service) SearchLocations(ctx context.Context, query string) ([]LocationInfo, error) {
	if loc, err := s.geocode(ctx, query); err == nil {
		return []LocationInfo{locationInfo(loc.City, loc.Country, loc.Lat, loc.Lon)}, nil
	} else if !errors.Is(err, ErrCityNotFound) {
		return nil, err
	}

	stations, err := s.aqi.SearchStations(ctx, query)
	if err != nil {
		s.logger.Debugw("station search failed", "query", query, "error", err)
		return []LocationInfo{}, nil
	}

	results := make([]LocationInfo, 0, len(stations))
	for _, st := range stations {
		if len(results) >= resultLimit {
			break
		}
		results = append(results, LocationInfo{
			City:        st.Name,
			Lat:         st.Lat,
			Lon:         st.Lon,
			DisplayName: st.Name,
		})
	}
	return results, nil
}

// ListLocations returns the active monitored locations, capped.
func (s *Service) ListLocations(ctx context.Context) ([]LocationInfo, error) {
	locations, err := s.store.ListActiveLocations(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]LocationInfo, 0, len(locations))
	for _, loc := range locations {
		if len(results) >= resultLimit {
			break
		}
		results = append(results, locationInfo(loc.City, loc.Country, loc.Lat, loc.Lon))
	}
	return results, nil
}

// AddLocation geocodes the city and registers it for monitoring. Adding a
// city already present is idempotent; the existing row wins.
func (s *Service) AddLocation(ctx context.Context, city string) (LocationInfo, bool, error) {
	loc, err := s.geocode(ctx, city)
	if err != nil {
		return LocationInfo{}, false, err
	}

	existing, err := s.store.LocationByCity(ctx, loc.City)
	if err == nil {
		return locationInfo(existing.City, existing.Country, existing.Lat, existing.Lon), false, nil
	}
	if !errors.Is(err, ErrNoData) {
		return LocationInfo{}, false, err
	}

	added := MonitoredLocation{
		City:     loc.City,
		Country:  loc.Country,
		Lat:      loc.Lat,
		Lon:      loc.Lon,
		IsActive: true,
	}
	if err := s.store.UpsertLocation(ctx, added); err != nil {
		return LocationInfo{}, false, err
	}
	s.logger.Infow("location added", "city", added.City, "country", added.Country)
	return locationInfo(added.City, added.Country, added.Lat, added.Lon), true, nil
}

// Nearby returns active locations inside a degree box approximating the
// radius (1 degree of latitude is about 111 km).
func (s *Service) Nearby(ctx context.Context, lat, lon float64, radiusKM int) ([]LocationInfo, error) {
	locations, err := s.store.ListActiveLocations(ctx)
	if err != nil {
		return nil, err
	}

	latRange := float64(radiusKM) / 111.0
	lonRange := float64(radiusKM) / (111.0 * math.Abs(math.Cos(lat*math.Pi/180)))

	results := make([]LocationInfo, 0, len(locations))
	for _, loc := range locations {
		if len(results) >= resultLimit {
			break
		}
		if loc.Lat < lat-latRange || loc.Lat > lat+latRange {
			continue
		}
		if loc.Lon < lon-lonRange || loc.Lon > lon+lonRange {
			continue
		}
		results = append(results, locationInfo(loc.City, loc.Country, loc.Lat, loc.Lon))
	}
	return results, nil
}

func locationInfo(city, country string, lat, lon float64) LocationInfo {
	display := city
	if country != "" {
		display = fmt.Sprintf("%s, %s", city, country)
	}
	return LocationInfo{
		City:        city,
		Country:     country,
		Lat:         lat,
		Lon:         lon,
		DisplayName: display,
	}
}
