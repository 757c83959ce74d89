package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/air-quality-prediction/internal/airq"
)

// OpenWeatherProvider implements airq.WeatherProvider on top of the
// OpenWeatherMap current weather, 5-day forecast and geocoding APIs.
type OpenWeatherProvider struct {
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org",
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuit("openweather"),
	}
}

func (p *OpenWeatherProvider) get(ctx context.Context, path string, values url.Values, out interface{}) error {
	if p.apiKey == "" {
		return fmt.Errorf("%w: openweather api key is not configured", airq.ErrProviderUnavailable)
	}

	buildRequest := func() (*http.Request, error) {
		values.Set("appid", p.apiKey)
		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	return getJSON(ctx, p.httpCfg, p.circuit, buildRequest, out)
}

// GetCurrentWeather returns current conditions at the coordinates in metric
// units.
func (p *OpenWeatherProvider) GetCurrentWeather(ctx context.Context, lat, lon float64) (airq.WeatherData, error) {
	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%f", lat))
	values.Set("lon", fmt.Sprintf("%f", lon))
	values.Set("units", "metric")

	var payload struct {
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
			Pressure float64 `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	}
	if err := p.get(ctx, "/data/2.5/weather", values, &payload); err != nil {
		return airq.WeatherData{}, err
	}

	return airq.WeatherData{
		Temperature: payload.Main.Temp,
		Humidity:    payload.Main.Humidity,
		Pressure:    payload.Main.Pressure,
		WindSpeed:   payload.Wind.Speed,
	}, nil
}

// GetForecast returns the 3-hourly forecast series covering up to the
// requested number of hours, capped at the API's 40 entries.
func (p *OpenWeatherProvider) GetForecast(ctx context.Context, lat, lon float64, hours int) ([]airq.ForecastPoint, error) {
	cnt := hours / 3
	if cnt < 1 {
		cnt = 1
	}
	if cnt > 40 {
		cnt = 40
	}

	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%f", lat))
	values.Set("lon", fmt.Sprintf("%f", lon))
	values.Set("units", "metric")
	values.Set("cnt", strconv.Itoa(cnt))

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp     float64 `json:"temp"`
				Humidity float64 `json:"humidity"`
				Pressure float64 `json:"pressure"`
			} `json:"main"`
			Wind struct {
				Speed float64 `json:"speed"`
			} `json:"wind"`
		} `json:"list"`
	}
	if err := p.get(ctx, "/data/2.5/forecast", values, &payload); err != nil {
		return nil, err
	}

	points := make([]airq.ForecastPoint, 0, len(payload.List))
	for _, item := range payload.List {
		points = append(points, airq.ForecastPoint{
			Timestamp:   time.Unix(item.Dt, 0).UTC(),
			Temperature: item.Main.Temp,
			Humidity:    item.Main.Humidity,
			Pressure:    item.Main.Pressure,
			WindSpeed:   item.Wind.Speed,
		})
	}
	return points, nil
}

// Geocode resolves a city name through the OpenWeatherMap geocoding API.
func (p *OpenWeatherProvider) Geocode(ctx context.Context, city string) (airq.GeoLocation, error) {
	values := url.Values{}
	values.Set("q", city)
	values.Set("limit", "1")

	var payload []struct {
		Name    string  `json:"name"`
		Country string  `json:"country"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := p.get(ctx, "/geo/1.0/direct", values, &payload); err != nil {
		return airq.GeoLocation{}, err
	}
	if len(payload) == 0 {
		return airq.GeoLocation{}, fmt.Errorf("%w: no geocoding match for %q", airq.ErrProviderUnavailable, city)
	}

	return airq.GeoLocation{
		City:    payload[0].Name,
		Country: payload[0].Country,
		Lat:     payload[0].Lat,
		Lon:     payload[0].Lon,
	}, nil
}
