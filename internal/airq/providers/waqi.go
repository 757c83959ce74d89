package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/air-quality-prediction/internal/airq"
)

// WAQIProvider implements airq.AQIProvider on top of the World Air Quality
// Index project's feed and search APIs.
type WAQIProvider struct {
	token   string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWAQIProvider(client *http.Client, token string) *WAQIProvider {
	return &WAQIProvider{
		token:   token,
		baseURL: "https://api.waqi.info",
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuit("waqi"),
	}
}

type iaqiEntry struct {
	V float64 `json:"v"`
}

// waqiFeed is the payload under "data" for feed endpoints.
type waqiFeed struct {
	Aqi  json.RawMessage `json:"aqi"`
	City struct {
		Name string    `json:"name"`
		Geo  []float64 `json:"geo"`
	} `json:"city"`
	Iaqi map[string]iaqiEntry `json:"iaqi"`
}

// get performs a WAQI call and unwraps the status envelope. On error
// responses "data" holds a message string, so it is returned raw.
func (p *WAQIProvider) get(ctx context.Context, path string, values url.Values) (json.RawMessage, error) {
	if p.token == "" {
		return nil, fmt.Errorf("%w: waqi api token is not configured", airq.ErrProviderUnavailable)
	}

	buildRequest := func() (*http.Request, error) {
		values.Set("token", p.token)
		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("%w: waqi status %q", airq.ErrProviderUnavailable, payload.Status)
	}
	return payload.Data, nil
}

// GetCurrentByCoordinates returns the reading of the station nearest to the
// coordinates.
func (p *WAQIProvider) GetCurrentByCoordinates(ctx context.Context, lat, lon float64) (airq.AQIReading, error) {
	path := fmt.Sprintf("/feed/geo:%f;%f/", lat, lon)
	data, err := p.get(ctx, path, url.Values{})
	if err != nil {
		return airq.AQIReading{}, err
	}
	return parseFeed(data)
}

// GetCurrentByName returns the reading of the named city's station.
func (p *WAQIProvider) GetCurrentByName(ctx context.Context, city string) (airq.AQIReading, error) {
	path := fmt.Sprintf("/feed/%s/", url.PathEscape(city))
	data, err := p.get(ctx, path, url.Values{})
	if err != nil {
		return airq.AQIReading{}, err
	}
	return parseFeed(data)
}

// SearchStations returns stations matching the keyword, empty when none.
func (p *WAQIProvider) SearchStations(ctx context.Context, query string) ([]airq.StationResult, error) {
	values := url.Values{}
	values.Set("keyword", query)

	data, err := p.get(ctx, "/search/", values)
	if err != nil {
		return nil, err
	}

	var entries []struct {
		Station struct {
			Name string    `json:"name"`
			Geo  []float64 `json:"geo"`
		} `json:"station"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: decoding search results: %v", airq.ErrProviderUnavailable, err)
	}

	results := make([]airq.StationResult, 0, len(entries))
	for _, e := range entries {
		r := airq.StationResult{Name: e.Station.Name}
		if len(e.Station.Geo) >= 2 {
			r.Lat = e.Station.Geo[0]
			r.Lon = e.Station.Geo[1]
		}
		results = append(results, r)
	}
	return results, nil
}

func parseFeed(data json.RawMessage) (airq.AQIReading, error) {
	var feed waqiFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return airq.AQIReading{}, fmt.Errorf("%w: decoding feed: %v", airq.ErrProviderUnavailable, err)
	}

	reading := airq.AQIReading{City: feed.City.Name}

	// Stations without a computed index report "-" instead of a number.
	var aqi float64
	if err := json.Unmarshal(feed.Aqi, &aqi); err == nil {
		reading.AQI = aqi
	}

	if len(feed.City.Geo) >= 2 {
		reading.Lat = feed.City.Geo[0]
		reading.Lon = feed.City.Geo[1]
	}

	reading.PM25 = pollutantValue(feed.Iaqi, "pm25")
	reading.PM10 = pollutantValue(feed.Iaqi, "pm10")
	reading.O3 = pollutantValue(feed.Iaqi, "o3")
	reading.NO2 = pollutantValue(feed.Iaqi, "no2")
	reading.SO2 = pollutantValue(feed.Iaqi, "so2")
	reading.CO = pollutantValue(feed.Iaqi, "co")

	return reading, nil
}

func pollutantValue(iaqi map[string]iaqiEntry, key string) *float64 {
	if e, ok := iaqi[key]; ok {
		v := e.V
		return &v
	}
	return nil
}
