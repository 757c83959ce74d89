package airq

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeStore struct {
	observations map[string][]Observation
	locations    map[string]MonitoredLocation
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		observations: make(map[string][]Observation),
		locations:    make(map[string]MonitoredLocation),
	}
}

func (f *fakeStore) InsertObservation(ctx context.Context, obs Observation) error {
	key := strings.ToLower(obs.City)
	f.observations[key] = append(f.observations[key], obs)
	return nil
}

func (f *fakeStore) ObservationsByCity(ctx context.Context, city string, from, to time.Time) ([]Observation, error) {
	var out []Observation
	for _, obs := range f.observations[strings.ToLower(city)] {
		if !obs.Timestamp.Before(from) && !obs.Timestamp.After(to) {
			out = append(out, obs)
		}
	}
	return out, nil
}

func (f *fakeStore) LatestObservation(ctx context.Context, city string) (Observation, error) {
	series := f.observations[strings.ToLower(city)]
	if len(series) == 0 {
		return Observation{}, ErrNoData
	}
	return series[len(series)-1], nil
}

func (f *fakeStore) UpsertLocation(ctx context.Context, loc MonitoredLocation) error {
	f.locations[loc.Key()] = loc
	return nil
}

func (f *fakeStore) LocationByCity(ctx context.Context, city string) (MonitoredLocation, error) {
	loc, ok := f.locations[strings.ToLower(city)]
	if !ok {
		return MonitoredLocation{}, ErrNoData
	}
	return loc, nil
}

func (f *fakeStore) ListActiveLocations(ctx context.Context) ([]MonitoredLocation, error) {
	var out []MonitoredLocation
	for _, loc := range f.locations {
		if loc.IsActive {
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].City < out[j].City })
	return out, nil
}

func (f *fakeStore) Close() error { return nil }

type fakeWeather struct {
	geo    GeoLocation
	geoErr error
}

func (f *fakeWeather) GetCurrentWeather(ctx context.Context, lat, lon float64) (WeatherData, error) {
	return WeatherData{}, nil
}

func (f *fakeWeather) GetForecast(ctx context.Context, lat, lon float64, hours int) ([]ForecastPoint, error) {
	return nil, nil
}

func (f *fakeWeather) Geocode(ctx context.Context, city string) (GeoLocation, error) {
	if f.geoErr != nil {
		return GeoLocation{}, f.geoErr
	}
	return f.geo, nil
}

type fakeAQI struct {
	reading  AQIReading
	err      error
	stations []StationResult
}

func (f *fakeAQI) GetCurrentByCoordinates(ctx context.Context, lat, lon float64) (AQIReading, error) {
	if f.err != nil {
		return AQIReading{}, f.err
	}
	return f.reading, nil
}

func (f *fakeAQI) GetCurrentByName(ctx context.Context, city string) (AQIReading, error) {
	if f.err != nil {
		return AQIReading{}, f.err
	}
	return f.reading, nil
}

func (f *fakeAQI) SearchStations(ctx context.Context, query string) ([]StationResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stations, nil
}

type fakeForecaster struct {
	result PredictionResult
	err    error
}

func (f *fakeForecaster) PredictWithFallback(ctx context.Context, city string, lat, lon float64, horizons []int) (PredictionResult, error) {
	if f.err != nil {
		return PredictionResult{}, f.err
	}
	return f.result, nil
}

type fakeGeocoder struct {
	loc   GeoLocation
	err   error
	calls int
}

func (f *fakeGeocoder) Geocode(ctx context.Context, city string) (GeoLocation, error) {
	f.calls++
	if f.err != nil {
		return GeoLocation{}, f.err
	}
	return f.loc, nil
}

func delhiGeo() GeoLocation {
	return GeoLocation{City: "Delhi", Country: "India", Lat: 28.6139, Lon: 77.2090}
}

func fptr(v float64) *float64 { return &v }

func TestCurrentFromFreshStore(t *testing.T) {
	st := newFakeStore()
	_ = st.InsertObservation(context.Background(), Observation{
		City:      "Delhi",
		Country:   "India",
		AQI:       160,
		PM25:      fptr(80),
		Temp:      fptr(31),
		Timestamp: time.Now().UTC().Add(-10 * time.Minute),
	})

	// A failing live provider proves the answer came from the store.
	svc := NewService(st, &fakeWeather{geo: delhiGeo()}, &fakeAQI{err: ErrProviderUnavailable}, nil, nil, zap.NewNop().Sugar())

	got, err := svc.Current(context.Background(), "delhi")
	if err != nil {
		t.Fatalf("current failed: %v", err)
	}
	if got.City != "Delhi" || got.Country != "India" {
		t.Fatalf("got %s/%s, expected Delhi/India", got.City, got.Country)
	}
	if got.AQI != 160 || got.Category != "Unhealthy" {
		t.Fatalf("aqi=%v category=%q, expected 160/Unhealthy", got.AQI, got.Category)
	}
	if got.Weather == nil || got.Weather.Temperature == nil || *got.Weather.Temperature != 31 {
		t.Fatalf("weather = %+v, expected temperature 31", got.Weather)
	}
	if got.Pollutants.PM25 == nil || *got.Pollutants.PM25 != 80 {
		t.Fatalf("pm25 = %v, expected 80", got.Pollutants.PM25)
	}
}

func TestCurrentStaleFallsBackToLive(t *testing.T) {
	st := newFakeStore()
	_ = st.InsertObservation(context.Background(), Observation{
		City:      "Delhi",
		AQI:       300,
		Timestamp: time.Now().UTC().Add(-2 * time.Hour),
	})

	aqi := &fakeAQI{reading: AQIReading{AQI: 42, City: "Delhi", PM25: fptr(12)}}
	svc := NewService(st, &fakeWeather{geo: delhiGeo()}, aqi, nil, nil, zap.NewNop().Sugar())

	got, err := svc.Current(context.Background(), "Delhi")
	if err != nil {
		t.Fatalf("current failed: %v", err)
	}
	if got.AQI != 42 || got.Category != "Good" {
		t.Fatalf("aqi=%v category=%q, expected 42/Good", got.AQI, got.Category)
	}
	if got.Weather != nil {
		t.Fatal("live answers carry no weather sub-object")
	}
	if got.Country != "" {
		t.Fatalf("live answers carry no country, got %q", got.Country)
	}
}

func TestCurrentUnknownCity(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeWeather{geoErr: ErrProviderUnavailable}, &fakeAQI{}, nil, nil, zap.NewNop().Sugar())

	if _, err := svc.Current(context.Background(), "Nowhereville"); !errors.Is(err, ErrCityNotFound) {
		t.Fatalf("expected ErrCityNotFound, got %v", err)
	}
}

func TestCurrentLiveUnavailable(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeWeather{geo: delhiGeo()}, &fakeAQI{err: ErrProviderUnavailable}, nil, nil, zap.NewNop().Sugar())

	if _, err := svc.Current(context.Background(), "Delhi"); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestPredictDecoratesResult(t *testing.T) {
	fc := &fakeForecaster{result: PredictionResult{
		City:       "Delhi",
		CurrentAQI: 160,
		Predictions: []PredictionEntry{
			{Hours: 24, PredictedAQI: 150.5},
		},
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}}
	svc := NewService(newFakeStore(), &fakeWeather{geo: delhiGeo()}, &fakeAQI{}, fc, nil, zap.NewNop().Sugar())

	got, err := svc.Predict(context.Background(), "Delhi", []int{24})
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if got.AQICategory != "Unhealthy" {
		t.Fatalf("category = %q, expected Unhealthy", got.AQICategory)
	}
	if len(got.HealthTips) == 0 {
		t.Fatal("expected health tips for an unhealthy reading")
	}
	if len(got.Predictions) != 1 || got.Predictions[0].PredictedAQI != 150.5 {
		t.Fatalf("predictions not carried: %+v", got.Predictions)
	}
}

func TestHistoryWindow(t *testing.T) {
	st := newFakeStore()
	ctx := context.Background()
	now := time.Now().UTC()
	for _, age := range []time.Duration{10 * 24 * time.Hour, 3 * 24 * time.Hour, time.Hour} {
		_ = st.InsertObservation(ctx, Observation{
			City:      "Delhi",
			Country:   "India",
			AQI:       100,
			Timestamp: now.Add(-age),
		})
	}

	svc := NewService(st, &fakeWeather{geo: delhiGeo()}, &fakeAQI{}, nil, nil, zap.NewNop().Sugar())

	series, err := svc.History(ctx, "Delhi", 7)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if series.Count != 2 || len(series.Data) != 2 {
		t.Fatalf("count = %d, expected 2 observations inside the window", series.Count)
	}
	if series.City != "Delhi" || series.Country != "India" {
		t.Fatalf("series labeled %s/%s", series.City, series.Country)
	}

	if _, err := svc.History(ctx, "Atlantis", 7); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData for an unknown city, got %v", err)
	}
}

func TestCompareSkipsMissingCities(t *testing.T) {
	st := newFakeStore()
	ctx := context.Background()
	_ = st.InsertObservation(ctx, Observation{City: "Delhi", AQI: 180, Timestamp: time.Now().UTC()})
	_ = st.InsertObservation(ctx, Observation{City: "London", AQI: 35, Timestamp: time.Now().UTC()})

	svc := NewService(st, &fakeWeather{}, &fakeAQI{}, nil, nil, zap.NewNop().Sugar())

	got, err := svc.Compare(ctx, []string{"Delhi", "Atlantis", "London"})
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d comparisons, expected 2", len(got))
	}
	if got[0].Category != "Unhealthy" || got[1].Category != "Good" {
		t.Fatalf("categories %q/%q, expected Unhealthy/Good", got[0].Category, got[1].Category)
	}
}

func TestSearchGeocodeHit(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeWeather{geo: delhiGeo()}, &fakeAQI{}, nil, nil, zap.NewNop().Sugar())

	got, err := svc.SearchLocations(context.Background(), "Delhi")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(got) != 1 || got[0].DisplayName != "Delhi, India" {
		t.Fatalf("got %+v, expected one Delhi, India result", got)
	}
}

func TestSearchFallsBackToStations(t *testing.T) {
	aqi := &fakeAQI{stations: []StationResult{{Name: "Delhi US Embassy", Lat: 28.59, Lon: 77.18}}}
	svc := NewService(newFakeStore(), &fakeWeather{geoErr: ErrProviderUnavailable}, aqi, nil, nil, zap.NewNop().Sugar())

	got, err := svc.SearchLocations(context.Background(), "Delhi")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(got) != 1 || got[0].City != "Delhi US Embassy" {
		t.Fatalf("got %+v, expected the station result", got)
	}
}

// An unknown query is an empty 200-style result every time, never an error.
func TestSearchUnknownIsDeterministicallyEmpty(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeWeather{geoErr: ErrProviderUnavailable}, &fakeAQI{}, nil, nil, zap.NewNop().Sugar())

	for i := 0; i < 2; i++ {
		got, err := svc.SearchLocations(context.Background(), "Nowhereville")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("got %+v, expected no results", got)
		}
	}
}

func TestAddLocationIdempotent(t *testing.T) {
	st := newFakeStore()
	svc := NewService(st, &fakeWeather{geo: delhiGeo()}, &fakeAQI{}, nil, nil, zap.NewNop().Sugar())
	ctx := context.Background()

	info, created, err := svc.AddLocation(ctx, "delhi")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !created || info.City != "Delhi" {
		t.Fatalf("created=%v info=%+v, expected a new Delhi row", created, info)
	}
	loc, err := st.LocationByCity(ctx, "Delhi")
	if err != nil || !loc.IsActive {
		t.Fatalf("stored location %+v, err %v", loc, err)
	}

	// The second add must not rewrite the existing row.
	loc.Lat = 99
	_ = st.UpsertLocation(ctx, loc)
	info, created, err = svc.AddLocation(ctx, "Delhi")
	if err != nil {
		t.Fatalf("re-add failed: %v", err)
	}
	if created {
		t.Fatal("re-adding reported a new row")
	}
	if info.Lat != 99 {
		t.Fatalf("existing row was rewritten: lat = %v", info.Lat)
	}
}

func TestNearbyDegreeBox(t *testing.T) {
	st := newFakeStore()
	ctx := context.Background()
	_ = st.UpsertLocation(ctx, MonitoredLocation{City: "Delhi", Lat: 28.6139, Lon: 77.2090, IsActive: true})
	_ = st.UpsertLocation(ctx, MonitoredLocation{City: "Mumbai", Lat: 19.0760, Lon: 72.8777, IsActive: true})
	_ = st.UpsertLocation(ctx, MonitoredLocation{City: "Noida", Lat: 28.5355, Lon: 77.3910, IsActive: false})

	svc := NewService(st, &fakeWeather{}, &fakeAQI{}, nil, nil, zap.NewNop().Sugar())

	got, err := svc.Nearby(ctx, 28.7, 77.1, 100)
	if err != nil {
		t.Fatalf("nearby failed: %v", err)
	}
	if len(got) != 1 || got[0].City != "Delhi" {
		t.Fatalf("got %+v, expected only Delhi", got)
	}
}

// The fallback geocoder is consulted only when the primary misses.
func TestGeocodeFallback(t *testing.T) {
	fallback := &fakeGeocoder{loc: delhiGeo()}
	svc := NewService(newFakeStore(), &fakeWeather{geoErr: ErrProviderUnavailable}, &fakeAQI{}, nil, fallback, zap.NewNop().Sugar())

	got, err := svc.SearchLocations(context.Background(), "Delhi")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(got) != 1 || got[0].City != "Delhi" {
		t.Fatalf("got %+v, expected the fallback geocode result", got)
	}
	if fallback.calls != 1 {
		t.Fatalf("fallback consulted %d times, expected 1", fallback.calls)
	}
}

func TestGeocodeFallbackNotConsultedOnPrimaryHit(t *testing.T) {
	fallback := &fakeGeocoder{loc: delhiGeo()}
	svc := NewService(newFakeStore(), &fakeWeather{geo: delhiGeo()}, &fakeAQI{}, nil, fallback, zap.NewNop().Sugar())

	if _, err := svc.SearchLocations(context.Background(), "Delhi"); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback consulted %d times, expected 0", fallback.calls)
	}
}
