package ml

import (
	"time"

	"github.com/i474232898/air-quality-prediction/internal/airq"
)

// FeatureNames is the ordered feature contract shared by training and
// inference. The scaler and regressor are fitted against vectors in exactly
// this order; changing it invalidates any persisted artifact.
var FeatureNames = []string{
	"pm25", "pm10", "o3", "no2", "so2", "co",
	"temperature", "humidity", "wind_speed", "pressure",
	"hour", "day_of_week", "month", "is_weekend",
	"aqi_lag_1", "aqi_lag_24",
	"pm25_lag_1", "pm25_lag_24",
	"pm10_lag_1", "pm10_lag_24",
	"temperature_lag_1", "temperature_lag_24",
	"humidity_lag_1", "humidity_lag_24",
	"aqi_rolling_mean_24", "pm25_rolling_mean_24", "temperature_rolling_mean_24",
}

// Defaults used when an input quantity is unavailable.
const (
	DefaultAQI         = 50.0
	DefaultTemperature = 20.0
	DefaultHumidity    = 50.0
	DefaultWindSpeed   = 5.0
	DefaultPressure    = 1013.0
)

// lagSteps is how many leading rows of each series lack a defined lag-24
// feature and are therefore dropped in historical mode.
const lagSteps = 24

// FeatureRow is one engineered training example.
type FeatureRow struct {
	Features  []float64
	Target    float64
	Timestamp time.Time
}

// BuildHistorical converts one location's time-ordered observations into
// feature rows. Missing pollutant and weather values are forward- then
// backward-filled within the series; a quantity absent from the whole series
// takes its documented default. The first 24 rows carry undefined lags and
// are dropped, so series of 24 rows or fewer produce nothing.
func BuildHistorical(series []airq.Observation) []FeatureRow {
	n := len(series)
	if n <= lagSteps {
		return nil
	}

	aqi := make([]float64, n)
	for i, obs := range series {
		aqi[i] = obs.AQI
	}

	pm25 := fillSeries(series, func(o airq.Observation) *float64 { return o.PM25 }, 0)
	pm10 := fillSeries(series, func(o airq.Observation) *float64 { return o.PM10 }, 0)
	o3 := fillSeries(series, func(o airq.Observation) *float64 { return o.O3 }, 0)
	no2 := fillSeries(series, func(o airq.Observation) *float64 { return o.NO2 }, 0)
	so2 := fillSeries(series, func(o airq.Observation) *float64 { return o.SO2 }, 0)
	co := fillSeries(series, func(o airq.Observation) *float64 { return o.CO }, 0)
	temperature := fillSeries(series, func(o airq.Observation) *float64 { return o.Temp }, DefaultTemperature)
	humidity := fillSeries(series, func(o airq.Observation) *float64 { return o.Humidity }, DefaultHumidity)
	windSpeed := fillSeries(series, func(o airq.Observation) *float64 { return o.WindSpeed }, DefaultWindSpeed)
	pressure := fillSeries(series, func(o airq.Observation) *float64 { return o.Pressure }, DefaultPressure)

	rows := make([]FeatureRow, 0, n-lagSteps)
	for i := lagSteps; i < n; i++ {
		hour, dayOfWeek, month, isWeekend := calendarFeatures(series[i].Timestamp)

		features := []float64{
			pm25[i], pm10[i], o3[i], no2[i], so2[i], co[i],
			temperature[i], humidity[i], windSpeed[i], pressure[i],
			hour, dayOfWeek, month, isWeekend,
			aqi[i-1], aqi[i-lagSteps],
			pm25[i-1], pm25[i-lagSteps],
			pm10[i-1], pm10[i-lagSteps],
			temperature[i-1], temperature[i-lagSteps],
			humidity[i-1], humidity[i-lagSteps],
			rollingMean24(aqi, i), rollingMean24(pm25, i), rollingMean24(temperature, i),
		}

		rows = append(rows, FeatureRow{
			Features:  features,
			Target:    aqi[i],
			Timestamp: series[i].Timestamp,
		})
	}

	return rows
}

// BuildInference produces the single feature row for one prediction horizon.
// Lag and rolling features are backfilled from the current reading because
// no trajectory is available at inference time; calendar features come from
// the target instant, not from now.
func BuildInference(reading airq.AQIReading, fc *airq.ForecastPoint, target time.Time) []float64 {
	pm25 := orDefault(reading.PM25, 0)
	pm10 := orDefault(reading.PM10, 0)
	o3 := orDefault(reading.O3, 0)
	no2 := orDefault(reading.NO2, 0)
	so2 := orDefault(reading.SO2, 0)
	co := orDefault(reading.CO, 0)

	temperature := DefaultTemperature
	humidity := DefaultHumidity
	windSpeed := DefaultWindSpeed
	pressure := DefaultPressure
	if fc != nil {
		temperature = fc.Temperature
		humidity = fc.Humidity
		windSpeed = fc.WindSpeed
		pressure = fc.Pressure
	}

	hour, dayOfWeek, month, isWeekend := calendarFeatures(target)

	return []float64{
		pm25, pm10, o3, no2, so2, co,
		temperature, humidity, windSpeed, pressure,
		hour, dayOfWeek, month, isWeekend,
		reading.AQI, reading.AQI,
		pm25, pm25,
		pm10, pm10,
		temperature, temperature,
		humidity, humidity,
		reading.AQI, pm25, temperature,
	}
}

// calendarFeatures derives the time features with Monday as day 0, matching
// how the model was defined.
func calendarFeatures(t time.Time) (hour, dayOfWeek, month, isWeekend float64) {
	t = t.UTC()
	dow := (int(t.Weekday()) + 6) % 7

	hour = float64(t.Hour())
	dayOfWeek = float64(dow)
	month = float64(int(t.Month()))
	if dow >= 5 {
		isWeekend = 1
	}
	return hour, dayOfWeek, month, isWeekend
}

// fillSeries extracts one optional column, forward-fills, backward-fills,
// and falls back to def for a column with no values at all.
func fillSeries(series []airq.Observation, get func(airq.Observation) *float64, def float64) []float64 {
	n := len(series)
	values := make([]float64, n)
	present := make([]bool, n)

	for i, obs := range series {
		if v := get(obs); v != nil {
			values[i] = *v
			present[i] = true
		}
	}

	// Forward fill.
	for i := 1; i < n; i++ {
		if !present[i] && present[i-1] {
			values[i] = values[i-1]
			present[i] = true
		}
	}
	// Backward fill.
	for i := n - 2; i >= 0; i-- {
		if !present[i] && present[i+1] {
			values[i] = values[i+1]
			present[i] = true
		}
	}
	// Column default.
	for i := range values {
		if !present[i] {
			values[i] = def
		}
	}

	return values
}

// rollingMean24 is the trailing mean over up to 24 preceding-and-current
// samples; the window shrinks to a single sample at the series start.
func rollingMean24(values []float64, i int) float64 {
	start := i - (lagSteps - 1)
	if start < 0 {
		start = 0
	}
	var sum float64
	for j := start; j <= i; j++ {
		sum += values[j]
	}
	return sum / float64(i-start+1)
}

func orDefault(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}
