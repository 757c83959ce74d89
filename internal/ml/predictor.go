package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/air-quality-prediction/internal/airq"
)

// ErrModelUnavailable means no usable artifact was loaded; only the decay
// fallback can serve predictions.
var ErrModelUnavailable = errors.New("model artifact unavailable")

// ErrFeatureContract means the persisted artifact disagrees with the feature
// schema compiled into this binary. Inputs are never truncated or reordered
// to make them fit.
var ErrFeatureContract = errors.New("feature contract mismatch")

// Predictor serves AQI forecasts from the trained artifact, degrading to a
// decay heuristic when the model path cannot run.
type Predictor struct {
	weather airq.WeatherProvider
	aqi     airq.AQIProvider
	logger  *zap.SugaredLogger

	model  *Model
	scaler *Scaler
}

// NewPredictor loads the artifact from modelDir. A missing or unreadable
// artifact is not fatal: the predictor starts in fallback-only mode and a
// later training run can be picked up on restart.
func NewPredictor(modelDir string, weather airq.WeatherProvider, aqi airq.AQIProvider, logger *zap.SugaredLogger) *Predictor {
	p := &Predictor{weather: weather, aqi: aqi, logger: logger}

	model, scaler, err := LoadArtifact(modelDir)
	if err != nil {
		logger.Warnw("model artifact unavailable, predictions fall back to decay heuristic",
			"dir", modelDir, "error", err)
		return p
	}
	p.model = model
	p.scaler = scaler
	logger.Infow("model artifact loaded",
		"dir", modelDir, "trained_at", model.TrainedAt, "test_r2", model.Metrics.TestR2)
	return p
}

// PredictWithFallback runs the model path and, when it fails for any reason
// other than a dead context, answers with the decay heuristic instead.
func (p *Predictor) PredictWithFallback(ctx context.Context, city string, lat, lon float64, horizons []int) (airq.PredictionResult, error) {
	if len(horizons) == 0 {
		horizons = airq.DefaultHorizons
	}

	result, err := p.predict(ctx, city, lat, lon, horizons)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return airq.PredictionResult{}, ctx.Err()
	}
	p.logger.Infow("using fallback prediction", "city", city, "reason", err)

	return p.fallback(ctx, city, lat, lon, horizons), nil
}

func (p *Predictor) predict(ctx context.Context, city string, lat, lon float64, horizons []int) (airq.PredictionResult, error) {
	if p.model == nil || p.scaler == nil {
		return airq.PredictionResult{}, ErrModelUnavailable
	}
	if err := p.checkContract(); err != nil {
		return airq.PredictionResult{}, err
	}

	reading, err := p.aqi.GetCurrentByCoordinates(ctx, lat, lon)
	if err != nil {
		p.logger.Warnw("current air quality unavailable, assuming moderate baseline",
			"city", city, "error", err)
		reading = airq.AQIReading{AQI: DefaultAQI}
	}

	maxHours := 0
	for _, h := range horizons {
		if h > maxHours {
			maxHours = h
		}
	}
	forecast, err := p.weather.GetForecast(ctx, lat, lon, maxHours)
	if err != nil {
		return airq.PredictionResult{}, err
	}
	if len(forecast) == 0 {
		return airq.PredictionResult{}, fmt.Errorf("%w: empty weather forecast", airq.ErrProviderUnavailable)
	}

	now := time.Now().UTC()
	entries := make([]airq.PredictionEntry, 0, len(horizons))
	for _, h := range horizons {
		// Forecast points arrive in 3-hour steps; horizons past the last
		// point reuse it.
		idx := h / 3
		if idx > len(forecast)-1 {
			idx = len(forecast) - 1
		}
		if idx < 0 {
			idx = 0
		}
		fc := forecast[idx]
		target := now.Add(time.Duration(h) * time.Hour)

		features := BuildInference(reading, &fc, target)
		scaled, err := p.scaler.Transform(features)
		if err != nil {
			return airq.PredictionResult{}, fmt.Errorf("%w: %v", ErrFeatureContract, err)
		}
		value := clampAQI(p.model.Regressor.Predict(scaled))

		temp := fc.Temperature
		hum := fc.Humidity
		entries = append(entries, airq.PredictionEntry{
			Hours:        h,
			Timestamp:    target.Format(time.RFC3339),
			PredictedAQI: round1(value),
			Temperature:  &temp,
			Humidity:     &hum,
		})
	}

	return airq.PredictionResult{
		City:        city,
		CurrentAQI:  reading.AQI,
		Predictions: entries,
		GeneratedAt: now.Format(time.RFC3339),
	}, nil
}

// fallback decays the latest reading by 5% per 24 hours. No weather data is
// attached because none was fetched.
func (p *Predictor) fallback(ctx context.Context, city string, lat, lon float64, horizons []int) airq.PredictionResult {
	aqi := float64(DefaultAQI)
	if reading, err := p.aqi.GetCurrentByCoordinates(ctx, lat, lon); err == nil {
		aqi = reading.AQI
	}

	now := time.Now().UTC()
	entries := make([]airq.PredictionEntry, 0, len(horizons))
	for _, h := range horizons {
		predicted := aqi * math.Pow(0.95, float64(h)/24)
		entries = append(entries, airq.PredictionEntry{
			Hours:        h,
			Timestamp:    now.Add(time.Duration(h) * time.Hour).Format(time.RFC3339),
			PredictedAQI: round1(clampAQI(predicted)),
		})
	}

	return airq.PredictionResult{
		City:        city,
		CurrentAQI:  aqi,
		Predictions: entries,
		GeneratedAt: now.Format(time.RFC3339),
		Fallback:    true,
	}
}

func (p *Predictor) checkContract() error {
	if len(p.model.FeatureNames) != len(FeatureNames) {
		return fmt.Errorf("%w: artifact has %d features, binary expects %d",
			ErrFeatureContract, len(p.model.FeatureNames), len(FeatureNames))
	}
	for i, name := range p.model.FeatureNames {
		if name != FeatureNames[i] {
			return fmt.Errorf("%w: feature %d is %q, expected %q", ErrFeatureContract, i, name, FeatureNames[i])
		}
	}
	if len(p.model.Regressor.Coefficients) != len(FeatureNames) {
		return fmt.Errorf("%w: regressor has %d coefficients, expected %d",
			ErrFeatureContract, len(p.model.Regressor.Coefficients), len(FeatureNames))
	}
	if len(p.scaler.Mean) != len(FeatureNames) || len(p.scaler.Stddev) != len(FeatureNames) {
		return fmt.Errorf("%w: scaler has %d/%d parameters, expected %d",
			ErrFeatureContract, len(p.scaler.Mean), len(p.scaler.Stddev), len(FeatureNames))
	}
	return nil
}

func clampAQI(v float64) float64 {
	if v < airq.AQIMin {
		return airq.AQIMin
	}
	if v > airq.AQIMax {
		return airq.AQIMax
	}
	return v
}

// round1 rounds to one decimal place, ties to even. The 48h decay of an AQI
// of 100 lands exactly on the 90.25 tie and must report 90.2.
func round1(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}
