package ml

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/air-quality-prediction/internal/airq"
	"github.com/i474232898/air-quality-prediction/internal/store"
)

func seedObservations(t *testing.T, st airq.Store, city string, n int) {
	t.Helper()
	ctx := context.Background()
	start := time.Now().UTC().Add(-time.Duration(n) * time.Hour)

	for i := 0; i < n; i++ {
		pm := 12 + 6*math.Sin(float64(i)/7)
		temp := 18 + 8*math.Sin(float64(i)/24)
		obs := airq.Observation{
			City:      city,
			Country:   "Testland",
			AQI:       60 + 25*math.Sin(float64(i)/12) + 0.05*float64(i),
			PM25:      &pm,
			Temp:      &temp,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
		}
		if err := st.InsertObservation(ctx, obs); err != nil {
			t.Fatalf("seed insert failed: %v", err)
		}
	}
}

func TestTrainPersistsArtifact(t *testing.T) {
	st := store.NewMemoryStore()
	seedObservations(t, st, "Testville", 130) // 106 rows survive lag trimming

	dir := t.TempDir()
	trainer := NewTrainer(st, zap.NewNop().Sugar(), DefaultLambda)

	model, scaler, err := trainer.Train(context.Background(), []string{"Testville"}, 30*24*time.Hour, dir)
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}

	if model.TrainingRows != 84 || model.TestRows != 22 {
		t.Fatalf("expected an 84/22 chronological split, got %d/%d", model.TrainingRows, model.TestRows)
	}
	if len(model.FeatureNames) != len(FeatureNames) {
		t.Fatalf("model has %d feature names, expected %d", len(model.FeatureNames), len(FeatureNames))
	}
	if len(scaler.Mean) != len(FeatureNames) {
		t.Fatalf("scaler has %d means, expected %d", len(scaler.Mean), len(FeatureNames))
	}
	if math.IsNaN(model.Metrics.TrainR2) || math.IsNaN(model.Metrics.TestR2) {
		t.Fatalf("metrics are NaN: %+v", model.Metrics)
	}

	loadedModel, loadedScaler, err := LoadArtifact(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	p := &Predictor{model: loadedModel, scaler: loadedScaler}
	if err := p.checkContract(); err != nil {
		t.Fatalf("trained artifact failed the contract check: %v", err)
	}
}

// With no explicit cities the trainer pools every active location; histories
// too short on their own can make a training set together.
func TestTrainPoolsActiveLocations(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	for _, city := range []string{"Alpha", "Beta"} {
		loc := airq.MonitoredLocation{City: city, Country: "Testland", IsActive: true}
		if err := st.UpsertLocation(ctx, loc); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		seedObservations(t, st, city, 80) // 56 rows each
	}

	trainer := NewTrainer(st, zap.NewNop().Sugar(), DefaultLambda)
	model, _, err := trainer.Train(ctx, nil, 30*24*time.Hour, t.TempDir())
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	if got := model.TrainingRows + model.TestRows; got != 112 {
		t.Fatalf("expected 112 pooled rows, got %d", got)
	}
}

func TestTrainInsufficientData(t *testing.T) {
	st := store.NewMemoryStore()
	seedObservations(t, st, "Testville", 100) // only 76 rows survive lag trimming

	trainer := NewTrainer(st, zap.NewNop().Sugar(), DefaultLambda)
	_, _, err := trainer.Train(context.Background(), []string{"Testville"}, 30*24*time.Hour, t.TempDir())
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}
