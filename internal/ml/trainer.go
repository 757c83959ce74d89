package ml

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/air-quality-prediction/internal/airq"
)

// ErrInsufficientData is returned when too few usable feature rows remain
// after lag trimming.
var ErrInsufficientData = errors.New("insufficient training data")

// MinTrainingRows is the minimum usable feature-row count for a training run.
const MinTrainingRows = 100

// DefaultLambda is the ridge penalty used when the operator does not pick one.
const DefaultLambda = 1.0

// Trainer fits the scaler and regressor from stored observations and
// persists them as the model artifact.
type Trainer struct {
	store  airq.Store
	logger *zap.SugaredLogger
	lambda float64
}

func NewTrainer(store airq.Store, logger *zap.SugaredLogger, lambda float64) *Trainer {
	return &Trainer{store: store, lambda: lambda, logger: logger}
}

// Train engineers features from the observation window for the given cities
// (all active locations when empty), fits on the leading 80% chronologically,
// evaluates on the trailing 20% and writes the artifact into modelDir.
// Evaluation scores never gate persistence.
func (t *Trainer) Train(ctx context.Context, cities []string, window time.Duration, modelDir string) (*Model, *Scaler, error) {
	to := time.Now().UTC()
	from := to.Add(-window)

	if len(cities) == 0 {
		locs, err := t.store.ListActiveLocations(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list locations: %w", err)
		}
		for _, loc := range locs {
			cities = append(cities, loc.City)
		}
	}

	var rows []FeatureRow
	for _, city := range cities {
		series, err := t.store.ObservationsByCity(ctx, city, from, to)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load observations for %s: %w", city, err)
		}
		cityRows := BuildHistorical(series)
		t.logger.Infow("engineered features", "city", city, "observations", len(series), "rows", len(cityRows))
		rows = append(rows, cityRows...)
	}

	// Lags never cross locations; re-order the merged frame by time so the
	// chronological split holds across cities.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })

	if len(rows) < MinTrainingRows {
		return nil, nil, fmt.Errorf("%w: have %d usable rows, need %d", ErrInsufficientData, len(rows), MinTrainingRows)
	}

	split := int(float64(len(rows)) * 0.8)
	trainX, trainY := splitFrame(rows[:split])
	testX, testY := splitFrame(rows[split:])

	// The scaler is fitted on the training segment only.
	scaler, err := FitScaler(trainX)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fit scaler: %w", err)
	}
	scaledTrain, err := scaler.TransformAll(trainX)
	if err != nil {
		return nil, nil, err
	}
	scaledTest, err := scaler.TransformAll(testX)
	if err != nil {
		return nil, nil, err
	}

	reg, err := FitRegressor(scaledTrain, trainY, t.lambda)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fit regressor: %w", err)
	}

	trainPred := predictAll(reg, scaledTrain)
	testPred := predictAll(reg, scaledTest)

	model := &Model{
		TrainedAt:    time.Now().UTC(),
		FeatureNames: append([]string(nil), FeatureNames...),
		Regressor:    reg,
		TrainingRows: len(trainY),
		TestRows:     len(testY),
		Metrics: Metrics{
			TrainR2: rSquared(trainY, trainPred),
			TestR2:  rSquared(testY, testPred),
			MAE:     meanAbsoluteError(testY, testPred),
			RMSE:    rootMeanSquaredError(testY, testPred),
		},
	}

	t.logger.Infow("model evaluation",
		"train_r2", model.Metrics.TrainR2,
		"test_r2", model.Metrics.TestR2,
		"mae", model.Metrics.MAE,
		"rmse", model.Metrics.RMSE,
		"training_rows", model.TrainingRows,
		"test_rows", model.TestRows,
	)

	if err := SaveArtifact(modelDir, model, scaler); err != nil {
		return nil, nil, err
	}
	t.logger.Infow("model artifact saved", "dir", modelDir)

	return model, scaler, nil
}

func splitFrame(rows []FeatureRow) ([][]float64, []float64) {
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, row := range rows {
		X[i] = row.Features
		y[i] = row.Target
	}
	return X, y
}

func predictAll(reg *Regressor, rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = reg.Predict(row)
	}
	return out
}
