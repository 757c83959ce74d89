package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// The artifact is two companion files: the regressor with its training
// metadata, and the scaler state. Both must exist and parse for the model
// path to be usable.
const (
	modelFile  = "aqi_model.json"
	scalerFile = "scaler.json"
)

// Metrics holds the evaluation scores of a training run. They are recorded
// for inspection and never gate persistence.
type Metrics struct {
	TrainR2 float64 `json:"train_r2"`
	TestR2  float64 `json:"test_r2"`
	MAE     float64 `json:"mae"`
	RMSE    float64 `json:"rmse"`
}

// Model is the persisted regressor with the feature contract it was trained
// against.
type Model struct {
	TrainedAt    time.Time  `json:"trained_at"`
	FeatureNames []string   `json:"feature_names"`
	Regressor    *Regressor `json:"regressor"`
	TrainingRows int        `json:"training_rows"`
	TestRows     int        `json:"test_rows"`
	Metrics      Metrics    `json:"metrics"`
}

// SaveArtifact writes the regressor and scaler as companion files in dir.
// Each file is written to a temp path and renamed so a crash mid-write never
// leaves a torn artifact.
func SaveArtifact(dir string, model *Model, scaler *Scaler) error {
	if err := writeJSONAtomic(filepath.Join(dir, modelFile), model); err != nil {
		return err
	}
	return writeJSONAtomic(filepath.Join(dir, scalerFile), scaler)
}

// LoadArtifact reads both companion files from dir. An error means the
// prediction engine must run in fallback-only mode.
func LoadArtifact(dir string) (*Model, *Scaler, error) {
	var model Model
	if err := readJSON(filepath.Join(dir, modelFile), &model); err != nil {
		return nil, nil, err
	}

	var scaler Scaler
	if err := readJSON(filepath.Join(dir, scalerFile), &scaler); err != nil {
		return nil, nil, err
	}

	if model.Regressor == nil || len(model.FeatureNames) == 0 || len(scaler.Mean) == 0 {
		return nil, nil, errors.New("model artifact is incomplete")
	}
	return &model, &scaler, nil
}

func writeJSONAtomic(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
