package ml

import (
	"errors"
	"fmt"
	"math"
)

// Scaler standardizes features using z-score normalization. Each feature
// dimension is transformed to have mean=0 and std=1, with the parameters
// fitted on the training segment only and persisted alongside the regressor.
type Scaler struct {
	Mean   []float64 `json:"mean"`
	Stddev []float64 `json:"stddev"`
}

// FitScaler computes scaling parameters from the training rows.
func FitScaler(rows [][]float64) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, errors.New("no rows provided")
	}

	featureCount := len(rows[0])
	if featureCount == 0 {
		return nil, errors.New("rows have no features")
	}

	mean := make([]float64, featureCount)
	for _, row := range rows {
		if len(row) != featureCount {
			return nil, errors.New("inconsistent feature dimensions")
		}
		for i, val := range row {
			mean[i] += val
		}
	}
	for i := range mean {
		mean[i] /= float64(len(rows))
	}

	stddev := make([]float64, featureCount)
	for _, row := range rows {
		for i, val := range row {
			diff := val - mean[i]
			stddev[i] += diff * diff
		}
	}
	for i := range stddev {
		stddev[i] = math.Sqrt(stddev[i] / float64(len(rows)))
		// Prevent division by zero for constant features.
		if stddev[i] < 1e-10 {
			stddev[i] = 1.0
		}
	}

	return &Scaler{
		Mean:   mean,
		Stddev: stddev,
	}, nil
}

// Transform applies z-score standardization to a feature vector. A dimension
// mismatch is a feature-contract violation and is never papered over.
func (s *Scaler) Transform(features []float64) ([]float64, error) {
	if len(features) != len(s.Mean) {
		return nil, fmt.Errorf("expected %d features, got %d", len(s.Mean), len(features))
	}

	scaled := make([]float64, len(features))
	for i, val := range features {
		scaled[i] = (val - s.Mean[i]) / s.Stddev[i]
	}
	return scaled, nil
}

// TransformAll scales a batch of rows with the same parameters.
func (s *Scaler) TransformAll(rows [][]float64) ([][]float64, error) {
	scaled := make([][]float64, len(rows))
	for i, row := range rows {
		out, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		scaled[i] = out
	}
	return scaled, nil
}
