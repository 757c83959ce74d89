package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Regressor is a linear model fitted by ridge-regularized least squares on
// scaled features. The intercept is kept separate because it is not
// penalized.
type Regressor struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	Lambda       float64   `json:"lambda"`
}

// FitRegressor solves min ||y - (Xw + b)||² + λ||w||² with the augmented
// design matrix [X; √λ·I] and QR decomposition. Lambda 0 degenerates to
// ordinary least squares.
func FitRegressor(rows [][]float64, targets []float64, lambda float64) (*Regressor, error) {
	n := len(rows)
	if n == 0 {
		return nil, errors.New("no training rows")
	}
	p := len(rows[0])
	if p == 0 {
		return nil, errors.New("rows have no features")
	}
	if len(targets) != n {
		return nil, errors.New("target length does not match row count")
	}
	if lambda < 0 {
		return nil, errors.New("lambda must be non-negative")
	}

	X := mat.NewDense(n+p, p+1, nil)
	y := mat.NewVecDense(n+p, nil)

	for i, row := range rows {
		if len(row) != p {
			return nil, errors.New("inconsistent feature dimensions")
		}
		X.Set(i, 0, 1)
		for j, v := range row {
			X.Set(i, j+1, v)
		}
		y.SetVec(i, targets[i])
	}

	// Penalty rows shrink each coefficient toward zero; the intercept
	// column stays zero in this block.
	penalty := math.Sqrt(lambda)
	for j := 0; j < p; j++ {
		X.Set(n+j, j+1, penalty)
	}

	var qr mat.QR
	qr.Factorize(X)

	coeffs := mat.NewVecDense(p+1, nil)
	if err := qr.SolveVecTo(coeffs, false, y); err != nil {
		return nil, fmt.Errorf("failed to solve least squares: %w", err)
	}

	reg := &Regressor{
		Intercept:    coeffs.AtVec(0),
		Coefficients: make([]float64, p),
		Lambda:       lambda,
	}
	for j := 0; j < p; j++ {
		reg.Coefficients[j] = coeffs.AtVec(j + 1)
	}
	return reg, nil
}

// Predict applies the linear model to one scaled feature vector. The caller
// guarantees the vector matches the trained feature contract.
func (r *Regressor) Predict(features []float64) float64 {
	v := r.Intercept
	for i, c := range r.Coefficients {
		v += c * features[i]
	}
	return v
}

func rSquared(actual, predicted []float64) float64 {
	meanY := stat.Mean(actual, nil)

	var ssTot, ssRes float64
	for i := range actual {
		ssTot += (actual[i] - meanY) * (actual[i] - meanY)
		ssRes += (actual[i] - predicted[i]) * (actual[i] - predicted[i])
	}

	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

func meanAbsoluteError(actual, predicted []float64) float64 {
	var sumAbsError float64
	for i := range actual {
		sumAbsError += math.Abs(actual[i] - predicted[i])
	}
	return sumAbsError / float64(len(actual))
}

func rootMeanSquaredError(actual, predicted []float64) float64 {
	var sumSqError float64
	for i := range actual {
		sumSqError += (actual[i] - predicted[i]) * (actual[i] - predicted[i])
	}
	return math.Sqrt(sumSqError / float64(len(actual)))
}
