package ml

import (
	"math"
	"testing"
)

// A nearly unpenalized fit on clean linear data recovers the line.
func TestFitRegressorRecoversLine(t *testing.T) {
	rows := make([][]float64, 20)
	targets := make([]float64, 20)
	for i := range rows {
		x := float64(i)
		rows[i] = []float64{x}
		targets[i] = 3 + 2*x
	}

	reg, err := FitRegressor(rows, targets, 1e-6)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if math.Abs(reg.Intercept-3) > 1e-3 {
		t.Fatalf("intercept = %v, expected about 3", reg.Intercept)
	}
	if math.Abs(reg.Coefficients[0]-2) > 1e-3 {
		t.Fatalf("coefficient = %v, expected about 2", reg.Coefficients[0])
	}
	if got := reg.Predict([]float64{10}); math.Abs(got-23) > 1e-2 {
		t.Fatalf("predict(10) = %v, expected about 23", got)
	}
}

// The ridge penalty shrinks coefficients but never the intercept.
func TestFitRegressorPenaltyShrinks(t *testing.T) {
	rows := make([][]float64, 50)
	targets := make([]float64, 50)
	for i := range rows {
		x := float64(i%10) - 4.5 // centered, so the intercept stays at the target mean
		rows[i] = []float64{x}
		targets[i] = 5 + 3*x
	}

	loose, err := FitRegressor(rows, targets, 1e-6)
	if err != nil {
		t.Fatalf("loose fit failed: %v", err)
	}
	tight, err := FitRegressor(rows, targets, 1000)
	if err != nil {
		t.Fatalf("tight fit failed: %v", err)
	}

	if math.Abs(tight.Coefficients[0]) >= math.Abs(loose.Coefficients[0]) {
		t.Fatalf("lambda=1000 left coefficient %v, not shrunk below %v",
			tight.Coefficients[0], loose.Coefficients[0])
	}
	if math.Abs(tight.Intercept-5) > 1e-6 {
		t.Fatalf("intercept = %v, expected 5", tight.Intercept)
	}
}

func TestFitRegressorValidation(t *testing.T) {
	if _, err := FitRegressor(nil, nil, 1); err == nil {
		t.Fatal("expected an error for no rows")
	}
	if _, err := FitRegressor([][]float64{{1}}, []float64{1, 2}, 1); err == nil {
		t.Fatal("expected an error for mismatched targets")
	}
	if _, err := FitRegressor([][]float64{{1}}, []float64{1}, -1); err == nil {
		t.Fatal("expected an error for a negative lambda")
	}
	if _, err := FitRegressor([][]float64{{1, 2}, {3}}, []float64{1, 2}, 1); err == nil {
		t.Fatal("expected an error for ragged rows")
	}
}

func TestRegressionMetrics(t *testing.T) {
	actual := []float64{1, 2, 3, 4}

	if got := rSquared(actual, actual); got != 1 {
		t.Fatalf("perfect fit r2 = %v, expected 1", got)
	}

	predicted := []float64{2, 3, 4, 5}
	if got := meanAbsoluteError(actual, predicted); got != 1 {
		t.Fatalf("mae = %v, expected 1", got)
	}
	if got := rootMeanSquaredError(actual, predicted); got != 1 {
		t.Fatalf("rmse = %v, expected 1", got)
	}

	// A constant target has no variance to explain.
	constant := []float64{7, 7, 7}
	if got := rSquared(constant, []float64{7, 7, 7}); got != 0 {
		t.Fatalf("constant-target r2 = %v, expected 0", got)
	}
}
