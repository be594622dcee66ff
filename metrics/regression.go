// Package metrics scores predictions: regression errors, classification
// accuracy and per-class reports.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

// pair extracts the first column of yTrue and yPred and checks they are
// non-empty and equally long.
func pair(op string, yTrue, yPred mat.Matrix) ([]float64, []float64, error) {
	if yTrue == nil || yPred == nil {
		return nil, nil, errors.NewValueError(op, "nil input")
	}
	if isEmpty(yTrue) || isEmpty(yPred) {
		return nil, nil, errors.NewValueError(op, "empty vector")
	}
	n, _ := yTrue.Dims()
	m, _ := yPred.Dims()
	if n != m {
		return nil, nil, errors.NewDimensionError(op, n, m, 0)
	}
	return mat.Col(nil, 0, yTrue), mat.Col(nil, 0, yPred), nil
}

func isEmpty(m mat.Matrix) bool {
	if d, ok := m.(*mat.Dense); ok && d.IsEmpty() {
		return true
	}
	if v, ok := m.(*mat.VecDense); ok && v.IsEmpty() {
		return true
	}
	r, c := m.Dims()
	return r == 0 || c == 0
}

// MSE is the mean squared error.
func MSE(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := pair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range t {
		d := t[i] - p[i]
		sum += d * d
	}
	return sum / float64(len(t)), nil
}

// RMSE is the square root of MSE.
func RMSE(yTrue, yPred mat.Matrix) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE is the mean absolute error.
func MAE(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := pair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range t {
		sum += math.Abs(t[i] - p[i])
	}
	return sum / float64(len(t)), nil
}

// R2Score is the coefficient of determination. A constant yTrue is an error.
func R2Score(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := pair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	mean := stat.Mean(t, nil)
	var tss, rss float64
	for i := range t {
		tss += (t[i] - mean) * (t[i] - mean)
		rss += (t[i] - p[i]) * (t[i] - p[i])
	}
	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}
