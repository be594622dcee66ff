package linear_model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

func separableBinary() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		0.8, 1.2,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
		3.2, 2.8,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})
	return X, y
}

func TestLogisticRegression_FitPredict_Binary(t *testing.T) {
	X, y := separableBinary()
	lr := NewLogisticRegression(WithLRRandomState(33), WithLRMaxIter(500))
	require.NoError(t, lr.Fit(X, y))

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(y, pred), "training data is separable")

	testPreds, err := lr.Predict(mat.NewDense(2, 2, []float64{1, 1, 3, 3}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, testPreds.At(0, 0))
	assert.Equal(t, 1.0, testPreds.At(1, 0))

	score, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
	assert.Equal(t, []int{0, 1}, lr.Classes())
}

func TestLogisticRegression_PredictProba(t *testing.T) {
	X, y := separableBinary()
	lr := NewLogisticRegression(WithLRRandomState(33))
	require.NoError(t, lr.Fit(X, y))

	proba, err := lr.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	assert.Equal(t, 8, r)
	assert.Equal(t, 2, c)
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-12)
	}
	assert.Greater(t, proba.At(6, 1), 0.5)
	assert.Less(t, proba.At(0, 1), 0.5)
}

func TestLogisticRegression_Multiclass(t *testing.T) {
	X := mat.NewDense(9, 2, []float64{
		0, 0, 0.2, 0.1, 0.1, 0.3,
		5, 0, 5.2, 0.1, 4.9, 0.3,
		0, 5, 0.2, 5.1, 0.1, 4.8,
	})
	y := mat.NewDense(9, 1, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2})

	lr := NewLogisticRegression(WithLRRandomState(33), WithLRClassWeight("balanced"), WithLRMaxIter(500))
	require.NoError(t, lr.Fit(X, y))

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(y, pred))

	w := lr.Weights()
	require.NotNil(t, w)
	require.NoError(t, w.Validate())
	assert.Len(t, w.Coefficients, 3)
	assert.Equal(t, []int{0, 1, 2}, w.Classes)

	proba, err := lr.PredictProba(X)
	require.NoError(t, err)
	for i := 0; i < 9; i++ {
		assert.InDelta(t, 1.0, mat.Sum(proba.(*mat.Dense).RowView(i)), 1e-9)
	}
}

func TestLogisticRegression_Errors(t *testing.T) {
	lr := NewLogisticRegression()

	_, err := lr.Predict(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	X, _ := separableBinary()
	err = lr.Fit(X, mat.NewDense(8, 1, nil))
	assert.Error(t, err, "a single class cannot be fitted")

	err = lr.Fit(X, mat.NewDense(7, 1, nil))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	assert.Error(t, NewLogisticRegression(WithLRC(0)).Fit(X, mat.NewDense(8, 1, []float64{0, 1, 0, 1, 0, 1, 0, 1})))
}

func TestLogisticRegression_Reproducible(t *testing.T) {
	X, y := separableBinary()
	a := NewLogisticRegression(WithLRRandomState(33))
	b := NewLogisticRegression(WithLRRandomState(33))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	assert.Equal(t, a.Weights(), b.Weights())
}

func TestSigmoidAndSoftplusAreStable(t *testing.T) {
	assert.Equal(t, 1.0, sigmoid(1000))
	assert.Equal(t, 0.0, sigmoid(-1000))
	assert.InDelta(t, math.Log(2), softplus(0), 1e-12)
	assert.Equal(t, 1000.0, softplus(1000))
}
