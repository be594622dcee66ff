package linear_model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLinearRegression_Fit(t *testing.T) {
	// y = 1 + 2·x1 - 3·x2
	X := mat.NewDense(5, 2, []float64{
		1, 1,
		2, 0,
		3, 4,
		4, 1,
		5, 2,
	})
	y := mat.NewDense(5, 1, nil)
	for i := 0; i < 5; i++ {
		y.Set(i, 0, 1+2*X.At(i, 0)-3*X.At(i, 1))
	}

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	assert.InDeltaSlice(t, []float64{2, -3}, lr.Coef(), 1e-9)
	assert.InDelta(t, 1.0, lr.Intercept(), 1e-9)

	score, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-12)
}

func TestLinearRegression_RankDeficient(t *testing.T) {
	// Two one-hot columns always sum to one.
	X := mat.NewDense(4, 2, []float64{
		1, 0,
		0, 1,
		1, 0,
		0, 1,
	})
	y := mat.NewDense(4, 1, []float64{3, 5, 3, 5})

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	assert.Equal(t, 1, lr.Rank())

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(y, pred, 1e-9))
	assert.InDelta(t, -lr.Coef()[0], lr.Coef()[1], 1e-9, "minimum-norm solution is symmetric")
}

func TestLinearRegression_NoIntercept(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{2, 4, 6})

	lr := NewLinearRegression(WithFitIntercept(false))
	require.NoError(t, lr.Fit(X, y))
	assert.InDelta(t, 2.0, lr.Coef()[0], 1e-12)
	assert.Equal(t, 0.0, lr.Intercept())

	w := lr.Weights()
	require.NoError(t, w.Validate())

	_, err := lr.Predict(mat.NewDense(1, 2, nil))
	assert.Error(t, err)
}

func TestRidge_WeightedFit(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 1, 2, 30})

	unweighted := NewRidge(WithAlpha(0))
	require.NoError(t, unweighted.Fit(X, y))

	// Zero weight on the outlier recovers y = x exactly.
	weighted := NewRidge(WithAlpha(0))
	require.NoError(t, weighted.FitWeighted(X, y, []float64{1, 1, 1, 0}))
	assert.InDelta(t, 1.0, weighted.Coef()[0], 1e-9)
	assert.InDelta(t, 0.0, weighted.Intercept(), 1e-9)
	assert.Greater(t, unweighted.Coef()[0], 1.5)

	score, err := weighted.Score(X, y, []float64{1, 1, 1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)

	assert.Error(t, weighted.FitWeighted(X, y, []float64{1}))
}

func TestRidge_ShrinksCoefficients(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 1, 2, 3})

	weak := NewRidge(WithAlpha(0.01))
	strong := NewRidge(WithAlpha(100))
	require.NoError(t, weak.Fit(X, y))
	require.NoError(t, strong.Fit(X, y))
	assert.Less(t, strong.Coef()[0], weak.Coef()[0])
	assert.Greater(t, strong.Coef()[0], 0.0)
}
