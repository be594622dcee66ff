package svm

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/core/model"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

var _ model.Classifier = (*SVC)(nil)

func clusters(nPerClass int, centers [][2]float64, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	n := nPerClass * len(centers)
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for c, center := range centers {
		for i := 0; i < nPerClass; i++ {
			row := c*nPerClass + i
			X.Set(row, 0, center[0]+0.3*rng.NormFloat64())
			X.Set(row, 1, center[1]+0.3*rng.NormFloat64())
			y.Set(row, 0, float64(c))
		}
	}
	return X, y
}

func TestSVC_LinearKernelSeparable(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{-2, -1, 1, 2})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	s := NewSVC(WithKernel(KernelLinear), WithSVCC(10))
	require.NoError(t, s.Fit(X, y))

	scores, err := s.DecisionFunction(mat.NewDense(3, 1, []float64{-1.5, 0, 1.5}))
	require.NoError(t, err)
	assert.Less(t, scores.At(0, 0), 0.0)
	assert.InDelta(t, 0.0, scores.At(1, 0), 1e-6)
	assert.Greater(t, scores.At(2, 0), 0.0)

	// The margin passes through ±1 and ∓1 so both are support vectors.
	assert.Equal(t, []int{2}, s.NSupport())
}

func TestSVC_DefaultPolyKernel(t *testing.T) {
	// An even-degree kernel without coef0 separates by magnitude.
	X, y := clusters(20, [][2]float64{{0, 0}, {2, 2}}, 1)
	s := NewSVC()
	require.NoError(t, s.Fit(X, y))

	assert.Greater(t, s.Gamma(), 0.0)
	score, err := s.Score(X, y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.9)

	probas, err := s.PredictProba(X)
	require.NoError(t, err)
	rows, cols := probas.Dims()
	require.Equal(t, 2, cols)
	for i := 0; i < rows; i++ {
		assert.InDelta(t, 1.0, probas.At(i, 0)+probas.At(i, 1), 1e-12)
	}
}

func TestSVC_MulticlassRBF(t *testing.T) {
	X, y := clusters(15, [][2]float64{{0, 0}, {4, 0}, {0, 4}}, 2)
	s := NewSVC(WithKernel(KernelRBF), WithSVCClassWeight("balanced"))
	require.NoError(t, s.Fit(X, y))
	assert.Equal(t, []int{0, 1, 2}, s.Classes())
	assert.Len(t, s.NSupport(), 3)

	pred, err := s.Predict(mat.NewDense(3, 2, []float64{0, 0, 4, 0, 0, 4}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, mat.Col(nil, 0, pred))

	probas, err := s.PredictProba(X)
	require.NoError(t, err)
	rows, _ := probas.Dims()
	for i := 0; i < rows; i++ {
		assert.InDelta(t, 1.0, mat.Sum(probas.(*mat.Dense).RowView(i)), 1e-9)
	}
}

func TestSVC_ConvergenceWarning(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	X, y := clusters(10, [][2]float64{{0, 0}, {0.2, 0.2}}, 3)
	s := NewSVC(WithKernel(KernelRBF), WithSVCMaxIter(1))
	require.NoError(t, s.Fit(X, y))

	require.NotEmpty(t, warnings)
	var cw *errors.ConvergenceWarning
	assert.True(t, errors.As(warnings[0], &cw))
}

func TestSVC_Errors(t *testing.T) {
	s := NewSVC()
	_, err := s.Predict(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	X, y := clusters(5, [][2]float64{{0, 0}, {3, 3}}, 4)
	var ve *errors.ValidationError
	assert.True(t, errors.As(NewSVC(WithKernel("sigmoid")).Fit(X, y), &ve))
	assert.True(t, errors.As(NewSVC(WithSVCC(0)).Fit(X, y), &ve))
	assert.True(t, errors.As(NewSVC(WithDegree(0)).Fit(X, y), &ve))

	single := mat.NewDense(10, 1, nil)
	assert.Error(t, NewSVC().Fit(X, single))
}

func TestScaleGamma(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{0, 0, 2, 2})
	// population variance of {0, 0, 2, 2} is 1
	assert.InDelta(t, 0.5, scaleGamma(X), 1e-12)
	assert.Equal(t, 1.0, scaleGamma(mat.NewDense(2, 1, []float64{3, 3})))
	assert.False(t, math.IsNaN(scaleGamma(X)))
}
