package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func vec(values ...float64) mat.Matrix {
	if len(values) == 0 {
		return &mat.Dense{}
	}
	return mat.NewVecDense(len(values), values)
}

func TestAccuracy(t *testing.T) {
	yTrue := vec(0, 1, 2, 1, 0)

	acc, err := Accuracy(yTrue, vec(0, 1, 1, 1, 0))
	require.NoError(t, err)
	assert.InDelta(t, 0.8, acc, 1e-12)

	acc, err = Accuracy(vec(0, 0, 0), vec(1, 1, 1))
	require.NoError(t, err)
	assert.Zero(t, acc)

	_, err = Accuracy(vec(), vec())
	assert.Error(t, err)
	_, err = Accuracy(vec(0, 1), vec(0))
	assert.Error(t, err)
}

func TestAUC(t *testing.T) {
	cases := map[string]struct {
		yTrue, yScore mat.Matrix
		want          float64
	}{
		"separable":     {vec(0, 0, 0, 1, 1, 1), vec(.1, .2, .3, .7, .8, .9), 1},
		"inverted":      {vec(0, 0, 0, 1, 1, 1), vec(.9, .8, .7, .3, .2, .1), 0},
		"all ties":      {vec(0, 1, 0, 1), vec(.5, .5, .5, .5), 0.5},
		"one swap":      {vec(0, 0, 1, 1), vec(.1, .4, .35, .8), 0.75},
		"single class":  {vec(1, 1, 1), vec(.1, .4, .8), 0.5},
		"first column":  {mat.NewDense(4, 2, []float64{0, 9, 0, 9, 1, 9, 1, 9}), mat.NewDense(4, 2, []float64{.1, 9, .4, 9, .35, 9, .8, 9}), 0.75},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := AUC(tc.yTrue, tc.yScore)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-12)
		})
	}

	_, err := AUC(vec(0, 0.5, 1), vec(.1, .5, .9))
	assert.Error(t, err, "labels must be binary")
	_, err = AUC(nil, vec(.5))
	assert.Error(t, err)
	_, err = AUC(vec(0, 1), vec(.5))
	assert.Error(t, err)
}

func TestBinaryLogLoss(t *testing.T) {
	got, err := BinaryLogLoss(vec(0, 0, 1, 1), vec(.1, .2, .8, .9))
	require.NoError(t, err)
	assert.InDelta(t, 0.164252, got, 1e-5)

	got, err = BinaryLogLoss(vec(0, 1), vec(0, 1))
	require.NoError(t, err)
	assert.InDelta(t, 0, got, 1e-12, "probabilities are clipped away from 0 and 1")

	got, err = BinaryLogLoss(vec(0, 0, 1, 1), vec(.9, .9, .1, .1))
	require.NoError(t, err)
	assert.InDelta(t, 2.302585, got, 1e-5)

	_, err = BinaryLogLoss(vec(0, 2), vec(.1, .9))
	assert.Error(t, err)
}
