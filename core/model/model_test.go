package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

func TestStateManager(t *testing.T) {
	s := NewStateManager("Ridge")
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("Predict")
	require.Error(t, err)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, "Ridge", nf.ModelName)

	s.SetDimensions(3, 10)
	s.SetFitted()
	assert.NoError(t, s.RequireFitted("Predict"))
	assert.NoError(t, s.CheckFeatures("Predict", mat.NewDense(2, 3, nil)))
	assert.Error(t, s.CheckFeatures("Predict", mat.NewDense(2, 4, nil)))

	s.Reset()
	nFeatures, nSamples := s.GetDimensions()
	assert.False(t, s.IsFitted())
	assert.Zero(t, nFeatures)
	assert.Zero(t, nSamples)
}

func TestModelWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		weights ModelWeights
		wantErr bool
	}{
		{
			name: "valid binary",
			weights: ModelWeights{
				ModelType:    "LogisticRegression",
				Coefficients: [][]float64{{0.5, -1}},
				Intercepts:   []float64{0.1},
				Features:     []string{"age", "hours"},
			},
		},
		{
			name:    "missing type",
			weights: ModelWeights{Coefficients: [][]float64{{1}}, Intercepts: []float64{0}},
			wantErr: true,
		},
		{
			name:    "no coefficients",
			weights: ModelWeights{ModelType: "LinearRegression"},
			wantErr: true,
		},
		{
			name: "ragged rows",
			weights: ModelWeights{
				ModelType:    "LogisticRegression",
				Coefficients: [][]float64{{1, 2}, {1}},
				Intercepts:   []float64{0, 0},
			},
			wantErr: true,
		},
		{
			name: "feature names mismatch",
			weights: ModelWeights{
				ModelType:    "LinearRegression",
				Coefficients: [][]float64{{1, 2}},
				Intercepts:   []float64{0},
				Features:     []string{"a"},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestModelWeightsCloneAndJSON(t *testing.T) {
	mw := &ModelWeights{
		ModelType:    "LogisticRegression",
		Coefficients: [][]float64{{1, 2}, {3, 4}, {5, 6}},
		Intercepts:   []float64{0, 1, 2},
		Classes:      []int{0, 1, 2},
		Features:     []string{"x1", "x2"},
	}

	clone := mw.Clone()
	clone.Coefficients[0][0] = 99
	assert.Equal(t, 1.0, mw.Coefficients[0][0])

	data, err := mw.ToJSON()
	require.NoError(t, err)
	var decoded ModelWeights
	require.NoError(t, decoded.FromJSON(data))
	assert.Equal(t, mw, &decoded)
}
