package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})
	s := NewStandardScalerDefault()

	_, err := s.Transform(X)
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))

	out, err := s.FitTransform(X)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, s.Mean[0], 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), s.Scale[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1], "constant feature keeps unit scale")
	assert.InDelta(t, -1.5/math.Sqrt(1.25), out.At(0, 0), 1e-12)
	assert.Equal(t, 0.0, out.At(0, 1))

	back, err := s.InverseTransform(out)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))

	_, err = s.Transform(mat.NewDense(1, 3, nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestMinMaxScaler(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{2, 4, 6})
	m := NewMinMaxScalerDefault()
	out, err := m.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, mat.Col(nil, 0, out))

	back, err := m.InverseTransform(out)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))

	assert.Error(t, NewMinMaxScaler([2]float64{1, 0}).Fit(X))
}

func TestSimpleImputer(t *testing.T) {
	nan := math.NaN()
	X := mat.NewDense(4, 2, []float64{
		1, nan,
		nan, 2,
		3, 2,
		10, 5,
	})

	tests := []struct {
		strategy string
		want     []float64
	}{
		{StrategyMedian, []float64{3, 2}},
		{StrategyMean, []float64{14.0 / 3, 3}},
		{StrategyMostFrequent, []float64{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			imp := NewSimpleImputer(WithStrategy(tt.strategy))
			out, err := imp.FitTransform(X)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, imp.Statistics, 1e-12)
			assert.InDelta(t, tt.want[0], out.At(1, 0), 1e-12)
			assert.InDelta(t, tt.want[1], out.At(0, 1), 1e-12)
		})
	}

	constant := NewSimpleImputer(WithStrategy(StrategyConstant), WithFillValue(-1))
	out, err := constant.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, -1.0, out.At(0, 1))

	assert.Error(t, NewSimpleImputer(WithStrategy("nope")).Fit(X))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
}

func TestOneHotEncoderIgnoresUnknown(t *testing.T) {
	train := []*frame.Column{
		frame.NewCategorical("color", []string{"red", "blue", "red"}),
		frame.NewCategorical("size", []string{"S", "L", "M"}),
	}
	enc := NewOneHotEncoder()
	require.NoError(t, enc.Fit(train))

	assert.Equal(t, []string{
		"color__blue", "color__red",
		"size__L", "size__M", "size__S",
	}, enc.FeatureNames())

	out, err := enc.Transform([]*frame.Column{
		frame.NewCategorical("color", []string{"green"}),
		frame.NewCategorical("size", []string{"M"}),
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 1, 0}, mat.Row(nil, 0, out))

	assert.Error(t, enc.Fit([]*frame.Column{frame.NewNumeric("x", []float64{1})}))
}

func TestLabelEncoder(t *testing.T) {
	le := NewLabelEncoder()
	codes, err := le.FitTransform([]string{">50K", "<=50K", ">50K"})
	require.NoError(t, err)
	assert.Equal(t, []string{"<=50K", ">50K"}, le.Classes())
	assert.Equal(t, []int{1, 0, 1}, codes)

	labels, err := le.InverseTransform([]int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"<=50K", ">50K"}, labels)

	_, err = le.Transform([]string{"unknown"})
	assert.Error(t, err)
	_, err = le.InverseTransform([]int{2})
	assert.Error(t, err)
}

func TestColumnTransformer(t *testing.T) {
	nan := math.NaN()
	f, err := frame.New(
		frame.NewNumeric("age", []float64{20, 40, nan, 60}),
		frame.NewCategorical("workclass", []string{"Private", "", "State-gov", "Private"}),
	)
	require.NoError(t, err)

	ct := NewColumnTransformer([]string{"age"}, []string{"workclass"})
	X, err := ct.FitTransform(f)
	require.NoError(t, err)

	assert.Equal(t, []string{"age", "workclass__Private", "workclass__State-gov", "workclass__missing"}, ct.FeatureNames())
	assert.Equal(t, []string{"workclass__Private", "workclass__State-gov", "workclass__missing"}, ct.OneHotFeatures())
	assert.Equal(t, []string{"Private", "State-gov", "missing"}, ct.Categories("workclass"))

	r, c := X.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 4, c)
	assert.InDelta(t, 0.0, X.At(2, 0), 1e-12, "median-imputed age scales to the mean")
	assert.Equal(t, []float64{0, 0, 1}, mat.Row(nil, 1, X)[1:])

	_, err = ct.Transform(f.Head(0))
	assert.NoError(t, err)

	minmax := NewColumnTransformer([]string{"age"}, nil, WithScaling(ScalingMinMax))
	X, err = minmax.FitTransform(f)
	require.NoError(t, err)
	assert.Equal(t, 0.0, X.At(0, 0))
	assert.Equal(t, 1.0, X.At(3, 0))
}
