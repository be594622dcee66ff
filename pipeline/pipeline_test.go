package pipeline

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/xaibench/core/model"
	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/preprocessing"
)

// incomeFrame builds rows where "high" income follows a large age and the
// "exec" occupation.
func incomeFrame(t *testing.T, n int) (*frame.Frame, *frame.Column) {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	age := make([]float64, n)
	hours := make([]float64, n)
	job := make([]string, n)
	income := make([]string, n)
	for i := 0; i < n; i++ {
		high := i%2 == 0
		if high {
			age[i] = 50 + rng.Float64()*10
			job[i] = "exec"
			income[i] = ">50K"
		} else {
			age[i] = 20 + rng.Float64()*10
			job[i] = "clerk"
			income[i] = "<=50K"
		}
		hours[i] = 40 + rng.NormFloat64()
	}
	job[1] = ""
	f, err := frame.New(
		frame.NewNumeric("age", age),
		frame.NewNumeric("hours", hours),
		frame.NewCategorical("job", job),
	)
	require.NoError(t, err)
	return f, frame.NewCategorical("income", income)
}

func newPipeline(t *testing.T, X *frame.Frame, a Algorithm) *Pipeline {
	t.Helper()
	num, cat := X.DivideFeatures()
	p, err := New(preprocessing.NewColumnTransformer(num, cat), a)
	require.NoError(t, err)
	return p
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in   string
		want Algorithm
	}{
		{"LOGISTIC_REGRESSION", LogisticRegression},
		{"decision_tree", DecisionTree},
		{"random-forest", RandomForest},
		{" XGB ", XGB},
		{"LINEAR_REGRESSION", LinearRegression},
		{"svm", SVM},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseAlgorithm("KNN")
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "UNKNOWN", Algorithm(42).String())
}

func TestTypeFor(t *testing.T) {
	assert.Equal(t, Classification, TypeFor(frame.NewCategorical("y", []string{"a"})))
	assert.Equal(t, Regression, TypeFor(frame.NewNumeric("y", []float64{1})))
	assert.Equal(t, "CLASSIFICATION/SVM", ModelType{Classification, SVM}.String())
}

func TestNewUnsupportedAlgorithm(t *testing.T) {
	_, err := New(preprocessing.NewColumnTransformer(nil, nil), Algorithm(99))
	assert.True(t, errors.Is(err, errors.ErrNotImplemented))
}

func TestNewEstimators(t *testing.T) {
	for _, a := range Algorithms() {
		p, err := New(preprocessing.NewColumnTransformer([]string{"x"}, nil), a)
		require.NoError(t, err, a.String())
		_, isClassifier := p.Estimator().(model.Classifier)
		assert.Equal(t, a.IsClassifier(), isClassifier, a.String())
	}
}

func TestPipelineClassifiers(t *testing.T) {
	X, y := incomeFrame(t, 40)
	for _, a := range []Algorithm{LogisticRegression, DecisionTree, RandomForest, XGB} {
		t.Run(a.String(), func(t *testing.T) {
			p := newPipeline(t, X, a)
			require.NoError(t, p.Fit(X, y))
			assert.Equal(t, []string{"<=50K", ">50K"}, p.Classes())
			assert.Equal(t, Classification, p.ProblemType())

			pred, err := p.Predict(X)
			require.NoError(t, err)
			assert.Equal(t, "income", pred.Name())
			correct := 0
			for i, label := range pred.Strings() {
				if label == y.Strings()[i] {
					correct++
				}
			}
			assert.GreaterOrEqual(t, float64(correct)/40, 0.9)

			probas, err := p.PredictProba(X.Head(3))
			require.NoError(t, err)
			r, c := probas.Dims()
			assert.Equal(t, 3, r)
			assert.Equal(t, 2, c)
		})
	}
}

func TestPipelineSVM(t *testing.T) {
	X, y := incomeFrame(t, 30)
	p := newPipeline(t, X, SVM)
	require.NoError(t, p.Fit(X, y))
	pred, err := p.Predict(X)
	require.NoError(t, err)
	for _, label := range pred.Strings() {
		assert.Contains(t, p.Classes(), label)
	}
}

func TestPipelineFeatureNames(t *testing.T) {
	X, y := incomeFrame(t, 10)
	p := newPipeline(t, X, DecisionTree)
	require.NoError(t, p.Fit(X, y))

	assert.Equal(t, []string{"age", "hours", "job__clerk", "job__exec", "job__missing"}, p.FeatureNames())
	assert.Equal(t, []string{"job__clerk", "job__exec", "job__missing"}, p.OneHotFeatures())

	enc, err := p.EncodeTarget(y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, enc.At(0, 0))
	assert.Equal(t, 0.0, enc.At(1, 0))
	assert.Equal(t, ">50K", p.ClassLabel(1))
}

func TestPipelineRegression(t *testing.T) {
	n := 20
	x := make([]float64, n)
	target := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
		target[i] = 3*float64(i) + 1
	}
	X, err := frame.New(frame.NewNumeric("x", x))
	require.NoError(t, err)
	y := frame.NewNumeric("price", target)

	p := newPipeline(t, X, LinearRegression)
	require.NoError(t, p.Fit(X, y))
	assert.Equal(t, Regression, p.ProblemType())
	assert.Nil(t, p.Classes())

	pred, err := p.Predict(X)
	require.NoError(t, err)
	assert.True(t, pred.IsNumeric())
	assert.InDelta(t, 31.0, pred.Floats()[10], 1e-8)

	_, err = p.PredictProba(X)
	var valErr *errors.ValueError
	assert.True(t, errors.As(err, &valErr))
}

func TestPipelineErrors(t *testing.T) {
	X, y := incomeFrame(t, 10)

	p := newPipeline(t, X, LogisticRegression)
	_, err := p.Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	assert.True(t, errors.Is(p.Fit(X, nil), errors.ErrNoTarget))

	var dimErr *errors.DimensionError
	assert.True(t, errors.As(p.Fit(X, y.Head(3)), &dimErr))

	reg := newPipeline(t, X, LinearRegression)
	var ve *errors.ValidationError
	assert.True(t, errors.As(reg.Fit(X, y), &ve))

	missing := frame.NewCategorical("income", append([]string{""}, y.Strings()[1:]...))
	assert.True(t, errors.As(p.Fit(X, missing), &ve))

}
