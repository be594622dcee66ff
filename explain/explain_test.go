package explain

import (
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/pipeline"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/pkg/log"
	"github.com/YuminosukeSato/xaibench/preprocessing"
)

// incomeData returns rows where a high income follows a large age and the
// "exec" job. hours is noise.
func incomeData(t *testing.T, n int) (*frame.Frame, *frame.Column) {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 7))
	age := make([]float64, n)
	hours := make([]float64, n)
	job := make([]string, n)
	income := make([]string, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
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
	X, err := frame.New(
		frame.NewNumeric("age", age),
		frame.NewNumeric("hours", hours),
		frame.NewCategorical("job", job),
	)
	require.NoError(t, err)
	return X, frame.NewCategorical("income", income)
}

func fitted(t *testing.T, X *frame.Frame, y *frame.Column, a pipeline.Algorithm) *pipeline.Pipeline {
	t.Helper()
	num, cat := X.DivideFeatures()
	p, err := pipeline.New(preprocessing.NewColumnTransformer(num, cat), a)
	require.NoError(t, err)
	require.NoError(t, p.Fit(X, y))
	return p
}

func TestPercentileMatchesLinearInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, percentile(sorted, 25), 1e-12)
	assert.InDelta(t, 2.5, percentile(sorted, 50), 1e-12)
	assert.InDelta(t, 3.25, percentile(sorted, 75), 1e-12)
	assert.Equal(t, 5.0, percentile([]float64{5}, 50))
}

func TestQuartileDiscretizer(t *testing.T) {
	data := mat.NewDense(4, 2, []float64{
		1, 0,
		2, 1,
		3, 0,
		4, 1,
	})
	d := newQuartileDiscretizer(data, []int{0}, []string{"x", "flag"})

	assert.Equal(t, []float64{1.75, 2.5, 3.25}, d.thresholds[0])
	assert.Equal(t, "x <= 1.75", d.featureLabel(0, 0))
	assert.Equal(t, "1.75 < x <= 2.50", d.featureLabel(0, 1))
	assert.Equal(t, "x > 3.25", d.featureLabel(0, 3))
	assert.True(t, d.isContinuous(0))
	assert.False(t, d.isContinuous(1))

	row := []float64{2.5, 1}
	d.discretize(row)
	assert.Equal(t, []float64{1, 1}, row, "a value on a threshold falls in the lower bin")

	src := rand.NewPCG(1, 1)
	for i := 0; i < 50; i++ {
		row := []float64{1, 0}
		d.undiscretize(row, src)
		assert.GreaterOrEqual(t, row[0], 1.75)
		assert.LessOrEqual(t, row[0], 2.5)
		assert.Equal(t, 0.0, row[1])
	}
}

func TestQuartileDiscretizerConstantFeature(t *testing.T) {
	data := mat.NewDense(3, 1, []float64{2, 2, 2})
	d := newQuartileDiscretizer(data, []int{0}, []string{"c"})
	assert.Equal(t, []float64{2}, d.thresholds[0])
	assert.Equal(t, []string{"c <= 2.00", "c > 2.00"}, d.names[0])
}

func TestLimeFormatRoundTrip(t *testing.T) {
	X, y := incomeData(t, 40)
	p := fitted(t, X, y, pipeline.LogisticRegression)
	lf := NewLimeFormat(X, p.Preprocessor())

	assert.Equal(t, []string{"age", "hours", "job"}, lf.Columns())
	assert.Equal(t, []int{2}, lf.CategoricalFeatures())
	assert.False(t, lf.IsCategorical(0))

	data, err := lf.ToLime(X)
	require.NoError(t, err)
	back, err := lf.FromLime(data)
	require.NoError(t, err)
	for _, name := range X.Names() {
		want, _ := X.Column(name)
		got, _ := back.Column(name)
		for i := 0; i < X.Len(); i++ {
			assert.Equal(t, want.Cell(i), got.Cell(i), "%s[%d]", name, i)
		}
	}
}

func TestLimeFormatUnknownAndMissing(t *testing.T) {
	X, y := incomeData(t, 40)
	p := fitted(t, X, y, pipeline.LogisticRegression)
	lf := NewLimeFormat(X, p.Preprocessor())

	odd, err := frame.New(
		frame.NewNumeric("age", []float64{math.NaN()}),
		frame.NewNumeric("hours", []float64{40}),
		frame.NewCategorical("job", []string{"pilot"}),
	)
	require.NoError(t, err)
	data, err := lf.ToLime(odd)
	require.NoError(t, err)
	assert.Equal(t, -1.0, data.At(0, 2))
	assert.False(t, math.IsNaN(data.At(0, 0)))

	back, err := lf.FromLime(data)
	require.NoError(t, err)
	job, _ := back.Column("job")
	assert.True(t, job.IsMissing(0))

	narrow, err := X.Select("age")
	require.NoError(t, err)
	_, err = lf.ToLime(narrow)
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestExplainInstanceClassification(t *testing.T) {
	X, y := incomeData(t, 120)
	p := fitted(t, X, y, pipeline.LogisticRegression)

	logger, _ := log.NewTestLogger(log.LevelDebug)
	exp, err := ExplainInstance(p, X, y, 3, WithNumSamples(500), WithLimeLogger(logger))
	require.NoError(t, err)

	assert.Equal(t, ModeClassification, exp.Mode)
	assert.Equal(t, 3, exp.Example)
	assert.Equal(t, y.Cell(3), exp.Actual)
	assert.Equal(t, "<=50K", exp.Predicted)
	assert.Equal(t, ">50K", exp.Label, "class index 1 is explained whatever the prediction")
	assert.Len(t, exp.Contributions, 2, "one contribution per numeric feature")
	for i := 1; i < len(exp.Contributions); i++ {
		assert.GreaterOrEqual(t, math.Abs(exp.Contributions[i-1].Weight), math.Abs(exp.Contributions[i].Weight))
	}
	for _, c := range exp.Contributions {
		assert.Contains(t, c.Condition, c.Feature)
	}

	total := 0.0
	for _, v := range exp.Probabilities {
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.InDelta(t, exp.Probabilities[exp.Label], exp.ModelPrediction, 1e-12)

	assert.True(t, logger.ContainsMessage("Example 3's data"))
	assert.True(t, logger.ContainsMessage("Example 3's actual result"))
	assert.NotEmpty(t, exp.String())
}

func TestExplainInstanceIsDeterministic(t *testing.T) {
	X, y := incomeData(t, 80)
	p := fitted(t, X, y, pipeline.DecisionTree)

	a, err := ExplainInstance(p, X, y, 0, WithNumSamples(300))
	require.NoError(t, err)
	b, err := ExplainInstance(p, X, y, 0, WithNumSamples(300))
	require.NoError(t, err)
	assert.Equal(t, a.Contributions, b.Contributions)
	assert.Equal(t, a.Intercept, b.Intercept)
}

func TestExplainerLabelAndFeatures(t *testing.T) {
	X, y := incomeData(t, 80)
	p := fitted(t, X, y, pipeline.LogisticRegression)

	e, err := NewExplainer(p, X, WithNumSamples(300), WithNumFeatures(3), WithLabel(0))
	require.NoError(t, err)
	exp, err := e.Explain(X.Take([]int{0}))
	require.NoError(t, err)
	assert.Equal(t, p.ClassLabel(0), exp.Label)
	assert.Len(t, exp.Contributions, 3)

	// Row 1 is predicted "<=50K" (class 0). The default explains class 1, so
	// a large age pushes up; explaining the prediction flips the sign.
	row := X.Take([]int{1})
	e, err = NewExplainer(p, X, WithNumSamples(300), WithNumFeatures(1))
	require.NoError(t, err)
	byDefault, err := e.Explain(row)
	require.NoError(t, err)
	require.Equal(t, "<=50K", byDefault.Predicted)
	assert.Equal(t, ">50K", byDefault.Label)

	e, err = NewExplainer(p, X, WithNumSamples(300), WithNumFeatures(1), WithLabel(-1))
	require.NoError(t, err)
	byPrediction, err := e.Explain(row)
	require.NoError(t, err)
	assert.Equal(t, "<=50K", byPrediction.Label)
	require.Len(t, byDefault.Contributions, 1)
	require.Len(t, byPrediction.Contributions, 1)
	assert.Equal(t, byDefault.Contributions[0].Feature, byPrediction.Contributions[0].Feature)
	assert.Less(t, byDefault.Contributions[0].Weight*byPrediction.Contributions[0].Weight, 0.0)
	assert.InDelta(t, 1, byDefault.ModelPrediction+byPrediction.ModelPrediction, 1e-9)

	e, err = NewExplainer(p, X, WithNumSamples(300), WithLabel(5))
	require.NoError(t, err)
	_, err = e.Explain(X.Take([]int{0}))
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestExplainInstanceRegression(t *testing.T) {
	X, _ := incomeData(t, 60)
	age, _ := X.Column("age")
	target := make([]float64, X.Len())
	for i, v := range age.Floats() {
		target[i] = 2*v + 1
	}
	y := frame.NewNumeric("score", target)
	p := fitted(t, X, y, pipeline.LinearRegression)

	exp, err := ExplainInstance(p, X, y, 1, WithNumSamples(400))
	require.NoError(t, err)
	assert.Equal(t, ModeRegression, exp.Mode)
	assert.Equal(t, "score", exp.Label)
	assert.Nil(t, exp.Probabilities)
	assert.Equal(t, "age", exp.Contributions[0].Feature)
}

func TestExplainInstanceErrors(t *testing.T) {
	X, y := incomeData(t, 40)
	p := fitted(t, X, y, pipeline.LogisticRegression)

	_, err := ExplainInstance(p, X, y, 40)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = ExplainInstance(p, nil, y, 0)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	num, cat := X.DivideFeatures()
	unfitted, err := pipeline.New(preprocessing.NewColumnTransformer(num, cat), pipeline.LogisticRegression)
	require.NoError(t, err)
	_, err = ExplainInstance(unfitted, X, y, 0)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	_, err = NewExplainer(p, X, WithNumSamples(1))
	assert.True(t, errors.As(err, &ve))
}

func TestInterpretModelLinear(t *testing.T) {
	X, y := incomeData(t, 80)
	p := fitted(t, X, y, pipeline.LogisticRegression)

	w, err := InterpretModel(p)
	require.NoError(t, err)
	assert.Equal(t, KindCoefficients, w.Kind)
	assert.Equal(t, "income", w.Target)
	assert.Len(t, w.Classes(), 1, "binary models report one class")

	var hasBias bool
	for _, r := range w.Rows {
		if r.Feature == BiasFeature {
			hasBias = true
		}
	}
	assert.True(t, hasBias)
	for i := 1; i < len(w.Rows); i++ {
		assert.GreaterOrEqual(t, math.Abs(w.Rows[i-1].Weight), math.Abs(w.Rows[i].Weight))
	}
	assert.Len(t, w.Top(2), 2)

	js, err := w.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(js), `"kind": "coefficients"`)
	assert.Contains(t, w.String(), "LOGISTIC_REGRESSION")
}

func TestInterpretModelTreeAndUnsupported(t *testing.T) {
	X, y := incomeData(t, 80)

	w, err := InterpretModel(fitted(t, X, y, pipeline.RandomForest))
	require.NoError(t, err)
	assert.Equal(t, KindImportances, w.Kind)
	total := 0.0
	for _, r := range w.Rows {
		assert.Empty(t, r.Class)
		total += r.Weight
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	_, err = InterpretModel(fitted(t, X, y, pipeline.SVM))
	assert.True(t, errors.Is(err, errors.ErrNotImplemented))
}

func TestSaveCharts(t *testing.T) {
	X, y := incomeData(t, 60)
	p := fitted(t, X, y, pipeline.LogisticRegression)
	dir := filepath.Join(t.TempDir(), ResultsDir)

	exp, err := ExplainInstance(p, X, y, 2, WithNumSamples(200))
	require.NoError(t, err)
	path, err := SaveExplanation(exp, dir, "png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "example_2.png"), path)
	_, err = os.Stat(path)
	assert.NoError(t, err)

	w, err := InterpretModel(p)
	require.NoError(t, err)
	paths, err := SaveWeights(w, 5, dir, "svg")
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, ".svg", filepath.Ext(paths[0]))

	_, err = SaveExplanation(exp, dir, "gif")
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = SaveExplanation(&Explanation{}, dir, "png")
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}
