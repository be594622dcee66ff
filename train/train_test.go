package train

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/pipeline"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/pkg/log"
	"github.com/YuminosukeSato/xaibench/preprocessing"
	"github.com/YuminosukeSato/xaibench/split"
)

func classificationData(t *testing.T, n int) (*frame.Frame, *frame.Column) {
	t.Helper()
	rng := rand.New(rand.NewSource(3))
	x := make([]float64, n)
	color := make([]string, n)
	label := make([]string, n)
	for i := range x {
		if i%2 == 0 {
			x[i] = 5 + rng.NormFloat64()*0.5
			color[i] = "red"
			label[i] = "yes"
		} else {
			x[i] = -5 + rng.NormFloat64()*0.5
			color[i] = "blue"
			label[i] = "no"
		}
	}
	X, err := frame.New(frame.NewNumeric("x", x), frame.NewCategorical("color", color))
	require.NoError(t, err)
	return X, frame.NewCategorical("label", label)
}

func TestTrainModelClassification(t *testing.T) {
	X, y := classificationData(t, 60)
	logger, _ := log.NewTestLogger(log.LevelDebug)

	mt := pipeline.ModelType{ProblemType: pipeline.Classification, Algorithm: pipeline.LogisticRegression}
	res, err := TrainModel(context.Background(), mt, split.Split{Type: split.Imbalanced}, X, y, WithLogger(logger))
	require.NoError(t, err)

	assert.Equal(t, 18, res.XTest.Len())
	assert.Equal(t, 18, res.YTest.Len())
	assert.Equal(t, 42, res.Evaluation.TrainSamples)
	assert.True(t, res.Pipeline.IsFitted())

	eval := res.Evaluation
	assert.Equal(t, 1.0, eval.Accuracy)
	assert.True(t, eval.HasAUC)
	assert.Equal(t, 1.0, eval.AUC)
	require.NotNil(t, eval.Report)
	assert.Equal(t, 18, eval.Report.Support)

	assert.True(t, logger.ContainsMessage("Model accuracy: 1"))
	assert.True(t, logger.ContainsMessage("Classification report"))
	assert.True(t, logger.ContainsMessage("Numerical features: [x]"))
	assert.True(t, logger.ContainsField(log.AlgorithmKey, "LOGISTIC_REGRESSION"))

	summary := eval.Summary()
	assert.Equal(t, 1.0, summary["accuracy"])
	assert.Contains(t, summary, "auc")
	assert.Greater(t, eval.LogLoss, 0.0)
	assert.Less(t, eval.LogLoss, 0.5)
	assert.Equal(t, eval.LogLoss, summary["log_loss"])
	assert.Contains(t, eval.String(), "log loss")
	assert.Contains(t, eval.String(), "accuracy")
}

func TestTrainModelRegression(t *testing.T) {
	n := 50
	x := make([]float64, n)
	target := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
		target[i] = 2*float64(i) - 3
	}
	X, err := frame.New(frame.NewNumeric("x", x))
	require.NoError(t, err)
	y := frame.NewNumeric("y", target)
	logger, _ := log.NewTestLogger(log.LevelInfo)

	mt := pipeline.ModelType{ProblemType: pipeline.Regression, Algorithm: pipeline.LinearRegression}
	res, err := TrainModel(context.Background(), mt, split.Split{Type: split.Imbalanced}, X, y, WithLogger(logger))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res.Evaluation.R2, 1e-9)
	assert.InDelta(t, 0.0, res.Evaluation.MSE, 1e-9)
	assert.InDelta(t, 0.0, res.Evaluation.RMSE, 1e-5)
	assert.InDelta(t, 0.0, res.Evaluation.MAE, 1e-6)
	assert.Contains(t, res.Evaluation.Summary(), "mae")
	assert.True(t, logger.ContainsMessage("R2 score : 1.00"))
	assert.True(t, logger.ContainsMessage("RMSE number:  0.00"))
	assert.NotContains(t, res.Evaluation.Summary(), "accuracy")
}

func TestTrainModelBalancedSplit(t *testing.T) {
	X, y := classificationData(t, 80)
	mt := pipeline.ModelType{ProblemType: pipeline.Classification, Algorithm: pipeline.DecisionTree}
	s := split.Split{Type: split.Balanced, Columns: []string{"color"}}

	res, err := TrainModel(context.Background(), mt, s, X, y,
		WithSplitOptions(split.WithMinPerGroup(10), split.WithMaxPerGroup(20)))
	require.NoError(t, err)
	// Two groups of forty rows: ten of each go to test, twenty to train.
	assert.Equal(t, 20, res.XTest.Len())
	assert.Equal(t, 40, res.XTrain.Len())
}

func TestTrainModelBalancedNumericCrossColumn(t *testing.T) {
	X, y := classificationData(t, 120)
	mt := pipeline.ModelType{ProblemType: pipeline.Classification, Algorithm: pipeline.DecisionTree}
	s := split.Split{Type: split.Balanced, Columns: []string{"x"}}

	res, err := TrainModel(context.Background(), mt, s, X, y)
	require.NoError(t, err)
	assert.Positive(t, res.XTest.Len())
	assert.Equal(t, 120, res.XTest.Len()+res.XTrain.Len())
}

func TestTrainModelMinMaxScaling(t *testing.T) {
	X, y := classificationData(t, 60)
	mt := pipeline.ModelType{ProblemType: pipeline.Classification, Algorithm: pipeline.LogisticRegression}

	res, err := TrainModel(context.Background(), mt, split.Split{Type: split.Imbalanced}, X, y,
		WithScaling(preprocessing.ScalingMinMax))
	require.NoError(t, err)
	Xt, err := res.Pipeline.Transform(res.XTrain)
	require.NoError(t, err)
	col := mat.Col(nil, 0, Xt)
	assert.InDelta(t, 0, floats.Min(col), 1e-12)
	assert.InDelta(t, 1, floats.Max(col), 1e-12)
}

func TestTrainModelErrors(t *testing.T) {
	X, y := classificationData(t, 20)
	ctx := context.Background()

	_, err := TrainModel(ctx, pipeline.ModelType{Algorithm: pipeline.Algorithm(77)}, split.Split{Type: split.Imbalanced}, X, y)
	assert.True(t, errors.Is(err, errors.ErrNotImplemented))

	_, err = TrainModel(ctx, pipeline.ModelType{Algorithm: pipeline.DecisionTree}, split.Split{Type: 9}, X, y)
	assert.True(t, errors.Is(err, errors.ErrNotImplemented))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = TrainModel(cancelled, pipeline.ModelType{Algorithm: pipeline.DecisionTree}, split.Split{Type: split.Imbalanced}, X, y)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluateEmpty(t *testing.T) {
	X, y := classificationData(t, 10)
	_, err := Evaluate(nil, X.Head(0), y.Head(0))
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}
