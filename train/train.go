// Package train fits a pipeline on one split of a dataset and evaluates it
// on the held-out rows.
package train

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/metrics"
	"github.com/YuminosukeSato/xaibench/pipeline"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/pkg/log"
	"github.com/YuminosukeSato/xaibench/preprocessing"
	"github.com/YuminosukeSato/xaibench/split"
)

// Evaluation holds test-set metrics. Classification fills Accuracy and
// Report (and AUC and log loss for binary targets); regression fills R2,
// MSE, RMSE and MAE.
type Evaluation struct {
	ProblemType  pipeline.ProblemType `json:"-"`
	Accuracy     float64              `json:"accuracy,omitempty"`
	AUC          float64              `json:"auc,omitempty"`
	LogLoss      float64              `json:"log_loss,omitempty"`
	HasAUC       bool                 `json:"-"`
	Report       *metrics.Report      `json:"report,omitempty"`
	R2           float64              `json:"r2,omitempty"`
	MSE          float64              `json:"mse,omitempty"`
	RMSE         float64              `json:"rmse,omitempty"`
	MAE          float64              `json:"mae,omitempty"`
	TrainSamples int                  `json:"train_samples"`
	TestSamples  int                  `json:"test_samples"`
	Duration     time.Duration        `json:"duration_ns"`
}

// Summary returns the headline metrics by name.
func (e *Evaluation) Summary() map[string]float64 {
	out := map[string]float64{
		"train_samples": float64(e.TrainSamples),
		"test_samples":  float64(e.TestSamples),
	}
	if e.ProblemType == pipeline.Classification {
		out["accuracy"] = e.Accuracy
		if e.HasAUC {
			out["auc"] = e.AUC
			out["log_loss"] = e.LogLoss
		}
		if e.Report != nil {
			out["macro_f1"] = e.Report.MacroAvg.F1
			out["weighted_f1"] = e.Report.WeightedAvg.F1
		}
		return out
	}
	out["r2"] = e.R2
	out["mse"] = e.MSE
	out["rmse"] = e.RMSE
	out["mae"] = e.MAE
	return out
}

// Render writes the metrics, and the classification report when present.
func (e *Evaluation) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Metric", "Value"})
	if e.ProblemType == pipeline.Classification {
		t.AppendRow(table.Row{"accuracy", fmt.Sprintf("%.4f", e.Accuracy)})
		if e.HasAUC {
			t.AppendRow(table.Row{"auc", fmt.Sprintf("%.4f", e.AUC)})
			t.AppendRow(table.Row{"log loss", fmt.Sprintf("%.4f", e.LogLoss)})
		}
	} else {
		t.AppendRow(table.Row{"r2", fmt.Sprintf("%.2f", e.R2)})
		t.AppendRow(table.Row{"mse", fmt.Sprintf("%.2f", e.MSE)})
		t.AppendRow(table.Row{"rmse", fmt.Sprintf("%.2f", e.RMSE)})
		t.AppendRow(table.Row{"mae", fmt.Sprintf("%.2f", e.MAE)})
	}
	t.AppendFooter(table.Row{"train/test", fmt.Sprintf("%d/%d", e.TrainSamples, e.TestSamples)})
	t.Render()
	if e.Report != nil {
		e.Report.Render(w)
	}
}

func (e *Evaluation) String() string {
	var sb strings.Builder
	e.Render(&sb)
	return sb.String()
}

// Result is a trained pipeline with its held-out data.
type Result struct {
	Pipeline   *pipeline.Pipeline
	XTrain     *frame.Frame
	XTest      *frame.Frame
	YTest      *frame.Column
	Evaluation *Evaluation
}

// Option configures TrainModel.
type Option func(*config)

type config struct {
	splitOpts    []split.Option
	pipelineOpts []pipeline.Option
	scaling      preprocessing.Scaling
	logger       log.Logger
}

// WithSplitOptions forwards options to split.Apply.
func WithSplitOptions(opts ...split.Option) Option {
	return func(c *config) { c.splitOpts = append(c.splitOpts, opts...) }
}

// WithPipelineOptions forwards options to pipeline.New.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(c *config) { c.pipelineOpts = append(c.pipelineOpts, opts...) }
}

// WithScaling selects the scaler of the numeric branch.
func WithScaling(s preprocessing.Scaling) Option {
	return func(c *config) { c.scaling = s }
}

// WithLogger overrides the component logger.
func WithLogger(l log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// TrainModel divides X into numeric and categorical features, builds the
// pipeline for mt.Algorithm, splits, fits on the training rows and
// evaluates on the test rows.
func TrainModel(ctx context.Context, mt pipeline.ModelType, s split.Split, X *frame.Frame, y *frame.Column, opts ...Option) (*Result, error) {
	c := config{scaling: preprocessing.ScalingStandard}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = log.GetLoggerWithName("train")
	}
	logger := c.logger.With(log.AlgorithmKey, mt.Algorithm.String(), log.ProblemTypeKey, mt.ProblemType.String())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	numeric, categorical := X.DivideFeatures()
	logger.Debug(fmt.Sprintf("Numerical features: %v", numeric))
	logger.Debug(fmt.Sprintf("Categorical features: %v", categorical))

	ct := preprocessing.NewColumnTransformer(numeric, categorical, preprocessing.WithScaling(c.scaling))
	p, err := pipeline.New(ct, mt.Algorithm, c.pipelineOpts...)
	if err != nil {
		return nil, err
	}
	if mt.ProblemType != 0 && mt.ProblemType != p.ProblemType() {
		logger.Warn("Algorithm does not match the target's problem type",
			"target_problem_type", mt.ProblemType.String(),
			"model_problem_type", p.ProblemType().String(),
		)
	}

	parts, err := split.Apply(s, X, y, append([]split.Option{split.WithCategorical(categorical...)}, c.splitOpts...)...)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	if err := p.Fit(parts.XTrain, parts.YTrain); err != nil {
		logger.Error("Model training failed", err, log.OperationKey, log.OperationFit)
		return nil, err
	}

	eval, err := Evaluate(p, parts.XTest, parts.YTest)
	if err != nil {
		return nil, err
	}
	eval.TrainSamples = parts.XTrain.Len()
	eval.Duration = time.Since(start)

	if eval.ProblemType == pipeline.Classification {
		logger.Info(fmt.Sprintf("Model accuracy: %v", eval.Accuracy),
			log.AccuracyKey, eval.Accuracy,
			log.DurationMsKey, eval.Duration.Milliseconds(),
		)
		logger.Info("Classification report: \n" + eval.Report.String())
	} else {
		logger.Info(fmt.Sprintf("R2 score : %.2f", eval.R2), log.R2ScoreKey, eval.R2)
		logger.Info(fmt.Sprintf("Mean squared error: %.2f", eval.MSE), log.MSEKey, eval.MSE)
		logger.Info(fmt.Sprintf("RMSE number:  %.2f", eval.RMSE), log.RMSEKey, eval.RMSE)
	}

	return &Result{
		Pipeline:   p,
		XTrain:     parts.XTrain,
		XTest:      parts.XTest,
		YTest:      parts.YTest,
		Evaluation: eval,
	}, nil
}

// Evaluate scores a fitted pipeline on X and y.
func Evaluate(p *pipeline.Pipeline, X *frame.Frame, y *frame.Column) (*Evaluation, error) {
	if X.Len() == 0 {
		return nil, errors.NewModelError("train.Evaluate", "empty test set", errors.ErrEmptyData)
	}
	pred, err := p.Predict(X)
	if err != nil {
		return nil, err
	}
	eval := &Evaluation{ProblemType: p.ProblemType(), TestSamples: X.Len()}

	if eval.ProblemType == pipeline.Regression {
		yTrue := mat.NewDense(y.Len(), 1, append([]float64(nil), y.Floats()...))
		yPred := mat.NewDense(pred.Len(), 1, append([]float64(nil), pred.Floats()...))
		if eval.R2, err = metrics.R2Score(yTrue, yPred); err != nil {
			return nil, err
		}
		if eval.MSE, err = metrics.MSE(yTrue, yPred); err != nil {
			return nil, err
		}
		if eval.RMSE, err = metrics.RMSE(yTrue, yPred); err != nil {
			return nil, err
		}
		if eval.MAE, err = metrics.MAE(yTrue, yPred); err != nil {
			return nil, err
		}
		return eval, nil
	}

	trueLabels := cells(y)
	predLabels := cells(pred)
	if eval.Accuracy, err = metrics.AccuracyLabels(trueLabels, predLabels); err != nil {
		return nil, err
	}
	if eval.Report, err = metrics.ClassificationReport(trueLabels, predLabels); err != nil {
		return nil, err
	}
	if len(p.Classes()) == 2 {
		eval.AUC, eval.LogLoss, eval.HasAUC = binaryScores(p, X, y)
	}
	return eval, nil
}

// binaryScores scores the positive class probability by AUC and log loss.
// Test labels unseen during training leave both undefined.
func binaryScores(p *pipeline.Pipeline, X *frame.Frame, y *frame.Column) (auc, logLoss float64, ok bool) {
	encoded, err := p.EncodeTarget(y)
	if err != nil {
		return 0, 0, false
	}
	probas, err := p.PredictProba(X)
	if err != nil {
		return 0, 0, false
	}
	rows, _ := probas.Dims()
	scores := mat.NewDense(rows, 1, mat.Col(nil, 1, probas))
	if auc, err = metrics.AUC(encoded, scores); err != nil {
		return 0, 0, false
	}
	if logLoss, err = metrics.BinaryLogLoss(encoded, scores); err != nil {
		return 0, 0, false
	}
	return auc, logLoss, true
}

func cells(c *frame.Column) []string {
	out := make([]string, c.Len())
	for i := range out {
		out[i] = c.Cell(i)
	}
	return out
}
