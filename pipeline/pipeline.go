// Package pipeline chains a fitted ColumnTransformer with an estimator so
// that raw frames go in and target values come out.
package pipeline

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/core/model"
	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/pkg/log"
	"github.com/YuminosukeSato/xaibench/preprocessing"
	"github.com/YuminosukeSato/xaibench/sklearn/ensemble"
	"github.com/YuminosukeSato/xaibench/sklearn/linear_model"
	"github.com/YuminosukeSato/xaibench/sklearn/svm"
	"github.com/YuminosukeSato/xaibench/sklearn/tree"
	"github.com/YuminosukeSato/xaibench/sklearn/utils"
)

// DefaultRandomState seeds every stochastic estimator.
const DefaultRandomState = 33

// Pipeline is a preprocessor followed by an estimator. Classification
// targets are label-encoded in sorted order before fitting.
type Pipeline struct {
	preprocessor *preprocessing.ColumnTransformer
	algorithm    Algorithm
	estimator    model.Estimator
	labels       *preprocessing.LabelEncoder
	target       string
	fitted       bool
	logger       log.Logger
}

// Option configures New.
type Option func(*options)

type options struct {
	randomState int64
	nJobs       int
}

// WithRandomState overrides DefaultRandomState.
func WithRandomState(seed int64) Option {
	return func(o *options) { o.randomState = seed }
}

// WithNJobs bounds the parallelism of ensemble estimators.
func WithNJobs(n int) Option {
	return func(o *options) { o.nJobs = n }
}

// New builds the pipeline for algorithm on top of ct. Unknown algorithms
// return errors.ErrNotImplemented.
func New(ct *preprocessing.ColumnTransformer, algorithm Algorithm, opts ...Option) (*Pipeline, error) {
	o := options{randomState: DefaultRandomState, nJobs: -1}
	for _, opt := range opts {
		opt(&o)
	}

	var est model.Estimator
	switch algorithm {
	case LogisticRegression:
		est = linear_model.NewLogisticRegression(
			linear_model.WithLRClassWeight(utils.ClassWeightBalanced),
			linear_model.WithLRRandomState(o.randomState),
		)
	case DecisionTree:
		est = tree.NewDecisionTreeClassifier(
			tree.WithClassWeight(utils.ClassWeightBalanced),
			tree.WithRandomState(o.randomState),
		)
	case RandomForest:
		est = ensemble.NewRandomForestClassifier(
			ensemble.WithForestClassWeight(utils.ClassWeightBalanced),
			ensemble.WithNEstimators(100),
			ensemble.WithNJobs(o.nJobs),
			ensemble.WithForestRandomState(o.randomState),
		)
	case XGB:
		est = ensemble.NewGradientBoostingClassifier(
			ensemble.WithBoostingRandomState(o.randomState),
		)
	case LinearRegression:
		est = linear_model.NewLinearRegression()
	case SVM:
		est = svm.NewSVC(svm.WithKernel(svm.KernelPoly), svm.WithDegree(8))
	default:
		return nil, errors.Wrapf(errors.ErrNotImplemented, "algorithm %d", int(algorithm))
	}

	return &Pipeline{
		preprocessor: ct,
		algorithm:    algorithm,
		estimator:    est,
		logger:       log.GetLoggerWithName("pipeline").With(log.AlgorithmKey, algorithm.String()),
	}, nil
}

// Fit fits the preprocessor on X and the estimator on the transformed X and y.
func (p *Pipeline) Fit(X *frame.Frame, y *frame.Column) error {
	if y == nil {
		return errors.NewModelError("Pipeline.Fit", "target", errors.ErrNoTarget)
	}
	if X.Len() != y.Len() {
		return errors.NewDimensionError("Pipeline.Fit", X.Len(), y.Len(), 0)
	}
	target, err := p.encodeTarget(y, true)
	if err != nil {
		return err
	}
	Xt, err := p.preprocessor.FitTransform(X)
	if err != nil {
		return errors.Wrap(err, "preprocess")
	}
	p.logger.Debug("Fitting estimator",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, X.Len(),
		log.FeaturesKey, p.preprocessor.Width(),
	)
	if err := p.estimator.Fit(Xt, target); err != nil {
		return errors.Wrapf(err, "fit %s", p.algorithm)
	}
	p.target = y.Name()
	p.fitted = true
	return nil
}

// encodeTarget turns y into the n x 1 matrix the estimator trains on.
func (p *Pipeline) encodeTarget(y *frame.Column, fit bool) (*mat.Dense, error) {
	n := y.Len()
	out := mat.NewDense(n, 1, nil)
	if !p.algorithm.IsClassifier() {
		if !y.IsNumeric() {
			return nil, errors.NewValidationError(y.Name(), "regression needs a numeric target", y.Kind().String())
		}
		for i, v := range y.Floats() {
			if math.IsNaN(v) {
				return nil, errors.NewValidationError(y.Name(), "target has missing values", i)
			}
			out.Set(i, 0, v)
		}
		return out, nil
	}

	labels := make([]string, n)
	for i := range labels {
		if y.IsMissing(i) {
			return nil, errors.NewValidationError(y.Name(), "target has missing values", i)
		}
		labels[i] = y.Cell(i)
	}
	if fit {
		p.labels = preprocessing.NewLabelEncoder()
		if err := p.labels.Fit(labels); err != nil {
			return nil, err
		}
	}
	codes, err := p.labels.Transform(labels)
	if err != nil {
		return nil, err
	}
	for i, k := range codes {
		out.Set(i, 0, float64(k))
	}
	return out, nil
}

// EncodeTarget returns y as the estimator sees it: class indices for
// classifiers, the raw values for regressors.
func (p *Pipeline) EncodeTarget(y *frame.Column) (*mat.Dense, error) {
	if err := p.requireFitted("EncodeTarget"); err != nil {
		return nil, err
	}
	return p.encodeTarget(y, false)
}

// Transform applies the fitted preprocessor.
func (p *Pipeline) Transform(X *frame.Frame) (*mat.Dense, error) {
	if err := p.requireFitted("Transform"); err != nil {
		return nil, err
	}
	return p.preprocessor.Transform(X)
}

// PredictEncoded returns the estimator output: class indices or values.
func (p *Pipeline) PredictEncoded(X *frame.Frame) (mat.Matrix, error) {
	Xt, err := p.Transform(X)
	if err != nil {
		return nil, err
	}
	return p.estimator.Predict(Xt)
}

// Predict returns predictions as a column named after the target. Class
// predictions come back as their original labels.
func (p *Pipeline) Predict(X *frame.Frame) (*frame.Column, error) {
	pred, err := p.PredictEncoded(X)
	if err != nil {
		return nil, err
	}
	rows, _ := pred.Dims()
	values := mat.Col(nil, 0, pred)
	if p.labels == nil {
		return frame.NewNumeric(p.target, values), nil
	}
	codes := make([]int, rows)
	for i, v := range values {
		codes[i] = int(v)
	}
	labels, err := p.labels.InverseTransform(codes)
	if err != nil {
		return nil, err
	}
	return frame.NewCategorical(p.target, labels), nil
}

// PredictProba returns class probabilities with columns in Classes() order.
func (p *Pipeline) PredictProba(X *frame.Frame) (mat.Matrix, error) {
	clf, ok := p.estimator.(model.Classifier)
	if !ok {
		return nil, errors.NewValueError("Pipeline.PredictProba", p.algorithm.String()+" does not predict probabilities")
	}
	Xt, err := p.Transform(X)
	if err != nil {
		return nil, err
	}
	return clf.PredictProba(Xt)
}

// PredictProbaMatrix is PredictProba on an already transformed matrix.
func (p *Pipeline) PredictProbaMatrix(Xt mat.Matrix) (mat.Matrix, error) {
	clf, ok := p.estimator.(model.Classifier)
	if !ok {
		return nil, errors.NewValueError("Pipeline.PredictProba", p.algorithm.String()+" does not predict probabilities")
	}
	return clf.PredictProba(Xt)
}

// Classes returns the class labels in probability column order. The
// estimator only sees classes present in training, which are all of them.
func (p *Pipeline) Classes() []string {
	if p.labels == nil {
		return nil
	}
	return p.labels.Classes()
}

// ClassLabel returns the label for a class index, or the index itself
// formatted when the pipeline is a regressor.
func (p *Pipeline) ClassLabel(k int) string {
	classes := p.Classes()
	if k >= 0 && k < len(classes) {
		return classes[k]
	}
	return strconv.Itoa(k)
}

// FeatureNames returns the transformed feature names.
func (p *Pipeline) FeatureNames() []string { return p.preprocessor.FeatureNames() }

// OneHotFeatures returns the encoded categorical feature names.
func (p *Pipeline) OneHotFeatures() []string { return p.preprocessor.OneHotFeatures() }

// Preprocessor returns the column transformer.
func (p *Pipeline) Preprocessor() *preprocessing.ColumnTransformer { return p.preprocessor }

// Estimator returns the final estimator.
func (p *Pipeline) Estimator() model.Estimator { return p.estimator }

// Algorithm returns the algorithm the pipeline was built for.
func (p *Pipeline) Algorithm() Algorithm { return p.algorithm }

// ProblemType returns Classification for classifier pipelines.
func (p *Pipeline) ProblemType() ProblemType {
	if p.algorithm.IsClassifier() {
		return Classification
	}
	return Regression
}

// Target returns the name of the target column seen by Fit.
func (p *Pipeline) Target() string { return p.target }

// IsFitted reports whether Fit has completed.
func (p *Pipeline) IsFitted() bool { return p.fitted }

func (p *Pipeline) requireFitted(method string) error {
	if !p.fitted {
		return errors.NewNotFittedError("Pipeline", method)
	}
	return nil
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("Pipeline(preprocessor=%s, model=%s)", p.preprocessor, p.algorithm)
}
