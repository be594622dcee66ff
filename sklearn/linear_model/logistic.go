package linear_model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/xaibench/core/model"
	"github.com/YuminosukeSato/xaibench/metrics"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/sklearn/utils"
)

// LogisticRegression is an L2-regularized logistic classifier. Binary
// problems fit one model; multiclass problems fit one-vs-rest, like the
// liblinear solver.
type LogisticRegression struct {
	state *model.StateManager

	C            float64 // inverse regularization strength
	fitIntercept bool
	classWeight  string
	randomState  int64
	maxIter      int
	tol          float64

	coef_      [][]float64
	intercept_ []float64
	classes_   []int
	nIter_     []int

	rand *rand.Rand
}

// LogisticRegressionOption is a functional option for LogisticRegression.
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a LogisticRegression with C=1.
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager("LogisticRegression"),
		C:            1.0,
		fitIntercept: true,
		classWeight:  "none",
		randomState:  -1,
		maxIter:      100,
		tol:          1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	seed := lr.randomState
	if seed < 0 {
		seed = rand.Int63()
	}
	lr.rand = rand.New(rand.NewSource(seed))
	return lr
}

// WithLRC sets the inverse regularization strength.
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.C = c }
}

// WithLogisticFitIntercept sets whether to fit an intercept.
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.fitIntercept = fit }
}

// WithLRClassWeight sets "balanced" or "none".
func WithLRClassWeight(cw string) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.classWeight = cw }
}

// WithLRMaxIter sets the maximum number of L-BFGS iterations per model.
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.maxIter = maxIter }
}

// WithLRTol sets the gradient norm at which optimization stops.
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.tol = tol }
}

// WithLRRandomState seeds the initial weights.
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.randomState = seed }
}

// Fit trains on X and integer labels y.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := utils.CheckXY("LogisticRegression.Fit", X, y)
	if err != nil {
		return err
	}
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}

	lr.classes_ = utils.UniqueLabels(y)
	if len(lr.classes_) < 2 {
		return errors.NewValueError("LogisticRegression.Fit", "needs samples of at least 2 classes")
	}
	encoded := utils.EncodeLabels(y, lr.classes_)
	weights, err := utils.SampleWeights(lr.classWeight, encoded, len(lr.classes_))
	if err != nil {
		return err
	}

	nModels := len(lr.classes_)
	if nModels == 2 {
		nModels = 1
	}
	lr.coef_ = make([][]float64, nModels)
	lr.intercept_ = make([]float64, nModels)
	lr.nIter_ = make([]int, nModels)

	Xd := mat.DenseCopyOf(X)
	target := make([]float64, nSamples)
	for m := 0; m < nModels; m++ {
		positive := m
		if nModels == 1 {
			positive = 1
		}
		for i, k := range encoded {
			target[i] = 0
			if k == positive {
				target[i] = 1
			}
		}
		coef, intercept, iters, err := lr.fitBinary(Xd, target, weights)
		if err != nil {
			return errors.Wrapf(err, "fit class %d", lr.classes_[positive])
		}
		lr.coef_[m], lr.intercept_[m], lr.nIter_[m] = coef, intercept, iters
	}

	lr.state.SetDimensions(nFeatures, nSamples)
	lr.state.SetFitted()
	return nil
}

// fitBinary minimizes C·Σ wᵢ·logloss(xᵢ) + ½‖β‖² with L-BFGS. The intercept
// is not penalized.
func (lr *LogisticRegression) fitBinary(X *mat.Dense, target, weights []float64) ([]float64, float64, int, error) {
	nSamples, nFeatures := X.Dims()
	dim := nFeatures
	if lr.fitIntercept {
		dim++
	}

	z := make([]float64, nSamples)
	scores := func(x []float64) {
		beta := mat.NewVecDense(nFeatures, x[:nFeatures])
		zv := mat.NewVecDense(nSamples, z)
		zv.MulVec(X, beta)
		if lr.fitIntercept {
			for i := range z {
				z[i] += x[nFeatures]
			}
		}
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			scores(x)
			loss := 0.0
			for i, zi := range z {
				// log(1 + exp(-s·z)) with s = ±1
				s := 2*target[i] - 1
				loss += weights[i] * softplus(-s*zi)
			}
			reg := 0.0
			for _, b := range x[:nFeatures] {
				reg += b * b
			}
			return lr.C*loss + 0.5*reg
		},
		Grad: func(grad, x []float64) {
			scores(x)
			for j := range grad {
				grad[j] = 0
			}
			for i, zi := range z {
				r := lr.C * weights[i] * (sigmoid(zi) - target[i])
				row := X.RawRowView(i)
				for j, v := range row {
					grad[j] += r * v
				}
				if lr.fitIntercept {
					grad[nFeatures] += r
				}
			}
			for j := 0; j < nFeatures; j++ {
				grad[j] += x[j]
			}
		},
	}

	init := make([]float64, dim)
	for j := range init {
		init[j] = lr.rand.NormFloat64() * 0.01
	}
	settings := &optimize.Settings{
		GradientThreshold: lr.tol,
		MajorIterations:   lr.maxIter,
	}
	result, err := optimize.Minimize(problem, init, settings, &optimize.LBFGS{})
	if result == nil {
		return nil, 0, 0, errors.NewModelError("LogisticRegression.Fit", "optimization", err)
	}
	switch {
	case result.Status == optimize.IterationLimit:
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter, ""))
	case err != nil:
		// Line search failures near the optimum still leave a usable point.
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", result.MajorIterations, err.Error()))
	}
	if err := errors.CheckNumericalStability("LogisticRegression.Fit", result.X, result.MajorIterations); err != nil {
		return nil, 0, 0, err
	}

	coef := append([]float64(nil), result.X[:nFeatures]...)
	intercept := 0.0
	if lr.fitIntercept {
		intercept = result.X[nFeatures]
	}
	return coef, intercept, result.MajorIterations, nil
}

// DecisionFunction returns one score column per fitted model.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	if err := lr.state.RequireFitted("DecisionFunction"); err != nil {
		return nil, err
	}
	if err := lr.state.CheckFeatures("LogisticRegression.DecisionFunction", X); err != nil {
		return nil, err
	}
	nSamples, _ := X.Dims()
	out := mat.NewDense(nSamples, len(lr.coef_), nil)
	for m, coef := range lr.coef_ {
		col := linearPredict(X, coef, lr.intercept_[m])
		out.SetCol(m, col.RawMatrix().Data)
	}
	return out, nil
}

// PredictProba returns class probabilities. One-vs-rest scores are passed
// through the sigmoid and normalized per row.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	nSamples, _ := scores.Dims()
	k := len(lr.classes_)
	probas := mat.NewDense(nSamples, k, nil)
	for i := 0; i < nSamples; i++ {
		if k == 2 {
			p := sigmoid(scores.At(i, 0))
			probas.Set(i, 0, 1-p)
			probas.Set(i, 1, p)
			continue
		}
		sum := 0.0
		for m := 0; m < k; m++ {
			p := sigmoid(scores.At(i, m))
			probas.Set(i, m, p)
			sum += p
		}
		for m := 0; m < k; m++ {
			probas.Set(i, m, probas.At(i, m)/sum)
		}
	}
	return probas, nil
}

// Predict returns the most probable class for each row.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(probas, lr.classes_), nil
}

// Score returns the mean accuracy on X against y.
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(y, pred)
}

// Classes implements model.Classifier.
func (lr *LogisticRegression) Classes() []int { return append([]int(nil), lr.classes_...) }

// NIter returns the iterations used by each fitted model.
func (lr *LogisticRegression) NIter() []int { return append([]int(nil), lr.nIter_...) }

// Weights implements model.LinearModel. Binary models have one row, the
// weights of the positive class.
func (lr *LogisticRegression) Weights() *model.ModelWeights {
	if !lr.state.IsFitted() {
		return nil
	}
	mw := &model.ModelWeights{
		ModelType:    "LogisticRegression",
		Coefficients: make([][]float64, len(lr.coef_)),
		Intercepts:   append([]float64(nil), lr.intercept_...),
		Classes:      lr.Classes(),
	}
	for i, c := range lr.coef_ {
		mw.Coefficients[i] = append([]float64(nil), c...)
	}
	return mw
}

// IsFitted reports whether Fit has succeeded.
func (lr *LogisticRegression) IsFitted() bool { return lr.state.IsFitted() }

func (lr *LogisticRegression) String() string {
	return fmt.Sprintf("LogisticRegression(C=%g, class_weight=%s, max_iter=%d)", lr.C, lr.classWeight, lr.maxIter)
}

func argmaxLabels(probas mat.Matrix, classes []int) *mat.Dense {
	nSamples, k := probas.Dims()
	out := mat.NewDense(nSamples, 1, nil)
	row := make([]float64, k)
	for i := 0; i < nSamples; i++ {
		mat.Row(row, i, probas)
		out.Set(i, 0, float64(classes[utils.Argmax(row)]))
	}
	return out
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus computes log(1 + exp(x)) without overflow.
func softplus(x float64) float64 {
	if x > 30 {
		return x
	}
	return math.Log1p(math.Exp(x))
}
