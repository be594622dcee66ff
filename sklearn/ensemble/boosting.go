package ensemble

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/core/model"
	"github.com/YuminosukeSato/xaibench/metrics"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/sklearn/tree"
	"github.com/YuminosukeSato/xaibench/sklearn/utils"
)

// GradientBoostingClassifier fits regression trees to the gradient of the
// log loss, one tree per round for binary problems and one per class and
// round otherwise. Leaf values are Newton steps Σg / (Σh + λ).
type GradientBoostingClassifier struct {
	state *model.StateManager

	nEstimators  int
	learningRate float64
	maxDepth     int
	lambda       float64
	subsample    float64
	randomState  int64

	classes_ []int
	init_    []float64
	trees_   [][]*tree.DecisionTreeRegressor // [round][class]
	losses_  []float64
}

// BoostingOption configures a GradientBoostingClassifier.
type BoostingOption func(*GradientBoostingClassifier)

// NewGradientBoostingClassifier creates a booster with 100 rounds, learning
// rate 0.3, depth 6 and λ = 1.
func NewGradientBoostingClassifier(opts ...BoostingOption) *GradientBoostingClassifier {
	gb := &GradientBoostingClassifier{
		state:        model.NewStateManager("GradientBoostingClassifier"),
		nEstimators:  100,
		learningRate: 0.3,
		maxDepth:     6,
		lambda:       1,
		subsample:    1,
		randomState:  -1,
	}
	for _, opt := range opts {
		opt(gb)
	}
	return gb
}

// WithRounds sets the number of boosting rounds.
func WithRounds(n int) BoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.nEstimators = n }
}

// WithLearningRate sets the shrinkage applied to every tree.
func WithLearningRate(eta float64) BoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.learningRate = eta }
}

// WithBoostingMaxDepth sets the depth of every tree.
func WithBoostingMaxDepth(d int) BoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.maxDepth = d }
}

// WithLambda sets the L2 penalty on leaf values.
func WithLambda(l float64) BoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.lambda = l }
}

// WithSubsample sets the fraction of rows drawn without replacement per round.
func WithSubsample(f float64) BoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.subsample = f }
}

// WithBoostingRandomState seeds row subsampling.
func WithBoostingRandomState(seed int64) BoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.randomState = seed }
}

// Fit boosts on X and integer labels y.
func (gb *GradientBoostingClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := utils.CheckXY("GradientBoostingClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	switch {
	case gb.nEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be >= 1", gb.nEstimators)
	case gb.learningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be positive", gb.learningRate)
	case gb.subsample <= 0 || gb.subsample > 1:
		return errors.NewValidationError("subsample", "must be in (0, 1]", gb.subsample)
	case gb.lambda < 0:
		return errors.NewValidationError("lambda", "must be >= 0", gb.lambda)
	}

	gb.classes_ = utils.UniqueLabels(y)
	nClasses := len(gb.classes_)
	if nClasses < 2 {
		return errors.NewValueError("GradientBoostingClassifier.Fit", "needs samples of at least 2 classes")
	}
	encoded := utils.EncodeLabels(y, gb.classes_)
	nOut := nClasses
	if nClasses == 2 {
		nOut = 1
	}

	// Raw scores start at the log prior.
	counts := make([]float64, nClasses)
	for _, k := range encoded {
		counts[k]++
	}
	gb.init_ = make([]float64, nOut)
	if nOut == 1 {
		p := counts[1] / float64(nSamples)
		gb.init_[0] = math.Log(p / (1 - p))
	} else {
		for k := range gb.init_ {
			gb.init_[k] = math.Log(counts[k] / float64(nSamples))
		}
	}
	raw := mat.NewDense(nSamples, nOut, nil)
	for i := 0; i < nSamples; i++ {
		raw.SetRow(i, gb.init_)
	}

	seed := gb.randomState
	if seed < 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))
	Xd := mat.DenseCopyOf(X)

	gb.trees_ = make([][]*tree.DecisionTreeRegressor, 0, gb.nEstimators)
	gb.losses_ = gb.losses_[:0]
	grad := mat.NewDense(nSamples, 1, nil)
	hess := make([]float64, nSamples)
	for round := 0; round < gb.nEstimators; round++ {
		probas := gb.link(raw)
		gb.losses_ = append(gb.losses_, logLoss(probas, encoded))
		if err := errors.CheckScalar("GradientBoostingClassifier.Fit", gb.losses_[round], round); err != nil {
			return err
		}

		weights := gb.rowMask(rng, nSamples)
		trees := make([]*tree.DecisionTreeRegressor, nOut)
		for k := 0; k < nOut; k++ {
			positive := k
			if nOut == 1 {
				positive = 1
			}
			for i, label := range encoded {
				target := 0.0
				if label == positive {
					target = 1
				}
				p := probas.At(i, k)
				grad.Set(i, 0, target-p)
				hess[i] = math.Max(p*(1-p), 1e-16)
			}

			reg := tree.NewDecisionTreeRegressor(tree.WithMaxDepth(gb.maxDepth))
			if err := reg.FitWeighted(Xd, grad, weights); err != nil {
				return errors.Wrapf(err, "round %d", round)
			}
			if err := gb.newtonLeaves(reg, Xd, grad, hess, weights, nOut); err != nil {
				return err
			}
			update, err := reg.Predict(Xd)
			if err != nil {
				return err
			}
			for i := 0; i < nSamples; i++ {
				raw.Set(i, k, raw.At(i, k)+gb.learningRate*update.At(i, 0))
			}
			trees[k] = reg
		}
		gb.trees_ = append(gb.trees_, trees)
	}

	gb.state.SetDimensions(nFeatures, nSamples)
	gb.state.SetFitted()
	return nil
}

// newtonLeaves replaces every leaf mean with Σg / (Σh + λ) over the rows it
// holds. Multiclass steps are scaled by (K-1)/K.
func (gb *GradientBoostingClassifier) newtonLeaves(reg *tree.DecisionTreeRegressor, X *mat.Dense, grad *mat.Dense, hess, weights []float64, nOut int) error {
	leaves, err := reg.Apply(X)
	if err != nil {
		return err
	}
	g := make(map[int]float64)
	h := make(map[int]float64)
	for i, id := range leaves {
		if weights[i] == 0 {
			continue
		}
		g[id] += grad.At(i, 0)
		h[id] += hess[i]
	}
	scale := 1.0
	if nOut > 1 {
		scale = float64(nOut-1) / float64(nOut)
	}
	for id, sum := range g {
		if err := reg.SetLeafValue(id, scale*sum/(h[id]+gb.lambda)); err != nil {
			return err
		}
	}
	return nil
}

func (gb *GradientBoostingClassifier) rowMask(rng *rand.Rand, n int) []float64 {
	w := make([]float64, n)
	if gb.subsample >= 1 {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	m := int(math.Max(1, math.Round(gb.subsample*float64(n))))
	for _, i := range rng.Perm(n)[:m] {
		w[i] = 1
	}
	return w
}

// link turns raw scores into n x k class probabilities.
func (gb *GradientBoostingClassifier) link(raw *mat.Dense) *mat.Dense {
	rows, nOut := raw.Dims()
	out := mat.NewDense(rows, len(gb.classes_), nil)
	for i := 0; i < rows; i++ {
		if nOut == 1 {
			p := 1 / (1 + errors.StabilizeExp(-raw.At(i, 0)))
			out.Set(i, 0, 1-p)
			out.Set(i, 1, p)
			continue
		}
		out.SetRow(i, errors.Softmax(raw.RawRowView(i)))
	}
	return out
}

func logLoss(probas *mat.Dense, encoded []int) float64 {
	loss := 0.0
	for i, k := range encoded {
		loss -= math.Log(math.Max(probas.At(i, k), 1e-15))
	}
	return loss / float64(len(encoded))
}

// DecisionFunction returns the raw additive scores.
func (gb *GradientBoostingClassifier) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	if err := gb.state.RequireFitted("DecisionFunction"); err != nil {
		return nil, err
	}
	if err := gb.state.CheckFeatures("GradientBoostingClassifier.DecisionFunction", X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	raw := mat.NewDense(rows, len(gb.init_), nil)
	for i := 0; i < rows; i++ {
		raw.SetRow(i, gb.init_)
	}
	for _, trees := range gb.trees_ {
		for k, reg := range trees {
			update, err := reg.Predict(X)
			if err != nil {
				return nil, err
			}
			for i := 0; i < rows; i++ {
				raw.Set(i, k, raw.At(i, k)+gb.learningRate*update.At(i, 0))
			}
		}
	}
	return raw, nil
}

// PredictProba returns class probabilities.
func (gb *GradientBoostingClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	raw, err := gb.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	return gb.link(raw), nil
}

// Predict returns the most probable class for each row.
func (gb *GradientBoostingClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := gb.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(probas, gb.classes_), nil
}

// Score returns the mean accuracy on X against y.
func (gb *GradientBoostingClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := gb.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(y, pred)
}

// Classes implements model.Classifier.
func (gb *GradientBoostingClassifier) Classes() []int { return append([]int(nil), gb.classes_...) }

// FeatureImportances returns the mean variance-reduction importances of all trees.
func (gb *GradientBoostingClassifier) FeatureImportances() []float64 {
	var imps [][]float64
	for _, trees := range gb.trees_ {
		for _, reg := range trees {
			imps = append(imps, reg.FeatureImportances())
		}
	}
	return meanImportances(imps)
}

// TrainLoss returns the training log loss before each round.
func (gb *GradientBoostingClassifier) TrainLoss() []float64 {
	return append([]float64(nil), gb.losses_...)
}

// IsFitted reports whether Fit has completed.
func (gb *GradientBoostingClassifier) IsFitted() bool { return gb.state.IsFitted() }
