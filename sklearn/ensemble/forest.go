// Package ensemble implements tree ensembles: a bagged random forest and a
// gradient boosted classifier.
package ensemble

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/core/model"
	"github.com/YuminosukeSato/xaibench/core/parallel"
	"github.com/YuminosukeSato/xaibench/metrics"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/sklearn/tree"
	"github.com/YuminosukeSato/xaibench/sklearn/utils"
)

// RandomForestClassifier averages the class probabilities of decision
// trees grown on bootstrap samples.
type RandomForestClassifier struct {
	state *model.StateManager

	nEstimators int
	maxDepth    int
	maxFeatures int
	classWeight string
	randomState int64
	nJobs       int // <= 0 uses every CPU

	estimators_ []*tree.DecisionTreeClassifier
	classes_    []int
}

// ForestOption configures a RandomForestClassifier.
type ForestOption func(*RandomForestClassifier)

// NewRandomForestClassifier creates a forest of 100 unlimited-depth trees
// drawing sqrt(n_features) candidates per split.
func NewRandomForestClassifier(opts ...ForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:       model.NewStateManager("RandomForestClassifier"),
		nEstimators: 100,
		maxFeatures: tree.MaxFeaturesSqrt,
		classWeight: "none",
		randomState: -1,
		nJobs:       -1,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.nEstimators = n }
}

// WithForestMaxDepth limits every tree's depth. 0 means unlimited.
func WithForestMaxDepth(d int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.maxDepth = d }
}

// WithForestMaxFeatures sets the candidates per split; tree.MaxFeaturesSqrt by default.
func WithForestMaxFeatures(n int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.maxFeatures = n }
}

// WithForestClassWeight sets "balanced" or "none".
func WithForestClassWeight(cw string) ForestOption {
	return func(rf *RandomForestClassifier) { rf.classWeight = cw }
}

// WithForestRandomState seeds bootstrapping and feature sampling.
func WithForestRandomState(seed int64) ForestOption {
	return func(rf *RandomForestClassifier) { rf.randomState = seed }
}

// WithNJobs sets how many trees grow concurrently.
func WithNJobs(n int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.nJobs = n }
}

// Fit grows the forest on X and integer labels y.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := utils.CheckXY("RandomForestClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", rf.nEstimators)
	}
	rf.classes_ = utils.UniqueLabels(y)

	seed := rf.randomState
	if seed < 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))

	// Seeds and bootstrap counts are drawn up front so results do not depend
	// on scheduling.
	seeds := make([]int64, rf.nEstimators)
	boots := make([][]float64, rf.nEstimators)
	for t := range seeds {
		seeds[t] = rng.Int63()
		boots[t] = make([]float64, nSamples)
		for i := 0; i < nSamples; i++ {
			boots[t][rng.Intn(nSamples)]++
		}
	}

	Xd := mat.DenseCopyOf(X)
	trees := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	errs := make([]error, rf.nEstimators)
	parallel.ParallelizeN(rf.nEstimators, rf.nJobs, func(start, end int) {
		for t := start; t < end; t++ {
			trees[t] = tree.NewDecisionTreeClassifier(
				tree.WithMaxDepth(rf.maxDepth),
				tree.WithMaxFeatures(rf.maxFeatures),
				tree.WithClassWeight(rf.classWeight),
				tree.WithRandomState(seeds[t]),
			)
			errs[t] = trees[t].FitWeighted(Xd, y, boots[t])
		}
	})
	for t, err := range errs {
		if err != nil {
			return errors.Wrapf(err, "tree %d", t)
		}
	}

	rf.estimators_ = trees
	rf.state.SetDimensions(nFeatures, nSamples)
	rf.state.SetFitted()
	return nil
}

// PredictProba returns the mean class probabilities of the trees.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted("PredictProba"); err != nil {
		return nil, err
	}
	if err := rf.state.CheckFeatures("RandomForestClassifier.PredictProba", X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	sum := mat.NewDense(rows, len(rf.classes_), nil)
	for _, est := range rf.estimators_ {
		p, err := est.PredictProba(X)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, p)
	}
	sum.Scale(1/float64(len(rf.estimators_)), sum)
	return sum, nil
}

// Predict returns the most probable class for each row.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(probas, rf.classes_), nil
}

// Score returns the mean accuracy on X against y.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(y, pred)
}

// Classes implements model.Classifier.
func (rf *RandomForestClassifier) Classes() []int { return append([]int(nil), rf.classes_...) }

// FeatureImportances returns the mean importances of the trees.
func (rf *RandomForestClassifier) FeatureImportances() []float64 {
	var imps [][]float64
	for _, est := range rf.estimators_ {
		imps = append(imps, est.FeatureImportances())
	}
	return meanImportances(imps)
}

// Estimators returns the fitted trees.
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	return rf.estimators_
}

// IsFitted reports whether Fit has completed.
func (rf *RandomForestClassifier) IsFitted() bool { return rf.state.IsFitted() }

func argmaxLabels(probas mat.Matrix, classes []int) *mat.Dense {
	rows, _ := probas.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, float64(classes[utils.Argmax(mat.Row(nil, i, probas))]))
	}
	return out
}

// meanImportances averages per-tree importances and renormalizes to sum 1.
func meanImportances(imps [][]float64) []float64 {
	if len(imps) == 0 {
		return nil
	}
	out := make([]float64, len(imps[0]))
	for _, imp := range imps {
		for j, v := range imp {
			out[j] += v
		}
	}
	total := 0.0
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}
