// Package tree implements CART decision trees for classification and
// regression. Both share one builder that searches candidate features
// concurrently.
package tree

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/core/model"
	"github.com/YuminosukeSato/xaibench/metrics"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/sklearn/utils"
)

// Split criteria.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
	CriterionMSE     = "mse"
)

// MaxFeaturesSqrt considers sqrt(n_features) candidates per split.
const MaxFeaturesSqrt = -1

// DecisionTreeClassifier is a CART classifier.
type DecisionTreeClassifier struct {
	state *model.StateManager

	criterion           string
	maxDepth            int // 0 means unlimited
	minSamplesSplit     int
	minSamplesLeaf      int
	maxFeatures         int // 0 means all, MaxFeaturesSqrt means sqrt
	minImpurityDecrease float64
	classWeight         string
	randomState         int64

	tree      *treeStruct
	classes_  []int
	nClasses_ int
}

// Option configures a DecisionTreeClassifier or DecisionTreeRegressor.
type Option func(*params)

type params struct {
	criterion           string
	maxDepth            int
	minSamplesSplit     int
	minSamplesLeaf      int
	maxFeatures         int
	minImpurityDecrease float64
	classWeight         string
	randomState         int64
}

// WithCriterion sets the impurity measure.
func WithCriterion(c string) Option { return func(p *params) { p.criterion = c } }

// WithMaxDepth limits the depth of the tree. 0 means unlimited.
func WithMaxDepth(d int) Option { return func(p *params) { p.maxDepth = d } }

// WithMinSamplesSplit sets the minimum number of rows needed to split a node.
func WithMinSamplesSplit(n int) Option { return func(p *params) { p.minSamplesSplit = n } }

// WithMinSamplesLeaf sets the minimum number of rows on each side of a split.
func WithMinSamplesLeaf(n int) Option { return func(p *params) { p.minSamplesLeaf = n } }

// WithMaxFeatures sets how many features are drawn per split.
func WithMaxFeatures(n int) Option { return func(p *params) { p.maxFeatures = n } }

// WithMinImpurityDecrease sets the weighted impurity decrease a split must reach.
func WithMinImpurityDecrease(v float64) Option {
	return func(p *params) { p.minImpurityDecrease = v }
}

// WithClassWeight sets "balanced" or "none". Ignored by regressors.
func WithClassWeight(cw string) Option { return func(p *params) { p.classWeight = cw } }

// WithRandomState seeds feature sampling.
func WithRandomState(seed int64) Option { return func(p *params) { p.randomState = seed } }

func defaults(criterion string, opts []Option) params {
	p := params{
		criterion:       criterion,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		classWeight:     "none",
		randomState:     -1,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// NewDecisionTreeClassifier creates a gini tree with no depth limit.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	p := defaults(CriterionGini, opts)
	return &DecisionTreeClassifier{
		state:               model.NewStateManager("DecisionTreeClassifier"),
		criterion:           p.criterion,
		maxDepth:            p.maxDepth,
		minSamplesSplit:     p.minSamplesSplit,
		minSamplesLeaf:      p.minSamplesLeaf,
		maxFeatures:         p.maxFeatures,
		minImpurityDecrease: p.minImpurityDecrease,
		classWeight:         p.classWeight,
		randomState:         p.randomState,
	}
}

func (p *params) validate(classifier bool) error {
	switch {
	case classifier && p.criterion != CriterionGini && p.criterion != CriterionEntropy:
		return errors.NewValidationError("criterion", "must be gini or entropy", p.criterion)
	case !classifier && p.criterion != CriterionMSE:
		return errors.NewValidationError("criterion", "must be mse", p.criterion)
	case p.maxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", p.maxDepth)
	case p.minSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be >= 2", p.minSamplesSplit)
	case p.minSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", p.minSamplesLeaf)
	}
	return nil
}

func (p *params) newBuilder(X *mat.Dense, y, w []float64, nClasses int) *builder {
	_, nFeatures := X.Dims()
	maxFeatures := p.maxFeatures
	if maxFeatures == MaxFeaturesSqrt {
		maxFeatures = int(math.Max(1, math.Sqrt(float64(nFeatures))))
	}
	seed := p.randomState
	if seed < 0 {
		seed = rand.Int63()
	}
	return &builder{
		X:                   X,
		y:                   y,
		w:                   w,
		nClasses:            nClasses,
		criterion:           p.criterion,
		maxDepth:            p.maxDepth,
		minSamplesSplit:     p.minSamplesSplit,
		minSamplesLeaf:      p.minSamplesLeaf,
		maxFeatures:         maxFeatures,
		minImpurityDecrease: p.minImpurityDecrease,
		rng:                 rand.New(rand.NewSource(seed)),
	}
}

func (dt *DecisionTreeClassifier) params() params {
	return params{
		criterion:           dt.criterion,
		maxDepth:            dt.maxDepth,
		minSamplesSplit:     dt.minSamplesSplit,
		minSamplesLeaf:      dt.minSamplesLeaf,
		maxFeatures:         dt.maxFeatures,
		minImpurityDecrease: dt.minImpurityDecrease,
		classWeight:         dt.classWeight,
		randomState:         dt.randomState,
	}
}

// Fit grows the tree on X and integer labels y.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	return dt.FitWeighted(X, y, nil)
}

// FitWeighted grows the tree with per-row weights, multiplied by the class
// weights. A nil sampleWeight weighs every row 1; rows weighing 0 are left out.
func (dt *DecisionTreeClassifier) FitWeighted(X, y mat.Matrix, sampleWeight []float64) error {
	nSamples, nFeatures, err := utils.CheckXY("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	p := dt.params()
	if err := p.validate(true); err != nil {
		return err
	}
	if sampleWeight != nil && len(sampleWeight) != nSamples {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, len(sampleWeight), 0)
	}

	dt.classes_ = utils.UniqueLabels(y)
	dt.nClasses_ = len(dt.classes_)
	encoded := utils.EncodeLabels(y, dt.classes_)
	weights, err := utils.SampleWeights(dt.classWeight, encoded, dt.nClasses_)
	if err != nil {
		return err
	}

	target := make([]float64, nSamples)
	idx := make([]int, 0, nSamples)
	for i, k := range encoded {
		target[i] = float64(k)
		if sampleWeight != nil {
			weights[i] *= sampleWeight[i]
		}
		if weights[i] > 0 {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "all sample weights are zero")
	}

	b := p.newBuilder(mat.DenseCopyOf(X), target, weights, dt.nClasses_)
	dt.tree = b.build(idx)
	dt.state.SetDimensions(nFeatures, nSamples)
	dt.state.SetFitted()
	return nil
}

// PredictProba returns the class distribution of the leaf each row reaches.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("PredictProba"); err != nil {
		return nil, err
	}
	if err := dt.state.CheckFeatures("DecisionTreeClassifier.PredictProba", X); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	out := mat.NewDense(rows, dt.nClasses_, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		out.SetRow(i, dt.tree.nodes[dt.tree.apply(row)].value)
	}
	return out, nil
}

// Predict returns the most probable class for each row.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := probas.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, float64(dt.classes_[utils.Argmax(mat.Row(nil, i, probas))]))
	}
	return out, nil
}

// Score returns the mean accuracy on X against y.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(y, pred)
}

// Classes implements model.Classifier.
func (dt *DecisionTreeClassifier) Classes() []int { return append([]int(nil), dt.classes_...) }

// FeatureImportances returns the normalized total impurity decrease per feature.
func (dt *DecisionTreeClassifier) FeatureImportances() []float64 {
	if dt.tree == nil {
		return nil
	}
	return append([]float64(nil), dt.tree.importances...)
}

// GetDepth returns the depth of the deepest leaf.
func (dt *DecisionTreeClassifier) GetDepth() int {
	if dt.tree == nil {
		return 0
	}
	return dt.tree.depth()
}

// GetNLeaves returns the number of leaves.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	if dt.tree == nil {
		return 0
	}
	return dt.tree.leaves()
}

// IsFitted reports whether Fit has completed.
func (dt *DecisionTreeClassifier) IsFitted() bool { return dt.state.IsFitted() }

// GetParams returns the hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             dt.criterion,
		"max_depth":             dt.maxDepth,
		"min_samples_split":     dt.minSamplesSplit,
		"min_samples_leaf":      dt.minSamplesLeaf,
		"max_features":          dt.maxFeatures,
		"min_impurity_decrease": dt.minImpurityDecrease,
		"class_weight":          dt.classWeight,
		"random_state":          dt.randomState,
	}
}

// SetParams updates hyperparameters by name and resets the fitted state.
func (dt *DecisionTreeClassifier) SetParams(values map[string]interface{}) error {
	for key, v := range values {
		var ok bool
		switch key {
		case "criterion":
			dt.criterion, ok = v.(string)
		case "max_depth":
			dt.maxDepth, ok = v.(int)
		case "min_samples_split":
			dt.minSamplesSplit, ok = v.(int)
		case "min_samples_leaf":
			dt.minSamplesLeaf, ok = v.(int)
		case "max_features":
			dt.maxFeatures, ok = v.(int)
		case "min_impurity_decrease":
			dt.minImpurityDecrease, ok = v.(float64)
		case "class_weight":
			dt.classWeight, ok = v.(string)
		case "random_state":
			var seed int
			seed, ok = v.(int)
			dt.randomState = int64(seed)
		default:
			return errors.NewValidationError(key, "unknown parameter", v)
		}
		if !ok {
			return errors.NewValidationError(key, fmt.Sprintf("unexpected type %T", v), v)
		}
	}
	dt.state.Reset()
	dt.tree = nil
	return nil
}
