package tree

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/core/model"
	"github.com/YuminosukeSato/xaibench/metrics"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/sklearn/utils"
)

// DecisionTreeRegressor is a CART regressor minimizing squared error.
type DecisionTreeRegressor struct {
	state  *model.StateManager
	params params
	tree   *treeStruct
}

// NewDecisionTreeRegressor creates an mse tree with no depth limit.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	return &DecisionTreeRegressor{
		state:  model.NewStateManager("DecisionTreeRegressor"),
		params: defaults(CriterionMSE, opts),
	}
}

// Fit grows the tree on X and continuous targets y.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	return dt.FitWeighted(X, y, nil)
}

// FitWeighted grows the tree with per-row weights. Rows weighing 0 are left out.
func (dt *DecisionTreeRegressor) FitWeighted(X, y mat.Matrix, sampleWeight []float64) error {
	nSamples, nFeatures, err := utils.CheckXY("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := dt.params.validate(false); err != nil {
		return err
	}
	if sampleWeight != nil && len(sampleWeight) != nSamples {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", nSamples, len(sampleWeight), 0)
	}

	target := make([]float64, nSamples)
	weights := make([]float64, nSamples)
	idx := make([]int, 0, nSamples)
	for i := range target {
		target[i] = y.At(i, 0)
		weights[i] = 1
		if sampleWeight != nil {
			weights[i] = sampleWeight[i]
		}
		if weights[i] > 0 {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return errors.NewValueError("DecisionTreeRegressor.Fit", "all sample weights are zero")
	}

	b := dt.params.newBuilder(mat.DenseCopyOf(X), target, weights, 0)
	dt.tree = b.build(idx)
	dt.state.SetDimensions(nFeatures, nSamples)
	dt.state.SetFitted()
	return nil
}

// Predict returns the leaf value reached by each row.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	leaves, err := dt.Apply(X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(leaves), 1, nil)
	for i, id := range leaves {
		out.Set(i, 0, dt.tree.nodes[id].value[0])
	}
	return out, nil
}

// Apply returns the index of the leaf each row reaches.
func (dt *DecisionTreeRegressor) Apply(X mat.Matrix) ([]int, error) {
	if err := dt.state.RequireFitted("Apply"); err != nil {
		return nil, err
	}
	if err := dt.state.CheckFeatures("DecisionTreeRegressor.Apply", X); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	out := make([]int, rows)
	row := make([]float64, cols)
	for i := range out {
		mat.Row(row, i, X)
		out[i] = dt.tree.apply(row)
	}
	return out, nil
}

// SetLeafValue overwrites the prediction of a leaf returned by Apply.
// Gradient boosting uses it for Newton leaf updates.
func (dt *DecisionTreeRegressor) SetLeafValue(leafID int, v float64) error {
	if dt.tree == nil || leafID < 0 || leafID >= len(dt.tree.nodes) || dt.tree.nodes[leafID].feature != leaf {
		return errors.NewValueError("DecisionTreeRegressor.SetLeafValue", "not a leaf of the fitted tree")
	}
	dt.tree.nodes[leafID].value[0] = v
	return nil
}

// Score returns R² on X against y.
func (dt *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(y, pred)
}

// FeatureImportances returns the normalized total variance reduction per feature.
func (dt *DecisionTreeRegressor) FeatureImportances() []float64 {
	if dt.tree == nil {
		return nil
	}
	return append([]float64(nil), dt.tree.importances...)
}

// GetDepth returns the depth of the deepest leaf.
func (dt *DecisionTreeRegressor) GetDepth() int {
	if dt.tree == nil {
		return 0
	}
	return dt.tree.depth()
}

// IsFitted reports whether Fit has completed.
func (dt *DecisionTreeRegressor) IsFitted() bool { return dt.state.IsFitted() }
