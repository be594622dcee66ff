package linear_model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/core/model"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/sklearn/utils"
)

// Ridge is L2-regularized least squares with optional per-sample weights.
// The intercept is not penalized.
type Ridge struct {
	state *model.StateManager

	alpha        float64
	fitIntercept bool

	coef_      []float64
	intercept_ float64
}

// RidgeOption configures a Ridge.
type RidgeOption func(*Ridge)

// WithAlpha sets the regularization strength.
func WithAlpha(alpha float64) RidgeOption {
	return func(r *Ridge) { r.alpha = alpha }
}

// WithRidgeFitIntercept sets whether to learn an intercept.
func WithRidgeFitIntercept(fit bool) RidgeOption {
	return func(r *Ridge) { r.fitIntercept = fit }
}

// NewRidge creates a Ridge with alpha 1.
func NewRidge(opts ...RidgeOption) *Ridge {
	r := &Ridge{
		state:        model.NewStateManager("Ridge"),
		alpha:        1.0,
		fitIntercept: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fit fits with unit sample weights.
func (r *Ridge) Fit(X, y mat.Matrix) error {
	return r.FitWeighted(X, y, nil)
}

// FitWeighted solves (XᵀWX + αI)w = XᵀWy on data centered by the weighted means.
func (r *Ridge) FitWeighted(X, y mat.Matrix, sampleWeight []float64) error {
	rows, cols, err := utils.CheckXY("Ridge.FitWeighted", X, y)
	if err != nil {
		return err
	}
	if r.alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", r.alpha)
	}
	if sampleWeight != nil && len(sampleWeight) != rows {
		return errors.NewDimensionError("Ridge.FitWeighted", rows, len(sampleWeight), 0)
	}

	Xc, xMean := center(X, sampleWeight, r.fitIntercept)
	yc, yMean := center(y, sampleWeight, r.fitIntercept)

	// Scale rows by sqrt(w) so the normal equations carry the weights.
	if sampleWeight != nil {
		for i := 0; i < rows; i++ {
			s := math.Sqrt(sampleWeight[i])
			row := Xc.RawRowView(i)
			for j := range row {
				row[j] *= s
			}
			yc.Set(i, 0, yc.At(i, 0)*s)
		}
	}

	gram := mat.NewSymDense(cols, nil)
	gram.SymOuterK(1, Xc.T())
	for j := 0; j < cols; j++ {
		gram.SetSym(j, j, gram.At(j, j)+r.alpha)
	}
	var rhs mat.Dense
	rhs.Mul(Xc.T(), yc)

	var chol mat.Cholesky
	var beta mat.Dense
	if ok := chol.Factorize(gram); ok {
		if err := chol.SolveTo(&beta, &rhs); err != nil {
			return errors.Wrap(err, "Ridge.FitWeighted")
		}
	} else if err := beta.Solve(gram, &rhs); err != nil {
		return errors.NewModelError("Ridge.FitWeighted", "normal equations", errors.ErrSingularMatrix)
	}
	r.coef_ = mat.Col(nil, 0, &beta)

	r.intercept_ = 0
	if r.fitIntercept {
		r.intercept_ = yMean[0]
		for j, c := range r.coef_ {
			r.intercept_ -= xMean[j] * c
		}
	}

	r.state.SetDimensions(cols, rows)
	r.state.SetFitted()
	return nil
}

// Predict returns Xw + b.
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.state.RequireFitted("Predict"); err != nil {
		return nil, err
	}
	if err := r.state.CheckFeatures("Ridge.Predict", X); err != nil {
		return nil, err
	}
	return linearPredict(X, r.coef_, r.intercept_), nil
}

// Score returns the weighted R² of the predictions; nil weights means uniform.
func (r *Ridge) Score(X, y mat.Matrix, sampleWeight []float64) (float64, error) {
	pred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}
	n, _ := y.Dims()
	w := func(i int) float64 {
		if sampleWeight == nil {
			return 1
		}
		return sampleWeight[i]
	}
	total, mean := 0.0, 0.0
	for i := 0; i < n; i++ {
		total += w(i)
		mean += w(i) * y.At(i, 0)
	}
	mean /= total
	ssRes, ssTot := 0.0, 0.0
	for i := 0; i < n; i++ {
		d := y.At(i, 0) - pred.At(i, 0)
		ssRes += w(i) * d * d
		m := y.At(i, 0) - mean
		ssTot += w(i) * m * m
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}

// Coef returns a copy of the coefficients.
func (r *Ridge) Coef() []float64 { return append([]float64(nil), r.coef_...) }

// Intercept returns the intercept.
func (r *Ridge) Intercept() float64 { return r.intercept_ }

// Weights implements model.LinearModel.
func (r *Ridge) Weights() *model.ModelWeights {
	if !r.state.IsFitted() {
		return nil
	}
	return &model.ModelWeights{
		ModelType:    "Ridge",
		Coefficients: [][]float64{r.Coef()},
		Intercepts:   []float64{r.intercept_},
	}
}

func (r *Ridge) String() string {
	return fmt.Sprintf("Ridge(alpha=%g, fit_intercept=%t)", r.alpha, r.fitIntercept)
}
