// Package linear_model provides linear estimators: ordinary least squares,
// weighted ridge regression and logistic regression.
package linear_model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/core/model"
	"github.com/YuminosukeSato/xaibench/metrics"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/sklearn/utils"
)

// LinearRegression fits ordinary least squares. Rank-deficient designs,
// such as a full set of one-hot columns, get the minimum-norm solution.
type LinearRegression struct {
	state *model.StateManager

	fitIntercept bool
	rcond        float64

	coef_      []float64
	intercept_ float64
	rank_      int
}

// LinearRegressionOption configures a LinearRegression.
type LinearRegressionOption func(*LinearRegression)

// WithFitIntercept sets whether to learn an intercept.
func WithFitIntercept(fit bool) LinearRegressionOption {
	return func(lr *LinearRegression) { lr.fitIntercept = fit }
}

// WithRcond sets the relative cutoff below which singular values are treated as zero.
func WithRcond(rcond float64) LinearRegressionOption {
	return func(lr *LinearRegression) { lr.rcond = rcond }
}

// NewLinearRegression creates a LinearRegression.
func NewLinearRegression(options ...LinearRegressionOption) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager("LinearRegression"),
		fitIntercept: true,
		rcond:        1e-10,
	}
	for _, opt := range options {
		opt(lr)
	}
	return lr
}

// Fit solves min ||y - Xw - b||^2 through a thin SVD of the centered design.
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	rows, cols, err := utils.CheckXY("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}

	Xc, xMean := center(X, nil, lr.fitIntercept)
	yc, yMean := center(y, nil, lr.fitIntercept)

	var svd mat.SVD
	if ok := svd.Factorize(Xc, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "svd", errors.ErrSingularMatrix)
	}
	rank := svd.Rank(lr.rcond)
	if rank == 0 {
		lr.coef_ = make([]float64, cols)
	} else {
		var beta mat.Dense
		svd.SolveTo(&beta, yc, rank)
		lr.coef_ = mat.Col(nil, 0, &beta)
	}
	lr.rank_ = rank

	lr.intercept_ = 0
	if lr.fitIntercept {
		lr.intercept_ = yMean[0]
		for j, c := range lr.coef_ {
			lr.intercept_ -= xMean[j] * c
		}
	}

	lr.state.SetDimensions(cols, rows)
	lr.state.SetFitted()
	return nil
}

// Predict returns Xw + b as an n x 1 matrix.
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("Predict"); err != nil {
		return nil, err
	}
	if err := lr.state.CheckFeatures("LinearRegression.Predict", X); err != nil {
		return nil, err
	}
	return linearPredict(X, lr.coef_, lr.intercept_), nil
}

// Score returns the R² of the predictions on X against y.
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(y, pred)
}

// Coef returns a copy of the coefficients.
func (lr *LinearRegression) Coef() []float64 { return append([]float64(nil), lr.coef_...) }

// Intercept returns the intercept.
func (lr *LinearRegression) Intercept() float64 { return lr.intercept_ }

// Rank returns the effective rank of the centered design seen by Fit.
func (lr *LinearRegression) Rank() int { return lr.rank_ }

// Weights implements model.LinearModel.
func (lr *LinearRegression) Weights() *model.ModelWeights {
	if !lr.state.IsFitted() {
		return nil
	}
	return &model.ModelWeights{
		ModelType:    "LinearRegression",
		Coefficients: [][]float64{lr.Coef()},
		Intercepts:   []float64{lr.intercept_},
	}
}

// IsFitted reports whether Fit has succeeded.
func (lr *LinearRegression) IsFitted() bool { return lr.state.IsFitted() }

func (lr *LinearRegression) String() string {
	return fmt.Sprintf("LinearRegression(fit_intercept=%t)", lr.fitIntercept)
}

// center subtracts the (weighted) column means when enabled and returns the
// centered copy and the means.
func center(A mat.Matrix, weights []float64, enabled bool) (*mat.Dense, []float64) {
	r, c := A.Dims()
	out := mat.DenseCopyOf(A)
	means := make([]float64, c)
	if !enabled {
		return out, means
	}
	total := 0.0
	for i := 0; i < r; i++ {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		total += w
		for j := 0; j < c; j++ {
			means[j] += w * A.At(i, j)
		}
	}
	for j := range means {
		means[j] /= total
	}
	out.Apply(func(i, j int, v float64) float64 { return v - means[j] }, out)
	return out, means
}

func linearPredict(X mat.Matrix, coef []float64, intercept float64) *mat.Dense {
	r, _ := X.Dims()
	var out mat.VecDense
	out.MulVec(X, mat.NewVecDense(len(coef), coef))
	pred := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred.Set(i, 0, out.AtVec(i)+intercept)
	}
	return pred
}
