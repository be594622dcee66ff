// Package svm implements a kernel support vector classifier trained with
// sequential minimal optimization.
package svm

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/core/model"
	"github.com/YuminosukeSato/xaibench/core/parallel"
	"github.com/YuminosukeSato/xaibench/metrics"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/sklearn/utils"
)

// SVC is a C-support vector classifier. Multiclass problems are solved
// one-vs-rest. Probabilities are the sigmoid of the binary decision value,
// or the softmax of the one-vs-rest decision values.
type SVC struct {
	state *model.StateManager

	C           float64
	kernel      string
	degree      int
	gamma       float64
	coef0       float64
	tol         float64
	maxIter     int // 0 picks max(10000, 100*n)
	classWeight string
	cacheRows   int

	gamma_   float64
	classes_ []int
	models_  []binarySVC
	kernelFn kernelFunc
}

type binarySVC struct {
	supportVectors [][]float64
	dualCoef       []float64 // αᵢyᵢ
	rho            float64
	iters          int
}

// SVCOption configures an SVC.
type SVCOption func(*SVC)

// NewSVC creates an SVC with a degree 8 polynomial kernel, gamma "scale" and C=1.
func NewSVC(opts ...SVCOption) *SVC {
	s := &SVC{
		state:       model.NewStateManager("SVC"),
		C:           1,
		kernel:      KernelPoly,
		degree:      8,
		gamma:       GammaScale,
		tol:         1e-3,
		classWeight: "none",
		cacheRows:   512,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithKernel selects linear, poly or rbf.
func WithKernel(k string) SVCOption { return func(s *SVC) { s.kernel = k } }

// WithDegree sets the polynomial degree.
func WithDegree(d int) SVCOption { return func(s *SVC) { s.degree = d } }

// WithGamma sets the kernel coefficient. GammaScale derives it from X.
func WithGamma(g float64) SVCOption { return func(s *SVC) { s.gamma = g } }

// WithCoef0 sets the independent term of the polynomial kernel.
func WithCoef0(c float64) SVCOption { return func(s *SVC) { s.coef0 = c } }

// WithSVCC sets the penalty parameter.
func WithSVCC(c float64) SVCOption { return func(s *SVC) { s.C = c } }

// WithSVCTol sets the KKT violation at which SMO stops.
func WithSVCTol(tol float64) SVCOption { return func(s *SVC) { s.tol = tol } }

// WithSVCMaxIter caps SMO iterations per binary problem.
func WithSVCMaxIter(n int) SVCOption { return func(s *SVC) { s.maxIter = n } }

// WithSVCClassWeight sets "balanced" or "none".
func WithSVCClassWeight(cw string) SVCOption { return func(s *SVC) { s.classWeight = cw } }

// WithCacheRows sets how many kernel rows are kept per binary problem.
func WithCacheRows(n int) SVCOption { return func(s *SVC) { s.cacheRows = n } }

// Fit trains on X and integer labels y.
func (s *SVC) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := utils.CheckXY("SVC.Fit", X, y)
	if err != nil {
		return err
	}
	switch {
	case s.C <= 0:
		return errors.NewValidationError("C", "must be positive", s.C)
	case s.degree < 1:
		return errors.NewValidationError("degree", "must be >= 1", s.degree)
	case s.gamma < 0:
		return errors.NewValidationError("gamma", "must be >= 0", s.gamma)
	}

	Xd := mat.DenseCopyOf(X)
	s.gamma_ = s.gamma
	if s.gamma_ == GammaScale {
		s.gamma_ = scaleGamma(Xd)
	}
	s.kernelFn, err = newKernel(s.kernel, s.degree, s.gamma_, s.coef0)
	if err != nil {
		return err
	}

	s.classes_ = utils.UniqueLabels(y)
	if len(s.classes_) < 2 {
		return errors.NewValueError("SVC.Fit", "needs samples of at least 2 classes")
	}
	encoded := utils.EncodeLabels(y, s.classes_)
	weights, err := utils.SampleWeights(s.classWeight, encoded, len(s.classes_))
	if err != nil {
		return err
	}
	maxIter := s.maxIter
	if maxIter <= 0 {
		maxIter = 100 * nSamples
		if maxIter < 10000 {
			maxIter = 10000
		}
	}

	nModels := len(s.classes_)
	if nModels == 2 {
		nModels = 1
	}
	s.models_ = make([]binarySVC, nModels)
	parallel.ParallelizeWithThreshold(nModels, 1, func(start, end int) {
		for m := start; m < end; m++ {
			positive := m
			if nModels == 1 {
				positive = 1
			}
			target := make([]float64, nSamples)
			C := make([]float64, nSamples)
			for i, k := range encoded {
				target[i] = -1
				if k == positive {
					target[i] = 1
				}
				C[i] = s.C * weights[i]
			}
			cache := newRowCache(Xd, s.kernelFn, s.cacheRows)
			res := solveSMO(cache, target, C, s.tol, maxIter)
			if !res.done {
				errors.Warn(errors.NewConvergenceWarning("SVC", res.iters, "SMO stopped before the KKT tolerance was met"))
			}

			bm := binarySVC{rho: res.rho, iters: res.iters}
			for i, a := range res.alpha {
				if a > 0 {
					bm.supportVectors = append(bm.supportVectors, append([]float64(nil), Xd.RawRowView(i)...))
					bm.dualCoef = append(bm.dualCoef, a*target[i])
				}
			}
			s.models_[m] = bm
		}
	})

	s.state.SetDimensions(nFeatures, nSamples)
	s.state.SetFitted()
	return nil
}

// DecisionFunction returns one column of signed distances per binary model.
func (s *SVC) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	if err := s.state.RequireFitted("DecisionFunction"); err != nil {
		return nil, err
	}
	if err := s.state.CheckFeatures("SVC.DecisionFunction", X); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	out := mat.NewDense(rows, len(s.models_), nil)
	x := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(x, i, X)
		for m, bm := range s.models_ {
			f := -bm.rho
			for k, sv := range bm.supportVectors {
				f += bm.dualCoef[k] * s.kernelFn(sv, x)
			}
			out.Set(i, m, f)
		}
	}
	return out, nil
}

// PredictProba returns class probabilities derived from decision values.
func (s *SVC) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := s.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	rows, _ := scores.Dims()
	k := len(s.classes_)
	out := mat.NewDense(rows, k, nil)
	for i := 0; i < rows; i++ {
		if k == 2 {
			p := errors.Softmax([]float64{0, scores.At(i, 0)})
			out.SetRow(i, p)
			continue
		}
		out.SetRow(i, errors.Softmax(scores.RawRowView(i)))
	}
	return out, nil
}

// Predict returns the class with the largest decision value.
func (s *SVC) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := s.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := probas.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, float64(s.classes_[utils.Argmax(mat.Row(nil, i, probas))]))
	}
	return out, nil
}

// Score returns the mean accuracy on X against y.
func (s *SVC) Score(X, y mat.Matrix) (float64, error) {
	pred, err := s.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(y, pred)
}

// Classes implements model.Classifier.
func (s *SVC) Classes() []int { return append([]int(nil), s.classes_...) }

// NSupport returns the number of support vectors of each binary model.
func (s *SVC) NSupport() []int {
	out := make([]int, len(s.models_))
	for m, bm := range s.models_ {
		out[m] = len(bm.supportVectors)
	}
	return out
}

// Gamma returns the kernel coefficient used by the last Fit.
func (s *SVC) Gamma() float64 { return s.gamma_ }

// IsFitted reports whether Fit has completed.
func (s *SVC) IsFitted() bool { return s.state.IsFitted() }
