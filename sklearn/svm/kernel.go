package svm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

// Kernel names.
const (
	KernelLinear = "linear"
	KernelPoly   = "poly"
	KernelRBF    = "rbf"
)

// GammaScale selects gamma = 1 / (n_features * X.var()).
const GammaScale = 0

type kernelFunc func(a, b []float64) float64

func newKernel(name string, degree int, gamma, coef0 float64) (kernelFunc, error) {
	switch name {
	case KernelLinear:
		return floats.Dot, nil
	case KernelPoly:
		return func(a, b []float64) float64 {
			return math.Pow(gamma*floats.Dot(a, b)+coef0, float64(degree))
		}, nil
	case KernelRBF:
		return func(a, b []float64) float64 {
			d := floats.Distance(a, b, 2)
			return math.Exp(-gamma * d * d)
		}, nil
	default:
		return nil, errors.NewValidationError("kernel", "must be linear, poly or rbf", name)
	}
}

// scaleGamma returns 1 / (n_features * variance of all entries of X).
func scaleGamma(X *mat.Dense) float64 {
	_, p := X.Dims()
	_, v := stat.PopMeanVariance(X.RawMatrix().Data, nil)
	if v <= 0 || math.IsNaN(v) {
		return 1
	}
	return 1 / (float64(p) * v)
}

// rowCache computes kernel rows against the training set on demand and
// keeps at most limit of them.
type rowCache struct {
	X      *mat.Dense
	kernel kernelFunc
	limit  int
	rows   map[int][]float64
	diag   []float64
}

func newRowCache(X *mat.Dense, k kernelFunc, limit int) *rowCache {
	n, _ := X.Dims()
	c := &rowCache{X: X, kernel: k, limit: limit, rows: make(map[int][]float64)}
	c.diag = make([]float64, n)
	for i := range c.diag {
		row := X.RawRowView(i)
		c.diag[i] = k(row, row)
	}
	return c
}

func (c *rowCache) row(i int) []float64 {
	if r, ok := c.rows[i]; ok {
		return r
	}
	if len(c.rows) >= c.limit {
		c.rows = make(map[int][]float64)
	}
	n, _ := c.X.Dims()
	r := make([]float64, n)
	xi := c.X.RawRowView(i)
	for j := range r {
		r[j] = c.kernel(xi, c.X.RawRowView(j))
	}
	c.rows[i] = r
	return r
}
