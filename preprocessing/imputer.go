package preprocessing

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/xaibench/core/model"
	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

// Imputation strategies.
const (
	StrategyMean         = "mean"
	StrategyMedian       = "median"
	StrategyMostFrequent = "most_frequent"
	StrategyConstant     = "constant"
)

// MissingCategory is the default fill value for categorical columns.
const MissingCategory = "missing"

// SimpleImputer replaces NaN cells of a numeric matrix column by column.
type SimpleImputer struct {
	state *model.StateManager

	Strategy  string
	FillValue float64

	// Statistics holds the fill value learned for each feature.
	Statistics []float64
}

// ImputerOption configures a SimpleImputer.
type ImputerOption func(*SimpleImputer)

// WithStrategy sets the strategy: mean, median, most_frequent or constant.
func WithStrategy(strategy string) ImputerOption {
	return func(s *SimpleImputer) { s.Strategy = strategy }
}

// WithFillValue sets the value used by the constant strategy.
func WithFillValue(v float64) ImputerOption {
	return func(s *SimpleImputer) { s.FillValue = v }
}

// NewSimpleImputer creates an imputer using the median by default.
func NewSimpleImputer(opts ...ImputerOption) *SimpleImputer {
	s := &SimpleImputer{
		state:    model.NewStateManager("SimpleImputer"),
		Strategy: StrategyMedian,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SimpleImputer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}

	s.Statistics = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		observed := nonMissing(col)
		switch s.Strategy {
		case StrategyConstant:
			s.Statistics[j] = s.FillValue
		case StrategyMean:
			s.Statistics[j] = meanOrZero(observed)
		case StrategyMedian:
			s.Statistics[j] = Median(observed)
		case StrategyMostFrequent:
			s.Statistics[j] = mostFrequent(observed)
		default:
			return errors.NewValidationError("strategy", "must be mean, median, most_frequent or constant", s.Strategy)
		}
	}

	s.state.SetDimensions(c, r)
	s.state.SetFitted()
	return nil
}

func (s *SimpleImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("Transform"); err != nil {
		return nil, err
	}
	if err := s.state.CheckFeatures("SimpleImputer.Transform", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		if math.IsNaN(v) {
			return s.Statistics[j]
		}
		return v
	}, X)
	return out, nil
}

func (s *SimpleImputer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// Median returns the median of values, averaging the two middle elements of
// an even-length input. It returns 0 for an empty input.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func meanOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// mostFrequent breaks ties toward the smallest value.
func mostFrequent(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mode, best, run := sorted[0], 0, 0
	for i, v := range sorted {
		if i > 0 && v == sorted[i-1] {
			run++
		} else {
			run = 1
		}
		if run > best {
			mode, best = v, run
		}
	}
	return mode
}

func nonMissing(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// CategoricalImputer fills empty cells of categorical columns.
type CategoricalImputer struct {
	Strategy  string
	FillValue string

	// Statistics holds the fill value learned for each column.
	Statistics []string
	fitted     bool
}

// NewCategoricalImputer creates an imputer for string columns. Only the
// constant and most_frequent strategies apply.
func NewCategoricalImputer(strategy, fillValue string) *CategoricalImputer {
	return &CategoricalImputer{Strategy: strategy, FillValue: fillValue}
}

// Fit learns one fill value per column.
func (c *CategoricalImputer) Fit(cols []*frame.Column) error {
	c.Statistics = make([]string, len(cols))
	for j, col := range cols {
		switch c.Strategy {
		case StrategyConstant:
			c.Statistics[j] = c.FillValue
		case StrategyMostFrequent:
			counts := make(map[string]int)
			best := ""
			for _, v := range col.Strings() {
				if v == "" {
					continue
				}
				counts[v]++
				if counts[v] > counts[best] || (counts[v] == counts[best] && v < best) {
					best = v
				}
			}
			c.Statistics[j] = best
		default:
			return errors.NewValidationError("strategy", "must be constant or most_frequent", c.Strategy)
		}
	}
	c.fitted = true
	return nil
}

// Transform returns new columns with empty cells filled.
func (c *CategoricalImputer) Transform(cols []*frame.Column) ([]*frame.Column, error) {
	if !c.fitted {
		return nil, errors.NewNotFittedError("CategoricalImputer", "Transform")
	}
	if len(cols) != len(c.Statistics) {
		return nil, errors.NewDimensionError("CategoricalImputer.Transform", len(c.Statistics), len(cols), 1)
	}
	out := make([]*frame.Column, len(cols))
	for j, col := range cols {
		values := make([]string, col.Len())
		for i, v := range col.Strings() {
			if v == "" {
				v = c.Statistics[j]
			}
			values[i] = v
		}
		out[j] = frame.NewCategorical(col.Name(), values)
	}
	return out, nil
}
