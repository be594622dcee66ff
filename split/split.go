// Package split divides features and target into train and test sets,
// either by a shuffled holdout or by balanced groups over cross columns.
package split

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/pkg/log"
)

// Type selects the splitting strategy.
type Type int

const (
	Imbalanced Type = 1
	Balanced   Type = 2
)

func (t Type) String() string {
	switch t {
	case Imbalanced:
		return "IMBALANCED"
	case Balanced:
		return "BALANCED"
	default:
		return "UNKNOWN"
	}
}

// ParseType resolves "IMBALANCED" or "BALANCED", case-insensitively.
func ParseType(name string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "IMBALANCED":
		return Imbalanced, nil
	case "BALANCED":
		return Balanced, nil
	default:
		return 0, errors.NewValidationError("split", "must be IMBALANCED or BALANCED", name)
	}
}

// Defaults.
const (
	DefaultTestSize    = 0.3
	DefaultRandomState = 33
	DefaultMinPerGroup = 600
	DefaultMaxPerGroup = 600

	// QuantileBins is the number of bins a numeric cross column is cut into.
	QuantileBins = 6
)

// Split is a strategy plus the columns that define balanced groups.
type Split struct {
	Type    Type
	Columns []string
}

// Result holds both sides of a split. Row order within each side follows
// the draw order.
type Result struct {
	XTrain *frame.Frame
	XTest  *frame.Frame
	YTrain *frame.Column
	YTest  *frame.Column

	TrainIndex []int
	TestIndex  []int
}

// Option configures Apply.
type Option func(*config)

type config struct {
	testSize    float64
	randomState int64
	minPerGroup int
	maxPerGroup int
	categorical map[string]bool
}

// WithTestSize sets the test fraction of an imbalanced split.
func WithTestSize(f float64) Option { return func(c *config) { c.testSize = f } }

// WithRandomState seeds the shuffle.
func WithRandomState(seed int64) Option { return func(c *config) { c.randomState = seed } }

// WithMinPerGroup sets how many rows of each balanced group go to test.
func WithMinPerGroup(n int) Option { return func(c *config) { c.minPerGroup = n } }

// WithMaxPerGroup caps the training rows of each balanced group. 0 means no cap.
func WithMaxPerGroup(n int) Option { return func(c *config) { c.maxPerGroup = n } }

// WithCategorical names the categorical features. Numeric cross columns not
// listed here are grouped by quantile bins instead of exact values.
func WithCategorical(names ...string) Option {
	return func(c *config) {
		if c.categorical == nil {
			c.categorical = make(map[string]bool, len(names))
		}
		for _, n := range names {
			c.categorical[n] = true
		}
	}
}

// Apply splits X and y. Unsupported types return errors.ErrNotImplemented.
func Apply(s Split, X *frame.Frame, y *frame.Column, opts ...Option) (*Result, error) {
	c := config{
		testSize:    DefaultTestSize,
		randomState: DefaultRandomState,
		minPerGroup: DefaultMinPerGroup,
		maxPerGroup: DefaultMaxPerGroup,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if y == nil {
		return nil, errors.NewModelError("split.Apply", "target", errors.ErrNoTarget)
	}
	if X.Len() != y.Len() {
		return nil, errors.NewDimensionError("split.Apply", X.Len(), y.Len(), 0)
	}
	if X.Len() == 0 {
		return nil, errors.NewModelError("split.Apply", "empty data", errors.ErrEmptyData)
	}

	rng := rand.New(rand.NewSource(c.randomState))
	var train, test []int
	var err error
	switch s.Type {
	case Imbalanced:
		train, test, err = holdout(X.Len(), c, rng)
	case Balanced:
		train, test, err = balanced(s.Columns, X, y, c, rng)
	default:
		return nil, errors.Wrapf(errors.ErrNotImplemented, "split type %d", int(s.Type))
	}
	if err != nil {
		return nil, err
	}

	log.GetLoggerWithName("split").Debug("Split data",
		log.OperationKey, log.OperationSplit,
		log.SplitTypeKey, s.Type.String(),
		log.CrossColumnsKey, s.Columns,
		"train", len(train),
		"test", len(test),
	)
	return &Result{
		XTrain:     X.Take(train),
		XTest:      X.Take(test),
		YTrain:     y.Take(train),
		YTest:      y.Take(test),
		TrainIndex: train,
		TestIndex:  test,
	}, nil
}

// holdout shuffles all rows and puts ceil(testSize*n) of them in test.
func holdout(n int, c config, rng *rand.Rand) (train, test []int, err error) {
	if c.testSize <= 0 || c.testSize >= 1 {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", c.testSize)
	}
	nTest := int(math.Ceil(c.testSize * float64(n)))
	if nTest >= n {
		return nil, nil, errors.NewValueError("split.Apply", "test size leaves no training rows")
	}
	perm := rng.Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// balanced groups rows by the cross columns and the target. Each group
// sends min(minPerGroup, len/2) shuffled rows to test and up to maxPerGroup
// of the rest to train. Groups of a single row only train.
func balanced(columns []string, X *frame.Frame, y *frame.Column, c config, rng *rand.Rand) (train, test []int, err error) {
	if len(columns) == 0 {
		return nil, nil, errors.NewValidationError("cross_columns", "balanced split needs at least one column", columns)
	}
	if c.minPerGroup < 1 {
		return nil, nil, errors.NewValidationError("min_per_group", "must be >= 1", c.minPerGroup)
	}
	cells := make([]func(int) string, 0, len(columns)+1)
	for _, name := range columns {
		col, err := X.Column(name)
		if err != nil {
			return nil, nil, err
		}
		if col.IsNumeric() && !c.categorical[name] {
			cells = append(cells, quantileBins(col, QuantileBins))
			continue
		}
		cells = append(cells, col.Cell)
	}
	cells = append(cells, y.Cell)

	var order []string
	groups := make(map[string][]int)
	key := make([]string, len(cells))
	for i := 0; i < X.Len(); i++ {
		for j, cell := range cells {
			key[j] = cell(i)
		}
		k := strings.Join(key, "\x1f")
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	for _, k := range order {
		rows := groups[k]
		rng.Shuffle(len(rows), func(a, b int) { rows[a], rows[b] = rows[b], rows[a] })
		if len(rows) < 2 {
			train = append(train, rows...)
			continue
		}
		nTest := c.minPerGroup
		if nTest > len(rows)/2 {
			nTest = len(rows) / 2
		}
		rest := rows[nTest:]
		if c.maxPerGroup > 0 && len(rest) > c.maxPerGroup {
			rest = rest[:c.maxPerGroup]
		}
		test = append(test, rows[:nTest]...)
		train = append(train, rest...)
	}
	if len(test) == 0 {
		return nil, nil, errors.NewValueError("split.Apply", "no group has enough rows for a test sample")
	}
	return train, test, nil
}

// quantileBins returns the bin label of each row of a numeric column, cut at
// the 1/n .. (n-1)/n quantiles of its present values. Missing values share
// their own bin.
func quantileBins(col *frame.Column, n int) func(int) string {
	var present []float64
	for _, v := range col.Floats() {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	sort.Float64s(present)
	var cuts []float64
	if len(present) > 0 {
		for q := 1; q < n; q++ {
			v := stat.Quantile(float64(q)/float64(n), stat.Empirical, present, nil)
			if len(cuts) == 0 || v > cuts[len(cuts)-1] {
				cuts = append(cuts, v)
			}
		}
	}
	values := col.Floats()
	return func(i int) string {
		v := values[i]
		if math.IsNaN(v) {
			return "NaN"
		}
		// bins are right-closed: (cut[b-1], cut[b]]
		return "q" + strconv.Itoa(sort.SearchFloat64s(cuts, v))
	}
}
