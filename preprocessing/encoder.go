package preprocessing

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

// FeatureSeparator joins a column name and a category in encoded feature names.
const FeatureSeparator = "__"

// OneHotEncoder expands categorical columns into 0/1 indicator columns.
// Categories unseen during Fit encode as all zeros.
type OneHotEncoder struct {
	// Categories holds the sorted categories of each input column.
	Categories [][]string

	names  []string
	lookup []map[string]int
	offset []int
	width  int
}

// NewOneHotEncoder creates an encoder that ignores unknown categories.
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{}
}

// Fit learns the categories of every column.
func (e *OneHotEncoder) Fit(cols []*frame.Column) error {
	e.Categories = make([][]string, len(cols))
	e.names = make([]string, len(cols))
	e.lookup = make([]map[string]int, len(cols))
	e.offset = make([]int, len(cols))
	e.width = 0
	for j, col := range cols {
		if col.IsNumeric() {
			return errors.NewValidationError(col.Name(), "one-hot encoding needs a categorical column", col.Kind().String())
		}
		cats := col.Unique()
		sort.Strings(cats)
		e.Categories[j] = cats
		e.names[j] = col.Name()
		e.lookup[j] = make(map[string]int, len(cats))
		for k, cat := range cats {
			e.lookup[j][cat] = k
		}
		e.offset[j] = e.width
		e.width += len(cats)
	}
	return nil
}

// Transform encodes cols into an n x Width() matrix.
func (e *OneHotEncoder) Transform(cols []*frame.Column) (*mat.Dense, error) {
	if e.lookup == nil {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if len(cols) != len(e.lookup) {
		return nil, errors.NewDimensionError("OneHotEncoder.Transform", len(e.lookup), len(cols), 1)
	}
	rows := 0
	if len(cols) > 0 {
		rows = cols[0].Len()
	}
	if rows == 0 || e.width == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(rows, e.width, nil)
	for j, col := range cols {
		for i, v := range col.Strings() {
			if k, ok := e.lookup[j][v]; ok {
				out.Set(i, e.offset[j]+k, 1)
			}
		}
	}
	return out, nil
}

// Width returns the number of output columns.
func (e *OneHotEncoder) Width() int { return e.width }

// FeatureNames returns "<column>__<category>" for every output column.
func (e *OneHotEncoder) FeatureNames() []string {
	names := make([]string, 0, e.width)
	for j, cats := range e.Categories {
		for _, cat := range cats {
			names = append(names, e.names[j]+FeatureSeparator+cat)
		}
	}
	return names
}

// LabelEncoder maps string labels to 0..k-1 in sorted order.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// NewLabelEncoder creates a LabelEncoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit learns the sorted distinct labels. Empty labels are ignored.
func (l *LabelEncoder) Fit(labels []string) error {
	seen := make(map[string]struct{})
	l.classes = l.classes[:0]
	for _, v := range labels {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			l.classes = append(l.classes, v)
		}
	}
	if len(l.classes) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "no labels", errors.ErrEmptyData)
	}
	sort.Strings(l.classes)
	l.index = make(map[string]int, len(l.classes))
	for i, c := range l.classes {
		l.index[c] = i
	}
	return nil
}

// Transform encodes labels. Unknown labels are an error.
func (l *LabelEncoder) Transform(labels []string) ([]int, error) {
	if l.index == nil {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}
	out := make([]int, len(labels))
	for i, v := range labels {
		k, ok := l.index[v]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform", "unseen label "+v)
		}
		out[i] = k
	}
	return out, nil
}

// FitTransform fits and encodes labels.
func (l *LabelEncoder) FitTransform(labels []string) ([]int, error) {
	if err := l.Fit(labels); err != nil {
		return nil, err
	}
	return l.Transform(labels)
}

// InverseTransform decodes class indices. Out of range indices are an error.
func (l *LabelEncoder) InverseTransform(codes []int) ([]string, error) {
	out := make([]string, len(codes))
	for i, k := range codes {
		if k < 0 || k >= len(l.classes) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform", "class index out of range")
		}
		out[i] = l.classes[k]
	}
	return out, nil
}

// Classes returns the sorted labels.
func (l *LabelEncoder) Classes() []string {
	return append([]string(nil), l.classes...)
}
