package explain

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/preprocessing"
)

// LimeFormat converts frames to the all-numeric layout LIME samples in.
// Categorical cells become the index of their category in the one-hot
// encoder; numeric cells pass through, with missing values replaced by the
// column median.
type LimeFormat struct {
	columns     []string
	categorical map[int][]string
	medians     map[int]float64
}

// NewLimeFormat builds the conversion for X's columns from the categories
// learned by ct.
func NewLimeFormat(X *frame.Frame, ct *preprocessing.ColumnTransformer) *LimeFormat {
	lf := &LimeFormat{
		columns:     X.Names(),
		categorical: make(map[int][]string),
		medians:     make(map[int]float64),
	}
	for j, col := range X.Columns() {
		if col.IsNumeric() {
			present := make([]float64, 0, col.Len())
			for _, v := range col.Floats() {
				if !math.IsNaN(v) {
					present = append(present, v)
				}
			}
			lf.medians[j] = preprocessing.Median(present)
			continue
		}
		lf.categorical[j] = ct.Categories(col.Name())
	}
	return lf
}

// Columns returns the column names in layout order.
func (lf *LimeFormat) Columns() []string { return append([]string(nil), lf.columns...) }

// CategoricalNames maps each categorical column index to its categories.
func (lf *LimeFormat) CategoricalNames() map[int][]string { return lf.categorical }

// CategoricalFeatures returns the sorted categorical column indices.
func (lf *LimeFormat) CategoricalFeatures() []int {
	out := make([]int, 0, len(lf.categorical))
	for j := range lf.categorical {
		out = append(out, j)
	}
	sort.Ints(out)
	return out
}

// IsCategorical reports whether column j is label-encoded.
func (lf *LimeFormat) IsCategorical(j int) bool {
	_, ok := lf.categorical[j]
	return ok
}

// ToLime encodes X. Missing categorical cells map to the "missing"
// category when it was learned; unknown categories map to -1.
func (lf *LimeFormat) ToLime(X *frame.Frame) (*mat.Dense, error) {
	if X.Width() != len(lf.columns) {
		return nil, errors.NewDimensionError("LimeFormat.ToLime", len(lf.columns), X.Width(), 1)
	}
	out := mat.NewDense(X.Len(), len(lf.columns), nil)
	for j, name := range lf.columns {
		col, err := X.Column(name)
		if err != nil {
			return nil, err
		}
		if cats, ok := lf.categorical[j]; ok {
			index := make(map[string]int, len(cats))
			for k, c := range cats {
				index[c] = k
			}
			for i, v := range col.Strings() {
				if v == "" {
					v = preprocessing.MissingCategory
				}
				k, ok := index[v]
				if !ok {
					k = -1
				}
				out.Set(i, j, float64(k))
			}
			continue
		}
		if !col.IsNumeric() {
			return nil, errors.NewValidationError(name, "expected a numeric column", col.Kind().String())
		}
		for i, v := range col.Floats() {
			if math.IsNaN(v) {
				v = lf.medians[j]
			}
			out.Set(i, j, v)
		}
	}
	return out, nil
}

// FromLime decodes LIME rows back into a frame. Category indices outside
// the learned range decode as missing.
func (lf *LimeFormat) FromLime(data mat.Matrix) (*frame.Frame, error) {
	rows, cols := data.Dims()
	if cols != len(lf.columns) {
		return nil, errors.NewDimensionError("LimeFormat.FromLime", len(lf.columns), cols, 1)
	}
	out := make([]*frame.Column, cols)
	for j, name := range lf.columns {
		if cats, ok := lf.categorical[j]; ok {
			values := make([]string, rows)
			for i := range values {
				k := int(math.Round(data.At(i, j)))
				if k >= 0 && k < len(cats) {
					values[i] = cats[k]
				}
			}
			out[j] = frame.NewCategorical(name, values)
			continue
		}
		out[j] = frame.NewNumeric(name, mat.Col(nil, j, data))
	}
	return frame.New(out...)
}
