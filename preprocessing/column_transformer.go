package preprocessing

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/core/model"
	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

// Scaling selects the scaler of the numeric branch.
type Scaling string

const (
	ScalingStandard Scaling = "standard"
	ScalingMinMax   Scaling = "minmax"
)

// ColumnTransformer turns a frame into a numeric design matrix. Numeric
// columns are median-imputed and scaled; categorical columns are filled with
// "missing" and one-hot encoded. Output columns are the numeric features
// followed by the encoded categories.
type ColumnTransformer struct {
	numeric     []string
	categorical []string
	scaling     Scaling

	numImputer *SimpleImputer
	scaler     model.Transformer
	catImputer *CategoricalImputer
	encoder    *OneHotEncoder
	fitted     bool
}

// ColumnTransformerOption configures a ColumnTransformer.
type ColumnTransformerOption func(*ColumnTransformer)

// WithScaling selects standard (default) or min-max scaling.
func WithScaling(s Scaling) ColumnTransformerOption {
	return func(ct *ColumnTransformer) { ct.scaling = s }
}

// NewColumnTransformer creates a transformer over the given column groups.
func NewColumnTransformer(numeric, categorical []string, opts ...ColumnTransformerOption) *ColumnTransformer {
	ct := &ColumnTransformer{
		numeric:     append([]string(nil), numeric...),
		categorical: append([]string(nil), categorical...),
		scaling:     ScalingStandard,
	}
	for _, opt := range opts {
		opt(ct)
	}
	return ct
}

// Fit learns imputation values, scaling statistics and categories from f.
func (ct *ColumnTransformer) Fit(f *frame.Frame) error {
	if f.Len() == 0 {
		return errors.NewModelError("ColumnTransformer.Fit", "empty data", errors.ErrEmptyData)
	}

	ct.numImputer = NewSimpleImputer(WithStrategy(StrategyMedian))
	switch ct.scaling {
	case ScalingStandard, "":
		ct.scaler = NewStandardScalerDefault()
	case ScalingMinMax:
		ct.scaler = NewMinMaxScalerDefault()
	default:
		return errors.NewValidationError("scaling", "must be standard or minmax", string(ct.scaling))
	}
	if len(ct.numeric) > 0 {
		X, err := numericMatrix(f, ct.numeric)
		if err != nil {
			return err
		}
		imputed, err := ct.numImputer.FitTransform(X)
		if err != nil {
			return err
		}
		if err := ct.scaler.Fit(imputed); err != nil {
			return err
		}
	}

	ct.catImputer = NewCategoricalImputer(StrategyConstant, MissingCategory)
	ct.encoder = NewOneHotEncoder()
	cols, err := categoricalColumns(f, ct.categorical)
	if err != nil {
		return err
	}
	if err := ct.catImputer.Fit(cols); err != nil {
		return err
	}
	filled, err := ct.catImputer.Transform(cols)
	if err != nil {
		return err
	}
	if err := ct.encoder.Fit(filled); err != nil {
		return err
	}

	ct.fitted = true
	return nil
}

// Transform encodes f into an n x len(FeatureNames()) matrix.
func (ct *ColumnTransformer) Transform(f *frame.Frame) (*mat.Dense, error) {
	if !ct.fitted {
		return nil, errors.NewNotFittedError("ColumnTransformer", "Transform")
	}
	n := f.Len()
	if n == 0 || ct.Width() == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(n, ct.Width(), nil)

	nNum := len(ct.numeric)
	if nNum > 0 {
		X, err := numericMatrix(f, ct.numeric)
		if err != nil {
			return nil, err
		}
		imputed, err := ct.numImputer.Transform(X)
		if err != nil {
			return nil, err
		}
		scaled, err := ct.scaler.Transform(imputed)
		if err != nil {
			return nil, err
		}
		out.Slice(0, n, 0, nNum).(*mat.Dense).Copy(scaled)
	}

	if ct.encoder.Width() > 0 {
		cols, err := categoricalColumns(f, ct.categorical)
		if err != nil {
			return nil, err
		}
		filled, err := ct.catImputer.Transform(cols)
		if err != nil {
			return nil, err
		}
		encoded, err := ct.encoder.Transform(filled)
		if err != nil {
			return nil, err
		}
		out.Slice(0, n, nNum, nNum+ct.encoder.Width()).(*mat.Dense).Copy(encoded)
	}
	return out, nil
}

// FitTransform fits on f and encodes it.
func (ct *ColumnTransformer) FitTransform(f *frame.Frame) (*mat.Dense, error) {
	if err := ct.Fit(f); err != nil {
		return nil, err
	}
	return ct.Transform(f)
}

// Width returns the number of output columns once fitted.
func (ct *ColumnTransformer) Width() int {
	if ct.encoder == nil {
		return len(ct.numeric)
	}
	return len(ct.numeric) + ct.encoder.Width()
}

// NumericFeatures returns the numeric input columns.
func (ct *ColumnTransformer) NumericFeatures() []string {
	return append([]string(nil), ct.numeric...)
}

// CategoricalFeatures returns the categorical input columns.
func (ct *ColumnTransformer) CategoricalFeatures() []string {
	return append([]string(nil), ct.categorical...)
}

// OneHotFeatures returns the encoded categorical feature names.
func (ct *ColumnTransformer) OneHotFeatures() []string {
	if ct.encoder == nil {
		return nil
	}
	return ct.encoder.FeatureNames()
}

// FeatureNames returns the names of all output columns: numeric features
// followed by the encoded categories.
func (ct *ColumnTransformer) FeatureNames() []string {
	return append(ct.NumericFeatures(), ct.OneHotFeatures()...)
}

// Categories returns the categories learned for a categorical column,
// including the "missing" fill value when it occurred.
func (ct *ColumnTransformer) Categories(column string) []string {
	if ct.encoder == nil {
		return nil
	}
	prefix := column + FeatureSeparator
	var cats []string
	for _, name := range ct.encoder.FeatureNames() {
		if strings.HasPrefix(name, prefix) {
			cats = append(cats, strings.TrimPrefix(name, prefix))
		}
	}
	return cats
}

func (ct *ColumnTransformer) String() string {
	return fmt.Sprintf("ColumnTransformer(num=%v, cat=%v, scaling=%s)", ct.numeric, ct.categorical, ct.scaling)
}

func numericMatrix(f *frame.Frame, names []string) (*mat.Dense, error) {
	X := mat.NewDense(f.Len(), len(names), nil)
	for j, name := range names {
		col, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		if !col.IsNumeric() {
			return nil, errors.NewValidationError(name, "expected a numeric column", col.Kind().String())
		}
		X.SetCol(j, col.Floats())
	}
	return X, nil
}

func categoricalColumns(f *frame.Frame, names []string) ([]*frame.Column, error) {
	cols := make([]*frame.Column, len(names))
	for j, name := range names {
		col, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		if col.IsNumeric() {
			return nil, errors.NewValidationError(name, "expected a categorical column", col.Kind().String())
		}
		cols[j] = col
	}
	return cols, nil
}
