package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "xaibench: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "xaibench: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)
			assert.Equal(t, tt.wantMsg, err.Error())

			formatted := fmt.Sprintf("%+v", err)
			assert.Contains(t, formatted, "errors_test.go", "stack trace should point at the caller")

			var modelErr *ModelError
			assert.True(t, As(err, &modelErr))
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 10, 3, 1)
	assert.Equal(t, "xaibench: Predict: dimension mismatch on axis 1 (features). Expected 10, got 3", err.Error())

	var dimErr *DimensionError
	require.True(t, As(err, &dimErr))
	assert.Equal(t, 10, dimErr.Expected)
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("Pipeline", "Predict")
	assert.Equal(t, "xaibench: Pipeline: this model is not fitted yet. Call Fit() before using Predict()", err.Error())

	var notFitted *NotFittedError
	assert.True(t, As(err, &notFitted))
}

func TestNewColumnNotFoundError(t *testing.T) {
	err := NewColumnNotFoundError("Frame.Drop", "age")
	assert.Equal(t, "xaibench: Frame.Drop: column 'age' not found", err.Error())

	var colErr *ColumnNotFoundError
	require.True(t, As(err, &colErr))
	assert.Equal(t, "age", colErr.Column)
}

func TestNewConvergenceWarning(t *testing.T) {
	warn := NewConvergenceWarning("SVC", 1000, "dual gap did not close")
	assert.Equal(t, "SVC failed to converge after 1000 iterations: dual gap did not close", warn.Error())
}

func TestWarnUsesStructuredHook(t *testing.T) {
	var got []error
	SetZerologWarnFunc(func(w error) { got = append(got, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewUndefinedMetricWarning("precision", "no predicted samples", 0))
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Error(), "'precision' is ill-defined")
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrNotImplemented, "algorithm KNN")
	assert.True(t, Is(wrapped, ErrNotImplemented))
	assert.True(t, strings.Contains(wrapped.Error(), "algorithm KNN"))

	wrapped = Wrapf(ErrNoTarget, "in %s", "SplitFeatureTarget")
	assert.True(t, Is(wrapped, ErrNoTarget))
	assert.Contains(t, wrapped.Error(), "in SplitFeatureTarget")
}

func TestNumericalHelpers(t *testing.T) {
	assert.NoError(t, CheckNumericalStability("ok", []float64{1, 2, 3}, 0))
	assert.Error(t, CheckScalar("loss", 1.0/zero(), 4))
	assert.Equal(t, 0.0, SafeDivide(1, 0))
	assert.Equal(t, 1.0, ClipValue(3, 0, 1))

	p := Softmax([]float64{1000, 1000})
	assert.InDelta(t, 0.5, p[0], 1e-12)
	assert.InDelta(t, 0.5, p[1], 1e-12)
}

func zero() float64 { return 0 }
