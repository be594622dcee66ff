package model

import (
	"encoding/json"

	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

// ModelWeights is the serializable view of a linear model's coefficients.
type ModelWeights struct {
	// ModelType is the estimator name, e.g. "LogisticRegression".
	ModelType string `json:"model_type"`

	// Coefficients has one row per class (a single row for regression and
	// binary classification) and one column per feature.
	Coefficients [][]float64 `json:"coefficients"`

	// Intercepts has one entry per row of Coefficients.
	Intercepts []float64 `json:"intercepts"`

	// Classes labels the rows of Coefficients for multiclass models.
	Classes []int `json:"classes,omitempty"`

	// Features names the columns of Coefficients when known.
	Features []string `json:"features,omitempty"`
}

// ToJSON encodes the weights as indented JSON.
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	return json.MarshalIndent(mw, "", "  ")
}

// FromJSON decodes weights produced by ToJSON.
func (mw *ModelWeights) FromJSON(data []byte) error {
	return json.Unmarshal(data, mw)
}

// Validate checks that the rows, intercepts and feature names agree.
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return errors.NewValidationError("model_type", "is required", mw.ModelType)
	}
	if len(mw.Coefficients) == 0 {
		return errors.NewValidationError("coefficients", "fitted model must have coefficients", 0)
	}
	if len(mw.Intercepts) != len(mw.Coefficients) {
		return errors.NewDimensionError("ModelWeights.Validate", len(mw.Coefficients), len(mw.Intercepts), 0)
	}
	width := len(mw.Coefficients[0])
	for _, row := range mw.Coefficients[1:] {
		if len(row) != width {
			return errors.NewDimensionError("ModelWeights.Validate", width, len(row), 1)
		}
	}
	if len(mw.Features) > 0 && len(mw.Features) != width {
		return errors.NewDimensionError("ModelWeights.Validate", width, len(mw.Features), 1)
	}
	return nil
}

// Clone returns a deep copy.
func (mw *ModelWeights) Clone() *ModelWeights {
	clone := &ModelWeights{
		ModelType:    mw.ModelType,
		Coefficients: make([][]float64, len(mw.Coefficients)),
		Intercepts:   append([]float64(nil), mw.Intercepts...),
		Classes:      append([]int(nil), mw.Classes...),
		Features:     append([]string(nil), mw.Features...),
	}
	for i, row := range mw.Coefficients {
		clone.Coefficients[i] = append([]float64(nil), row...)
	}
	return clone
}
