// Package model defines the interfaces shared by every estimator and
// transformer in xaibench, plus the fitted-state bookkeeping they embed.
package model

import "gonum.org/v1/gonum/mat"

// Fitter is a model that learns from features X and targets y.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor predicts one value per row of X, returned as an n x 1 matrix.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator is a supervised model.
type Estimator interface {
	Fitter
	Predictor
}

// Classifier is an Estimator over integer-encoded class labels 0..k-1.
type Classifier interface {
	Estimator

	// PredictProba returns an n x k matrix of class probabilities.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the labels seen during fitting, in column order of PredictProba.
	Classes() []int
}

// Transformer learns a mapping from X and applies it.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// LinearModel exposes learned coefficients.
type LinearModel interface {
	// Weights returns the coefficients; one row per class for multiclass models.
	Weights() *ModelWeights
}

// FeatureImportancer exposes impurity-based importances, one per input column.
type FeatureImportancer interface {
	FeatureImportances() []float64
}

// SampleWeightedFitter fits with one non-negative weight per row.
type SampleWeightedFitter interface {
	FitWeighted(X, y mat.Matrix, sampleWeight []float64) error
}
