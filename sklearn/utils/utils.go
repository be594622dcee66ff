// Package utils holds input validation and class-weight helpers shared by
// the estimators.
package utils

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

// ClassWeightBalanced weights classes inversely to their frequency.
const ClassWeightBalanced = "balanced"

// CheckXY validates that X is non-empty and y is a column vector with one
// entry per row of X.
func CheckXY(op string, X, y mat.Matrix) (nSamples, nFeatures int, err error) {
	nSamples, nFeatures = X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return 0, 0, errors.NewDimensionError(op, nSamples, yRows, 0)
	}
	if yCols != 1 {
		return 0, 0, errors.NewDimensionError(op, 1, yCols, 1)
	}
	return nSamples, nFeatures, nil
}

// UniqueLabels returns the sorted distinct integer labels of a column vector.
func UniqueLabels(y mat.Matrix) []int {
	rows, _ := y.Dims()
	seen := make(map[int]struct{})
	for i := 0; i < rows; i++ {
		seen[int(y.At(i, 0))] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}

// EncodeLabels maps every label of y to its index in classes.
func EncodeLabels(y mat.Matrix, classes []int) []int {
	index := make(map[int]int, len(classes))
	for k, c := range classes {
		index[c] = k
	}
	rows, _ := y.Dims()
	out := make([]int, rows)
	for i := range out {
		out[i] = index[int(y.At(i, 0))]
	}
	return out
}

// SampleWeights returns one weight per sample. With classWeight "balanced"
// a sample of class k weighs n / (nClasses * count_k); otherwise every
// sample weighs 1.
func SampleWeights(classWeight string, encoded []int, nClasses int) ([]float64, error) {
	weights := make([]float64, len(encoded))
	switch classWeight {
	case "", "none":
		for i := range weights {
			weights[i] = 1
		}
	case ClassWeightBalanced:
		counts := make([]float64, nClasses)
		for _, k := range encoded {
			counts[k]++
		}
		n := float64(len(encoded))
		for i, k := range encoded {
			weights[i] = n / (float64(nClasses) * counts[k])
		}
	default:
		return nil, errors.NewValidationError("class_weight", "must be balanced or none", classWeight)
	}
	return weights, nil
}

// Argmax returns the index of the largest value, the first on ties.
func Argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
