package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

// Accuracy is the fraction of exactly matching labels.
func Accuracy(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := pair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := range t {
		if t[i] == p[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(t)), nil
}

// AUC is the area under the ROC curve for binary 0/1 labels and scores.
// Ties in score count as half. With a single class present it returns 0.5.
func AUC(yTrue, yScore mat.Matrix) (float64, error) {
	t, s, err := pair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := requireBinary("AUC", t); err != nil {
		return 0, err
	}

	idx := make([]int, len(s))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return s[idx[a]] < s[idx[b]] })

	// Mann-Whitney U with average ranks for ties.
	ranks := make([]float64, len(s))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && s[idx[j+1]] == s[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	var nPos, nNeg, rankSum float64
	for i, v := range t {
		if v == 1 {
			nPos++
			rankSum += ranks[i]
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5, nil
	}
	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg), nil
}

// BinaryLogLoss is the mean negative log-likelihood of 0/1 labels under the
// predicted positive-class probabilities, clipped away from 0 and 1.
func BinaryLogLoss(yTrue, yProb mat.Matrix) (float64, error) {
	t, p, err := pair("BinaryLogLoss", yTrue, yProb)
	if err != nil {
		return 0, err
	}
	if err := requireBinary("BinaryLogLoss", t); err != nil {
		return 0, err
	}
	const eps = 1e-15
	var sum float64
	for i := range t {
		q := math.Min(math.Max(p[i], eps), 1-eps)
		if t[i] == 1 {
			sum -= math.Log(q)
		} else {
			sum -= math.Log(1 - q)
		}
	}
	return sum / float64(len(t)), nil
}

func requireBinary(op string, labels []float64) error {
	for _, v := range labels {
		if v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be 0 or 1")
		}
	}
	return nil
}
