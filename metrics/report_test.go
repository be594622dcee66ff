package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassificationReport(t *testing.T) {
	yTrue := []string{"cat", "cat", "dog", "dog", "dog", "bird"}
	yPred := []string{"cat", "dog", "dog", "dog", "cat", "cat"}

	r, err := ClassificationReport(yTrue, yPred)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, r.Accuracy, 1e-12)
	require.Len(t, r.Classes, 3)

	byLabel := map[string]ClassMetrics{}
	for _, c := range r.Classes {
		byLabel[c.Label] = c
	}
	assert.Equal(t, 0.0, byLabel["bird"].Precision, "never predicted")
	assert.InDelta(t, 1.0/3, byLabel["cat"].Precision, 1e-12)
	assert.InDelta(t, 0.5, byLabel["cat"].Recall, 1e-12)
	assert.InDelta(t, 2.0/3, byLabel["dog"].Precision, 1e-12)
	assert.InDelta(t, 2.0/3, byLabel["dog"].Recall, 1e-12)
	assert.Equal(t, 3, byLabel["dog"].Support)
	assert.Equal(t, 6, r.WeightedAvg.Support)
	assert.InDelta(t, (0+0.5+2.0/3)/3, r.MacroAvg.Recall, 1e-12)

	out := r.String()
	assert.Contains(t, out, "precision")
	assert.Contains(t, out, "weighted avg")
}

func TestConfusionMatrix(t *testing.T) {
	cm, labels, err := ConfusionMatrix([]string{"a", "b", "b"}, []string{"a", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, labels)
	assert.Equal(t, [][]int{{1, 0}, {1, 1}}, cm)

	_, _, err = ConfusionMatrix([]string{"a"}, nil)
	assert.Error(t, err)
}

func TestAccuracyLabels(t *testing.T) {
	acc, err := AccuracyLabels([]string{"x", "y"}, []string{"x", "x"})
	require.NoError(t, err)
	assert.Equal(t, 0.5, acc)

	_, err = AccuracyLabels(nil, nil)
	assert.Error(t, err)
}
