package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

// ClassMetrics are the precision, recall and F1 of one class.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// Report summarizes a classifier on labelled data.
type Report struct {
	Classes     []ClassMetrics `json:"classes"`
	Accuracy    float64        `json:"accuracy"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
	Support     int            `json:"support"`
}

// AccuracyLabels is the fraction of equal labels.
func AccuracyLabels(yTrue, yPred []string) (float64, error) {
	if len(yTrue) == 0 {
		return 0, errors.NewValueError("AccuracyLabels", "empty input")
	}
	if len(yTrue) != len(yPred) {
		return 0, errors.NewDimensionError("AccuracyLabels", len(yTrue), len(yPred), 0)
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// ConfusionMatrix counts yTrue (rows) against yPred (columns) over the sorted
// union of labels, which it also returns.
func ConfusionMatrix(yTrue, yPred []string) ([][]int, []string, error) {
	if len(yTrue) != len(yPred) {
		return nil, nil, errors.NewDimensionError("ConfusionMatrix", len(yTrue), len(yPred), 0)
	}
	seen := make(map[string]int)
	for _, v := range append(append([]string(nil), yTrue...), yPred...) {
		seen[v] = 0
	}
	labels := make([]string, 0, len(seen))
	for v := range seen {
		labels = append(labels, v)
	}
	sort.Strings(labels)
	for i, v := range labels {
		seen[v] = i
	}
	cm := make([][]int, len(labels))
	for i := range cm {
		cm[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		cm[seen[yTrue[i]]][seen[yPred[i]]]++
	}
	return cm, labels, nil
}

// ClassificationReport computes per-class precision, recall and F1 plus
// macro and support-weighted averages. Undefined ratios are reported as 0
// with an UndefinedMetricWarning.
func ClassificationReport(yTrue, yPred []string) (*Report, error) {
	acc, err := AccuracyLabels(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	cm, labels, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return nil, err
	}

	r := &Report{Accuracy: acc, Support: len(yTrue)}
	var macro, weighted ClassMetrics
	for k, label := range labels {
		tp := cm[k][k]
		predicted, actual := 0, 0
		for j := range labels {
			predicted += cm[j][k]
			actual += cm[k][j]
		}
		m := ClassMetrics{Label: label, Support: actual}
		m.Precision = ratio("precision", label, tp, predicted)
		m.Recall = ratio("recall", label, tp, actual)
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Classes = append(r.Classes, m)

		macro.Precision += m.Precision
		macro.Recall += m.Recall
		macro.F1 += m.F1
		w := float64(actual)
		weighted.Precision += w * m.Precision
		weighted.Recall += w * m.Recall
		weighted.F1 += w * m.F1
	}

	n := float64(len(labels))
	total := float64(len(yTrue))
	r.MacroAvg = ClassMetrics{Label: "macro avg", Precision: macro.Precision / n, Recall: macro.Recall / n, F1: macro.F1 / n, Support: len(yTrue)}
	r.WeightedAvg = ClassMetrics{Label: "weighted avg", Precision: weighted.Precision / total, Recall: weighted.Recall / total, F1: weighted.F1 / total, Support: len(yTrue)}
	return r, nil
}

func ratio(metric, label string, num, den int) float64 {
	if den == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning(metric, fmt.Sprintf("no samples for label %q", label), 0))
		return 0
	}
	return float64(num) / float64(den)
}

// Render writes the report as a table.
func (r *Report) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "precision", "recall", "f1-score", "support"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for _, c := range r.Classes {
		t.AppendRow(metricsRow(c))
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"accuracy", "", "", fmt.Sprintf("%.2f", r.Accuracy), r.Support})
	t.AppendRow(metricsRow(r.MacroAvg))
	t.AppendRow(metricsRow(r.WeightedAvg))
	t.Render()
}

func metricsRow(c ClassMetrics) table.Row {
	return table.Row{c.Label, fmt.Sprintf("%.2f", c.Precision), fmt.Sprintf("%.2f", c.Recall), fmt.Sprintf("%.2f", c.F1), c.Support}
}

func (r *Report) String() string {
	var sb strings.Builder
	r.Render(&sb)
	return strings.TrimRight(sb.String(), "\n")
}
