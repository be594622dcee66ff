// Package explain produces global explanations (feature weights) and local
// LIME explanations for fitted pipelines.
package explain

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/YuminosukeSato/xaibench/core/model"
	"github.com/YuminosukeSato/xaibench/pipeline"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/pkg/log"
)

// BiasFeature names the intercept row of linear weights.
const BiasFeature = "<BIAS>"

// Weight kinds.
const (
	KindCoefficients = "coefficients"
	KindImportances  = "importances"
)

// FeatureWeight is one feature's weight, for one class of a multiclass
// linear model or for the whole model otherwise.
type FeatureWeight struct {
	Class   string  `json:"class,omitempty"`
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}

// Weights is a global explanation. Rows are grouped by class and sorted
// by decreasing absolute weight within a group.
type Weights struct {
	Estimator string          `json:"estimator"`
	Kind      string          `json:"kind"`
	Target    string          `json:"target"`
	Rows      []FeatureWeight `json:"weights"`
}

// InterpretModel returns the weights of the pipeline's estimator named by
// the pipeline's feature names: coefficients plus bias for linear models,
// impurity importances for tree models. Other estimators return
// errors.ErrNotImplemented.
func InterpretModel(p *pipeline.Pipeline) (*Weights, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "InterpretModel")
	}
	names := p.FeatureNames()
	w := &Weights{Estimator: p.Algorithm().String(), Target: p.Target()}

	switch est := p.Estimator().(type) {
	case model.LinearModel:
		mw := est.Weights()
		if mw == nil {
			return nil, errors.NewNotFittedError(p.Algorithm().String(), "Weights")
		}
		mw.Features = names
		if err := mw.Validate(); err != nil {
			return nil, err
		}
		w.Kind = KindCoefficients
		for row, coef := range mw.Coefficients {
			class := weightClass(p, mw, row)
			group := make([]FeatureWeight, 0, len(coef)+1)
			for j, c := range coef {
				group = append(group, FeatureWeight{Class: class, Feature: names[j], Weight: c})
			}
			group = append(group, FeatureWeight{Class: class, Feature: BiasFeature, Weight: mw.Intercepts[row]})
			w.Rows = append(w.Rows, sortByMagnitude(group)...)
		}
	case model.FeatureImportancer:
		imp := est.FeatureImportances()
		if len(imp) != len(names) {
			return nil, errors.NewDimensionError("InterpretModel", len(names), len(imp), 1)
		}
		w.Kind = KindImportances
		group := make([]FeatureWeight, len(imp))
		for j, v := range imp {
			group[j] = FeatureWeight{Feature: names[j], Weight: v}
		}
		w.Rows = sortByMagnitude(group)
	default:
		return nil, errors.Wrapf(errors.ErrNotImplemented, "weights of %s", p.Algorithm())
	}

	log.GetLoggerWithName("explain").Debug("Interpreted model",
		log.OperationKey, log.OperationInterpret,
		log.AlgorithmKey, w.Estimator,
		log.FeaturesKey, len(names),
	)
	return w, nil
}

// weightClass labels a coefficient row. Binary models have a single row
// for the positive class; regression rows are unlabelled.
func weightClass(p *pipeline.Pipeline, mw *model.ModelWeights, row int) string {
	classes := p.Classes()
	switch {
	case len(classes) == 0:
		return ""
	case len(mw.Coefficients) == 1:
		return classes[len(classes)-1]
	case row < len(mw.Classes):
		return p.ClassLabel(mw.Classes[row])
	default:
		return p.ClassLabel(row)
	}
}

func sortByMagnitude(rows []FeatureWeight) []FeatureWeight {
	sort.SliceStable(rows, func(a, b int) bool {
		return math.Abs(rows[a].Weight) > math.Abs(rows[b].Weight)
	})
	return rows
}

// Top returns the first n rows of each class group.
func (w *Weights) Top(n int) []FeatureWeight {
	if n <= 0 {
		return w.Rows
	}
	var out []FeatureWeight
	count := make(map[string]int)
	for _, r := range w.Rows {
		if count[r.Class] < n {
			out = append(out, r)
			count[r.Class]++
		}
	}
	return out
}

// Classes returns the class groups in order of appearance.
func (w *Weights) Classes() []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range w.Rows {
		if !seen[r.Class] {
			seen[r.Class] = true
			out = append(out, r.Class)
		}
	}
	return out
}

// ToJSON encodes the weights as indented JSON.
func (w *Weights) ToJSON() ([]byte, error) {
	return json.MarshalIndent(w, "", "  ")
}

// Render writes the top n rows per class as a table. n <= 0 writes all.
func (w *Weights) Render(out io.Writer, n int) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s %s (target %s)", w.Estimator, w.Kind, w.Target))
	t.AppendHeader(table.Row{"Class", "Weight", "Feature"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	for _, r := range w.Top(n) {
		t.AppendRow(table.Row{r.Class, fmt.Sprintf("%+.3f", r.Weight), r.Feature})
	}
	t.Render()
}

func (w *Weights) String() string {
	var sb strings.Builder
	w.Render(&sb, 20)
	return sb.String()
}
