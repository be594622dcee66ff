package explain

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

// ResultsDir is the default directory for saved explanation charts.
const ResultsDir = "lime_results"

var (
	positiveColor = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	negativeColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// SaveExplanation draws the contributions of exp as horizontal bars and
// writes example_<n>.<format> under dir. format is "png" or "svg".
func SaveExplanation(exp *Explanation, dir, format string) (string, error) {
	labels := make([]string, len(exp.Contributions))
	values := make([]float64, len(exp.Contributions))
	// Bars are drawn bottom-up, so the largest contribution goes last.
	for i, c := range exp.Contributions {
		k := len(exp.Contributions) - 1 - i
		labels[k] = c.Condition
		values[k] = c.Weight
	}
	title := fmt.Sprintf("Local explanation for %s (example %d)", exp.Label, exp.Example)
	name := fmt.Sprintf("example_%d", exp.Example)
	return saveBars(title, labels, values, dir, name, format)
}

// SaveWeights draws the top n weights of every class of w.
func SaveWeights(w *Weights, n int, dir, format string) ([]string, error) {
	top := w.Top(n)
	var paths []string
	for _, class := range w.Classes() {
		var labels []string
		var values []float64
		for _, fw := range top {
			if fw.Class != class {
				continue
			}
			labels = append([]string{fw.Feature}, labels...)
			values = append([]float64{fw.Weight}, values...)
		}
		title := fmt.Sprintf("%s %s", w.Estimator, w.Kind)
		name := "weights"
		if class != "" {
			title += " (" + class + ")"
			name += "_" + sanitize(class)
		}
		path, err := saveBars(title, labels, values, dir, name, format)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func saveBars(title string, labels []string, values []float64, dir, name, format string) (string, error) {
	if len(values) == 0 {
		return "", errors.NewModelError("saveBars", "nothing to plot", errors.ErrEmptyData)
	}
	switch format {
	case "":
		format = "png"
	case "png", "svg":
	default:
		return "", errors.NewValidationError("format", "must be png or svg", format)
	}

	pos := make(plotter.Values, len(values))
	neg := make(plotter.Values, len(values))
	for i, v := range values {
		if v >= 0 {
			pos[i] = v
		} else {
			neg[i] = v
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "weight"

	width := vg.Points(12)
	for _, series := range []struct {
		values plotter.Values
		color  color.Color
	}{{pos, positiveColor}, {neg, negativeColor}} {
		bars, err := plotter.NewBarChart(series.values, width)
		if err != nil {
			return "", errors.Wrap(err, "bar chart")
		}
		bars.Horizontal = true
		bars.Color = series.color
		bars.LineStyle.Width = 0
		p.Add(bars)
	}
	p.Add(plotter.NewGrid())
	p.NominalY(labels...)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", dir)
	}
	path := filepath.Join(dir, name+"."+format)
	height := vg.Length(len(values))*vg.Points(20) + 2*vg.Inch
	if err := p.Save(8*vg.Inch, height, path); err != nil {
		return "", errors.Wrapf(err, "save %s", path)
	}
	return path, nil
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
