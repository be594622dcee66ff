package explain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// quartileDiscretizer bins continuous features at their 25th, 50th and
// 75th percentiles and can draw values back from a bin.
type quartileDiscretizer struct {
	features   []int
	thresholds map[int][]float64
	names      map[int][]string
	mins       map[int][]float64
	maxs       map[int][]float64
	means      map[int][]float64
	stds       map[int][]float64
}

func newQuartileDiscretizer(data *mat.Dense, features []int, names []string) *quartileDiscretizer {
	d := &quartileDiscretizer{
		features:   append([]int(nil), features...),
		thresholds: make(map[int][]float64),
		names:      make(map[int][]string),
		mins:       make(map[int][]float64),
		maxs:       make(map[int][]float64),
		means:      make(map[int][]float64),
		stds:       make(map[int][]float64),
	}
	sort.Ints(d.features)
	rows, _ := data.Dims()
	for _, f := range d.features {
		values := mat.Col(nil, f, data)
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)

		qts := uniqueSorted([]float64{
			percentile(sorted, 25),
			percentile(sorted, 50),
			percentile(sorted, 75),
		})
		d.thresholds[f] = qts

		name := names[f]
		labels := []string{fmt.Sprintf("%s <= %.2f", name, qts[0])}
		for i := 0; i+1 < len(qts); i++ {
			labels = append(labels, fmt.Sprintf("%.2f < %s <= %.2f", qts[i], name, qts[i+1]))
		}
		labels = append(labels, fmt.Sprintf("%s > %.2f", name, qts[len(qts)-1]))
		d.names[f] = labels

		bins := make([][]float64, len(qts)+1)
		for i := 0; i < rows; i++ {
			b := bin(qts, values[i])
			bins[b] = append(bins[b], values[i])
		}
		for _, sel := range bins {
			mean, std := 0.0, 0.0
			if len(sel) > 0 {
				mean, std = stat.PopMeanStdDev(sel, nil)
			}
			d.means[f] = append(d.means[f], mean)
			d.stds[f] = append(d.stds[f], std+1e-11)
		}
		d.mins[f] = append([]float64{floats.Min(values)}, qts...)
		d.maxs[f] = append(append([]float64(nil), qts...), floats.Max(values))
	}
	return d
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func uniqueSorted(values []float64) []float64 {
	out := values[:1]
	for _, v := range values[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// bin returns the number of thresholds strictly below x.
func bin(qts []float64, x float64) int {
	return sort.SearchFloat64s(qts, x)
}

// discretize replaces the continuous features of row with bin indices.
func (d *quartileDiscretizer) discretize(row []float64) {
	for _, f := range d.features {
		row[f] = float64(bin(d.thresholds[f], row[f]))
	}
}

// undiscretize replaces bin indices in row with values drawn from a normal
// fitted to the bin and truncated to its bounds.
func (d *quartileDiscretizer) undiscretize(row []float64, src rand.Source) {
	for _, f := range d.features {
		b := int(row[f])
		lo, hi := d.mins[f][b], d.maxs[f][b]
		if lo == hi {
			row[f] = lo
			continue
		}
		row[f] = truncatedNormal(d.means[f][b], d.stds[f][b], lo, hi, src)
	}
}

// truncatedNormal samples N(mu, sigma) restricted to [lo, hi] by rejection,
// falling back to a uniform draw when the interval has little mass.
func truncatedNormal(mu, sigma, lo, hi float64, src rand.Source) float64 {
	n := distuv.Normal{Mu: mu, Sigma: sigma, Src: src}
	for i := 0; i < 100; i++ {
		if v := n.Rand(); v >= lo && v <= hi {
			return v
		}
	}
	return distuv.Uniform{Min: lo, Max: hi, Src: src}.Rand()
}

// featureLabel returns the readable condition for bin b of feature f.
func (d *quartileDiscretizer) featureLabel(f, b int) string {
	return d.names[f][b]
}

func (d *quartileDiscretizer) isContinuous(f int) bool {
	_, ok := d.thresholds[f]
	return ok
}
