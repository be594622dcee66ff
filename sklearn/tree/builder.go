package tree

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/xaibench/core/parallel"
)

const leaf = -1

// node is one entry of the flat tree array. Internal nodes send rows with
// x[feature] <= threshold to left.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int

	// value holds class probabilities for classifiers and the mean target
	// for regressors.
	value    []float64
	impurity float64
	weight   float64
	samples  int
	depth    int
}

type treeStruct struct {
	nodes       []node
	importances []float64
}

// builder grows a CART tree. nClasses == 0 means regression.
type builder struct {
	X        *mat.Dense
	y        []float64
	w        []float64
	nClasses int

	criterion           string
	maxDepth            int
	minSamplesSplit     int
	minSamplesLeaf      int
	maxFeatures         int
	minImpurityDecrease float64
	rng                 *rand.Rand

	totalWeight float64
	tree        *treeStruct
}

type stats struct {
	weight float64
	counts []float64
	sum    float64
	sumSq  float64
}

func (b *builder) newStats() stats {
	if b.nClasses > 0 {
		return stats{counts: make([]float64, b.nClasses)}
	}
	return stats{}
}

func (b *builder) add(s *stats, i int, sign float64) {
	w := b.w[i] * sign
	s.weight += w
	if b.nClasses > 0 {
		s.counts[int(b.y[i])] += w
		return
	}
	s.sum += w * b.y[i]
	s.sumSq += w * b.y[i] * b.y[i]
}

func (b *builder) impurity(s *stats) float64 {
	if s.weight <= 0 {
		return 0
	}
	if b.nClasses == 0 {
		mean := s.sum / s.weight
		return math.Max(s.sumSq/s.weight-mean*mean, 0)
	}
	if b.criterion == "entropy" {
		h := 0.0
		for _, c := range s.counts {
			if c > 0 {
				p := c / s.weight
				h -= p * math.Log2(p)
			}
		}
		return h
	}
	g := 1.0
	for _, c := range s.counts {
		p := c / s.weight
		g -= p * p
	}
	return g
}

func (b *builder) value(s *stats) []float64 {
	if b.nClasses == 0 {
		if s.weight <= 0 {
			return []float64{0}
		}
		return []float64{s.sum / s.weight}
	}
	v := make([]float64, b.nClasses)
	for k, c := range s.counts {
		if s.weight > 0 {
			v[k] = c / s.weight
		}
	}
	return v
}

type candidate struct {
	feature   int
	threshold float64
	gain      float64
}

func (b *builder) build(idx []int) *treeStruct {
	_, p := b.X.Dims()
	b.tree = &treeStruct{importances: make([]float64, p)}
	b.totalWeight = 0
	for _, i := range idx {
		b.totalWeight += b.w[i]
	}
	b.grow(idx, 0)

	sum := 0.0
	for _, v := range b.tree.importances {
		sum += v
	}
	if sum > 0 {
		for j := range b.tree.importances {
			b.tree.importances[j] /= sum
		}
	}
	return b.tree
}

func (b *builder) grow(idx []int, depth int) int {
	st := b.newStats()
	for _, i := range idx {
		b.add(&st, i, 1)
	}
	id := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, node{
		feature:  leaf,
		left:     leaf,
		right:    leaf,
		value:    b.value(&st),
		impurity: b.impurity(&st),
		weight:   st.weight,
		samples:  len(idx),
		depth:    depth,
	})

	n := b.tree.nodes[id]
	if n.impurity <= 1e-12 ||
		len(idx) < b.minSamplesSplit ||
		len(idx) < 2*b.minSamplesLeaf ||
		(b.maxDepth > 0 && depth >= b.maxDepth) {
		return id
	}

	best := b.bestSplit(idx, &st, n.impurity)
	if best.feature == leaf {
		return id
	}
	decrease := st.weight / b.totalWeight * best.gain
	if decrease < b.minImpurityDecrease {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.X.At(i, best.feature) <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.tree.importances[best.feature] += decrease

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.tree.nodes[id].feature = best.feature
	b.tree.nodes[id].threshold = best.threshold
	b.tree.nodes[id].left = l
	b.tree.nodes[id].right = r
	return id
}

// bestSplit searches the candidate features concurrently and returns the
// split with the largest weighted impurity decrease. Ties keep the feature
// drawn first.
func (b *builder) bestSplit(idx []int, parent *stats, parentImpurity float64) candidate {
	_, p := b.X.Dims()
	features := make([]int, p)
	for j := range features {
		features[j] = j
	}
	if b.maxFeatures > 0 && b.maxFeatures < p {
		b.rng.Shuffle(p, func(i, j int) { features[i], features[j] = features[j], features[i] })
		features = features[:b.maxFeatures]
	}

	results := make([]candidate, len(features))
	parallel.ParallelizeWithThreshold(len(features), 4, func(start, end int) {
		for k := start; k < end; k++ {
			results[k] = b.splitFeature(idx, features[k], parent, parentImpurity)
		}
	})

	best := candidate{feature: leaf}
	for _, c := range results {
		if c.feature != leaf && (best.feature == leaf || c.gain > best.gain) {
			best = c
		}
	}
	if best.feature != leaf && best.gain <= 0 {
		best.feature = leaf
	}
	return best
}

func (b *builder) splitFeature(idx []int, f int, parent *stats, parentImpurity float64) candidate {
	sorted := append([]int(nil), idx...)
	sort.SliceStable(sorted, func(a, c int) bool { return b.X.At(sorted[a], f) < b.X.At(sorted[c], f) })

	left := b.newStats()
	right := b.newStats()
	right.weight, right.sum, right.sumSq = parent.weight, parent.sum, parent.sumSq
	if b.nClasses > 0 {
		copy(right.counts, parent.counts)
	}

	best := candidate{feature: leaf}
	n := len(sorted)
	for k := 0; k < n-1; k++ {
		i := sorted[k]
		b.add(&left, i, 1)
		b.add(&right, i, -1)

		x, next := b.X.At(i, f), b.X.At(sorted[k+1], f)
		if x == next {
			continue
		}
		if k+1 < b.minSamplesLeaf || n-k-1 < b.minSamplesLeaf {
			continue
		}
		if left.weight <= 0 || right.weight <= 0 {
			continue
		}
		child := (left.weight*b.impurity(&left) + right.weight*b.impurity(&right)) / parent.weight
		gain := parentImpurity - child
		if best.feature == leaf || gain > best.gain {
			threshold := x + (next-x)/2
			if threshold >= next {
				threshold = x
			}
			best = candidate{feature: f, threshold: threshold, gain: gain}
		}
	}
	return best
}

// apply returns the leaf reached by row.
func (t *treeStruct) apply(row []float64) int {
	id := 0
	for t.nodes[id].feature != leaf {
		n := t.nodes[id]
		if row[n.feature] <= n.threshold {
			id = n.left
		} else {
			id = n.right
		}
	}
	return id
}

func (t *treeStruct) depth() int {
	d := 0
	for _, n := range t.nodes {
		if n.depth > d {
			d = n.depth
		}
	}
	return d
}

func (t *treeStruct) leaves() int {
	count := 0
	for _, n := range t.nodes {
		if n.feature == leaf {
			count++
		}
	}
	return count
}
