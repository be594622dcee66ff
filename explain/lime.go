package explain

import (
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/pipeline"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/pkg/log"
	"github.com/YuminosukeSato/xaibench/sklearn/linear_model"
	"github.com/YuminosukeSato/xaibench/sklearn/utils"
)

// LIME defaults.
const (
	DefaultNumSamples  = 5000
	DefaultRandomState = 33
	// DefaultLabel is the class index explained unless WithLabel says
	// otherwise; it falls back to the last class when there are fewer.
	DefaultLabel       = 1
	ModeClassification = "classification"
	ModeRegression     = "regression"
)

// Contribution is one feature condition of a local explanation.
type Contribution struct {
	Feature   string  `json:"feature"`
	Condition string  `json:"condition"`
	Weight    float64 `json:"weight"`
}

// Explanation is a local surrogate fitted around one example.
type Explanation struct {
	Mode      string `json:"mode"`
	Example   int    `json:"example"`
	Target    string `json:"target"`
	Label     string `json:"label"`
	Predicted string `json:"predicted"`
	Actual    string `json:"actual,omitempty"`

	// Probabilities holds the model's class probabilities for the example.
	Probabilities map[string]float64 `json:"probabilities,omitempty"`

	Contributions   []Contribution `json:"contributions"`
	Intercept       float64        `json:"intercept"`
	Score           float64        `json:"score"`
	LocalPrediction float64        `json:"local_prediction"`
	ModelPrediction float64        `json:"model_prediction"`
}

// Render writes the explanation as a table.
func (e *Explanation) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	title := fmt.Sprintf("Example %d: predicted %s", e.Example, e.Predicted)
	if e.Actual != "" {
		title += ", actual " + e.Actual
	}
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Condition", "Weight"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	for _, c := range e.Contributions {
		t.AppendRow(table.Row{c.Condition, fmt.Sprintf("%+.4f", c.Weight)})
	}
	t.AppendFooter(table.Row{"intercept", fmt.Sprintf("%.4f", e.Intercept)})
	t.AppendFooter(table.Row{fmt.Sprintf("local prediction (%s)", e.Label), fmt.Sprintf("%.4f", e.LocalPrediction)})
	t.AppendFooter(table.Row{"model prediction", fmt.Sprintf("%.4f", e.ModelPrediction)})
	t.AppendFooter(table.Row{"surrogate R2", fmt.Sprintf("%.4f", e.Score)})
	t.Render()
}

func (e *Explanation) String() string {
	var sb strings.Builder
	e.Render(&sb)
	return sb.String()
}

// Explainer fits local linear surrogates of a pipeline. Continuous
// features are quartile-discretized and every feature is perturbed by
// drawing from its training distribution.
type Explainer struct {
	pipeline *pipeline.Pipeline
	format   *LimeFormat
	names    []string
	disc     *quartileDiscretizer
	values   [][]float64
	freqs    [][]float64

	mode        string
	numSamples  int
	numFeatures int
	kernelWidth float64
	label       int
	labelSet    bool
	seed        uint64
	logger      log.Logger
}

// LimeOption configures an Explainer.
type LimeOption func(*Explainer)

// WithNumSamples sets the size of the perturbed neighborhood.
func WithNumSamples(n int) LimeOption { return func(e *Explainer) { e.numSamples = n } }

// WithNumFeatures sets how many contributions an explanation keeps.
func WithNumFeatures(n int) LimeOption { return func(e *Explainer) { e.numFeatures = n } }

// WithKernelWidth overrides the default 0.75 * sqrt(n_features).
func WithKernelWidth(w float64) LimeOption { return func(e *Explainer) { e.kernelWidth = w } }

// WithLabel explains class index k instead of DefaultLabel. A negative k
// explains the predicted class.
func WithLabel(k int) LimeOption {
	return func(e *Explainer) { e.label, e.labelSet = k, true }
}

// WithLimeRandomState seeds the sampler.
func WithLimeRandomState(seed uint64) LimeOption { return func(e *Explainer) { e.seed = seed } }

// WithLimeLogger overrides the component logger.
func WithLimeLogger(l log.Logger) LimeOption { return func(e *Explainer) { e.logger = l } }

// NewExplainer learns sampling statistics from training, a frame with the
// pipeline's input columns.
func NewExplainer(p *pipeline.Pipeline, training *frame.Frame, opts ...LimeOption) (*Explainer, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "NewExplainer")
	}
	if training.Len() == 0 {
		return nil, errors.NewModelError("NewExplainer", "empty training data", errors.ErrEmptyData)
	}
	e := &Explainer{
		pipeline:   p,
		format:     NewLimeFormat(training, p.Preprocessor()),
		names:      training.Names(),
		numSamples: DefaultNumSamples,
		label:      DefaultLabel,
		seed:       DefaultRandomState,
		mode:       ModeRegression,
	}
	if p.ProblemType() == pipeline.Classification {
		e.mode = ModeClassification
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.GetLoggerWithName("lime")
	}
	if e.numSamples < 2 {
		return nil, errors.NewValidationError("num_samples", "must be >= 2", e.numSamples)
	}
	if e.kernelWidth <= 0 {
		e.kernelWidth = 0.75 * math.Sqrt(float64(len(e.names)))
	}
	if e.numFeatures <= 0 || e.numFeatures > len(e.names) {
		e.numFeatures = len(e.names)
	}

	data, err := e.format.ToLime(training)
	if err != nil {
		return nil, err
	}
	var continuous []int
	for j := range e.names {
		if !e.format.IsCategorical(j) {
			continuous = append(continuous, j)
		}
	}
	e.disc = newQuartileDiscretizer(data, continuous, e.names)

	rows, cols := data.Dims()
	e.values = make([][]float64, cols)
	e.freqs = make([][]float64, cols)
	counts := make([]map[float64]int, cols)
	for j := range counts {
		counts[j] = make(map[float64]int)
	}
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, data)
		e.disc.discretize(row)
		for j, v := range row {
			counts[j][v]++
		}
	}
	for j, c := range counts {
		for v := range c {
			e.values[j] = append(e.values[j], v)
		}
		sort.Float64s(e.values[j])
		for _, v := range e.values[j] {
			e.freqs[j] = append(e.freqs[j], float64(c[v])/float64(rows))
		}
	}
	return e, nil
}

// Explain explains the first row of instance.
func (e *Explainer) Explain(instance *frame.Frame) (*Explanation, error) {
	if instance.Len() == 0 {
		return nil, errors.NewModelError("Explainer.Explain", "no instance", errors.ErrEmptyData)
	}
	encoded, err := e.format.ToLime(instance.Head(1))
	if err != nil {
		return nil, err
	}
	original := encoded.RawRowView(0)
	binary, inverse := e.sample(original)

	decoded, err := e.format.FromLime(inverse)
	if err != nil {
		return nil, err
	}
	target, exp, err := e.predict(decoded)
	if err != nil {
		return nil, err
	}

	distances := make([]float64, e.numSamples)
	weights := make([]float64, e.numSamples)
	first := binary.RawRowView(0)
	for i := range distances {
		distances[i] = floats.Distance(binary.RawRowView(i), first, 2)
		weights[i] = math.Sqrt(math.Exp(-distances[i] * distances[i] / (e.kernelWidth * e.kernelWidth)))
	}

	labels := mat.NewDense(e.numSamples, 1, mat.Col(nil, target, exp.scores))
	used, err := e.selectFeatures(binary, labels, weights)
	if err != nil {
		return nil, err
	}
	Xs := selectColumns(binary, used)
	surrogate := linear_model.NewRidge(linear_model.WithAlpha(1))
	if err := surrogate.FitWeighted(Xs, labels, weights); err != nil {
		return nil, errors.Wrap(err, "fit surrogate")
	}
	score, err := surrogate.Score(Xs, labels, weights)
	if err != nil {
		return nil, err
	}
	local, err := surrogate.Predict(Xs.Slice(0, 1, 0, len(used)))
	if err != nil {
		return nil, err
	}

	out := &Explanation{
		Mode:            e.mode,
		Target:          e.pipeline.Target(),
		Label:           exp.label,
		Predicted:       exp.predicted,
		Probabilities:   exp.probabilities,
		Intercept:       surrogate.Intercept(),
		Score:           score,
		LocalPrediction: local.At(0, 0),
		ModelPrediction: exp.scores.At(0, target),
	}
	discretized := append([]float64(nil), original...)
	e.disc.discretize(discretized)
	for k, c := range surrogate.Coef() {
		j := used[k]
		out.Contributions = append(out.Contributions, Contribution{
			Feature:   e.names[j],
			Condition: e.condition(j, discretized[j]),
			Weight:    c,
		})
	}
	sort.SliceStable(out.Contributions, func(a, b int) bool {
		return math.Abs(out.Contributions[a].Weight) > math.Abs(out.Contributions[b].Weight)
	})
	return out, nil
}

// sample draws the neighborhood. binary marks, per feature, whether a
// sample shares the instance's bin or category; inverse holds the sampled
// values in LIME layout. Row 0 of both is the instance itself.
func (e *Explainer) sample(instance []float64) (*mat.Dense, *mat.Dense) {
	cols := len(instance)
	src := rand.NewPCG(e.seed, e.seed)
	first := append([]float64(nil), instance...)
	e.disc.discretize(first)

	binary := mat.NewDense(e.numSamples, cols, nil)
	inverse := mat.NewDense(e.numSamples, cols, nil)
	for j := 0; j < cols; j++ {
		dist := distuv.NewCategorical(e.freqs[j], src)
		binary.Set(0, j, 1)
		inverse.Set(0, j, first[j])
		for i := 1; i < e.numSamples; i++ {
			v := e.values[j][int(dist.Rand())]
			inverse.Set(i, j, v)
			if v == first[j] {
				binary.Set(i, j, 1)
			}
		}
	}
	for i := 1; i < e.numSamples; i++ {
		e.disc.undiscretize(inverse.RawRowView(i), src)
	}
	inverse.SetRow(0, instance)
	return binary, inverse
}

type prediction struct {
	scores        *mat.Dense
	label         string
	predicted     string
	probabilities map[string]float64
}

// predict scores the decoded neighborhood and picks the explained column.
func (e *Explainer) predict(neighborhood *frame.Frame) (int, *prediction, error) {
	if e.mode == ModeRegression {
		pred, err := e.pipeline.PredictEncoded(neighborhood)
		if err != nil {
			return 0, nil, err
		}
		scores := mat.DenseCopyOf(pred)
		return 0, &prediction{
			scores:    scores,
			label:     e.pipeline.Target(),
			predicted: strconv.FormatFloat(scores.At(0, 0), 'g', 6, 64),
		}, nil
	}

	probas, err := e.pipeline.PredictProba(neighborhood)
	if err != nil {
		return 0, nil, err
	}
	scores := mat.DenseCopyOf(probas)
	_, k := scores.Dims()
	first := scores.RawRowView(0)
	predicted := utils.Argmax(first)
	target := e.label
	switch {
	case target < 0:
		target = predicted
	case target >= k && e.labelSet:
		return 0, nil, errors.NewValidationError("label", fmt.Sprintf("must be < %d", k), e.label)
	case target >= k:
		target = k - 1
	}
	probs := make(map[string]float64, k)
	for c, v := range first {
		probs[e.pipeline.ClassLabel(c)] = v
	}
	return target, &prediction{
		scores:        scores,
		label:         e.pipeline.ClassLabel(target),
		predicted:     e.pipeline.ClassLabel(predicted),
		probabilities: probs,
	}, nil
}

// selectFeatures uses greedy forward selection for up to six features and
// the largest ridge weights otherwise.
func (e *Explainer) selectFeatures(data, labels *mat.Dense, weights []float64) ([]int, error) {
	_, cols := data.Dims()
	if e.numFeatures <= 6 {
		var used []int
		for len(used) < e.numFeatures {
			best, bestScore := -1, math.Inf(-1)
			for f := 0; f < cols; f++ {
				if contains(used, f) {
					continue
				}
				candidate := append(append([]int(nil), used...), f)
				Xs := selectColumns(data, candidate)
				r := linear_model.NewRidge(linear_model.WithAlpha(0.01))
				if err := r.FitWeighted(Xs, labels, weights); err != nil {
					return nil, err
				}
				s, err := r.Score(Xs, labels, weights)
				if err != nil {
					return nil, err
				}
				if s > bestScore {
					best, bestScore = f, s
				}
			}
			used = append(used, best)
		}
		return used, nil
	}

	r := linear_model.NewRidge(linear_model.WithAlpha(0.01))
	if err := r.FitWeighted(data, labels, weights); err != nil {
		return nil, err
	}
	coef := r.Coef()
	first := data.RawRowView(0)
	order := make([]int, cols)
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(coef[order[a]]*first[order[a]]) > math.Abs(coef[order[b]]*first[order[b]])
	})
	return order[:e.numFeatures], nil
}

// condition renders feature j of the discretized instance.
func (e *Explainer) condition(j int, v float64) string {
	if e.disc.isContinuous(j) {
		return e.disc.featureLabel(j, int(v))
	}
	cats := e.format.CategoricalNames()[j]
	k := int(v)
	if k >= 0 && k < len(cats) {
		return e.names[j] + "=" + cats[k]
	}
	return e.names[j] + "=" + "unknown"
}

func selectColumns(data *mat.Dense, cols []int) *mat.Dense {
	rows, _ := data.Dims()
	out := mat.NewDense(rows, len(cols), nil)
	for k, j := range cols {
		out.SetCol(k, mat.Col(nil, j, data))
	}
	return out
}

func contains(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// ExplainInstance explains row example of XTest. The explainer samples
// from XTest itself and keeps as many contributions as there are numeric
// features unless WithNumFeatures says otherwise.
func ExplainInstance(p *pipeline.Pipeline, XTest *frame.Frame, yTest *frame.Column, example int, opts ...LimeOption) (*Explanation, error) {
	if XTest == nil || XTest.Len() == 0 {
		return nil, errors.NewModelError("ExplainInstance", "empty test data", errors.ErrEmptyData)
	}
	if example < 0 || example >= XTest.Len() {
		return nil, errors.NewValidationError("example", fmt.Sprintf("must be in [0, %d)", XTest.Len()), example)
	}
	numeric, _ := XTest.DivideFeatures()
	defaults := []LimeOption{WithNumFeatures(len(numeric))}
	e, err := NewExplainer(p, XTest, append(defaults, opts...)...)
	if err != nil {
		return nil, err
	}

	row := XTest.Take([]int{example})
	e.logger.Info(fmt.Sprintf("Example %d's data: \n%s", example, row), log.ExampleKey, example)
	actual := ""
	if yTest != nil && example < yTest.Len() {
		actual = yTest.Cell(example)
		e.logger.Info(fmt.Sprintf("Example %d's actual result: %s", example, actual), log.ExampleKey, example)
	}

	exp, err := e.Explain(row)
	if err != nil {
		return nil, err
	}
	exp.Example = example
	exp.Actual = actual
	e.logger.Debug("Explanation computed",
		log.ExampleKey, example,
		log.OperationKey, log.OperationExplain,
		"surrogate.score", exp.Score,
	)
	return exp, nil
}
