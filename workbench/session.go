// Package workbench holds the state of an interactive session: the loaded
// dataset, the selected target and the model slots being trained and
// explained. Every handler returns the message shown to the user.
package workbench

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/xaibench/dataset"
	"github.com/YuminosukeSato/xaibench/explain"
	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/internal/registry"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/pkg/log"
	"github.com/YuminosukeSato/xaibench/split"
	"github.com/YuminosukeSato/xaibench/train"
)

// NoTargetMessage is shown when a handler needs a target and none is set.
const NoTargetMessage = "No target was selected. Please select a target."

// Recorder stores finished training runs.
type Recorder interface {
	Record(ctx context.Context, run *registry.Run) error
}

// Session is the state behind the interactive controls.
type Session struct {
	mu sync.RWMutex

	loader    *dataset.Loader
	recorder  Recorder
	logger    log.Logger
	trainOpts []train.Option
	limeOpts  []explain.LimeOption

	dataset *dataset.Dataset
	target  string
	X       *frame.Frame
	y       *frame.Column
	models  []*ModelSlot
}

// Option configures a Session.
type Option func(*Session)

// WithLoader sets the dataset loader.
func WithLoader(l *dataset.Loader) Option { return func(s *Session) { s.loader = l } }

// WithRecorder records every trained slot.
func WithRecorder(r Recorder) Option { return func(s *Session) { s.recorder = r } }

// WithLogger overrides the component logger.
func WithLogger(l log.Logger) Option { return func(s *Session) { s.logger = l } }

// WithTrainOptions forwards options to train.TrainModel.
func WithTrainOptions(opts ...train.Option) Option {
	return func(s *Session) { s.trainOpts = append(s.trainOpts, opts...) }
}

// WithLimeOptions forwards options to explain.ExplainInstance.
func WithLimeOptions(opts ...explain.LimeOption) Option {
	return func(s *Session) { s.limeOpts = append(s.limeOpts, opts...) }
}

// NewSession creates an empty session.
func NewSession(opts ...Option) *Session {
	s := &Session{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("workbench")
	}
	if s.loader == nil {
		s.loader = dataset.NewLoader(dataset.WithLogger(s.logger))
	}
	return s
}

// GetDataset loads a built-in dataset and resets the session.
func (s *Session) GetDataset(ctx context.Context, id string) (string, error) {
	ds, msg, err := s.loader.Load(ctx, id)
	if err != nil {
		return "", err
	}
	s.reset(ds)
	return msg, nil
}

// GetDatasetFromURL loads a CSV from url and resets the session.
func (s *Session) GetDatasetFromURL(ctx context.Context, name, url string) (string, error) {
	ds, msg, err := s.loader.LoadURL(ctx, name, url)
	if err != nil {
		return "", err
	}
	s.reset(ds)
	return msg, nil
}

// SetDataset installs an already loaded dataset.
func (s *Session) SetDataset(ds *dataset.Dataset) { s.reset(ds) }

func (s *Session) reset(ds *dataset.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = ds
	s.target = ""
	s.X, s.y = nil, nil
	s.models = nil
}

// Dataset returns the loaded dataset, or nil.
func (s *Session) Dataset() *dataset.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset
}

// Target returns the selected target column name.
func (s *Session) Target() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target
}

// Features returns the feature frame and target column set by
// SplitFeatureTarget.
func (s *Session) Features() (*frame.Frame, *frame.Column) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.X, s.y
}

func (s *Session) frame() (*frame.Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return nil, errors.Wrap(errors.ErrEmptyData, "no dataset loaded")
	}
	return s.dataset.Frame, nil
}

// ShowTarget returns the first five values of target. An empty target
// logs an error and yields a nil column.
func (s *Session) ShowTarget(target string) (*frame.Column, string, error) {
	if target == "" {
		s.logger.Error(NoTargetMessage)
		return nil, NoTargetMessage, nil
	}
	df, err := s.frame()
	if err != nil {
		return nil, "", err
	}
	col, err := df.Column(target)
	if err != nil {
		return nil, "", err
	}
	head := col.Head(5)
	msg := fmt.Sprintf("Target '%s' value changed successfully.\n%s", target, columnString(head))
	s.logger.Debug(msg, log.TargetKey, target)
	return head, msg, nil
}

// SplitFeatureTarget selects target: the features are every other column.
func (s *Session) SplitFeatureTarget(target string) (*frame.Frame, *frame.Column, string, error) {
	if target == "" {
		s.logger.Error(NoTargetMessage)
		return nil, nil, NoTargetMessage, nil
	}
	df, err := s.frame()
	if err != nil {
		return nil, nil, "", err
	}
	y, err := df.Column(target)
	if err != nil {
		return nil, nil, "", err
	}
	X, err := df.Drop(target)
	if err != nil {
		return nil, nil, "", err
	}

	s.mu.Lock()
	s.target, s.X, s.y = target, X, y
	s.models = nil
	s.mu.Unlock()

	msg := fmt.Sprintf("Target '%s' selected successfully.", target)
	s.logger.Info(msg, log.TargetKey, target, log.FeaturesKey, X.Width())
	return X, y, msg, nil
}

// CalculateSliderProperties returns the bounds of values and a step of a
// hundredth of the range, at least 1.
func CalculateSliderProperties(values []float64) (lo, hi, step float64) {
	if len(values) == 0 {
		return 0, 0, 1
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	step = (hi - lo) / 100
	if step < 1 {
		step = 1
	}
	return lo, hi, step
}

// SliderProperties applies CalculateSliderProperties to the unique values
// of a numeric column of the dataset.
func (s *Session) SliderProperties(column string) (lo, hi, step float64, err error) {
	df, err := s.frame()
	if err != nil {
		return 0, 0, 0, err
	}
	col, err := df.Column(column)
	if err != nil {
		return 0, 0, 0, err
	}
	if !col.IsNumeric() {
		return 0, 0, 0, errors.NewValidationError(column, "slider needs a numeric column", col.Kind().String())
	}
	lo, hi, step = CalculateSliderProperties(col.UniqueFloats())
	return lo, hi, step, nil
}

// StrippedFrame returns the dataset rows where column <op> value holds.
// op is ">", "=" or "<"; any other op yields nil.
func (s *Session) StrippedFrame(column, value, op string) (*frame.Frame, error) {
	df, err := s.frame()
	if err != nil {
		return nil, err
	}
	return df.Filter(column, op, value)
}

// FillEmptyModels replaces the slots with n untrained ones sharing the
// selected features and target.
func (s *Session) FillEmptyModels(n int) ([]*ModelSlot, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.y == nil {
		s.logger.Error(NoTargetMessage)
		return nil, NoTargetMessage, errors.ErrNoTarget
	}
	if n < 0 {
		return nil, "", errors.NewValidationError("number_of_models", "must be >= 0", n)
	}
	s.models = make([]*ModelSlot, n)
	for i := range s.models {
		s.models[i] = newSlot(i, s.X, s.y)
	}
	msg := fmt.Sprintf("Models to be trained: '%d'.", n)
	s.logger.Debug(msg)
	return append([]*ModelSlot(nil), s.models...), msg, nil
}

// Models returns the current slots.
func (s *Session) Models() []*ModelSlot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*ModelSlot(nil), s.models...)
}

// ModelByID returns the slot with id. A missing id is logged and yields nil.
func (s *Session) ModelByID(id int) *ModelSlot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.models {
		if m.ID == id {
			return m
		}
	}
	s.logger.Error(fmt.Sprintf("No model found with ID '%d'.", id), log.ModelIDKey, id)
	return nil
}

// ChangeCrossColumnsStatus records the split type picked for m. Cross
// columns are only selectable for BALANCED splits. Unknown values leave
// the status unchanged.
func (s *Session) ChangeCrossColumnsStatus(m *ModelSlot, value string) string {
	msg := "Cross columns status was successfully changed to "
	switch t, err := split.ParseType(value); {
	case err != nil:
	case t == split.Balanced:
		m.SelectedSplit = t
		m.CrossColumnsEnabled = true
		msg += "enabled."
	default:
		m.SelectedSplit = t
		m.CrossColumnsEnabled = false
		msg += "disabled."
	}
	s.logger.Debug(msg, log.ModelIDKey, m.ID)
	return msg
}

// RemoveModelFeatures drops m.RemoveFeatures from the slot's features.
func (s *Session) RemoveModelFeatures(m *ModelSlot) (string, error) {
	features := append([]string(nil), m.RemoveFeatures...)
	X, err := m.X.Drop(features...)
	if err != nil {
		return "", err
	}
	m.X = X
	m.RemoveFeatures = nil
	m.CrossColumns = without(m.CrossColumns, features)

	msg := fmt.Sprintf("Features: %v were removed successfully for model %s.\n%s", features, m.Name, X.Head(5))
	s.logger.Info(msg, log.ModelIDKey, m.ID)
	return msg, nil
}

// FillModel trains m with its selected algorithm and split and stores the
// pipeline and held-out data on it.
func (s *Session) FillModel(ctx context.Context, m *ModelSlot) (msg string, err error) {
	defer errors.Recover(&err, "FillModel")

	m.ModelType.Algorithm = m.SelectedAlgorithm
	m.Split = split.Split{Type: m.SelectedSplit}
	if m.SelectedSplit == split.Balanced {
		m.Split.Columns = append([]string(nil), m.CrossColumns...)
	}

	logger := s.logger.With(log.ModelIDKey, m.ID, log.AlgorithmKey, m.SelectedAlgorithm.String())
	opts := append([]train.Option{train.WithLogger(logger)}, s.trainOpts...)
	res, err := train.TrainModel(ctx, m.ModelType, m.Split, m.X, m.Y, opts...)
	if err != nil {
		logger.Error("Model training failed", err)
		return "", errors.Wrapf(err, "train %s", m.Name)
	}
	m.Pipeline = res.Pipeline
	m.XTest = res.XTest
	m.YTest = res.YTest
	m.Evaluation = res.Evaluation

	if err := s.record(ctx, m); err != nil {
		logger.Warn("Run was not recorded", log.ErrAttrKey, err)
	}

	msg = fmt.Sprintf("Model %s trained successfully!", m.Name)
	logger.Info(msg)
	return msg, nil
}

func (s *Session) record(ctx context.Context, m *ModelSlot) error {
	if s.recorder == nil {
		return nil
	}
	ds := s.Dataset()
	run := &registry.Run{
		Target:      m.Y.Name(),
		Model:       m.Name,
		Algorithm:   m.ModelType.Algorithm.String(),
		ProblemType: m.Pipeline.ProblemType().String(),
		Split:       m.Split.Type.String(),
		Metrics:     m.Evaluation.Summary(),
	}
	if ds != nil {
		run.Dataset = string(ds.ID)
		if ds.Name != "" {
			run.Dataset += " (" + ds.Name + ")"
		}
	}
	if err := s.recorder.Record(ctx, run); err != nil {
		return err
	}
	m.RunID = run.ID
	return nil
}

// TrainAll trains every slot concurrently and returns the messages in
// slot order. The first failure cancels the remaining slots.
func (s *Session) TrainAll(ctx context.Context) ([]string, error) {
	models := s.Models()
	msgs := make([]string, len(models))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range models {
		g.Go(func() error {
			msg, err := s.FillModel(gctx, m)
			msgs[i] = msg
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return msgs, err
	}
	return msgs, nil
}

// InterpretModel returns the global weights of a trained slot.
func (s *Session) InterpretModel(m *ModelSlot) (*explain.Weights, error) {
	if !m.IsTrained() {
		return nil, errors.NewNotFittedError(m.Name, "InterpretModel")
	}
	return explain.InterpretModel(m.Pipeline)
}

// ExplainInstance explains row example of the slot's test data.
func (s *Session) ExplainInstance(m *ModelSlot, example int) (*explain.Explanation, error) {
	if !m.IsTrained() {
		return nil, errors.NewNotFittedError(m.Name, "ExplainInstance")
	}
	opts := append([]explain.LimeOption{explain.WithLimeLogger(s.logger.With(log.ModelIDKey, m.ID))}, s.limeOpts...)
	return explain.ExplainInstance(m.Pipeline, m.XTest, m.YTest, example, opts...)
}

func columnString(c *frame.Column) string {
	f, err := frame.New(c)
	if err != nil {
		return ""
	}
	return f.String()
}

func without(values, drop []string) []string {
	skip := make(map[string]bool, len(drop))
	for _, d := range drop {
		skip[d] = true
	}
	var out []string
	for _, v := range values {
		if !skip[v] {
			out = append(out, v)
		}
	}
	return out
}
