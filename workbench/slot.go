package workbench

import (
	"fmt"

	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/pipeline"
	"github.com/YuminosukeSato/xaibench/split"
	"github.com/YuminosukeSato/xaibench/train"
)

// ModelSlot is one model under construction. The selection fields hold
// what the user picked in the controls; Fill copies them into ModelType
// and Split when training.
type ModelSlot struct {
	ID        int
	Name      string
	X         *frame.Frame
	Y         *frame.Column
	ModelType pipeline.ModelType
	Split     split.Split

	Pipeline   *pipeline.Pipeline
	XTest      *frame.Frame
	YTest      *frame.Column
	Evaluation *train.Evaluation
	RunID      string

	SelectedAlgorithm   pipeline.Algorithm
	SelectedSplit       split.Type
	CrossColumns        []string
	RemoveFeatures      []string
	CrossColumnsEnabled bool
}

func newSlot(id int, X *frame.Frame, y *frame.Column) *ModelSlot {
	return &ModelSlot{
		ID:                id,
		Name:              fmt.Sprintf("Model %d", id+1),
		X:                 X,
		Y:                 y,
		ModelType:         pipeline.ModelType{ProblemType: pipeline.TypeFor(y)},
		SelectedAlgorithm: defaultAlgorithm(y),
		SelectedSplit:     split.Imbalanced,
	}
}

func defaultAlgorithm(y *frame.Column) pipeline.Algorithm {
	if pipeline.TypeFor(y) == pipeline.Regression {
		return pipeline.LinearRegression
	}
	return pipeline.LogisticRegression
}

// IsTrained reports whether the slot holds a fitted pipeline.
func (m *ModelSlot) IsTrained() bool {
	return m.Pipeline != nil && m.Pipeline.IsFitted()
}

func (m *ModelSlot) String() string {
	state := "untrained"
	if m.IsTrained() {
		state = "trained"
	}
	return fmt.Sprintf("%s [%s, %s, %s]", m.Name, m.SelectedAlgorithm, m.SelectedSplit, state)
}
