package ui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/xaibench/dataset"
	"github.com/YuminosukeSato/xaibench/explain"
	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/pipeline"
	"github.com/YuminosukeSato/xaibench/pkg/log"
	"github.com/YuminosukeSato/xaibench/split"
	"github.com/YuminosukeSato/xaibench/workbench"
)

func newTestSession(t *testing.T) *workbench.Session {
	t.Helper()
	n := 80
	age := make([]float64, n)
	job := make([]string, n)
	income := make([]string, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			age[i], job[i], income[i] = 50+float64(i%7), "exec", ">50K"
		} else {
			age[i], job[i], income[i] = 25+float64(i%5), "clerk", "<=50K"
		}
	}
	f, err := frame.New(
		frame.NewNumeric("age", age),
		frame.NewCategorical("job", job),
		frame.NewCategorical("income", income),
	)
	require.NoError(t, err)
	logger, _ := log.NewTestLogger(log.LevelError)
	s := workbench.NewSession(
		workbench.WithLogger(logger),
		workbench.WithLimeOptions(explain.WithNumSamples(100)),
	)
	s.SetDataset(&dataset.Dataset{ID: dataset.Custom, Name: "income", Frame: f})
	return s
}

func press(t *testing.T, m Model, key tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(key)
	return next.(Model), cmd
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

func selectKey(t *testing.T, m *Model, key string) {
	t.Helper()
	for i, it := range m.list.Items() {
		if it.(choice).key == key {
			m.list.Select(i)
			return
		}
	}
	t.Fatalf("no list item %q", key)
}

func TestWorkbenchFlow(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	m := New(ctx, s)
	assert.Equal(t, stepTarget, m.step)
	assert.Len(t, m.list.Items(), 3)

	selectKey(t, &m, "income")
	m, _ = press(t, m, enter)
	require.NoError(t, m.err)
	assert.Equal(t, stepAlgorithm, m.step)
	assert.Equal(t, "Models to be trained: '1'.", m.messages[len(m.messages)-1])

	selectKey(t, &m, pipeline.DecisionTree.String())
	m, _ = press(t, m, enter)
	assert.Equal(t, stepSplit, m.step)
	assert.Equal(t, pipeline.DecisionTree, m.slot.SelectedAlgorithm)

	selectKey(t, &m, split.Balanced.String())
	m, _ = press(t, m, enter)
	assert.Equal(t, stepCross, m.step)
	assert.True(t, m.slot.CrossColumnsEnabled)

	selectKey(t, &m, "job")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.True(t, strings.HasPrefix(m.list.SelectedItem().(choice).Title(), "[x]"))

	m, cmd := press(t, m, enter)
	assert.Equal(t, stepTraining, m.step)
	assert.NotNil(t, cmd)
	assert.Equal(t, []string{"job"}, m.slot.CrossColumns)
	assert.Contains(t, m.View(), "training Model 1")

	next, _ := m.Update(trainCmd(ctx, s, m.slot)())
	m = next.(Model)
	require.NoError(t, m.err)
	assert.Equal(t, stepExplain, m.step)
	assert.Equal(t, "Model Model 1 trained successfully!", m.messages[len(m.messages)-1])

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 1, m.example)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 1+ExampleSpan, m.example)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Equal(t, 0, m.example)

	m, cmd = press(t, m, enter)
	require.NotNil(t, cmd)
	next, _ = m.Update(cmd())
	m = next.(Model)
	require.NoError(t, m.err)
	assert.Equal(t, "Example 0 explained.", m.messages[len(m.messages)-1])
	assert.Contains(t, m.View(), "example 0 of")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, stepSplit, m.step)
}

func TestTrainingFailureReturnsToSplit(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	m := New(ctx, s)
	selectKey(t, &m, "income")
	m, _ = press(t, m, enter)
	m, _ = press(t, m, enter)

	selectKey(t, &m, split.Balanced.String())
	m, _ = press(t, m, enter)
	m, _ = press(t, m, enter)
	assert.Empty(t, m.slot.CrossColumns)

	next, _ := m.Update(trainCmd(ctx, s, m.slot)())
	m = next.(Model)
	assert.Error(t, m.err)
	assert.Equal(t, stepSplit, m.step)
	assert.Contains(t, m.View(), m.err.Error())
}

func TestQuitAndBack(t *testing.T) {
	m := New(context.Background(), newTestSession(t))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	selectKey(t, &m, "income")
	m, _ = press(t, m, enter)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, stepTarget, m.step)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	assert.Equal(t, 120, m.width)
}
