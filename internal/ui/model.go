// Package ui is the interactive terminal workbench: pick a target, an
// algorithm and a split, train, then step through test examples and
// explain them.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/YuminosukeSato/xaibench/pipeline"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/split"
	"github.com/YuminosukeSato/xaibench/workbench"
)

// ExampleSpan is how far page up and page down move the example index.
const ExampleSpan = 10

type step int

const (
	stepTarget step = iota
	stepAlgorithm
	stepSplit
	stepCross
	stepTraining
	stepExplain
)

var stepTitles = map[step]string{
	stepTarget:    "Select the target",
	stepAlgorithm: "Select the algorithm",
	stepSplit:     "Select the split type",
	stepCross:     "Select cross columns",
	stepTraining:  "Training",
	stepExplain:   "Explain test examples",
}

var stepHelp = map[step]string{
	stepTarget:    "enter select • q quit",
	stepAlgorithm: "enter select • esc back • q quit",
	stepSplit:     "enter select • esc back • q quit",
	stepCross:     "space toggle • enter train • esc back • q quit",
	stepTraining:  "q quit",
	stepExplain:   "←/→ example • pgup/pgdn ±10 • enter explain • esc retrain • q quit",
}

// choice is a list entry.
type choice struct {
	key     string
	desc    string
	checked bool
	toggle  bool
}

func (c choice) Title() string {
	if !c.toggle {
		return c.key
	}
	if c.checked {
		return "[x] " + c.key
	}
	return "[ ] " + c.key
}
func (c choice) Description() string { return c.desc }
func (c choice) FilterValue() string { return c.key }

type trainedMsg struct {
	msg string
	err error
}

type explainedMsg struct {
	example int
	text    string
	err     error
}

// Model is the bubbletea model of the workbench.
type Model struct {
	ctx     context.Context
	session *workbench.Session
	slot    *workbench.ModelSlot

	step     step
	list     list.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   Styles

	example  int
	summary  string
	messages []string
	err      error
	width    int
	height   int
}

// New creates the model for a session with a loaded dataset.
func New(ctx context.Context, s *workbench.Session) Model {
	l := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	m := Model{
		ctx:      ctx,
		session:  s,
		list:     l,
		viewport: viewport.New(80, 20),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		styles:   DefaultStyles(),
		width:    80,
		height:   24,
	}
	m.list.Styles.Title = m.styles.Step
	m.showTargets()
	return m
}

// Run starts the program on the terminal.
func Run(ctx context.Context, s *workbench.Session) error {
	if s.Dataset() == nil {
		return errors.Wrap(errors.ErrEmptyData, "load a dataset before starting the workbench")
	}
	_, err := tea.NewProgram(New(ctx, s), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

func (m *Model) setItems(s step, items []list.Item) {
	m.step = s
	m.list.Title = stepTitles[s]
	m.list.SetItems(items)
	m.list.Select(0)
}

func (m *Model) showTargets() {
	var items []list.Item
	for _, col := range m.session.Dataset().Frame.Columns() {
		items = append(items, choice{key: col.Name(), desc: col.Kind().String()})
	}
	m.setItems(stepTarget, items)
}

func (m *Model) showAlgorithms() {
	var items []list.Item
	for _, alg := range pipeline.Algorithms() {
		kind := pipeline.Classification
		if !alg.IsClassifier() {
			kind = pipeline.Regression
		}
		items = append(items, choice{key: alg.String(), desc: kind.String()})
	}
	m.setItems(stepAlgorithm, items)
	for i, it := range items {
		if it.(choice).key == m.slot.SelectedAlgorithm.String() {
			m.list.Select(i)
		}
	}
}

func (m *Model) showSplits() {
	m.setItems(stepSplit, []list.Item{
		choice{key: split.Imbalanced.String(), desc: "shuffled train/test split"},
		choice{key: split.Balanced.String(), desc: "balanced groups over cross columns"},
	})
}

func (m *Model) showCross() {
	selected := make(map[string]bool)
	for _, c := range m.slot.CrossColumns {
		selected[c] = true
	}
	var items []list.Item
	for _, col := range m.slot.X.Columns() {
		items = append(items, choice{key: col.Name(), desc: col.Kind().String(), toggle: true, checked: selected[col.Name()]})
	}
	m.setItems(stepCross, items)
}

func (m *Model) addMessage(msg string) {
	first, _, _ := strings.Cut(msg, "\n")
	m.messages = append(m.messages, first)
	if len(m.messages) > 3 {
		m.messages = m.messages[len(m.messages)-3:]
	}
}

func (m *Model) setSize(w, h int) {
	m.width, m.height = w, h
	body := max(h-10, 5)
	m.list.SetSize(w-4, body)
	m.viewport.Width = w - 4
	m.viewport.Height = body
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			m.back()
			return m, nil
		}
		switch m.step {
		case stepTraining:
			return m, nil
		case stepExplain:
			return m.updateExplain(msg)
		case stepCross:
			if msg.String() == " " {
				m.toggleSelected()
				return m, nil
			}
		}
		if msg.Type == tea.KeyEnter {
			return m.choose()
		}

	case trainedMsg:
		return m.trained(msg)

	case explainedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.viewport.SetContent(msg.text + "\n" + m.summary)
		m.viewport.GotoTop()
		m.addMessage(fmt.Sprintf("Example %d explained.", msg.example))
		return m, nil

	case spinner.TickMsg:
		if m.step != stepTraining {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	if m.step == stepExplain {
		m.viewport, cmd = m.viewport.Update(msg)
	} else {
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m *Model) back() {
	m.err = nil
	switch m.step {
	case stepAlgorithm:
		m.showTargets()
	case stepSplit:
		m.showAlgorithms()
	case stepCross, stepExplain:
		m.showSplits()
	}
}

func (m *Model) toggleSelected() {
	c, ok := m.list.SelectedItem().(choice)
	if !ok {
		return
	}
	c.checked = !c.checked
	m.list.SetItem(m.list.Index(), c)
}

func (m Model) choose() (tea.Model, tea.Cmd) {
	c, ok := m.list.SelectedItem().(choice)
	if !ok {
		return m, nil
	}
	m.err = nil
	switch m.step {
	case stepTarget:
		_, msg, err := m.session.ShowTarget(c.key)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.addMessage(msg)
		_, _, msg, err = m.session.SplitFeatureTarget(c.key)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.addMessage(msg)
		slots, msg, err := m.session.FillEmptyModels(1)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.addMessage(msg)
		m.slot = slots[0]
		m.showAlgorithms()

	case stepAlgorithm:
		alg, err := pipeline.ParseAlgorithm(c.key)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.slot.SelectedAlgorithm = alg
		m.showSplits()

	case stepSplit:
		m.addMessage(m.session.ChangeCrossColumnsStatus(m.slot, c.key))
		if m.slot.CrossColumnsEnabled {
			m.showCross()
			return m, nil
		}
		return m.startTraining()

	case stepCross:
		var cross []string
		for _, it := range m.list.Items() {
			if col := it.(choice); col.checked {
				cross = append(cross, col.key)
			}
		}
		m.slot.CrossColumns = cross
		return m.startTraining()
	}
	return m, nil
}

func (m Model) startTraining() (tea.Model, tea.Cmd) {
	m.step = stepTraining
	return m, tea.Batch(m.spinner.Tick, trainCmd(m.ctx, m.session, m.slot))
}

func trainCmd(ctx context.Context, s *workbench.Session, slot *workbench.ModelSlot) tea.Cmd {
	return func() tea.Msg {
		msg, err := s.FillModel(ctx, slot)
		return trainedMsg{msg: msg, err: err}
	}
}

func explainCmd(s *workbench.Session, slot *workbench.ModelSlot, example int) tea.Cmd {
	return func() tea.Msg {
		exp, err := s.ExplainInstance(slot, example)
		if err != nil {
			return explainedMsg{example: example, err: err}
		}
		return explainedMsg{example: example, text: exp.String()}
	}
}

func (m Model) trained(msg trainedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err
		m.showSplits()
		return m, nil
	}
	m.addMessage(msg.msg)

	var sb strings.Builder
	m.slot.Evaluation.Render(&sb)
	if w, err := m.session.InterpretModel(m.slot); err == nil {
		sb.WriteString("\n")
		w.Render(&sb, 10)
	}
	m.summary = sb.String()
	m.viewport.SetContent(m.summary)
	m.example = 0
	m.step = stepExplain
	return m, nil
}

func (m Model) updateExplain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	last := m.slot.XTest.Len() - 1
	switch msg.String() {
	case "left", "h":
		m.example = max(m.example-1, 0)
	case "right", "l":
		m.example = min(m.example+1, last)
	case "pgup":
		m.example = max(m.example-ExampleSpan, 0)
	case "pgdown":
		m.example = min(m.example+ExampleSpan, last)
	case "enter":
		return m, explainCmd(m.session, m.slot, m.example)
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var sb strings.Builder
	title := "xaibench"
	if ds := m.session.Dataset(); ds != nil {
		title += fmt.Sprintf(" • %s (%s)", ds.ID, ds.Name)
	}
	if m.slot != nil {
		title += " • " + m.slot.String()
	}
	sb.WriteString(m.styles.Header.Render(title) + "\n\n")

	switch m.step {
	case stepTraining:
		sb.WriteString(m.styles.Step.Render(stepTitles[m.step]) + "\n")
		sb.WriteString(m.spinner.View() + " training " + m.slot.Name + "...\n")
	case stepExplain:
		sb.WriteString(m.styles.Step.Render(stepTitles[m.step]) + "\n")
		sb.WriteString(m.styles.Example.Render(fmt.Sprintf("example %d of %d", m.example, m.slot.XTest.Len()-1)) + "\n")
		sb.WriteString(m.viewport.View() + "\n")
	default:
		sb.WriteString(m.list.View() + "\n")
	}

	for _, msg := range m.messages {
		sb.WriteString(m.styles.Message.Render(msg) + "\n")
	}
	if m.err != nil {
		sb.WriteString(m.styles.Error.Render(m.err.Error()) + "\n")
	}
	sb.WriteString(m.styles.Help.Render(stepHelp[m.step]))
	return m.styles.App.Render(sb.String())
}
