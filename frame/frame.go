// Package frame is a small column-oriented table for mixed numeric and
// categorical data, with the handful of operations the training workflow
// needs: selection, row filtering, head and rendering.
package frame

import (
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

// Frame is an ordered set of equally long named columns.
type Frame struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New builds a Frame. Column names must be unique and lengths equal.
func New(columns ...*Column) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if _, dup := f.index[c.Name()]; dup {
			return nil, errors.NewValidationError("columns", "duplicate column name", c.Name())
		}
		if i == 0 {
			f.rows = c.Len()
		} else if c.Len() != f.rows {
			return nil, errors.NewDimensionError("frame.New", f.rows, c.Len(), 0)
		}
		f.index[c.Name()] = i
	}
	f.columns = columns
	return f, nil
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name()
	}
	return names
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.columns) }

// Columns returns the columns in order.
func (f *Frame) Columns() []*Column { return f.columns }

// Has reports whether the frame has a column called name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Index returns the position of a column, or -1.
func (f *Frame) Index(name string) int {
	if i, ok := f.index[name]; ok {
		return i
	}
	return -1
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, errors.NewColumnNotFoundError("Frame.Column", name)
	}
	return f.columns[i], nil
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame {
	cols := make([]*Column, len(f.columns))
	for i, c := range f.columns {
		cols[i] = c.Head(n)
	}
	out, _ := New(cols...)
	return out
}

// Take returns the rows at the given positions, in order.
func (f *Frame) Take(rows []int) *Frame {
	cols := make([]*Column, len(f.columns))
	for i, c := range f.columns {
		cols[i] = c.Take(rows)
	}
	out, _ := New(cols...)
	if len(cols) == 0 {
		out.rows = len(rows)
	}
	return out
}

// Select returns the named columns in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		c, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Drop returns the frame without the named columns.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		if !f.Has(name) {
			return nil, errors.NewColumnNotFoundError("Frame.Drop", name)
		}
		drop[name] = struct{}{}
	}
	cols := make([]*Column, 0, len(f.columns))
	for _, c := range f.columns {
		if _, ok := drop[c.Name()]; !ok {
			cols = append(cols, c)
		}
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		out.rows = f.rows
	}
	return out, nil
}

// Row returns the formatted cells of row i keyed by column name.
func (f *Frame) Row(i int) map[string]string {
	row := make(map[string]string, len(f.columns))
	for _, c := range f.columns {
		row[c.Name()] = c.Cell(i)
	}
	return row
}

// Unique returns the distinct non-missing values of a column.
func (f *Frame) Unique(name string) ([]string, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	return c.Unique(), nil
}

// DivideFeatures separates numeric from categorical column names, keeping
// the frame's column order within each group.
func (f *Frame) DivideFeatures() (numeric, categorical []string) {
	for _, c := range f.columns {
		if c.IsNumeric() {
			numeric = append(numeric, c.Name())
		} else {
			categorical = append(categorical, c.Name())
		}
	}
	return numeric, categorical
}

// Filter keeps the rows where column <op> value holds, op being ">", "=" or
// "<". Numeric columns compare numerically, categorical columns lexically.
// An unknown op yields a nil frame and no error. Missing cells never match.
func (f *Frame) Filter(column, op, value string) (*Frame, error) {
	c, err := f.Column(column)
	if err != nil {
		return nil, err
	}
	if op != ">" && op != "=" && op != "<" {
		return nil, nil
	}

	var cmp func(i int) int
	if c.IsNumeric() {
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, errors.NewValidationError(column, "numeric column needs a numeric value", value)
		}
		cmp = func(i int) int {
			switch x := c.floats[i]; {
			case x < v:
				return -1
			case x > v:
				return 1
			default:
				return 0
			}
		}
	} else {
		cmp = func(i int) int { return strings.Compare(c.strings[i], value) }
	}

	want := map[string]int{">": 1, "=": 0, "<": -1}[op]
	var rows []int
	for i := 0; i < f.rows; i++ {
		if c.IsMissing(i) {
			continue
		}
		if cmp(i) == want {
			rows = append(rows, i)
		}
	}
	return f.Take(rows), nil
}

// Render writes the frame as a table with a leading row index.
func (f *Frame) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{""}
	for _, name := range f.Names() {
		header = append(header, name)
	}
	t.AppendHeader(header)

	for i := 0; i < f.rows; i++ {
		row := table.Row{i}
		for _, c := range f.columns {
			row = append(row, c.Cell(i))
		}
		t.AppendRow(row)
	}
	t.Render()
}

// String renders the frame as a table.
func (f *Frame) String() string {
	var sb strings.Builder
	f.Render(&sb)
	return strings.TrimRight(sb.String(), "\n")
}
