package frame

import (
	"math"
	"strconv"
)

// Kind is the storage type of a column.
type Kind int

const (
	// Numeric columns hold float64 values; NaN marks a missing cell.
	Numeric Kind = iota
	// Categorical columns hold strings; "" marks a missing cell.
	Categorical
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Column is a named, typed sequence of cells. Columns are immutable once built;
// every Frame operation returns new columns.
type Column struct {
	name    string
	kind    Kind
	floats  []float64
	strings []string
}

// NewNumeric builds a numeric column. values is not copied.
func NewNumeric(name string, values []float64) *Column {
	return &Column{name: name, kind: Numeric, floats: values}
}

// NewCategorical builds a categorical column. values is not copied.
func NewCategorical(name string, values []string) *Column {
	return &Column{name: name, kind: Categorical, strings: values}
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }

// IsNumeric reports whether the column holds float64 values.
func (c *Column) IsNumeric() bool { return c.kind == Numeric }

// Len returns the number of cells.
func (c *Column) Len() int {
	if c.kind == Numeric {
		return len(c.floats)
	}
	return len(c.strings)
}

// Floats returns the backing values of a numeric column, nil otherwise.
// Callers must not modify the slice.
func (c *Column) Floats() []float64 { return c.floats }

// Strings returns the backing values of a categorical column, nil otherwise.
// Callers must not modify the slice.
func (c *Column) Strings() []string { return c.strings }

// IsMissing reports whether cell i is missing.
func (c *Column) IsMissing(i int) bool {
	if c.kind == Numeric {
		return math.IsNaN(c.floats[i])
	}
	return c.strings[i] == ""
}

// Cell formats cell i for display. Missing cells render as "NaN".
func (c *Column) Cell(i int) string {
	if c.IsMissing(i) {
		return "NaN"
	}
	if c.kind == Numeric {
		return strconv.FormatFloat(c.floats[i], 'g', -1, 64)
	}
	return c.strings[i]
}

// Rename returns the same data under a new name.
func (c *Column) Rename(name string) *Column {
	out := *c
	out.name = name
	return &out
}

// Head returns the first n cells.
func (c *Column) Head(n int) *Column {
	if n > c.Len() {
		n = c.Len()
	}
	if n < 0 {
		n = 0
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return c.Take(rows)
}

// Take returns the cells at the given row positions, in order.
func (c *Column) Take(rows []int) *Column {
	if c.kind == Numeric {
		out := make([]float64, len(rows))
		for i, r := range rows {
			out[i] = c.floats[r]
		}
		return NewNumeric(c.name, out)
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = c.strings[r]
	}
	return NewCategorical(c.name, out)
}

// Unique returns the distinct non-missing cells formatted as strings, in
// order of first appearance.
func (c *Column) Unique() []string {
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			continue
		}
		v := c.Cell(i)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// UniqueFloats returns the distinct non-missing values of a numeric column.
func (c *Column) UniqueFloats() []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for _, v := range c.floats {
		if math.IsNaN(v) {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
