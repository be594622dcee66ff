package frame

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

// CSVOptions controls ReadCSV.
type CSVOptions struct {
	// Columns names the columns of a file without a header row. When empty
	// the first record is the header.
	Columns []string

	// NATokens are cell values treated as missing, in addition to "".
	NATokens []string

	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// ReadCSV parses delimited text into a Frame. Cells are trimmed of
// surrounding spaces. A column is numeric when every non-missing cell parses
// as a float, categorical otherwise. Blank trailing lines are ignored.
func ReadCSV(r io.Reader, opts CSVOptions) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}

	header := opts.Columns
	if len(header) == 0 {
		if len(records) == 0 {
			return nil, errors.ErrEmptyData
		}
		header = make([]string, len(records[0]))
		for i, h := range records[0] {
			header[i] = strings.TrimSpace(h)
		}
		records = records[1:]
	}

	na := map[string]struct{}{"": {}}
	for _, tok := range opts.NATokens {
		na[tok] = struct{}{}
	}

	cells := make([][]string, len(header))
	for line, rec := range records {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) != len(header) {
			return nil, errors.NewDimensionError("ReadCSV line "+strconv.Itoa(line+1), len(header), len(rec), 1)
		}
		for j, v := range rec {
			v = strings.TrimSpace(v)
			if _, missing := na[v]; missing {
				v = ""
			}
			cells[j] = append(cells[j], v)
		}
	}

	columns := make([]*Column, len(header))
	for j, name := range header {
		columns[j] = inferColumn(name, cells[j])
	}
	return New(columns...)
}

func inferColumn(name string, cells []string) *Column {
	floats := make([]float64, len(cells))
	for i, v := range cells {
		if v == "" {
			floats[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return NewCategorical(name, cells)
		}
		floats[i] = f
	}
	return NewNumeric(name, floats)
}
