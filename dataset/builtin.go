package dataset

import "sort"

// ID identifies a dataset source.
type ID string

const (
	Census      ID = "CENSUS"
	Iris        ID = "IRIS"
	WineQuality ID = "WINE_QUALITY"

	// Custom is the id of datasets loaded from a caller-supplied URL.
	Custom ID = "CUSTOM"
)

// Source describes where a dataset lives and how its file is laid out.
type Source struct {
	ID   ID
	Name string
	URL  string

	// Columns names the columns of header-less files.
	Columns []string

	// NATokens are cell values read as missing.
	NATokens []string

	// Comma is the field delimiter; zero means auto-detect.
	Comma rune
}

var builtIns = map[ID]Source{
	Census: {
		ID:   Census,
		Name: "Adult Census Income",
		URL:  "https://archive.ics.uci.edu/ml/machine-learning-databases/adult/adult.data",
		Columns: []string{
			"age", "workclass", "fnlwgt", "education", "education-num",
			"marital-status", "occupation", "relationship", "ethnicity", "gender",
			"capital-gain", "capital-loss", "hours-per-week", "native-country", "income",
		},
		NATokens: []string{"?"},
		Comma:    ',',
	},
	Iris: {
		ID:       Iris,
		Name:     "Iris",
		URL:      "https://archive.ics.uci.edu/ml/machine-learning-databases/iris/iris.data",
		Columns:  []string{"sepal_length", "sepal_width", "petal_length", "petal_width", "class"},
		Comma:    ',',
		NATokens: []string{"NA"},
	},
	WineQuality: {
		ID:       WineQuality,
		Name:     "Wine Quality (red)",
		URL:      "https://archive.ics.uci.edu/ml/machine-learning-databases/wine-quality/winequality-red.csv",
		Comma:    ';',
		NATokens: []string{"NA"},
	},
}

// BuiltIns returns the built-in sources sorted by id.
func BuiltIns() []Source {
	out := make([]Source, 0, len(builtIns))
	for _, s := range builtIns {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup returns the built-in source with the given id.
func Lookup(id string) (Source, bool) {
	s, ok := builtIns[ID(id)]
	return s, ok
}
