package pipeline

import (
	"strings"

	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

// Algorithm selects the estimator at the end of a pipeline.
type Algorithm int

const (
	LogisticRegression Algorithm = iota + 1
	DecisionTree
	RandomForest
	XGB
	LinearRegression
	SVM
)

var algorithmNames = map[Algorithm]string{
	LogisticRegression: "LOGISTIC_REGRESSION",
	DecisionTree:       "DECISION_TREE",
	RandomForest:       "RANDOM_FOREST",
	XGB:                "XGB",
	LinearRegression:   "LINEAR_REGRESSION",
	SVM:                "SVM",
}

func (a Algorithm) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	return "UNKNOWN"
}

// Algorithms returns every algorithm in declaration order.
func Algorithms() []Algorithm {
	return []Algorithm{LogisticRegression, DecisionTree, RandomForest, XGB, LinearRegression, SVM}
}

// ParseAlgorithm resolves a name such as "random_forest" or "RANDOM_FOREST".
func ParseAlgorithm(name string) (Algorithm, error) {
	want := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	for _, a := range Algorithms() {
		if a.String() == want {
			return a, nil
		}
	}
	return 0, errors.NewValidationError("algorithm", "unknown algorithm", name)
}

// ProblemType is the kind of supervised problem a target defines.
type ProblemType int

const (
	Classification ProblemType = iota + 1
	Regression
)

func (p ProblemType) String() string {
	switch p {
	case Classification:
		return "CLASSIFICATION"
	case Regression:
		return "REGRESSION"
	default:
		return "UNKNOWN"
	}
}

// ModelType pairs a problem type with the algorithm chosen for it.
type ModelType struct {
	ProblemType ProblemType
	Algorithm   Algorithm
}

func (m ModelType) String() string {
	return m.ProblemType.String() + "/" + m.Algorithm.String()
}

// TypeFor returns Classification for a string target and Regression otherwise.
func TypeFor(y *frame.Column) ProblemType {
	if y != nil && !y.IsNumeric() {
		return Classification
	}
	return Regression
}

// IsClassifier reports whether the algorithm predicts classes.
func (a Algorithm) IsClassifier() bool {
	return a != LinearRegression
}
