package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "LogisticRegression".
	ModelNameKey = "model.name"

	// ModelIDKey identifies a model slot within a workbench session.
	ModelIDKey = "model.id"

	// OperationKey is the operation being performed, see the Operation* values.
	OperationKey = "ml.operation"

	// ComponentKey is the package or subsystem emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey is the lifecycle phase, see the Phase* values.
	PhaseKey = "ml.phase"

	// AlgorithmKey is the selected algorithm, e.g. "RANDOM_FOREST".
	AlgorithmKey = "ml.algorithm"

	// ProblemTypeKey is "CLASSIFICATION" or "REGRESSION".
	ProblemTypeKey = "ml.problem_type"
)

// Dataset context.
const (
	DatasetKey      = "dataset.id"
	DatasetNameKey  = "dataset.name"
	DatasetURLKey   = "dataset.url"
	TargetKey       = "dataset.target"
	SplitTypeKey    = "split.type"
	CrossColumnsKey = "split.cross_columns"
	ExampleKey      = "explain.example"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ColumnsKey  = "data.columns"
)

// Performance and evaluation.
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	R2ScoreKey    = "metrics.r2_score"
	MSEKey        = "metrics.mse"
	RMSEKey       = "metrics.rmse"
	LossKey       = "metrics.loss"
	IterationKey  = "training.iteration"
	RandomSeedKey = "config.random_seed"
)

// Error context.
const (
	ErrorCodeKey  = "error.code"
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationSplit     = "split"
	OperationExplain   = "explain"
	OperationInterpret = "interpret"
	OperationLoad      = "load"

	PhaseTraining      = "training"
	PhaseTesting       = "testing"
	PhasePreprocessing = "preprocessing"
	PhaseExplanation   = "explanation"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorNoTarget          = "NO_TARGET"
	ErrorNotImplemented    = "NOT_IMPLEMENTED"
)

// Keys used by the zerolog backend for errors.
const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)
