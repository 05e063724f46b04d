// This file defines standard attribute keys for pipeline logging.
//
// Using these standard keys enables consistent log analysis, monitoring, and
// debugging across the repform workflow. The attributes are organized into
// categories:
//   - Model and Operation Context
//   - Data Shape and Characteristics
//   - Performance Metrics
//   - Cross-Validation Context
//   - Error Context
//
// These keys follow a hierarchical naming convention (e.g., "model.name",
// "data.samples") to enable structured log analysis and filtering.

package log

// Model and Operation Context
// These attributes identify the model type, instance, and operation being performed.
const (
	// ModelNameKey identifies the type of model or transformer.
	// Examples: "LinearDiscriminantAnalysis", "RandomForestClassifier", "GaussianNB"
	ModelNameKey = "model.name"

	// FamilyKey identifies the model family label used in reports.
	// Examples: "lda", "rf", "gbm", "nb"
	FamilyKey = "model.family"

	// EstimatorIDKey provides a unique identifier for a specific model instance.
	// This is useful for tracking multiple instances of the same model type.
	// Examples: "rf-001", "filter-abc123", UUID strings
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the pipeline operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score", "fetch"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the operation.
	// Examples: "dataset", "preprocessing", "model_selection", "metrics"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the pipeline lifecycle.
	// Examples: "training", "validation", "testing", "preprocessing", "evaluation"
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
// These attributes describe the structure and properties of data being processed.
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	// This is crucial for understanding the scale of data being processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	// Important for dimensionality tracking and debugging shape mismatches.
	FeaturesKey = "data.features"

	// TableKey names the table a record refers to.
	// Standard values: "training", "validation", "testing"
	TableKey = "data.table"

	// ColumnKey names the column a record refers to.
	// Used by filter passes and conversion warnings.
	ColumnKey = "data.column"

	// DroppedColumnsKey counts columns removed by a filter pass.
	DroppedColumnsKey = "data.columns_dropped"

	// DataTypeKey specifies the type of data being processed.
	// Examples: "numeric", "categorical", "mixed"
	DataTypeKey = "data.type"
)

// Performance Metrics
// These attributes capture timing and accuracy information.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	// This is essential for performance monitoring and optimization.
	DurationMsKey = "perf.duration_ms"

	// DurationSecondsKey records the execution time in seconds for longer operations.
	// Useful for training operations that take minutes.
	DurationSecondsKey = "perf.duration_seconds"

	// AccuracyKey records model accuracy for evaluation operations.
	// Range typically [0.0, 1.0] for classification accuracy.
	AccuracyKey = "metrics.accuracy"

	// KappaKey records Cohen's kappa for evaluation operations.
	KappaKey = "metrics.kappa"

	// LossKey records loss value during training or evaluation.
	// Lower values typically indicate better model performance.
	LossKey = "metrics.loss"

	// IterationKey records the current iteration number during iterative processes.
	// Used for boosting rounds in gradient boosted models.
	IterationKey = "training.iteration"
)

// Cross-Validation Context
// These attributes describe resampling during hyperparameter selection.
const (
	// FoldKey records the index of the current cross-validation fold.
	FoldKey = "cv.fold"

	// FoldsKey records the total number of cross-validation folds.
	FoldsKey = "cv.folds"

	// MeanScoreKey records the mean test score across folds.
	MeanScoreKey = "cv.mean_score"

	// StdScoreKey records the standard deviation of test scores across folds.
	StdScoreKey = "cv.std_score"

	// CandidateKey records the index of the hyperparameter candidate being evaluated.
	CandidateKey = "cv.candidate"
)

// Error and Warning Context
// These attributes provide additional context for error and warning messages.
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	// Examples: "DIMENSION_MISMATCH", "NOT_FITTED", "SCHEMA_MISMATCH"
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	// Examples: "ValidationError", "FitError", "SchemaMismatchError"
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	// Automatically populated by the error logging functions.
	StacktraceKey = "error.stacktrace"

	// SuggestionKey provides helpful suggestions for resolving issues.
	// Examples: "Check input data shape", "Lower the correlation cutoff"
	SuggestionKey = "error.suggestion"
)

// Hyperparameters and Configuration
// These attributes capture model configuration and run identity.
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	// Useful for tracking model configuration and reproducibility.
	HyperParamsKey = "model.hyperparams"

	// LearningRateKey records the shrinkage rate for boosted models.
	LearningRateKey = "hyperparams.learning_rate"

	// RandomSeedKey records the random seed for reproducibility.
	// Essential for debugging and ensuring reproducible results.
	RandomSeedKey = "config.random_seed"

	// RunIDKey carries the unique identifier of a pipeline run.
	// All records emitted by one Run share the same value.
	RunIDKey = "run.id"

	// WorkersKey records the parallelism level configured for a run.
	WorkersKey = "config.workers"
)

// Standard attribute value constants for common operations.
// Using these constants ensures consistency across the codebase.
const (
	// Standard operations
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"
	OperationFetch        = "fetch"

	// Standard phases
	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseTesting       = "testing"
	PhasePreprocessing = "preprocessing"
	PhaseEvaluation    = "evaluation"

	// Standard error codes
	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorSingularMatrix    = "SINGULAR_MATRIX"
	ErrorSchemaMismatch    = "SCHEMA_MISMATCH"
	ErrorZeroVariance      = "ZERO_VARIANCE"
)
