package report

import (
	"github.com/liftlab/repform/preprocessing"
)

// Default dataset locations. The training file carries the class label,
// the testing file carries 20 unlabeled rows to predict.
const (
	DefaultTrainingURL = "https://d396qusza40orc.cloudfront.net/predmachlearn/pml-training.csv"
	DefaultTestingURL  = "https://d396qusza40orc.cloudfront.net/predmachlearn/pml-testing.csv"
)

// Config collects everything one pipeline run needs. There are no flags
// or config files; callers adjust fields on the value DefaultConfig
// returns.
type Config struct {
	// TrainingURL and TestingURL locate the two remote CSV files.
	TrainingURL string
	TestingURL  string

	// CacheDir is where downloads land. Empty means a directory under
	// the OS temp dir.
	CacheDir string

	// LabelColumn names the class label column of the training table.
	LabelColumn string

	// TrainFraction is the per-class share of training-table rows kept
	// for model fitting; the rest form the validation subset.
	TrainFraction float64

	// Seed drives the partition shuffle, the cross-validation fold
	// assignment and the stochastic model families.
	Seed int64

	// Filter thresholds, in pass order: missingness, identifier count,
	// near-zero variance cuts, pairwise correlation.
	MissingnessThreshold float64
	IdentifierCount      int
	FreqCut              float64
	UniqueCut            float64
	CorrelationCutoff    float64

	// CVFolds is the number of stratified cross-validation folds run
	// per hyperparameter candidate.
	CVFolds int

	// Workers bounds how many model families train concurrently.
	Workers int

	// ChartPath, when non-empty, is where the validation accuracy bar
	// chart is written. The extension picks the format (.png, .svg).
	ChartPath string

	// Families are the competing classifier families. Empty means
	// DefaultFamilies.
	Families []Family
}

// DefaultConfig returns the reference setup: a 60/40 stratified split,
// the four-pass column filter at its standard thresholds, and 10-fold
// cross-validation over the four default families.
func DefaultConfig() Config {
	return Config{
		TrainingURL:          DefaultTrainingURL,
		TestingURL:           DefaultTestingURL,
		LabelColumn:          "classe",
		TrainFraction:        0.60,
		Seed:                 42,
		MissingnessThreshold: preprocessing.DefaultMissingnessThreshold,
		IdentifierCount:      preprocessing.DefaultIdentifierCount,
		FreqCut:              preprocessing.DefaultFreqCut,
		UniqueCut:            preprocessing.DefaultUniqueCut,
		CorrelationCutoff:    preprocessing.DefaultCorrelationCutoff,
		CVFolds:              10,
		Workers:              2,
		Families:             DefaultFamilies(),
	}
}

// filters assembles the four-pass filter chain from the configured
// thresholds.
func (c Config) filters() []preprocessing.ColumnFilter {
	nzv := preprocessing.NewNearZeroVarianceFilter()
	nzv.FreqCut = c.FreqCut
	nzv.UniqueCut = c.UniqueCut
	return []preprocessing.ColumnFilter{
		preprocessing.NewMissingnessFilter(c.MissingnessThreshold),
		preprocessing.NewIdentifierFilter(c.IdentifierCount),
		nzv,
		preprocessing.NewCorrelationFilter(c.CorrelationCutoff),
	}
}

// families returns the configured family list, falling back to the
// defaults when empty.
func (c Config) families() []Family {
	if len(c.Families) > 0 {
		return c.Families
	}
	return DefaultFamilies()
}
