package model_selection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/repform/core/model"
	"github.com/liftlab/repform/pkg/errors"
	"github.com/liftlab/repform/pkg/log"
)

// ParamGrid is an explicit list of hyperparameter candidates
type ParamGrid []map[string]interface{}

// GridSearch selects the hyperparameter candidate with the best mean
// cross-validated accuracy and refits a fresh estimator on the full data.
type GridSearch struct {
	Grid     ParamGrid // Candidates; an empty grid means a single default candidate
	Folds    int       // Stratified folds per candidate
	Seed     int64     // Seed for the fold shuffling
	Parallel bool      // Run the folds of each candidate concurrently
}

// GridSearchResult holds the winning candidate and the per-candidate
// cross-validation results in grid order.
type GridSearchResult struct {
	BestParams map[string]interface{}
	BestScore  float64
	BestIndex  int
	CVResults  []*CVResult
	Estimator  model.Classifier
}

// Run evaluates every candidate with cross-validation. The factory builds
// one estimator per invocation from a candidate's parameters. Ties on the
// mean score keep the earliest candidate in grid order.
func (gs *GridSearch) Run(newEstimator func(params map[string]interface{}) (model.Classifier, error),
	X, y mat.Matrix) (*GridSearchResult, error) {

	if newEstimator == nil {
		return nil, errors.NewValueError("GridSearch.Run", "nil estimator factory")
	}
	if gs.Folds < 2 {
		return nil, errors.NewConfigurationError("folds", "must be at least 2", gs.Folds)
	}

	grid := gs.Grid
	if len(grid) == 0 {
		grid = ParamGrid{{}}
	}

	logger := log.GetLoggerWithName("model_selection.grid")
	logger.Debug("Grid search started",
		"candidates", len(grid),
		log.FoldsKey, gs.Folds)

	splitter := NewStratifiedKFold(gs.Folds, true, gs.Seed)

	result := &GridSearchResult{
		BestIndex: -1,
		CVResults: make([]*CVResult, len(grid)),
	}

	for i, params := range grid {
		candidate := params
		cv, err := CrossValidate(func() model.Classifier {
			est, factoryErr := newEstimator(candidate)
			if factoryErr != nil {
				return &brokenEstimator{err: factoryErr}
			}
			return est
		}, X, y, splitter, gs.Parallel)
		if err != nil {
			return nil, errors.Wrapf(err, "GridSearch.Run: candidate %d", i)
		}
		result.CVResults[i] = cv

		mean := cv.GetMeanScore()
		logger.Debug("Candidate evaluated",
			log.CandidateKey, i,
			log.MeanScoreKey, mean,
			log.StdScoreKey, cv.GetStdScore())

		if result.BestIndex < 0 || mean > result.BestScore {
			result.BestIndex = i
			result.BestScore = mean
			result.BestParams = candidate
		}
	}

	// Refit a fresh estimator with the winning parameters on all rows
	est, err := newEstimator(result.BestParams)
	if err != nil {
		return nil, errors.Wrapf(err, "GridSearch.Run: refit construction")
	}
	if err := est.Fit(X, y); err != nil {
		return nil, errors.Wrapf(err, "GridSearch.Run: refit")
	}
	result.Estimator = est

	logger.Debug("Grid search finished",
		log.CandidateKey, result.BestIndex,
		log.MeanScoreKey, result.BestScore)

	return result, nil
}

// brokenEstimator surfaces a factory error through the Fit call so that a
// bad candidate fails its folds instead of panicking.
type brokenEstimator struct {
	err error
}

func (b *brokenEstimator) Fit(X, y mat.Matrix) error { return b.err }
func (b *brokenEstimator) IsFitted() bool            { return false }
func (b *brokenEstimator) Predict(X mat.Matrix) (mat.Matrix, error) {
	return nil, b.err
}
func (b *brokenEstimator) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	return nil, b.err
}
func (b *brokenEstimator) Score(X, y mat.Matrix) (float64, error) {
	return 0, b.err
}
func (b *brokenEstimator) Classes() []int { return nil }
