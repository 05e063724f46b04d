package model_selection

import (
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/repform/core/model"
	"github.com/liftlab/repform/pkg/errors"
)

// CVResult stores cross-validation results
type CVResult struct {
	TrainScores []float64
	TestScores  []float64
}

// GetMeanScore returns mean test score
func (cv *CVResult) GetMeanScore() float64 {
	if len(cv.TestScores) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, score := range cv.TestScores {
		sum += score
	}
	return sum / float64(len(cv.TestScores))
}

// GetStdScore returns standard deviation of test scores
func (cv *CVResult) GetStdScore() float64 {
	if len(cv.TestScores) <= 1 {
		return 0.0
	}

	mean := cv.GetMeanScore()
	sumSq := 0.0
	for _, score := range cv.TestScores {
		diff := score - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(cv.TestScores)-1))
}

// CrossValidate fits one fresh estimator per fold and records its accuracy
// on the fold's train and test rows. Folds run concurrently when parallel
// is set; each fold writes into its own result slot so the aggregate is
// the same either way.
func CrossValidate(newEstimator func() model.Classifier, X, y mat.Matrix,
	splitter KFoldSplitter, parallel bool) (*CVResult, error) {

	if newEstimator == nil {
		return nil, errors.NewValueError("CrossValidate", "nil estimator factory")
	}
	if X == nil || y == nil {
		return nil, errors.NewValueError("CrossValidate", "nil input matrix")
	}

	folds := splitter.Split(X, y)
	nFolds := len(folds)
	if nFolds == 0 {
		return nil, errors.NewValueError("CrossValidate", "splitter produced no folds")
	}

	result := &CVResult{
		TrainScores: make([]float64, nFolds),
		TestScores:  make([]float64, nFolds),
	}
	errs := make([]error, nFolds)

	runFold := func(idx int) {
		fold := folds[idx]
		if len(fold.TrainIndices) == 0 || len(fold.TestIndices) == 0 {
			errs[idx] = errors.Newf("fold %d has an empty split (%d train, %d test rows)",
				idx, len(fold.TrainIndices), len(fold.TestIndices))
			return
		}

		trainX, trainY := extractSubset(X, y, fold.TrainIndices)
		testX, testY := extractSubset(X, y, fold.TestIndices)

		est := newEstimator()
		if err := est.Fit(trainX, trainY); err != nil {
			errs[idx] = errors.Wrapf(err, "fold %d training failed", idx)
			return
		}

		trainScore, err := est.Score(trainX, trainY)
		if err != nil {
			errs[idx] = errors.Wrapf(err, "fold %d train scoring failed", idx)
			return
		}
		result.TrainScores[idx] = trainScore

		testScore, err := est.Score(testX, testY)
		if err != nil {
			errs[idx] = errors.Wrapf(err, "fold %d test scoring failed", idx)
			return
		}
		result.TestScores[idx] = testScore
	}

	if parallel {
		var wg sync.WaitGroup
		for foldIdx := 0; foldIdx < nFolds; foldIdx++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				runFold(idx)
			}(foldIdx)
		}
		wg.Wait()
	} else {
		for foldIdx := 0; foldIdx < nFolds; foldIdx++ {
			runFold(foldIdx)
		}
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// extractSubset extracts subset of data based on indices
func extractSubset(X, y mat.Matrix, indices []int) (mat.Matrix, mat.Matrix) {
	rows := len(indices)
	_, xCols := X.Dims()
	_, yCols := y.Dims()

	// Sort indices for efficient access
	sortedIndices := make([]int, len(indices))
	copy(sortedIndices, indices)
	sort.Ints(sortedIndices)

	xSubset := mat.NewDense(rows, xCols, nil)
	ySubset := mat.NewDense(rows, yCols, nil)

	for i, idx := range sortedIndices {
		for j := 0; j < xCols; j++ {
			xSubset.Set(i, j, X.At(idx, j))
		}
		for j := 0; j < yCols; j++ {
			ySubset.Set(i, j, y.At(idx, j))
		}
	}

	return xSubset, ySubset
}
