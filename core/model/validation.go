package model

import (
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/repform/pkg/errors"
)

// CheckFeatureVariance returns a typed FitError naming the model and the
// offending column index when X contains a column whose values are all
// identical. Estimators call it before any training work.
func CheckFeatureVariance(model string, X mat.Matrix) error {
	rows, cols := X.Dims()
	if rows == 0 {
		return nil
	}
	for j := 0; j < cols; j++ {
		first := X.At(0, j)
		constant := true
		for i := 1; i < rows; i++ {
			if X.At(i, j) != first {
				constant = false
				break
			}
		}
		if constant {
			return errors.NewFitError(model, "zero variance feature",
				strconv.Itoa(j), nil)
		}
	}
	return nil
}
