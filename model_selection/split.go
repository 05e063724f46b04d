// Package model_selection provides data partitioning, cross-validation
// splitters and grid search over estimator hyperparameters.
package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/liftlab/repform/pkg/errors"
)

// StratifiedSplit partitions row indices into a training and a holdout set,
// preserving the label proportions. Within each class the rows are shuffled
// with a seeded generator and round(fraction * classSize) of them go to the
// training set. Both returned index sets are sorted and disjoint, and their
// union covers every row.
func StratifiedSplit(labels []string, fraction float64, seed int64) (train, holdout []int, err error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, errors.NewConfigurationError("fraction", "must be in (0, 1)", fraction)
	}
	if len(labels) == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "StratifiedSplit")
	}

	// Group row indices per class, keeping first-seen class order
	classOrder := make([]string, 0)
	classRows := make(map[string][]int)
	for i, label := range labels {
		if label == "" {
			return nil, nil, errors.NewValueError("StratifiedSplit",
				"empty label value in the label column")
		}
		if _, seen := classRows[label]; !seen {
			classOrder = append(classOrder, label)
		}
		classRows[label] = append(classRows[label], i)
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))

	train = make([]int, 0, int(fraction*float64(len(labels)))+len(classOrder))
	holdout = make([]int, 0, len(labels))
	for _, label := range classOrder {
		rows := classRows[label]
		rng.Shuffle(len(rows), func(i, j int) {
			rows[i], rows[j] = rows[j], rows[i]
		})

		nTrain := int(math.Round(fraction * float64(len(rows))))
		train = append(train, rows[:nTrain]...)
		holdout = append(holdout, rows[nTrain:]...)
	}

	sort.Ints(train)
	sort.Ints(holdout)
	return train, holdout, nil
}
