package report

import (
	"math"

	"github.com/liftlab/repform/core/model"
	"github.com/liftlab/repform/model_selection"
	"github.com/liftlab/repform/models/discriminant"
	"github.com/liftlab/repform/models/ensemble"
	"github.com/liftlab/repform/models/naive_bayes"
	"github.com/liftlab/repform/pkg/errors"
)

// Family describes one competing classifier family: a short name used in
// the report and log records, a hyperparameter grid builder, and a
// factory that builds an unfitted estimator for one grid candidate.
type Family struct {
	// Name keys the family in Results maps and report output.
	Name string

	// Grid returns the hyperparameter candidates to search, given the
	// number of feature columns the estimators will see.
	Grid func(nFeatures int) model_selection.ParamGrid

	// New builds an unfitted estimator from one grid candidate. The
	// seed makes stochastic families reproducible across runs.
	New func(params map[string]interface{}, seed int64) (model.Classifier, error)
}

// DefaultFamilies returns the four families the pipeline compares:
// linear discriminant analysis, random forest, gradient boosting and
// Gaussian naive Bayes.
func DefaultFamilies() []Family {
	return []Family{
		{Name: "lda", Grid: ldaGrid, New: newLDA},
		{Name: "rf", Grid: forestGrid, New: newForest},
		{Name: "gbm", Grid: boostingGrid, New: newBoosting},
		{Name: "nb", Grid: naiveBayesGrid, New: newNaiveBayes},
	}
}

// ldaGrid has a single unparameterized candidate.
func ldaGrid(int) model_selection.ParamGrid {
	return model_selection.ParamGrid{{}}
}

// forestGrid tries mtry at half, exactly, and twice the square root of
// the feature count, deduplicated and clamped to [1, nFeatures].
func forestGrid(nFeatures int) model_selection.ParamGrid {
	root := int(math.Sqrt(float64(nFeatures)))
	if root < 1 {
		root = 1
	}
	grid := make(model_selection.ParamGrid, 0, 3)
	seen := make(map[int]bool)
	for _, mtry := range []int{root / 2, root, 2 * root} {
		if mtry < 1 {
			mtry = 1
		}
		if nFeatures > 0 && mtry > nFeatures {
			mtry = nFeatures
		}
		if seen[mtry] {
			continue
		}
		seen[mtry] = true
		grid = append(grid, map[string]interface{}{"max_features": mtry})
	}
	return grid
}

// boostingGrid crosses boosting rounds with tree depth at a fixed 0.1
// shrinkage.
func boostingGrid(int) model_selection.ParamGrid {
	rounds := []int{50, 100, 150}
	depths := []int{1, 2, 3}
	grid := make(model_selection.ParamGrid, 0, len(rounds)*len(depths))
	for _, n := range rounds {
		for _, d := range depths {
			grid = append(grid, map[string]interface{}{"n_estimators": n, "max_depth": d})
		}
	}
	return grid
}

func naiveBayesGrid(int) model_selection.ParamGrid {
	grid := make(model_selection.ParamGrid, 0, 3)
	for _, s := range []float64{1e-9, 1e-6, 1e-3} {
		grid = append(grid, map[string]interface{}{"var_smoothing": s})
	}
	return grid
}

func newLDA(_ map[string]interface{}, _ int64) (model.Classifier, error) {
	return discriminant.NewLinearDiscriminantAnalysis(), nil
}

func newForest(params map[string]interface{}, seed int64) (model.Classifier, error) {
	opts := []ensemble.RandomForestOption{ensemble.WithRFRandomState(seed)}
	if v, ok := params["max_features"]; ok {
		mtry, ok := asInt(v)
		if !ok {
			return nil, errors.NewValueError("rf", "max_features must be an integer")
		}
		opts = append(opts, ensemble.WithRFMaxFeatures(mtry))
	}
	return ensemble.NewRandomForestClassifier(opts...), nil
}

func newBoosting(params map[string]interface{}, seed int64) (model.Classifier, error) {
	opts := []ensemble.GradientBoostingOption{
		ensemble.WithGBLearningRate(0.1),
		ensemble.WithGBRandomState(seed),
	}
	if v, ok := params["n_estimators"]; ok {
		n, ok := asInt(v)
		if !ok {
			return nil, errors.NewValueError("gbm", "n_estimators must be an integer")
		}
		opts = append(opts, ensemble.WithGBNEstimators(n))
	}
	if v, ok := params["max_depth"]; ok {
		d, ok := asInt(v)
		if !ok {
			return nil, errors.NewValueError("gbm", "max_depth must be an integer")
		}
		opts = append(opts, ensemble.WithGBMaxDepth(d))
	}
	return ensemble.NewGradientBoostingClassifier(opts...), nil
}

func newNaiveBayes(params map[string]interface{}, _ int64) (model.Classifier, error) {
	opts := []naive_bayes.GaussianNBOption{}
	if v, ok := params["var_smoothing"]; ok {
		s, ok := v.(float64)
		if !ok {
			return nil, errors.NewValueError("nb", "var_smoothing must be a float")
		}
		opts = append(opts, naive_bayes.WithVarSmoothing(s))
	}
	return naive_bayes.NewGaussianNB(opts...), nil
}

// asInt accepts the integer kinds a hand-written grid may carry.
func asInt(v interface{}) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	}
	return 0, false
}
