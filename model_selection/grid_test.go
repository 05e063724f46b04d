package model_selection

import (
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/repform/core/model"
	"github.com/liftlab/repform/models/naive_bayes"
	"github.com/liftlab/repform/pkg/errors"
)

// stubClassifier reports a fixed accuracy, so grid selection is observable
type stubClassifier struct {
	acc    float64
	fitted bool
}

func (s *stubClassifier) Fit(X, y mat.Matrix) error { s.fitted = true; return nil }
func (s *stubClassifier) IsFitted() bool            { return s.fitted }
func (s *stubClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, _ := X.Dims()
	return mat.NewDense(rows, 1, nil), nil
}
func (s *stubClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	rows, _ := X.Dims()
	return mat.NewDense(rows, 2, nil), nil
}
func (s *stubClassifier) Score(X, y mat.Matrix) (float64, error) { return s.acc, nil }
func (s *stubClassifier) Classes() []int                         { return []int{0, 1} }

func stubFactory(params map[string]interface{}) (model.Classifier, error) {
	acc := 1.0
	if v, ok := params["accuracy"]; ok {
		acc = v.(float64)
	}
	return &stubClassifier{acc: acc}, nil
}

func TestGridSearchSelectsBest(t *testing.T) {
	X, y := separableData(20)

	gs := &GridSearch{
		Grid: ParamGrid{
			{"accuracy": 0.5},
			{"accuracy": 0.9},
			{"accuracy": 0.7},
		},
		Folds: 4,
		Seed:  42,
	}

	result, err := gs.Run(stubFactory, X, y)
	if err != nil {
		t.Fatalf("GridSearch failed: %v", err)
	}

	if result.BestIndex != 1 {
		t.Errorf("Expected candidate 1 to win, got %d", result.BestIndex)
	}
	if result.BestScore != 0.9 {
		t.Errorf("Expected best score 0.9, got %v", result.BestScore)
	}
	if result.BestParams["accuracy"].(float64) != 0.9 {
		t.Errorf("Expected winning params, got %v", result.BestParams)
	}

	if len(result.CVResults) != 3 {
		t.Fatalf("Expected 3 CV results, got %d", len(result.CVResults))
	}
	if result.CVResults[0].GetMeanScore() != 0.5 {
		t.Errorf("Candidate 0 mean should be 0.5, got %v", result.CVResults[0].GetMeanScore())
	}

	// The returned estimator is refit with the winning parameters
	if !result.Estimator.IsFitted() {
		t.Error("Returned estimator should be fitted")
	}
	if result.Estimator.(*stubClassifier).acc != 0.9 {
		t.Error("Returned estimator should carry the winning parameters")
	}
}

func TestGridSearchTieKeepsFirst(t *testing.T) {
	X, y := separableData(20)

	gs := &GridSearch{
		Grid: ParamGrid{
			{"accuracy": 0.8},
			{"accuracy": 0.8},
		},
		Folds: 4,
		Seed:  1,
	}

	result, err := gs.Run(stubFactory, X, y)
	if err != nil {
		t.Fatalf("GridSearch failed: %v", err)
	}
	if result.BestIndex != 0 {
		t.Errorf("Ties should keep the earliest candidate, got %d", result.BestIndex)
	}
}

func TestGridSearchEmptyGrid(t *testing.T) {
	X, y := separableData(20)

	gs := &GridSearch{Folds: 4, Seed: 1}
	result, err := gs.Run(stubFactory, X, y)
	if err != nil {
		t.Fatalf("GridSearch failed: %v", err)
	}

	if len(result.CVResults) != 1 {
		t.Fatalf("Empty grid should run one default candidate, got %d", len(result.CVResults))
	}
	if result.BestIndex != 0 {
		t.Errorf("Expected candidate 0, got %d", result.BestIndex)
	}
	if len(result.BestParams) != 0 {
		t.Errorf("Default candidate should have empty params, got %v", result.BestParams)
	}
}

func TestGridSearchValidation(t *testing.T) {
	X, y := separableData(20)

	t.Run("too few folds", func(t *testing.T) {
		gs := &GridSearch{Folds: 1}
		_, err := gs.Run(stubFactory, X, y)
		if err == nil {
			t.Fatal("Expected configuration error")
		}
		var confErr *errors.ConfigurationError
		if !errors.As(err, &confErr) {
			t.Errorf("Expected ConfigurationError, got %T", err)
		}
	})

	t.Run("nil factory", func(t *testing.T) {
		gs := &GridSearch{Folds: 4}
		_, err := gs.Run(nil, X, y)
		if err == nil {
			t.Fatal("Expected error for nil factory")
		}
		var valErr *errors.ValueError
		if !errors.As(err, &valErr) {
			t.Errorf("Expected ValueError, got %T", err)
		}
	})
}

func TestGridSearchFactoryError(t *testing.T) {
	X, y := separableData(20)

	factory := func(params map[string]interface{}) (model.Classifier, error) {
		if _, bad := params["bad"]; bad {
			return nil, errors.New("unsupported parameter combination")
		}
		return &stubClassifier{acc: 1}, nil
	}

	gs := &GridSearch{
		Grid:  ParamGrid{{"bad": true}},
		Folds: 4,
	}
	_, err := gs.Run(factory, X, y)
	if err == nil {
		t.Fatal("Expected error from the failing candidate")
	}
	if !strings.Contains(err.Error(), "candidate") {
		t.Errorf("Expected candidate context in error, got: %v", err)
	}
}

func TestGridSearchGaussianNB(t *testing.T) {
	X, y := separableData(40)

	factory := func(params map[string]interface{}) (model.Classifier, error) {
		opts := []naive_bayes.GaussianNBOption{}
		if v, ok := params["var_smoothing"]; ok {
			opts = append(opts, naive_bayes.WithVarSmoothing(v.(float64)))
		}
		return naive_bayes.NewGaussianNB(opts...), nil
	}

	gs := &GridSearch{
		Grid: ParamGrid{
			{"var_smoothing": 1e-9},
			{"var_smoothing": 1e-6},
			{"var_smoothing": 1e-3},
		},
		Folds: 5,
		Seed:  42,
	}

	result, err := gs.Run(factory, X, y)
	if err != nil {
		t.Fatalf("GridSearch failed: %v", err)
	}

	// Every candidate is perfect on separable data; ties keep the first
	if result.BestIndex != 0 {
		t.Errorf("Expected first candidate on tie, got %d", result.BestIndex)
	}
	if result.BestScore != 1.0 {
		t.Errorf("Expected mean accuracy 1.0, got %v", result.BestScore)
	}
	if !result.Estimator.IsFitted() {
		t.Error("Returned estimator should be fitted")
	}

	pred, err := result.Estimator.Predict(mat.NewDense(2, 1, []float64{2, 12}))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if pred.At(0, 0) != 0 || pred.At(1, 0) != 1 {
		t.Errorf("Refit estimator misclassified the cluster centers: %v, %v",
			pred.At(0, 0), pred.At(1, 0))
	}
}
