package naive_bayes

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/repform/pkg/errors"
)

// twoGaussians builds two 1D clusters around 0 and 10
func twoGaussians() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(6, 1, []float64{
		-1, 0, 1,
		9, 10, 11,
	})
	y := mat.NewDense(6, 1, []float64{
		0, 0, 0, 1, 1, 1,
	})
	return X, y
}

// TestGaussianNBBasicFit tests basic fitting functionality
func TestGaussianNBBasicFit(t *testing.T) {
	X, y := twoGaussians()

	nb := NewGaussianNB()
	err := nb.Fit(X, y)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if !nb.state.IsFitted() {
		t.Error("Model should be fitted after Fit()")
	}

	classes := nb.Classes()
	if len(classes) != 2 {
		t.Errorf("Expected 2 classes, got %d", len(classes))
	}

	// Means recover the cluster centers
	if math.Abs(nb.theta_.At(0, 0)-0) > 1e-12 {
		t.Errorf("Class 0 mean should be 0, got %f", nb.theta_.At(0, 0))
	}
	if math.Abs(nb.theta_.At(1, 0)-10) > 1e-12 {
		t.Errorf("Class 1 mean should be 10, got %f", nb.theta_.At(1, 0))
	}

	// Biased variance of {-1, 0, 1} is 2/3, plus the smoothing epsilon
	want := 2.0/3.0 + nb.epsilon_
	if math.Abs(nb.var_.At(0, 0)-want) > 1e-12 {
		t.Errorf("Class 0 variance should be %v, got %f", want, nb.var_.At(0, 0))
	}
}

// TestGaussianNBPredict tests prediction functionality
func TestGaussianNBPredict(t *testing.T) {
	X, y := twoGaussians()

	nb := NewGaussianNB()
	err := nb.Fit(X, y)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	XTest := mat.NewDense(3, 1, []float64{
		2,  // near class 0
		8,  // near class 1
		-3, // far on the class 0 side
	})

	predictions, err := nb.Predict(XTest)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	want := []float64{0, 1, 0}
	for i, w := range want {
		if predictions.At(i, 0) != w {
			t.Errorf("Sample %d: expected class %v, got %v", i, w, predictions.At(i, 0))
		}
	}
}

// TestGaussianNBPredictProba tests probability prediction
func TestGaussianNBPredictProba(t *testing.T) {
	X, y := twoGaussians()

	nb := NewGaussianNB()
	err := nb.Fit(X, y)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	XTest := mat.NewDense(2, 1, []float64{
		0,
		10,
	})

	proba, err := nb.PredictProba(XTest)
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}

	rows, cols := proba.Dims()
	if rows != 2 || cols != 2 {
		t.Errorf("Proba shape should be (2, 2), got (%d, %d)", rows, cols)
	}

	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			p := proba.At(i, j)
			if p < 0 || p > 1 {
				t.Errorf("Probability should be in [0, 1], got %f", p)
			}
			sum += p
		}
		if math.Abs(sum-1.0) > 1e-10 {
			t.Errorf("Probabilities should sum to 1, got %f", sum)
		}
	}

	if proba.At(0, 0) <= proba.At(0, 1) {
		t.Error("Sample at the class 0 center should favor class 0")
	}
	if proba.At(1, 1) <= proba.At(1, 0) {
		t.Error("Sample at the class 1 center should favor class 1")
	}
}

// TestGaussianNBPredictLogProba tests log probability prediction
func TestGaussianNBPredictLogProba(t *testing.T) {
	X, y := twoGaussians()

	nb := NewGaussianNB()
	err := nb.Fit(X, y)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	XTest := mat.NewDense(1, 1, []float64{5})

	logProba, err := nb.PredictLogProba(XTest)
	if err != nil {
		t.Fatalf("PredictLogProba failed: %v", err)
	}

	rows, cols := logProba.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if logProba.At(i, j) > 0 {
				t.Errorf("Log probability should be <= 0, got %f", logProba.At(i, j))
			}
		}
	}

	sum := 0.0
	for j := 0; j < cols; j++ {
		sum += math.Exp(logProba.At(0, j))
	}
	if math.Abs(sum-1.0) > 1e-10 {
		t.Errorf("Exp of log probabilities should sum to 1, got %f", sum)
	}
}

// TestGaussianNBMulticlass tests three class prediction
func TestGaussianNBMulticlass(t *testing.T) {
	X := mat.NewDense(9, 2, []float64{
		0, 0, 1, 0, 0, 1,
		10, 10, 11, 10, 10, 11,
		20, 0, 21, 0, 20, 1,
	})
	y := mat.NewDense(9, 1, []float64{
		0, 0, 0, 1, 1, 1, 2, 2, 2,
	})

	nb := NewGaussianNB()
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	score, err := nb.Score(X, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 1.0 {
		t.Errorf("Expected perfect score on separated clusters, got %f", score)
	}

	proba, err := nb.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}
	_, cols := proba.Dims()
	if cols != 3 {
		t.Errorf("Expected 3 probability columns, got %d", cols)
	}
}

// TestGaussianNBVarSmoothing tests the variance smoothing behavior
func TestGaussianNBVarSmoothing(t *testing.T) {
	// The second feature is constant within each class
	X := mat.NewDense(6, 2, []float64{
		-1, 5, 0, 5, 1, 5,
		9, 7, 10, 7, 11, 7,
	})
	y := mat.NewDense(6, 1, []float64{
		0, 0, 0, 1, 1, 1,
	})

	// Default smoothing rescues the zero within-class variance
	nb := NewGaussianNB()
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("Fit with default smoothing failed: %v", err)
	}

	// Without smoothing the zero variance is an error
	nbNoSmoothing := NewGaussianNB(WithVarSmoothing(0))
	err := nbNoSmoothing.Fit(X, y)
	if err == nil {
		t.Fatal("Fit should fail on zero within-class variance without smoothing")
	}
	var fitErr *errors.FitError
	if !errors.As(err, &fitErr) {
		t.Errorf("Expected FitError, got %T", err)
	}

	// Heavy smoothing flattens the probabilities toward the priors
	nbHeavy := NewGaussianNB(WithVarSmoothing(1000))
	if err := nbHeavy.Fit(X, y); err != nil {
		t.Fatalf("Fit with heavy smoothing failed: %v", err)
	}

	XTest := mat.NewDense(1, 2, []float64{0, 5})
	probaDefault, err := nb.PredictProba(XTest)
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}
	probaHeavy, err := nbHeavy.PredictProba(XTest)
	if err != nil {
		t.Fatalf("PredictProba with heavy smoothing failed: %v", err)
	}

	diffDefault := math.Abs(probaDefault.At(0, 0) - probaDefault.At(0, 1))
	diffHeavy := math.Abs(probaHeavy.At(0, 0) - probaHeavy.At(0, 1))
	if diffHeavy >= diffDefault {
		t.Errorf("Heavy smoothing should flatten probabilities: default diff %f, heavy diff %f",
			diffDefault, diffHeavy)
	}
}

// TestGaussianNBConstantFeatures tests the all constant failure mode
func TestGaussianNBConstantFeatures(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		3, 7, 3, 7,
		3, 7, 3, 7,
	})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	nb := NewGaussianNB()
	err := nb.Fit(X, y)
	if err == nil {
		t.Fatal("Fit should fail when every feature is constant")
	}
	var fitErr *errors.FitError
	if !errors.As(err, &fitErr) {
		t.Errorf("Expected FitError, got %T", err)
	}
	if fitErr.Model != "GaussianNB" {
		t.Errorf("Expected model name in FitError, got %q", fitErr.Model)
	}
}

// TestGaussianNBPriors tests explicit prior handling
func TestGaussianNBPriors(t *testing.T) {
	X, y := twoGaussians()

	nbSkewed := NewGaussianNB(WithNBPriors([]float64{0.9, 0.1}))
	if err := nbSkewed.Fit(X, y); err != nil {
		t.Fatalf("Fit with priors failed: %v", err)
	}

	// The midpoint ties on likelihood, so the heavier prior decides
	mid := mat.NewDense(1, 1, []float64{5})
	pred, err := nbSkewed.Predict(mid)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if pred.At(0, 0) != 0 {
		t.Errorf("Midpoint should go to the class with the heavier prior, got %v", pred.At(0, 0))
	}

	// Invalid priors are rejected
	nbBad := NewGaussianNB(WithNBPriors([]float64{0.5, 0.6}))
	err = nbBad.Fit(X, y)
	if err == nil {
		t.Fatal("Fit should fail when priors do not sum to 1")
	}
	var confErr *errors.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Errorf("Expected ConfigurationError, got %T", err)
	}
}

// TestGaussianNBInvalidInput tests error handling
func TestGaussianNBInvalidInput(t *testing.T) {
	nbUnfitted := NewGaussianNB()
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	_, err := nbUnfitted.Predict(X)
	if err == nil {
		t.Error("Predict should fail on unfitted model")
	}
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("Expected NotFittedError, got %T", err)
	}

	// Dimension mismatch after fitting
	XTrain, yTrain := twoGaussians()
	nb := NewGaussianNB()
	if err := nb.Fit(XTrain, yTrain); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	XBad := mat.NewDense(1, 3, []float64{1, 2, 3})
	_, err = nb.Predict(XBad)
	if err == nil {
		t.Error("Predict should fail on mismatched feature count")
	}
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("Expected DimensionError, got %T", err)
	}

	// Negative smoothing is rejected
	nbNeg := NewGaussianNB(WithVarSmoothing(-1e-9))
	err = nbNeg.Fit(XTrain, yTrain)
	if err == nil {
		t.Error("Fit should fail on negative var_smoothing")
	}
}
