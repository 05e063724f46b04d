// Package naive_bayes implements the Gaussian naive Bayes classifier.
package naive_bayes

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/repform/core/model"
	"github.com/liftlab/repform/metrics"
	"github.com/liftlab/repform/pkg/errors"
)

// GaussianNB assumes each feature follows a per-class Gaussian and features
// are conditionally independent. A fraction of the largest feature variance
// is added to every class variance for numerical stability.
type GaussianNB struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	varSmoothing float64   // Portion of the largest variance added to all variances
	priors       []float64 // Class priors (empirical frequencies when nil)

	// Model parameters (available after fitting)
	classes_    []int
	nClasses_   int
	nFeatures_  int
	theta_      *mat.Dense // Per-class feature means
	var_        *mat.Dense // Per-class feature variances
	classPrior_ []float64
	classCount_ []float64
	epsilon_    float64
}

// GaussianNBOption is a functional option for GaussianNB
type GaussianNBOption func(*GaussianNB)

// NewGaussianNB creates a new GaussianNB classifier
func NewGaussianNB(opts ...GaussianNBOption) *GaussianNB {
	nb := &GaussianNB{
		state:        model.NewStateManager(),
		varSmoothing: 1e-9,
	}

	// Apply options
	for _, opt := range opts {
		opt(nb)
	}

	return nb
}

// Option functions

// WithVarSmoothing sets the variance smoothing fraction
func WithVarSmoothing(smoothing float64) GaussianNBOption {
	return func(nb *GaussianNB) {
		nb.varSmoothing = smoothing
	}
}

// WithNBPriors sets explicit class priors instead of empirical frequencies
func WithNBPriors(priors []float64) GaussianNBOption {
	return func(nb *GaussianNB) {
		nb.priors = priors
	}
}

// Fit estimates per-class feature means and variances
func (nb *GaussianNB) Fit(X, y mat.Matrix) error {
	if X == nil || y == nil {
		return errors.NewValueError("GaussianNB.Fit", "nil input matrix")
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, "GaussianNB.Fit")
	}
	if yRows != nSamples {
		return errors.NewDimensionError("GaussianNB.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("GaussianNB.Fit", 1, yCols, 1)
	}
	if nb.varSmoothing < 0 {
		return errors.NewConfigurationError("var_smoothing", "must be non-negative", nb.varSmoothing)
	}
	if err := model.CheckFeatureVariance("GaussianNB", X); err != nil {
		return err
	}

	nb.classes_ = extractClasses(y)
	nb.nClasses_ = len(nb.classes_)
	nb.nFeatures_ = nFeatures

	classIndex := make(map[int]int, nb.nClasses_)
	for k, class := range nb.classes_ {
		classIndex[class] = k
	}

	// Per-class means
	nb.classCount_ = make([]float64, nb.nClasses_)
	nb.theta_ = mat.NewDense(nb.nClasses_, nFeatures, nil)
	for i := 0; i < nSamples; i++ {
		k := classIndex[int(y.At(i, 0))]
		nb.classCount_[k]++
		for j := 0; j < nFeatures; j++ {
			nb.theta_.Set(k, j, nb.theta_.At(k, j)+X.At(i, j))
		}
	}
	for k := 0; k < nb.nClasses_; k++ {
		for j := 0; j < nFeatures; j++ {
			nb.theta_.Set(k, j, nb.theta_.At(k, j)/nb.classCount_[k])
		}
	}

	// Per-class variances
	nb.var_ = mat.NewDense(nb.nClasses_, nFeatures, nil)
	for i := 0; i < nSamples; i++ {
		k := classIndex[int(y.At(i, 0))]
		for j := 0; j < nFeatures; j++ {
			d := X.At(i, j) - nb.theta_.At(k, j)
			nb.var_.Set(k, j, nb.var_.At(k, j)+d*d)
		}
	}
	for k := 0; k < nb.nClasses_; k++ {
		for j := 0; j < nFeatures; j++ {
			nb.var_.Set(k, j, nb.var_.At(k, j)/nb.classCount_[k])
		}
	}

	// Smoothing scaled by the largest feature variance over the whole input
	maxVar := nb.globalMaxVariance(X, nSamples, nFeatures)
	nb.epsilon_ = nb.varSmoothing * maxVar
	if nb.epsilon_ > 0 {
		for k := 0; k < nb.nClasses_; k++ {
			for j := 0; j < nFeatures; j++ {
				nb.var_.Set(k, j, nb.var_.At(k, j)+nb.epsilon_)
			}
		}
	}
	for k := 0; k < nb.nClasses_; k++ {
		for j := 0; j < nFeatures; j++ {
			if nb.var_.At(k, j) == 0 {
				return errors.NewFitError("GaussianNB", "zero variance feature", strconv.Itoa(j), nil)
			}
		}
	}

	if err := nb.resolvePriors(nSamples); err != nil {
		return err
	}

	nb.state.SetDimensions(nFeatures, nSamples)
	nb.state.SetFitted()
	return nil
}

// globalMaxVariance returns the largest per-feature variance of X
func (nb *GaussianNB) globalMaxVariance(X mat.Matrix, nSamples, nFeatures int) float64 {
	maxVar := 0.0
	for j := 0; j < nFeatures; j++ {
		mean := 0.0
		for i := 0; i < nSamples; i++ {
			mean += X.At(i, j)
		}
		mean /= float64(nSamples)

		variance := 0.0
		for i := 0; i < nSamples; i++ {
			d := X.At(i, j) - mean
			variance += d * d
		}
		variance /= float64(nSamples)
		if variance > maxVar {
			maxVar = variance
		}
	}
	return maxVar
}

// resolvePriors validates explicit priors or derives empirical ones
func (nb *GaussianNB) resolvePriors(nSamples int) error {
	if nb.priors == nil {
		nb.classPrior_ = make([]float64, nb.nClasses_)
		for k, count := range nb.classCount_ {
			nb.classPrior_[k] = count / float64(nSamples)
		}
		return nil
	}

	if len(nb.priors) != nb.nClasses_ {
		return errors.NewConfigurationError("priors",
			"length must match the number of classes", len(nb.priors))
	}
	sum := 0.0
	for _, p := range nb.priors {
		if p <= 0 {
			return errors.NewConfigurationError("priors", "must be positive", p)
		}
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return errors.NewConfigurationError("priors", "must sum to 1", sum)
	}

	nb.classPrior_ = make([]float64, nb.nClasses_)
	copy(nb.classPrior_, nb.priors)
	return nil
}

// jointLogLikelihood computes log P(class) + log P(x | class) for each class
func (nb *GaussianNB) jointLogLikelihood(X mat.Matrix, row int, out []float64) {
	for k := 0; k < nb.nClasses_; k++ {
		ll := math.Log(nb.classPrior_[k])
		for j := 0; j < nb.nFeatures_; j++ {
			variance := nb.var_.At(k, j)
			d := X.At(row, j) - nb.theta_.At(k, j)
			ll -= 0.5*math.Log(2*math.Pi*variance) + d*d/(2*variance)
		}
		out[k] = ll
	}
}

// Predict returns the predicted class label for each row of X
func (nb *GaussianNB) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := nb.state.RequireFittedFor("GaussianNB", "Predict"); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != nb.nFeatures_ {
		return nil, errors.NewDimensionError("GaussianNB.Predict", nb.nFeatures_, nFeatures, 1)
	}

	predictions := mat.NewDense(nSamples, 1, nil)
	jll := make([]float64, nb.nClasses_)
	for i := 0; i < nSamples; i++ {
		nb.jointLogLikelihood(X, i, jll)
		best := 0
		for k := 1; k < nb.nClasses_; k++ {
			if jll[k] > jll[best] {
				best = k
			}
		}
		predictions.Set(i, 0, float64(nb.classes_[best]))
	}
	return predictions, nil
}

// PredictLogProba returns normalized log probabilities for each row of X
func (nb *GaussianNB) PredictLogProba(X mat.Matrix) (mat.Matrix, error) {
	if err := nb.state.RequireFittedFor("GaussianNB", "PredictLogProba"); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != nb.nFeatures_ {
		return nil, errors.NewDimensionError("GaussianNB.PredictLogProba", nb.nFeatures_, nFeatures, 1)
	}

	logProbas := mat.NewDense(nSamples, nb.nClasses_, nil)
	jll := make([]float64, nb.nClasses_)
	for i := 0; i < nSamples; i++ {
		nb.jointLogLikelihood(X, i, jll)
		lse := errors.LogSumExp(jll)
		for k := 0; k < nb.nClasses_; k++ {
			logProbas.Set(i, k, jll[k]-lse)
		}
	}
	return logProbas, nil
}

// PredictProba returns class probabilities for each row of X
func (nb *GaussianNB) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	logProbas, err := nb.PredictLogProba(X)
	if err != nil {
		return nil, err
	}

	nSamples, _ := logProbas.Dims()
	probas := mat.NewDense(nSamples, nb.nClasses_, nil)
	for i := 0; i < nSamples; i++ {
		for k := 0; k < nb.nClasses_; k++ {
			probas.Set(i, k, math.Exp(logProbas.At(i, k)))
		}
	}
	return probas, nil
}

// Score returns the mean accuracy on the given test data and labels
func (nb *GaussianNB) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := nb.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, predictions)
}

// Classes returns the sorted unique class labels seen during fitting
func (nb *GaussianNB) Classes() []int {
	classes := make([]int, len(nb.classes_))
	copy(classes, nb.classes_)
	return classes
}

// IsFitted returns whether the model has been fitted
func (nb *GaussianNB) IsFitted() bool {
	return nb.state.IsFitted()
}

// GetParams returns the model hyperparameters
func (nb *GaussianNB) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"var_smoothing": nb.varSmoothing,
		"priors":        nb.priors,
	}
}

// SetParams sets the model hyperparameters
func (nb *GaussianNB) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "var_smoothing":
			nb.varSmoothing = value.(float64)
		case "priors":
			nb.priors = value.([]float64)
		default:
			return errors.NewValueError("GaussianNB.SetParams", "unknown parameter: "+key)
		}
	}
	return nil
}

// extractClasses returns the sorted unique integer class labels in y
func extractClasses(y mat.Matrix) []int {
	rows, _ := y.Dims()
	classMap := make(map[int]bool)
	for i := 0; i < rows; i++ {
		classMap[int(y.At(i, 0))] = true
	}

	classes := make([]int, 0, len(classMap))
	for class := range classMap {
		classes = append(classes, class)
	}
	sort.Ints(classes)
	return classes
}
