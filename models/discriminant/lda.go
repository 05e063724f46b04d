// Package discriminant implements linear discriminant analysis for
// multiclass classification.
package discriminant

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/repform/core/model"
	"github.com/liftlab/repform/metrics"
	"github.com/liftlab/repform/pkg/errors"
)

// LinearDiscriminantAnalysis classifies by Gaussian class densities with a
// shared covariance matrix. The pooled within-class covariance is factorized
// once at fit time and the decision function is linear in the features.
type LinearDiscriminantAnalysis struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	priors    []float64 // Class priors (empirical frequencies when nil)
	shrinkage float64   // Blend toward the scaled identity, in [0, 1)

	// Model parameters (available after fitting)
	classes_    []int
	nClasses_   int
	nFeatures_  int
	priors_     []float64
	means_      *mat.Dense // Class means, one row per class
	coef_       *mat.Dense // Linear discriminant weights, one row per class
	intercept_  []float64
	covariance_ *mat.SymDense // Pooled within-class covariance
}

// LDAOption is a functional option for LinearDiscriminantAnalysis
type LDAOption func(*LinearDiscriminantAnalysis)

// NewLinearDiscriminantAnalysis creates a new LinearDiscriminantAnalysis
func NewLinearDiscriminantAnalysis(opts ...LDAOption) *LinearDiscriminantAnalysis {
	lda := &LinearDiscriminantAnalysis{
		state:     model.NewStateManager(),
		shrinkage: 0,
	}

	// Apply options
	for _, opt := range opts {
		opt(lda)
	}

	return lda
}

// Option functions

// WithLDAPriors sets explicit class priors instead of empirical frequencies
func WithLDAPriors(priors []float64) LDAOption {
	return func(lda *LinearDiscriminantAnalysis) {
		lda.priors = priors
	}
}

// WithLDAShrinkage blends the pooled covariance toward the scaled identity
func WithLDAShrinkage(shrinkage float64) LDAOption {
	return func(lda *LinearDiscriminantAnalysis) {
		lda.shrinkage = shrinkage
	}
}

// Fit estimates class means, priors and the pooled covariance, then solves
// for the linear discriminant weights.
func (lda *LinearDiscriminantAnalysis) Fit(X, y mat.Matrix) error {
	if X == nil || y == nil {
		return errors.NewValueError("LinearDiscriminantAnalysis.Fit", "nil input matrix")
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, "LinearDiscriminantAnalysis.Fit")
	}
	if yRows != nSamples {
		return errors.NewDimensionError("LinearDiscriminantAnalysis.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LinearDiscriminantAnalysis.Fit", 1, yCols, 1)
	}
	if lda.shrinkage < 0 || lda.shrinkage >= 1 {
		return errors.NewConfigurationError("shrinkage", "must be in [0, 1)", lda.shrinkage)
	}
	if err := model.CheckFeatureVariance("LinearDiscriminantAnalysis", X); err != nil {
		return err
	}

	lda.classes_ = extractClasses(y)
	lda.nClasses_ = len(lda.classes_)
	lda.nFeatures_ = nFeatures

	if lda.nClasses_ < 2 {
		return errors.NewFitError("LinearDiscriminantAnalysis",
			"need at least 2 classes", "", nil)
	}
	if nSamples <= lda.nClasses_ {
		return errors.NewFitError("LinearDiscriminantAnalysis",
			"need more samples than classes for the pooled covariance", "", nil)
	}

	classIndex := make(map[int]int, lda.nClasses_)
	for k, class := range lda.classes_ {
		classIndex[class] = k
	}

	// Class means and counts
	counts := make([]float64, lda.nClasses_)
	lda.means_ = mat.NewDense(lda.nClasses_, nFeatures, nil)
	for i := 0; i < nSamples; i++ {
		k := classIndex[int(y.At(i, 0))]
		counts[k]++
		for j := 0; j < nFeatures; j++ {
			lda.means_.Set(k, j, lda.means_.At(k, j)+X.At(i, j))
		}
	}
	for k := 0; k < lda.nClasses_; k++ {
		for j := 0; j < nFeatures; j++ {
			lda.means_.Set(k, j, lda.means_.At(k, j)/counts[k])
		}
	}

	if err := lda.resolvePriors(counts, nSamples); err != nil {
		return err
	}

	// Pooled within-class covariance with n - K degrees of freedom
	upper := make([]float64, nFeatures*nFeatures)
	diff := make([]float64, nFeatures)
	for i := 0; i < nSamples; i++ {
		k := classIndex[int(y.At(i, 0))]
		for j := 0; j < nFeatures; j++ {
			diff[j] = X.At(i, j) - lda.means_.At(k, j)
		}
		for r := 0; r < nFeatures; r++ {
			dr := diff[r]
			for c := r; c < nFeatures; c++ {
				upper[r*nFeatures+c] += dr * diff[c]
			}
		}
	}
	dof := float64(nSamples - lda.nClasses_)
	scatter := mat.NewSymDense(nFeatures, nil)
	for r := 0; r < nFeatures; r++ {
		for c := r; c < nFeatures; c++ {
			scatter.SetSym(r, c, upper[r*nFeatures+c]/dof)
		}
	}

	if lda.shrinkage > 0 {
		lda.applyShrinkage(scatter)
	}
	lda.covariance_ = scatter

	var chol mat.Cholesky
	if ok := chol.Factorize(scatter); !ok {
		return errors.NewFitError("LinearDiscriminantAnalysis",
			"pooled covariance is not positive definite", "", errors.ErrSingularMatrix)
	}

	// Solve Σ W = Mᵀ so that row k of coef_ is Σ⁻¹ μ_k
	var weights mat.Dense
	if err := chol.SolveTo(&weights, lda.means_.T()); err != nil {
		return errors.NewFitError("LinearDiscriminantAnalysis",
			"solving discriminant weights failed", "", err)
	}
	lda.coef_ = mat.DenseCopyOf(weights.T())

	lda.intercept_ = make([]float64, lda.nClasses_)
	for k := 0; k < lda.nClasses_; k++ {
		dot := 0.0
		for j := 0; j < nFeatures; j++ {
			dot += lda.means_.At(k, j) * lda.coef_.At(k, j)
		}
		lda.intercept_[k] = -0.5*dot + math.Log(lda.priors_[k])
	}

	lda.state.SetDimensions(nFeatures, nSamples)
	lda.state.SetFitted()
	return nil
}

// resolvePriors validates explicit priors or derives empirical ones
func (lda *LinearDiscriminantAnalysis) resolvePriors(counts []float64, nSamples int) error {
	if lda.priors == nil {
		lda.priors_ = make([]float64, lda.nClasses_)
		for k, count := range counts {
			lda.priors_[k] = count / float64(nSamples)
		}
		return nil
	}

	if len(lda.priors) != lda.nClasses_ {
		return errors.NewConfigurationError("priors",
			"length must match the number of classes", len(lda.priors))
	}
	sum := 0.0
	for _, p := range lda.priors {
		if p <= 0 {
			return errors.NewConfigurationError("priors", "must be positive", p)
		}
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return errors.NewConfigurationError("priors", "must sum to 1", sum)
	}

	lda.priors_ = make([]float64, lda.nClasses_)
	copy(lda.priors_, lda.priors)
	return nil
}

// applyShrinkage blends the covariance toward the scaled identity:
// (1-α)Σ + α(tr(Σ)/p)I
func (lda *LinearDiscriminantAnalysis) applyShrinkage(cov *mat.SymDense) {
	p, _ := cov.Dims()
	trace := 0.0
	for j := 0; j < p; j++ {
		trace += cov.At(j, j)
	}
	target := trace / float64(p)

	alpha := lda.shrinkage
	for r := 0; r < p; r++ {
		for c := r; c < p; c++ {
			v := (1 - alpha) * cov.At(r, c)
			if r == c {
				v += alpha * target
			}
			cov.SetSym(r, c, v)
		}
	}
}

// DecisionFunction returns the discriminant score of every class for each
// row of X
func (lda *LinearDiscriminantAnalysis) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := lda.state.RequireFittedFor("LinearDiscriminantAnalysis", "DecisionFunction"); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != lda.nFeatures_ {
		return nil, errors.NewDimensionError("LinearDiscriminantAnalysis.DecisionFunction",
			lda.nFeatures_, nFeatures, 1)
	}

	scores := mat.NewDense(nSamples, lda.nClasses_, nil)
	scores.Mul(X, lda.coef_.T())
	for i := 0; i < nSamples; i++ {
		for k := 0; k < lda.nClasses_; k++ {
			scores.Set(i, k, scores.At(i, k)+lda.intercept_[k])
		}
	}
	return scores, nil
}

// Predict returns the predicted class label for each row of X
func (lda *LinearDiscriminantAnalysis) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lda.DecisionFunction(X)
	if err != nil {
		return nil, err
	}

	nSamples, _ := scores.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		best := 0
		for k := 1; k < lda.nClasses_; k++ {
			if scores.At(i, k) > scores.At(i, best) {
				best = k
			}
		}
		predictions.Set(i, 0, float64(lda.classes_[best]))
	}
	return predictions, nil
}

// PredictProba returns softmax probabilities over the discriminant scores
func (lda *LinearDiscriminantAnalysis) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lda.DecisionFunction(X)
	if err != nil {
		return nil, err
	}

	nSamples, _ := scores.Dims()
	probas := mat.NewDense(nSamples, lda.nClasses_, nil)
	row := make([]float64, lda.nClasses_)
	for i := 0; i < nSamples; i++ {
		for k := 0; k < lda.nClasses_; k++ {
			row[k] = scores.At(i, k)
		}
		lse := errors.LogSumExp(row)
		for k := 0; k < lda.nClasses_; k++ {
			probas.Set(i, k, math.Exp(row[k]-lse))
		}
	}
	return probas, nil
}

// Score returns the mean accuracy on the given test data and labels
func (lda *LinearDiscriminantAnalysis) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lda.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, predictions)
}

// Classes returns the sorted unique class labels seen during fitting
func (lda *LinearDiscriminantAnalysis) Classes() []int {
	classes := make([]int, len(lda.classes_))
	copy(classes, lda.classes_)
	return classes
}

// IsFitted returns whether the model has been fitted
func (lda *LinearDiscriminantAnalysis) IsFitted() bool {
	return lda.state.IsFitted()
}

// GetClassMeans returns the fitted per-class feature means
func (lda *LinearDiscriminantAnalysis) GetClassMeans() *mat.Dense {
	return mat.DenseCopyOf(lda.means_)
}

// GetCovariance returns the pooled within-class covariance
func (lda *LinearDiscriminantAnalysis) GetCovariance() *mat.SymDense {
	p, _ := lda.covariance_.Dims()
	out := mat.NewSymDense(p, nil)
	out.CopySym(lda.covariance_)
	return out
}

// GetParams returns the model hyperparameters
func (lda *LinearDiscriminantAnalysis) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"priors":    lda.priors,
		"shrinkage": lda.shrinkage,
	}
}

// SetParams sets the model hyperparameters
func (lda *LinearDiscriminantAnalysis) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "priors":
			lda.priors = value.([]float64)
		case "shrinkage":
			lda.shrinkage = value.(float64)
		default:
			return errors.NewValueError("LinearDiscriminantAnalysis.SetParams", "unknown parameter: "+key)
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
