// Package ensemble implements random forest and gradient boosting
// classifiers built on CART trees.
package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/repform/core/model"
	"github.com/liftlab/repform/core/parallel"
	"github.com/liftlab/repform/metrics"
	"github.com/liftlab/repform/models/tree"
	"github.com/liftlab/repform/pkg/errors"
	"github.com/liftlab/repform/pkg/log"
)

// RandomForestClassifier implements a random forest of CART trees.
// Each tree is fitted on a bootstrap sample with a random feature subset
// considered at every split, and predictions are decided by majority vote.
type RandomForestClassifier struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	nEstimators     int    // Number of trees
	criterion       string // Split quality measure passed to the trees
	maxDepth        int    // Maximum tree depth (0 means unlimited)
	minSamplesSplit int    // Minimum samples required to split a node
	minSamplesLeaf  int    // Minimum samples required at a leaf
	maxFeatures     int    // Features considered per split (0 means √p)
	bootstrap       bool   // Whether trees are fitted on bootstrap samples
	randomState     int64  // Random seed (-1 means nondeterministic)

	// Model parameters (available after fitting)
	classes_     []int
	nClasses_    int
	nFeatures_   int
	maxFeatures_ int // Effective features per split after resolving defaults

	trees_ []*tree.DecisionTreeClassifier
}

// RandomForestOption is a functional option for RandomForestClassifier
type RandomForestOption func(*RandomForestClassifier)

// NewRandomForestClassifier creates a new RandomForestClassifier
func NewRandomForestClassifier(opts ...RandomForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       "gini",
		maxDepth:        0,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     0,
		bootstrap:       true,
		randomState:     -1,
	}

	// Apply options
	for _, opt := range opts {
		opt(rf)
	}

	return rf
}

// Option functions

// WithRFNEstimators sets the number of trees in the forest
func WithRFNEstimators(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.nEstimators = n
	}
}

// WithRFCriterion sets the split quality measure ("gini" or "entropy")
func WithRFCriterion(criterion string) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.criterion = criterion
	}
}

// WithRFMaxDepth sets the maximum depth of each tree
func WithRFMaxDepth(depth int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxDepth = depth
	}
}

// WithRFMinSamplesSplit sets the minimum number of samples required to split
func WithRFMinSamplesSplit(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesSplit = n
	}
}

// WithRFMinSamplesLeaf sets the minimum number of samples required at a leaf
func WithRFMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesLeaf = n
	}
}

// WithRFMaxFeatures sets the number of features considered at each split.
// Zero means the square root of the feature count is used.
func WithRFMaxFeatures(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxFeatures = n
	}
}

// WithRFBootstrap sets whether trees are fitted on bootstrap samples
func WithRFBootstrap(bootstrap bool) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.bootstrap = bootstrap
	}
}

// WithRFRandomState sets the random seed for bootstrap and feature sampling
func WithRFRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.randomState = seed
	}
}

// Fit trains the forest. Trees are built in parallel, each from its own
// deterministically derived seed so results do not depend on scheduling.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	if X == nil || y == nil {
		return errors.NewValueError("RandomForestClassifier.Fit", "nil input matrix")
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, "RandomForestClassifier.Fit")
	}
	if yRows != nSamples {
		return errors.NewDimensionError("RandomForestClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("RandomForestClassifier.Fit", 1, yCols, 1)
	}
	if rf.nEstimators < 1 {
		return errors.NewConfigurationError("n_estimators", "must be at least 1", rf.nEstimators)
	}
	if rf.maxFeatures < 0 || rf.maxFeatures > nFeatures {
		return errors.NewConfigurationError("max_features",
			"must be in [0, n_features]", rf.maxFeatures)
	}
	if err := model.CheckFeatureVariance("RandomForestClassifier", X); err != nil {
		return err
	}

	rf.classes_ = extractClasses(y)
	rf.nClasses_ = len(rf.classes_)
	rf.nFeatures_ = nFeatures

	rf.maxFeatures_ = rf.maxFeatures
	if rf.maxFeatures_ == 0 {
		rf.maxFeatures_ = int(math.Sqrt(float64(nFeatures)))
		if rf.maxFeatures_ < 1 {
			rf.maxFeatures_ = 1
		}
	}

	baseSeed := rf.randomState
	if baseSeed < 0 {
		baseSeed = int64(rand.Uint64() >> 1)
	}

	rf.trees_ = make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	errs := make([]error, rf.nEstimators)

	parallel.Parallelize(rf.nEstimators, func(start, end int) {
		for i := start; i < end; i++ {
			rf.trees_[i], errs[i] = rf.fitTree(X, y, nSamples, baseSeed+int64(i))
		}
	})

	for i, err := range errs {
		if err != nil {
			return errors.Wrapf(err, "RandomForestClassifier.Fit: tree %d", i)
		}
	}

	logger := log.GetLoggerWithName("ensemble.forest")
	logger.Debug("Forest fitted",
		log.ModelNameKey, "RandomForestClassifier",
		"n_estimators", rf.nEstimators,
		"max_features", rf.maxFeatures_,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures)

	rf.state.SetDimensions(nFeatures, nSamples)
	rf.state.SetFitted()
	return nil
}

// fitTree builds one tree from a bootstrap sample drawn with the tree's seed
func (rf *RandomForestClassifier) fitTree(X, y mat.Matrix, nSamples int, seed int64) (*tree.DecisionTreeClassifier, error) {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))

	XTree, yTree := X, y
	if rf.bootstrap {
		indices := make([]int, nSamples)
		for i := range indices {
			indices[i] = rng.IntN(nSamples)
		}
		XTree, yTree = takeRows(X, y, indices)
	}

	splitSeed := int64(rng.Uint64() >> 1)
	dt := tree.NewDecisionTreeClassifier(
		tree.WithCriterion(rf.criterion),
		tree.WithMaxDepth(rf.maxDepth),
		tree.WithMinSamplesSplit(rf.minSamplesSplit),
		tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
		tree.WithMaxFeatures(rf.maxFeatures_),
		tree.WithRandomState(splitSeed),
	)
	if err := dt.Fit(XTree, yTree); err != nil {
		return nil, err
	}
	return dt, nil
}

// takeRows materializes the bootstrap sample as dense matrices
func takeRows(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	_, cols := X.Dims()
	XOut := mat.NewDense(len(indices), cols, nil)
	yOut := mat.NewDense(len(indices), 1, nil)
	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			XOut.Set(i, j, X.At(idx, j))
		}
		yOut.Set(i, 0, y.At(idx, 0))
	}
	return XOut, yOut
}

// Predict returns the majority-vote class label for each row of X
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	votes, err := rf.countVotes(X, "Predict")
	if err != nil {
		return nil, err
	}

	nSamples := len(votes)
	predictions := mat.NewDense(nSamples, 1, nil)
	for i, sampleVotes := range votes {
		best := 0
		for k, v := range sampleVotes {
			if v > sampleVotes[best] {
				best = k
			}
		}
		predictions.Set(i, 0, float64(rf.classes_[best]))
	}
	return predictions, nil
}

// PredictProba returns the fraction of trees voting for each class
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	votes, err := rf.countVotes(X, "PredictProba")
	if err != nil {
		return nil, err
	}

	nSamples := len(votes)
	nTrees := float64(len(rf.trees_))
	probas := mat.NewDense(nSamples, rf.nClasses_, nil)
	for i, sampleVotes := range votes {
		for k, v := range sampleVotes {
			probas.Set(i, k, v/nTrees)
		}
	}
	return probas, nil
}

// countVotes collects per-class vote counts across all trees
func (rf *RandomForestClassifier) countVotes(X mat.Matrix, method string) ([][]float64, error) {
	if err := rf.state.RequireFittedFor("RandomForestClassifier", method); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != rf.nFeatures_ {
		return nil, errors.NewDimensionError("RandomForestClassifier."+method, rf.nFeatures_, nFeatures, 1)
	}

	classIndex := make(map[int]int, rf.nClasses_)
	for k, class := range rf.classes_ {
		classIndex[class] = k
	}

	votes := make([][]float64, nSamples)
	for i := range votes {
		votes[i] = make([]float64, rf.nClasses_)
	}

	// Trees are evaluated in parallel, one result slot per tree
	treePreds := make([]mat.Matrix, len(rf.trees_))
	errs := make([]error, len(rf.trees_))
	parallel.Parallelize(len(rf.trees_), func(start, end int) {
		for t := start; t < end; t++ {
			treePreds[t], errs[t] = rf.trees_[t].Predict(X)
		}
	})
	for t, err := range errs {
		if err != nil {
			return nil, errors.Wrapf(err, "RandomForestClassifier.%s: tree %d", method, t)
		}
	}

	for _, preds := range treePreds {
		for i := 0; i < nSamples; i++ {
			votes[i][classIndex[int(preds.At(i, 0))]]++
		}
	}
	return votes, nil
}

// Score returns the mean accuracy on the given test data and labels
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, predictions)
}

// Classes returns the sorted unique class labels seen during fitting
func (rf *RandomForestClassifier) Classes() []int {
	classes := make([]int, len(rf.classes_))
	copy(classes, rf.classes_)
	return classes
}

// IsFitted returns whether the model has been fitted
func (rf *RandomForestClassifier) IsFitted() bool {
	return rf.state.IsFitted()
}

// GetFeatureImportances returns the mean normalized impurity decrease
// across all trees in the forest
func (rf *RandomForestClassifier) GetFeatureImportances() []float64 {
	importances := make([]float64, rf.nFeatures_)
	if len(rf.trees_) == 0 {
		return importances
	}
	for _, dt := range rf.trees_ {
		for j, imp := range dt.GetFeatureImportances() {
			importances[j] += imp
		}
	}
	for j := range importances {
		importances[j] /= float64(len(rf.trees_))
	}
	return importances
}

// GetParams returns the model hyperparameters
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"criterion":         rf.criterion,
		"max_depth":         rf.maxDepth,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      rf.maxFeatures,
		"bootstrap":         rf.bootstrap,
		"random_state":      rf.randomState,
	}
}

// SetParams sets the model hyperparameters
func (rf *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "n_estimators":
			rf.nEstimators = value.(int)
		case "criterion":
			rf.criterion = value.(string)
		case "max_depth":
			rf.maxDepth = value.(int)
		case "min_samples_split":
			rf.minSamplesSplit = value.(int)
		case "min_samples_leaf":
			rf.minSamplesLeaf = value.(int)
		case "max_features":
			rf.maxFeatures = value.(int)
		case "bootstrap":
			rf.bootstrap = value.(bool)
		case "random_state":
			rf.randomState = value.(int64)
		default:
			return errors.NewValueError("RandomForestClassifier.SetParams", "unknown parameter: "+key)
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
