package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/repform/core/model"
	"github.com/liftlab/repform/metrics"
	"github.com/liftlab/repform/pkg/errors"
	"github.com/liftlab/repform/pkg/log"
)

// GradientBoostingClassifier implements multiclass gradient boosted trees
// with a softmax objective. Each boosting round fits one shallow regression
// tree per class on the gradients and hessians of the log loss, and leaf
// weights are shrunk by the learning rate.
type GradientBoostingClassifier struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	nEstimators    int     // Number of boosting rounds
	learningRate   float64 // Shrinkage applied to each tree's contribution
	maxDepth       int     // Maximum depth of each regression tree
	minSamplesLeaf int     // Minimum samples required at a leaf
	lambda         float64 // L2 regularization on leaf weights
	minGainToSplit float64 // Minimum gain required to split a node
	subsample      float64 // Fraction of rows sampled per tree (1 disables)
	randomState    int64   // Random seed for row subsampling
	verbose        int     // Progress logging every ten rounds when positive

	// Model parameters (available after fitting)
	classes_   []int
	nClasses_  int
	nFeatures_ int
	trainLoss_ []float64 // Training log loss at the start of each round

	trees_ [][]boostTree // trees_[round][class]
}

// boostNode is a node in a flat regression tree array.
// Leaf nodes have feature == -1 and carry the leaf weight in value.
type boostNode struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
}

// boostTree is a regression tree stored as a flat node array
type boostTree struct {
	nodes []boostNode
}

// predict walks the tree for one row of X
func (bt *boostTree) predict(X mat.Matrix, row int) float64 {
	idx := 0
	for {
		n := &bt.nodes[idx]
		if n.feature < 0 {
			return n.value
		}
		if X.At(row, n.feature) <= n.threshold {
			idx = n.left
		} else {
			idx = n.right
		}
	}
}

// GradientBoostingOption is a functional option for GradientBoostingClassifier
type GradientBoostingOption func(*GradientBoostingClassifier)

// NewGradientBoostingClassifier creates a new GradientBoostingClassifier
func NewGradientBoostingClassifier(opts ...GradientBoostingOption) *GradientBoostingClassifier {
	gb := &GradientBoostingClassifier{
		state:          model.NewStateManager(),
		nEstimators:    100,
		learningRate:   0.1,
		maxDepth:       3,
		minSamplesLeaf: 1,
		lambda:         1.0,
		minGainToSplit: 0.0,
		subsample:      1.0,
		randomState:    -1,
		verbose:        0,
	}

	// Apply options
	for _, opt := range opts {
		opt(gb)
	}

	return gb
}

// Option functions

// WithGBNEstimators sets the number of boosting rounds
func WithGBNEstimators(n int) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) {
		gb.nEstimators = n
	}
}

// WithGBLearningRate sets the shrinkage rate
func WithGBLearningRate(rate float64) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) {
		gb.learningRate = rate
	}
}

// WithGBMaxDepth sets the maximum depth of each regression tree
func WithGBMaxDepth(depth int) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) {
		gb.maxDepth = depth
	}
}

// WithGBMinSamplesLeaf sets the minimum number of samples required at a leaf
func WithGBMinSamplesLeaf(n int) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) {
		gb.minSamplesLeaf = n
	}
}

// WithGBLambda sets the L2 regularization on leaf weights
func WithGBLambda(lambda float64) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) {
		gb.lambda = lambda
	}
}

// WithGBMinGainToSplit sets the minimum gain required to split a node
func WithGBMinGainToSplit(gain float64) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) {
		gb.minGainToSplit = gain
	}
}

// WithGBSubsample sets the fraction of rows sampled per tree
func WithGBSubsample(fraction float64) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) {
		gb.subsample = fraction
	}
}

// WithGBRandomState sets the random seed for row subsampling
func WithGBRandomState(seed int64) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) {
		gb.randomState = seed
	}
}

// WithGBVerbose enables progress logging
func WithGBVerbose(verbose int) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) {
		gb.verbose = verbose
	}
}

// Fit trains the boosted ensemble. Raw class scores start at zero and each
// round adds one shrunken regression tree per class.
func (gb *GradientBoostingClassifier) Fit(X, y mat.Matrix) error {
	if X == nil || y == nil {
		return errors.NewValueError("GradientBoostingClassifier.Fit", "nil input matrix")
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, "GradientBoostingClassifier.Fit")
	}
	if yRows != nSamples {
		return errors.NewDimensionError("GradientBoostingClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("GradientBoostingClassifier.Fit", 1, yCols, 1)
	}
	if gb.nEstimators < 1 {
		return errors.NewConfigurationError("n_estimators", "must be at least 1", gb.nEstimators)
	}
	if gb.learningRate <= 0 {
		return errors.NewConfigurationError("learning_rate", "must be positive", gb.learningRate)
	}
	if gb.maxDepth < 1 {
		return errors.NewConfigurationError("max_depth", "must be at least 1", gb.maxDepth)
	}
	if gb.subsample <= 0 || gb.subsample > 1 {
		return errors.NewConfigurationError("subsample", "must be in (0, 1]", gb.subsample)
	}
	if err := model.CheckFeatureVariance("GradientBoostingClassifier", X); err != nil {
		return err
	}

	gb.classes_ = extractClasses(y)
	gb.nClasses_ = len(gb.classes_)
	gb.nFeatures_ = nFeatures

	classIndex := make(map[int]int, gb.nClasses_)
	for k, class := range gb.classes_ {
		classIndex[class] = k
	}
	labels := make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		labels[i] = classIndex[int(y.At(i, 0))]
	}

	seed := gb.randomState
	if seed < 0 {
		seed = int64(rand.Uint64() >> 1)
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))

	K := gb.nClasses_
	scores := make([][]float64, nSamples)
	proba := make([][]float64, nSamples)
	for i := range scores {
		scores[i] = make([]float64, K)
		proba[i] = make([]float64, K)
	}

	grads := make([]float64, nSamples)
	hess := make([]float64, nSamples)

	gb.trees_ = make([][]boostTree, gb.nEstimators)
	gb.trainLoss_ = make([]float64, 0, gb.nEstimators)

	var logger log.Logger
	if gb.verbose > 0 {
		logger = log.GetLoggerWithName("ensemble.gbt")
	}

	for round := 0; round < gb.nEstimators; round++ {
		// Softmax probabilities for the current raw scores
		var loss float64
		for i := 0; i < nSamples; i++ {
			lse := errors.LogSumExp(scores[i])
			for k := 0; k < K; k++ {
				proba[i][k] = math.Exp(scores[i][k] - lse)
			}
			loss -= scores[i][labels[i]] - lse
		}
		loss /= float64(nSamples)
		gb.trainLoss_ = append(gb.trainLoss_, loss)

		indices := gb.sampleRows(rng, nSamples)

		gb.trees_[round] = make([]boostTree, K)
		for k := 0; k < K; k++ {
			// Log loss gradient and hessian for class k
			for i := 0; i < nSamples; i++ {
				target := 0.0
				if labels[i] == k {
					target = 1.0
				}
				p := proba[i][k]
				grads[i] = p - target
				hess[i] = math.Max(p*(1-p), 1e-16)
			}

			bt := gb.buildTree(X, indices, grads, hess)
			gb.trees_[round][k] = bt

			for i := 0; i < nSamples; i++ {
				scores[i][k] += gb.learningRate * bt.predict(X, i)
			}
		}

		if logger != nil && round%10 == 0 {
			logger.Debug("Boosting progress",
				log.IterationKey, round,
				log.LossKey, loss)
		}
	}

	gb.state.SetDimensions(nFeatures, nSamples)
	gb.state.SetFitted()
	return nil
}

// sampleRows draws the training rows for one round without replacement.
// All rows are used when subsample is 1.
func (gb *GradientBoostingClassifier) sampleRows(rng *rand.Rand, nSamples int) []int {
	if gb.subsample >= 1 {
		indices := make([]int, nSamples)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	m := int(gb.subsample * float64(nSamples))
	if m < 1 {
		m = 1
	}
	indices := rng.Perm(nSamples)[:m]
	sort.Ints(indices)
	return indices
}

// buildTree fits one regression tree to the gradient statistics
func (gb *GradientBoostingClassifier) buildTree(X mat.Matrix, indices []int, grads, hess []float64) boostTree {
	bt := boostTree{}
	gb.buildNode(&bt, X, indices, grads, hess, 0)
	return bt
}

// buildNode appends a node for the given samples and returns its index
func (gb *GradientBoostingClassifier) buildNode(bt *boostTree, X mat.Matrix, indices []int, grads, hess []float64, depth int) int {
	nodeIdx := len(bt.nodes)

	if depth >= gb.maxDepth || len(indices) < 2*gb.minSamplesLeaf {
		bt.nodes = append(bt.nodes, boostNode{
			feature: -1,
			left:    -1,
			right:   -1,
			value:   gb.leafValue(indices, grads, hess),
		})
		return nodeIdx
	}

	best := gb.findBestSplit(X, indices, grads, hess)
	if best.feature < 0 || best.gain < gb.minGainToSplit {
		bt.nodes = append(bt.nodes, boostNode{
			feature: -1,
			left:    -1,
			right:   -1,
			value:   gb.leafValue(indices, grads, hess),
		})
		return nodeIdx
	}

	bt.nodes = append(bt.nodes, boostNode{
		feature:   best.feature,
		threshold: best.threshold,
	})

	var leftIndices, rightIndices []int
	for _, idx := range indices {
		if X.At(idx, best.feature) <= best.threshold {
			leftIndices = append(leftIndices, idx)
		} else {
			rightIndices = append(rightIndices, idx)
		}
	}

	left := gb.buildNode(bt, X, leftIndices, grads, hess, depth+1)
	right := gb.buildNode(bt, X, rightIndices, grads, hess, depth+1)
	bt.nodes[nodeIdx].left = left
	bt.nodes[nodeIdx].right = right
	return nodeIdx
}

// splitInfo describes a candidate split of the gradient statistics
type splitInfo struct {
	feature   int
	threshold float64
	gain      float64
}

// findBestSplit scans all features for the split with the largest gain
func (gb *GradientBoostingClassifier) findBestSplit(X mat.Matrix, indices []int, grads, hess []float64) splitInfo {
	_, cols := X.Dims()
	best := splitInfo{feature: -1, gain: -math.MaxFloat64}

	var totalGrad, totalHess float64
	for _, idx := range indices {
		totalGrad += grads[idx]
		totalHess += hess[idx]
	}

	type sample struct {
		value float64
		idx   int
	}
	samples := make([]sample, len(indices))

	for feature := 0; feature < cols; feature++ {
		for i, idx := range indices {
			samples[i] = sample{value: X.At(idx, feature), idx: idx}
		}
		sort.Slice(samples, func(i, j int) bool { return samples[i].value < samples[j].value })

		if samples[0].value == samples[len(samples)-1].value {
			continue
		}

		var leftGrad, leftHess float64
		leftCount := 0

		for i := 0; i < len(samples)-1; i++ {
			idx := samples[i].idx
			leftGrad += grads[idx]
			leftHess += hess[idx]
			leftCount++

			// Skip if same value
			if samples[i].value == samples[i+1].value {
				continue
			}

			rightCount := len(samples) - leftCount
			if leftCount < gb.minSamplesLeaf || rightCount < gb.minSamplesLeaf {
				continue
			}

			rightGrad := totalGrad - leftGrad
			rightHess := totalHess - leftHess

			gain := gb.splitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess)
			if gain > best.gain {
				best = splitInfo{
					feature:   feature,
					threshold: (samples[i].value + samples[i+1].value) / 2,
					gain:      gain,
				}
			}
		}
	}

	return best
}

// splitGain computes the regularized gain of a split
func (gb *GradientBoostingClassifier) splitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	leftScore := (leftGrad * leftGrad) / (leftHess + gb.lambda)
	rightScore := (rightGrad * rightGrad) / (rightHess + gb.lambda)
	totalScore := (totalGrad * totalGrad) / (totalHess + gb.lambda)

	return 0.5 * (leftScore + rightScore - totalScore)
}

// leafValue computes the optimal leaf weight with L2 regularization
func (gb *GradientBoostingClassifier) leafValue(indices []int, grads, hess []float64) float64 {
	var sumGrad, sumHess float64
	for _, idx := range indices {
		sumGrad += grads[idx]
		sumHess += hess[idx]
	}

	// Ensure numerical stability
	epsilon := 1e-10
	if math.Abs(sumHess) < epsilon {
		sumHess = epsilon
	}

	return -sumGrad / (sumHess + gb.lambda + epsilon)
}

// rawScores computes the boosted score of every class for each row of X
func (gb *GradientBoostingClassifier) rawScores(X mat.Matrix) [][]float64 {
	nSamples, _ := X.Dims()
	scores := make([][]float64, nSamples)
	for i := range scores {
		scores[i] = make([]float64, gb.nClasses_)
	}

	for _, roundTrees := range gb.trees_ {
		for k := range roundTrees {
			bt := &roundTrees[k]
			for i := 0; i < nSamples; i++ {
				scores[i][k] += gb.learningRate * bt.predict(X, i)
			}
		}
	}
	return scores
}

// Predict returns the predicted class label for each row of X
func (gb *GradientBoostingClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := gb.state.RequireFittedFor("GradientBoostingClassifier", "Predict"); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != gb.nFeatures_ {
		return nil, errors.NewDimensionError("GradientBoostingClassifier.Predict", gb.nFeatures_, nFeatures, 1)
	}

	scores := gb.rawScores(X)
	predictions := mat.NewDense(nSamples, 1, nil)
	for i, rowScores := range scores {
		best := 0
		for k, s := range rowScores {
			if s > rowScores[best] {
				best = k
			}
		}
		predictions.Set(i, 0, float64(gb.classes_[best]))
	}
	return predictions, nil
}

// PredictProba returns softmax class probabilities for each row of X
func (gb *GradientBoostingClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := gb.state.RequireFittedFor("GradientBoostingClassifier", "PredictProba"); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != gb.nFeatures_ {
		return nil, errors.NewDimensionError("GradientBoostingClassifier.PredictProba", gb.nFeatures_, nFeatures, 1)
	}

	scores := gb.rawScores(X)
	probas := mat.NewDense(nSamples, gb.nClasses_, nil)
	for i, rowScores := range scores {
		lse := errors.LogSumExp(rowScores)
		for k, s := range rowScores {
			probas.Set(i, k, math.Exp(s-lse))
		}
	}
	return probas, nil
}

// Score returns the mean accuracy on the given test data and labels
func (gb *GradientBoostingClassifier) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := gb.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, predictions)
}

// Classes returns the sorted unique class labels seen during fitting
func (gb *GradientBoostingClassifier) Classes() []int {
	classes := make([]int, len(gb.classes_))
	copy(classes, gb.classes_)
	return classes
}

// IsFitted returns whether the model has been fitted
func (gb *GradientBoostingClassifier) IsFitted() bool {
	return gb.state.IsFitted()
}

// GetTrainLoss returns the training log loss recorded at the start of
// each boosting round
func (gb *GradientBoostingClassifier) GetTrainLoss() []float64 {
	loss := make([]float64, len(gb.trainLoss_))
	copy(loss, gb.trainLoss_)
	return loss
}

// GetParams returns the model hyperparameters
func (gb *GradientBoostingClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      gb.nEstimators,
		"learning_rate":     gb.learningRate,
		"max_depth":         gb.maxDepth,
		"min_samples_leaf":  gb.minSamplesLeaf,
		"lambda":            gb.lambda,
		"min_gain_to_split": gb.minGainToSplit,
		"subsample":         gb.subsample,
		"random_state":      gb.randomState,
	}
}

// SetParams sets the model hyperparameters
func (gb *GradientBoostingClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "n_estimators":
			gb.nEstimators = value.(int)
		case "learning_rate":
			gb.learningRate = value.(float64)
		case "max_depth":
			gb.maxDepth = value.(int)
		case "min_samples_leaf":
			gb.minSamplesLeaf = value.(int)
		case "lambda":
			gb.lambda = value.(float64)
		case "min_gain_to_split":
			gb.minGainToSplit = value.(float64)
		case "subsample":
			gb.subsample = value.(float64)
		case "random_state":
			gb.randomState = value.(int64)
		default:
			return errors.NewValueError("GradientBoostingClassifier.SetParams", "unknown parameter: "+key)
		}
	}
	return nil
}
