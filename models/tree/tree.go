// Package tree implements CART decision trees for classification.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/repform/core/model"
	"github.com/liftlab/repform/metrics"
	"github.com/liftlab/repform/pkg/errors"
)

// DecisionTreeClassifier implements a CART decision tree for classification.
// Compatible with scikit-learn's DecisionTreeClassifier.
type DecisionTreeClassifier struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	criterion       string // Split quality measure: "gini", "entropy"
	maxDepth        int    // Maximum tree depth (0 means unlimited)
	minSamplesSplit int    // Minimum samples required to split a node
	minSamplesLeaf  int    // Minimum samples required at a leaf
	maxFeatures     int    // Features considered per split (0 means all)
	randomState     int64  // Random seed (-1 means nondeterministic)

	// Model parameters (available after fitting)
	classes_            []int     // Unique class labels
	nClasses_           int       // Number of classes
	nFeatures_          int       // Number of features
	featureImportances_ []float64 // Normalized impurity decrease per feature

	root   *node
	depth  int
	leaves int
	rng    *rand.Rand
}

// node is a single tree node. Leaf nodes have feature == -1.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	counts    []float64 // class distribution of training samples at this node
}

func (n *node) isLeaf() bool {
	return n.feature < 0
}

// DecisionTreeOption is a functional option for DecisionTreeClassifier
type DecisionTreeOption func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a new DecisionTreeClassifier
func NewDecisionTreeClassifier(opts ...DecisionTreeOption) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "gini",
		maxDepth:        0,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     0,
		randomState:     -1,
	}

	// Apply options
	for _, opt := range opts {
		opt(dt)
	}

	dt.initRNG()
	return dt
}

func (dt *DecisionTreeClassifier) initRNG() {
	if dt.randomState >= 0 {
		seed := uint64(dt.randomState)
		dt.rng = rand.New(rand.NewPCG(seed, seed))
	} else {
		dt.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
}

// Option functions

// WithCriterion sets the split quality measure ("gini" or "entropy")
func WithCriterion(criterion string) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth sets the maximum tree depth
func WithMaxDepth(depth int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node
func WithMinSamplesSplit(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples required at a leaf
func WithMinSamplesLeaf(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets the number of features considered at each split.
// Zero means all features are considered.
func WithMaxFeatures(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = n
	}
}

// WithRandomState sets the random seed for feature subsampling
func WithRandomState(seed int64) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

// Fit builds the decision tree from training data.
// X is an n×p feature matrix and y an n×1 column of class labels.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	// Validate inputs
	if X == nil || y == nil {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "nil input matrix")
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DecisionTreeClassifier.Fit")
	}
	if yRows != nSamples {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", 1, yCols, 1)
	}

	if dt.criterion != "gini" && dt.criterion != "entropy" {
		return errors.NewConfigurationError("criterion", "must be 'gini' or 'entropy'", dt.criterion)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewConfigurationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewConfigurationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}

	dt.initRNG()

	// Extract sorted unique classes
	dt.extractClasses(y)
	dt.nFeatures_ = nFeatures

	classIndex := make(map[int]int, dt.nClasses_)
	for i, class := range dt.classes_ {
		classIndex[class] = i
	}

	labels := make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		labels[i] = classIndex[int(y.At(i, 0))]
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}

	dt.depth = 0
	dt.leaves = 0
	dt.featureImportances_ = make([]float64, nFeatures)

	builder := &treeBuilder{
		tree:   dt,
		X:      X,
		labels: labels,
		nTotal: float64(nSamples),
		sorter: make([]sortableSample, 0, nSamples),
	}
	dt.root = builder.build(indices, 0)

	dt.normalizeImportances()

	dt.state.SetDimensions(nFeatures, nSamples)
	dt.state.SetFitted()
	return nil
}

// extractClasses identifies the sorted unique class labels in y
func (dt *DecisionTreeClassifier) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	classMap := make(map[int]bool)
	for i := 0; i < rows; i++ {
		classMap[int(y.At(i, 0))] = true
	}

	dt.classes_ = make([]int, 0, len(classMap))
	for class := range classMap {
		dt.classes_ = append(dt.classes_, class)
	}
	sort.Ints(dt.classes_)
	dt.nClasses_ = len(dt.classes_)
}

func (dt *DecisionTreeClassifier) normalizeImportances() {
	var sum float64
	for _, imp := range dt.featureImportances_ {
		sum += imp
	}
	if sum == 0 {
		return
	}
	for i := range dt.featureImportances_ {
		dt.featureImportances_[i] /= sum
	}
}

// treeBuilder carries the shared fit state during recursive construction
type treeBuilder struct {
	tree   *DecisionTreeClassifier
	X      mat.Matrix
	labels []int
	nTotal float64
	sorter []sortableSample
}

type sortableSample struct {
	value float64
	label int
}

// split describes the best split found for a node
type split struct {
	feature   int
	threshold float64
	gain      float64
}

func (b *treeBuilder) build(indices []int, depth int) *node {
	dt := b.tree

	counts := make([]float64, dt.nClasses_)
	for _, idx := range indices {
		counts[b.labels[idx]]++
	}
	n := &node{feature: -1, counts: counts}

	if depth > dt.depth {
		dt.depth = depth
	}

	m := len(indices)
	if m < dt.minSamplesSplit || b.isPure(counts) || (dt.maxDepth > 0 && depth >= dt.maxDepth) {
		dt.leaves++
		return n
	}

	best := b.findBestSplit(indices, counts)
	if best.feature < 0 {
		dt.leaves++
		return n
	}

	// Importance is the impurity decrease weighted by the node size
	dt.featureImportances_[best.feature] += float64(m) / b.nTotal * best.gain

	left := make([]int, 0, m)
	right := make([]int, 0, m)
	for _, idx := range indices {
		if b.X.At(idx, best.feature) <= best.threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	n.feature = best.feature
	n.threshold = best.threshold
	n.left = b.build(left, depth+1)
	n.right = b.build(right, depth+1)
	return n
}

func (b *treeBuilder) isPure(counts []float64) bool {
	seen := false
	for _, c := range counts {
		if c > 0 {
			if seen {
				return false
			}
			seen = true
		}
	}
	return true
}

// findBestSplit scans candidate features for the split with the largest
// impurity decrease. Returns feature -1 when no valid split exists.
func (b *treeBuilder) findBestSplit(indices []int, counts []float64) split {
	dt := b.tree
	m := len(indices)
	parentImpurity := dt.impurity(counts, float64(m))

	best := split{feature: -1}

	leftCounts := make([]float64, dt.nClasses_)
	rightCounts := make([]float64, dt.nClasses_)

	for _, feature := range b.candidateFeatures() {
		samples := b.sorter[:0]
		for _, idx := range indices {
			samples = append(samples, sortableSample{
				value: b.X.At(idx, feature),
				label: b.labels[idx],
			})
		}
		sort.Slice(samples, func(i, j int) bool { return samples[i].value < samples[j].value })

		// Identical feature values admit no split
		if samples[0].value == samples[m-1].value {
			continue
		}

		for i := range leftCounts {
			leftCounts[i] = 0
			rightCounts[i] = counts[i]
		}

		for i := 0; i < m-1; i++ {
			label := samples[i].label
			leftCounts[label]++
			rightCounts[label]--

			if samples[i+1].value == samples[i].value {
				continue
			}

			nLeft := i + 1
			nRight := m - nLeft
			if nLeft < dt.minSamplesLeaf || nRight < dt.minSamplesLeaf {
				continue
			}

			gain := parentImpurity -
				float64(nLeft)/float64(m)*dt.impurity(leftCounts, float64(nLeft)) -
				float64(nRight)/float64(m)*dt.impurity(rightCounts, float64(nRight))

			if gain > best.gain+1e-12 {
				best = split{
					feature:   feature,
					threshold: (samples[i].value + samples[i+1].value) / 2,
					gain:      gain,
				}
			}
		}
	}

	return best
}

// candidateFeatures returns the feature indices considered for the next
// split, subsampled without replacement when maxFeatures is set.
func (b *treeBuilder) candidateFeatures() []int {
	dt := b.tree
	p := dt.nFeatures_
	k := dt.maxFeatures
	if k <= 0 || k >= p {
		features := make([]int, p)
		for i := range features {
			features[i] = i
		}
		return features
	}
	return dt.rng.Perm(p)[:k]
}

// impurity computes the node impurity for the configured criterion
func (dt *DecisionTreeClassifier) impurity(counts []float64, total float64) float64 {
	if total == 0 {
		return 0
	}

	if dt.criterion == "entropy" {
		var entropy float64
		for _, c := range counts {
			if c > 0 {
				p := c / total
				entropy -= p * math.Log2(p)
			}
		}
		return entropy
	}

	// Gini impurity: 1 - Σ p_k²
	gini := 1.0
	for _, c := range counts {
		p := c / total
		gini -= p * p
	}
	return gini
}

// Predict returns the predicted class label for each row of X
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFittedFor("DecisionTreeClassifier", "Predict"); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != dt.nFeatures_ {
		return nil, errors.NewDimensionError("DecisionTreeClassifier.Predict", dt.nFeatures_, nFeatures, 1)
	}

	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		leaf := dt.traverse(X, i)
		predictions.Set(i, 0, float64(dt.classes_[argmax(leaf.counts)]))
	}
	return predictions, nil
}

// PredictProba returns the class probability estimates for each row of X.
// Probabilities are the class fractions of the training samples in the leaf.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFittedFor("DecisionTreeClassifier", "PredictProba"); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != dt.nFeatures_ {
		return nil, errors.NewDimensionError("DecisionTreeClassifier.PredictProba", dt.nFeatures_, nFeatures, 1)
	}

	probas := mat.NewDense(nSamples, dt.nClasses_, nil)
	for i := 0; i < nSamples; i++ {
		leaf := dt.traverse(X, i)

		var total float64
		for _, c := range leaf.counts {
			total += c
		}
		for j, c := range leaf.counts {
			probas.Set(i, j, c/total)
		}
	}
	return probas, nil
}

func (dt *DecisionTreeClassifier) traverse(X mat.Matrix, row int) *node {
	n := dt.root
	for !n.isLeaf() {
		if X.At(row, n.feature) <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

// Score returns the mean accuracy on the given test data and labels
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, predictions)
}

// Classes returns the sorted unique class labels seen during fitting
func (dt *DecisionTreeClassifier) Classes() []int {
	classes := make([]int, len(dt.classes_))
	copy(classes, dt.classes_)
	return classes
}

// IsFitted returns whether the model has been fitted
func (dt *DecisionTreeClassifier) IsFitted() bool {
	return dt.state.IsFitted()
}

// GetDepth returns the depth of the fitted tree
func (dt *DecisionTreeClassifier) GetDepth() int {
	return dt.depth
}

// GetNLeaves returns the number of leaves in the fitted tree
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	return dt.leaves
}

// GetFeatureImportances returns the normalized impurity decrease per feature
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	importances := make([]float64, len(dt.featureImportances_))
	copy(importances, dt.featureImportances_)
	return importances
}

// GetParams returns the model hyperparameters
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      dt.maxFeatures,
		"random_state":      dt.randomState,
	}
}

// SetParams sets the model hyperparameters
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "criterion":
			dt.criterion = value.(string)
		case "max_depth":
			dt.maxDepth = value.(int)
		case "min_samples_split":
			dt.minSamplesSplit = value.(int)
		case "min_samples_leaf":
			dt.minSamplesLeaf = value.(int)
		case "max_features":
			dt.maxFeatures = value.(int)
		case "random_state":
			dt.randomState = value.(int64)
			dt.initRNG()
		default:
			return errors.NewValueError("DecisionTreeClassifier.SetParams", "unknown parameter: "+key)
		}
	}
	return nil
}

// argmax returns the index of the largest value, ties going to the lowest index
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
