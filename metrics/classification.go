package metrics

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/repform/pkg/errors"
)

// Accuracy は正解率（Accuracy）を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	// 入力検証
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}

	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	// Accuracy = (1/n) * Σ 1{yTrue == yPred}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}

	return float64(correct) / float64(n), nil
}

// AccuracyMatrix は行列形式の入力に対して正解率を計算する
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	// 入力検証
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AccuracyMatrix", "nil matrix")
	}

	rTrue, cTrue := yTrue.Dims()
	rPred, _ := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError("AccuracyMatrix", "empty matrix")
	}

	if rTrue != rPred {
		return 0, errors.NewDimensionError("AccuracyMatrix", rTrue, rPred, 0)
	}

	// 先頭列をクラスラベルとして比較する
	correct := 0
	for i := 0; i < rTrue; i++ {
		if yTrue.At(i, 0) == yPred.At(i, 0) {
			correct++
		}
	}

	return float64(correct) / float64(rTrue), nil
}

// ClassificationError は誤分類率（1 - Accuracy）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	accuracy, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - accuracy, nil
}

// MulticlassLogLoss は多クラス対数損失を計算する。
// yTrueはクラスインデックス、probaはn×kのクラス確率行列。
func MulticlassLogLoss(yTrue []int, proba mat.Matrix) (float64, error) {
	// 入力検証
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("MulticlassLogLoss", "empty vector")
	}

	rows, cols := proba.Dims()
	if rows != n {
		return 0, errors.NewDimensionError("MulticlassLogLoss", n, rows, 0)
	}

	const eps = 1e-15

	// LogLoss = -(1/n) * Σ log(p[i][yTrue[i]])
	var sum float64
	for i := 0; i < n; i++ {
		class := yTrue[i]
		if class < 0 || class >= cols {
			return 0, errors.NewValueError("MulticlassLogLoss",
				fmt.Sprintf("class index %d out of range [0, %d)", class, cols))
		}

		p := proba.At(i, class)
		// log(0)を避けるためクリッピング
		p = math.Max(eps, math.Min(1-eps, p))
		sum -= math.Log(p)
	}

	return sum / float64(n), nil
}

// ConfusionMatrix は混同行列を保持する。行が実際のクラス、列が予測クラス。
type ConfusionMatrix struct {
	Labels []string
	Counts [][]int
}

// NewConfusionMatrix はクラスインデックスの組から混同行列を構築する
func NewConfusionMatrix(yTrue, yPred []int, labels []string) (*ConfusionMatrix, error) {
	// 入力検証
	n := len(yTrue)
	if n == 0 {
		return nil, errors.NewValueError("NewConfusionMatrix", "empty vector")
	}
	if len(yPred) != n {
		return nil, errors.NewDimensionError("NewConfusionMatrix", n, len(yPred), 0)
	}
	if len(labels) == 0 {
		return nil, errors.NewValueError("NewConfusionMatrix", "empty labels")
	}

	k := len(labels)
	counts := make([][]int, k)
	for i := range counts {
		counts[i] = make([]int, k)
	}

	for i := 0; i < n; i++ {
		actual, predicted := yTrue[i], yPred[i]
		if actual < 0 || actual >= k {
			return nil, errors.NewValueError("NewConfusionMatrix",
				fmt.Sprintf("true class index %d out of range [0, %d)", actual, k))
		}
		if predicted < 0 || predicted >= k {
			return nil, errors.NewValueError("NewConfusionMatrix",
				fmt.Sprintf("predicted class index %d out of range [0, %d)", predicted, k))
		}
		counts[actual][predicted]++
	}

	labelsCopy := make([]string, k)
	copy(labelsCopy, labels)

	return &ConfusionMatrix{Labels: labelsCopy, Counts: counts}, nil
}

// At は実際のクラスactual、予測クラスpredictedのセルの件数を返す
func (cm *ConfusionMatrix) At(actual, predicted int) int {
	return cm.Counts[actual][predicted]
}

// NClasses はクラス数を返す
func (cm *ConfusionMatrix) NClasses() int {
	return len(cm.Labels)
}

// Total は全サンプル数を返す
func (cm *ConfusionMatrix) Total() int {
	total := 0
	for _, row := range cm.Counts {
		for _, count := range row {
			total += count
		}
	}
	return total
}

// Diagonal は対角成分（正しく分類された件数）の合計を返す
func (cm *ConfusionMatrix) Diagonal() int {
	diagonal := 0
	for i := range cm.Counts {
		diagonal += cm.Counts[i][i]
	}
	return diagonal
}

// Accuracy は混同行列から正解率を計算する
func (cm *ConfusionMatrix) Accuracy() float64 {
	total := cm.Total()
	if total == 0 {
		return 0
	}
	return float64(cm.Diagonal()) / float64(total)
}

// Kappa はCohenのκ係数を計算する
func (cm *ConfusionMatrix) Kappa() float64 {
	total := cm.Total()
	if total == 0 {
		return 0
	}

	k := cm.NClasses()
	n := float64(total)

	// 偶然の一致率 pe = Σ_k (行和_k × 列和_k) / n²
	var pe float64
	for i := 0; i < k; i++ {
		var rowSum, colSum float64
		for j := 0; j < k; j++ {
			rowSum += float64(cm.Counts[i][j])
			colSum += float64(cm.Counts[j][i])
		}
		pe += (rowSum / n) * (colSum / n)
	}

	po := cm.Accuracy()
	if pe == 1 {
		return 0
	}

	// κ = (po - pe) / (1 - pe)
	return (po - pe) / (1 - pe)
}

// Recall はクラスclassの再現率（実際にそのクラスだった中で正しく予測された割合）を返す
func (cm *ConfusionMatrix) Recall(class int) (float64, error) {
	if class < 0 || class >= cm.NClasses() {
		return 0, errors.NewValueError("ConfusionMatrix.Recall",
			fmt.Sprintf("class index %d out of range [0, %d)", class, cm.NClasses()))
	}

	var actual int
	for j := range cm.Counts[class] {
		actual += cm.Counts[class][j]
	}
	if actual == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall",
			fmt.Sprintf("no true samples for class '%s'", cm.Labels[class]), 0))
		return 0, nil
	}

	return float64(cm.Counts[class][class]) / float64(actual), nil
}

// Precision はクラスclassの適合率（そのクラスと予測された中で正しかった割合）を返す
func (cm *ConfusionMatrix) Precision(class int) (float64, error) {
	if class < 0 || class >= cm.NClasses() {
		return 0, errors.NewValueError("ConfusionMatrix.Precision",
			fmt.Sprintf("class index %d out of range [0, %d)", class, cm.NClasses()))
	}

	var predicted int
	for i := range cm.Counts {
		predicted += cm.Counts[i][class]
	}
	if predicted == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision",
			fmt.Sprintf("no predicted samples for class '%s'", cm.Labels[class]), 0))
		return 0, nil
	}

	return float64(cm.Counts[class][class]) / float64(predicted), nil
}

// String は実際のクラスを行、予測クラスを列とするテーブル表現を返す
func (cm *ConfusionMatrix) String() string {
	k := cm.NClasses()

	// ラベルと件数の最大幅を揃える
	width := 0
	for _, label := range cm.Labels {
		if len(label) > width {
			width = len(label)
		}
	}
	for _, row := range cm.Counts {
		for _, count := range row {
			if w := len(fmt.Sprintf("%d", count)); w > width {
				width = w
			}
		}
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%*s", width+10, "Predicted"))
	b.WriteByte('\n')

	b.WriteString(fmt.Sprintf("%-8s", "Actual"))
	for _, label := range cm.Labels {
		b.WriteString(fmt.Sprintf(" %*s", width, label))
	}
	b.WriteByte('\n')

	for i, label := range cm.Labels {
		b.WriteString(fmt.Sprintf("%-8s", label))
		for j := 0; j < k; j++ {
			b.WriteString(fmt.Sprintf(" %*d", width, cm.Counts[i][j]))
		}
		b.WriteByte('\n')
	}

	return b.String()
}
