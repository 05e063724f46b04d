package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/repform/core/model"
	"github.com/liftlab/repform/pkg/errors"
)

// LabelEncoder はクラスラベル文字列を0..k-1のクラスインデックスへ変換する。
// クラスの割り当ては辞書順で、同じクラス集合なら部分集合に適合しても
// インデックスが変わらない。
type LabelEncoder struct {
	model.BaseEstimator

	// Classes は学習済みクラス（辞書順）
	Classes []string

	index map[string]int
}

// NewLabelEncoder は新しいLabelEncoderを作成する
//
// 使用例:
//
//	encoder := preprocessing.NewLabelEncoder()
//	err := encoder.Fit(labels)
//	encoded, err := encoder.Transform(labels)
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit はラベル列からクラス集合を学習する
//
// パラメータ:
//   - labels: ラベル文字列の列（欠損不可）
//
// 戻り値:
//   - error: 空の入力や欠損ラベルがある場合
func (e *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "LabelEncoder.Fit")
	}

	seen := make(map[string]struct{})
	for i, label := range labels {
		if label == "" {
			return errors.NewValueError("LabelEncoder.Fit",
				fmt.Sprintf("missing label at row %d", i))
		}
		seen[label] = struct{}{}
	}

	classes := make([]string, 0, len(seen))
	for label := range seen {
		classes = append(classes, label)
	}
	// クラスインデックスは辞書順で安定させる
	sort.Strings(classes)

	e.Classes = classes
	e.index = make(map[string]int, len(classes))
	for i, label := range classes {
		e.index[label] = i
	}
	e.SetFitted()
	return nil
}

// Transform はラベル列をクラスインデックス列へ変換する
//
// パラメータ:
//   - labels: 変換するラベル文字列の列
//
// 戻り値:
//   - []int: クラスインデックスの列
//   - error: 未学習の場合や未知のラベルがある場合
func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}

	out := make([]int, len(labels))
	for i, label := range labels {
		idx, ok := e.index[label]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform",
				fmt.Sprintf("unknown label '%s' at row %d", label, i))
		}
		out[i] = idx
	}
	return out, nil
}

// FitTransform はラベル列で学習し、同じ列を変換する
func (e *LabelEncoder) FitTransform(labels []string) ([]int, error) {
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	return e.Transform(labels)
}

// TransformVector はラベル列をn×1の行列へ変換する。
// 推定器のFitに渡すターゲットベクトルを作るためのヘルパー。
func (e *LabelEncoder) TransformVector(labels []string) (*mat.Dense, error) {
	encoded, err := e.Transform(labels)
	if err != nil {
		return nil, err
	}
	if len(encoded) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "LabelEncoder.TransformVector")
	}
	values := make([]float64, len(encoded))
	for i, v := range encoded {
		values[i] = float64(v)
	}
	return mat.NewDense(len(values), 1, values), nil
}

// InverseTransform はクラスインデックス列をラベル文字列の列へ戻す
//
// パラメータ:
//   - indices: クラスインデックスの列
//
// 戻り値:
//   - []string: ラベル文字列の列
//   - error: 未学習の場合や範囲外のインデックスがある場合
func (e *LabelEncoder) InverseTransform(indices []int) ([]string, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}

	out := make([]string, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(e.Classes) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform",
				fmt.Sprintf("class index %d out of range at row %d", idx, i))
		}
		out[i] = e.Classes[idx]
	}
	return out, nil
}

// NClasses は学習済みクラス数を返す
func (e *LabelEncoder) NClasses() int {
	return len(e.Classes)
}

// String はエンコーダの文字列表現を返す
func (e *LabelEncoder) String() string {
	if !e.IsFitted() {
		return "LabelEncoder()"
	}
	return fmt.Sprintf("LabelEncoder(n_classes=%d)", len(e.Classes))
}
