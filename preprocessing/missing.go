package preprocessing

import (
	"github.com/liftlab/repform/dataset"
	"github.com/liftlab/repform/pkg/errors"
)

// DefaultMissingnessThreshold は欠損率フィルタの既定閾値
const DefaultMissingnessThreshold = 0.30

// MissingnessFilter は欠損率が閾値を超えるカラムをドロップするフィルタ。
// 判定は「閾値より大きい」場合のみで、ちょうど閾値のカラムは残す。
type MissingnessFilter struct {
	mask

	// Threshold は許容する欠損率の上限 (既定: 0.30)
	Threshold float64
}

// NewMissingnessFilter は新しいMissingnessFilterを作成する
//
// パラメータ:
//   - threshold: 許容する欠損率の上限 [0, 1)
//
// 使用例:
//
//	filter := preprocessing.NewMissingnessFilter(0.30)
//	err := filter.Fit(table)
//	filtered, err := filter.Transform(table)
func NewMissingnessFilter(threshold float64) *MissingnessFilter {
	return &MissingnessFilter{Threshold: threshold}
}

// Name はフィルタ名を返す
func (f *MissingnessFilter) Name() string { return "MissingnessFilter" }

// Fit は各カラムの欠損率を計算し、ドロップ対象を決定する
func (f *MissingnessFilter) Fit(table *dataset.Table) error {
	if f.Threshold < 0 || f.Threshold >= 1 {
		return errors.NewConfigurationError("missingness_threshold",
			"must be in [0, 1)", f.Threshold)
	}

	kept := make([]string, 0, table.NCols())
	dropped := make([]string, 0)
	for i := 0; i < table.NCols(); i++ {
		col := table.ColumnAt(i)
		// 閾値ちょうどは残す
		if col.MissingFraction() > f.Threshold {
			dropped = append(dropped, col.Name)
			continue
		}
		kept = append(kept, col.Name)
	}
	f.setResult(kept, dropped)
	return nil
}

// Transform は適合済みの選別結果をテーブルへ適用する
func (f *MissingnessFilter) Transform(table *dataset.Table) (*dataset.Table, error) {
	return f.apply(f.Name(), table)
}
