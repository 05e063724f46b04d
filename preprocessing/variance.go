package preprocessing

import (
	"github.com/liftlab/repform/dataset"
	"github.com/liftlab/repform/pkg/errors"
)

const (
	// DefaultFreqCut は最頻値と2番目の頻度の比のカット値
	DefaultFreqCut = 19.0

	// DefaultUniqueCut はユニーク値率(%)のカット値
	DefaultUniqueCut = 10.0
)

// NearZeroVarianceFilter はほぼ一定値のカラムをドロップするフィルタ。
// 非欠損セルについて、頻度比 (最頻値の件数 / 2番目の件数) がFreqCutを
// 超え、かつユニーク値率 (100×distinct/n) がUniqueCut以下のカラムを
// ドロップする。distinct が1以下のカラムは無条件にドロップする。
type NearZeroVarianceFilter struct {
	mask

	// FreqCut は頻度比のカット値 (既定: 19)
	FreqCut float64

	// UniqueCut はユニーク値率(%)のカット値 (既定: 10)
	UniqueCut float64
}

// NewNearZeroVarianceFilter は既定のカット値でフィルタを作成する
func NewNearZeroVarianceFilter() *NearZeroVarianceFilter {
	return &NearZeroVarianceFilter{
		FreqCut:   DefaultFreqCut,
		UniqueCut: DefaultUniqueCut,
	}
}

// Name はフィルタ名を返す
func (f *NearZeroVarianceFilter) Name() string { return "NearZeroVarianceFilter" }

// Fit は各カラムの頻度比とユニーク値率を計算し、ドロップ対象を決定する
func (f *NearZeroVarianceFilter) Fit(table *dataset.Table) error {
	if f.FreqCut <= 0 {
		return errors.NewConfigurationError("freq_cut", "must be positive", f.FreqCut)
	}
	if f.UniqueCut < 0 || f.UniqueCut > 100 {
		return errors.NewConfigurationError("unique_cut", "must be in [0, 100]", f.UniqueCut)
	}

	kept := make([]string, 0, table.NCols())
	dropped := make([]string, 0)
	for i := 0; i < table.NCols(); i++ {
		col := table.ColumnAt(i)
		if f.nearZeroVariance(&col) {
			dropped = append(dropped, col.Name)
			continue
		}
		kept = append(kept, col.Name)
	}
	f.setResult(kept, dropped)
	return nil
}

// Transform は適合済みの選別結果をテーブルへ適用する
func (f *NearZeroVarianceFilter) Transform(table *dataset.Table) (*dataset.Table, error) {
	return f.apply(f.Name(), table)
}

// nearZeroVariance は1カラム分の判定を行う
func (f *NearZeroVarianceFilter) nearZeroVariance(col *dataset.Column) bool {
	top1, top2, distinct, n := valueCounts(col)

	// 全欠損または定数カラムは分散ゼロとして扱う
	if distinct <= 1 {
		return true
	}

	freqRatio := float64(top1) / float64(top2)
	uniquePct := 100 * float64(distinct) / float64(n)
	return freqRatio > f.FreqCut && uniquePct <= f.UniqueCut
}

// valueCounts は非欠損セルの上位2頻度・ユニーク数・件数を返す
func valueCounts(col *dataset.Column) (top1, top2, distinct, n int) {
	counts := make(map[string]int)
	floatCounts := make(map[float64]int)

	for i := 0; i < col.Len(); i++ {
		if col.IsMissing(i) {
			continue
		}
		n++
		if col.Type == dataset.Categorical {
			counts[col.Strings[i]]++
		} else {
			floatCounts[col.Floats[i]]++
		}
	}

	collect := func(c int) {
		distinct++
		if c > top1 {
			top1, top2 = c, top1
		} else if c > top2 {
			top2 = c
		}
	}
	for _, c := range counts {
		collect(c)
	}
	for _, c := range floatCounts {
		collect(c)
	}
	return top1, top2, distinct, n
}
