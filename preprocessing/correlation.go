package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/liftlab/repform/core/parallel"
	"github.com/liftlab/repform/dataset"
	"github.com/liftlab/repform/pkg/errors"
)

// DefaultCorrelationCutoff はペア相関フィルタの既定カット値
const DefaultCorrelationCutoff = 0.75

// correlationParallelThreshold はペア数がこの値を超えたら並列計算に切り替える
const correlationParallelThreshold = 64

// CorrelationFilter は強く相関する数値カラムのペアから後方のカラムを
// ドロップするフィルタ。上三角をカラム順に走査し、|r| がCutoff以上で
// どちらもまだドロップされていないペアについて、先のカラムを残し後の
// カラムをドロップする。既にドロップされたカラムを含むペアは飛ばす。
// 相関は両方が非欠損の行だけで計算し、そのような行が2行未満のペアは
// 無相関として扱う。カテゴリカルカラムは判定対象外でそのまま残る。
type CorrelationFilter struct {
	mask

	// Cutoff は|r|のカット値 (既定: 0.75)
	Cutoff float64
}

// NewCorrelationFilter は新しいCorrelationFilterを作成する
//
// パラメータ:
//   - cutoff: |r| がこの値以上のペアをドロップ対象とする (0, 1]
func NewCorrelationFilter(cutoff float64) *CorrelationFilter {
	return &CorrelationFilter{Cutoff: cutoff}
}

// Name はフィルタ名を返す
func (f *CorrelationFilter) Name() string { return "CorrelationFilter" }

// Fit はペアごとのPearson相関からドロップ対象を決定する
func (f *CorrelationFilter) Fit(table *dataset.Table) error {
	if f.Cutoff <= 0 || f.Cutoff > 1 {
		return errors.NewConfigurationError("correlation_cutoff",
			"must be in (0, 1]", f.Cutoff)
	}

	numeric := make([]dataset.Column, 0, table.NCols())
	for i := 0; i < table.NCols(); i++ {
		col := table.ColumnAt(i)
		if col.Type == dataset.Numeric {
			numeric = append(numeric, col)
		}
	}

	m := len(numeric)
	type pair struct{ i, j int }
	pairs := make([]pair, 0, m*(m-1)/2)
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			pairs = append(pairs, pair{i, j})
		}
	}

	// 相関行列の計算は行数×ペア数に比例するので並列化する。
	// ドロップ判定は順序依存のため逐次で行う。
	corr := make([]float64, len(pairs))
	parallel.ParallelizeWithThreshold(len(pairs), correlationParallelThreshold,
		func(start, end int) {
			for p := start; p < end; p++ {
				corr[p] = pairwiseCorrelation(&numeric[pairs[p].i], &numeric[pairs[p].j])
			}
		})

	drop := make([]bool, m)
	for p, pr := range pairs {
		if drop[pr.i] || drop[pr.j] {
			continue
		}
		if math.Abs(corr[p]) >= f.Cutoff {
			drop[pr.j] = true
		}
	}

	droppedSet := make(map[string]struct{}, m)
	dropped := make([]string, 0)
	for i := range numeric {
		if drop[i] {
			droppedSet[numeric[i].Name] = struct{}{}
			dropped = append(dropped, numeric[i].Name)
		}
	}

	kept := make([]string, 0, table.NCols())
	for _, name := range table.Names() {
		if _, ok := droppedSet[name]; ok {
			continue
		}
		kept = append(kept, name)
	}
	f.setResult(kept, dropped)
	return nil
}

// Transform は適合済みの選別結果をテーブルへ適用する
func (f *CorrelationFilter) Transform(table *dataset.Table) (*dataset.Table, error) {
	return f.apply(f.Name(), table)
}

// pairwiseCorrelation は両方が非欠損の行に限定したPearson相関を返す。
// 有効行が2行未満の場合と分散ゼロで相関が定義できない場合は0を返す。
func pairwiseCorrelation(a, b *dataset.Column) float64 {
	xs := make([]float64, 0, a.Len())
	ys := make([]float64, 0, a.Len())
	for i := 0; i < a.Len(); i++ {
		if a.IsMissing(i) || b.IsMissing(i) {
			continue
		}
		xs = append(xs, a.Floats[i])
		ys = append(ys, b.Floats[i])
	}
	if len(xs) < 2 {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}
