package preprocessing

import (
	"github.com/liftlab/repform/dataset"
	"github.com/liftlab/repform/pkg/errors"
)

// DefaultIdentifierCount は識別子フィルタが先頭からドロップする既定カラム数。
// センサーデータの先頭7カラムは行番号・被験者名・タイムスタンプ3種・
// ウィンドウ2種のメタデータにあたる。
const DefaultIdentifierCount = 7

// IdentifierFilter は適合したテーブルの先頭Nカラムを位置基準でドロップするフィルタ
type IdentifierFilter struct {
	mask

	// Count は先頭からドロップするカラム数 (既定: 7)
	Count int
}

// NewIdentifierFilter は新しいIdentifierFilterを作成する
//
// パラメータ:
//   - count: ドロップする先頭カラム数
func NewIdentifierFilter(count int) *IdentifierFilter {
	return &IdentifierFilter{Count: count}
}

// Name はフィルタ名を返す
func (f *IdentifierFilter) Name() string { return "IdentifierFilter" }

// Fit は適合対象テーブルの先頭Countカラムをドロップ対象として記録する
func (f *IdentifierFilter) Fit(table *dataset.Table) error {
	if f.Count < 0 {
		return errors.NewConfigurationError("identifier_count",
			"must not be negative", f.Count)
	}
	if f.Count > table.NCols() {
		return errors.NewConfigurationError("identifier_count",
			"exceeds the table column count", f.Count)
	}

	names := table.Names()
	dropped := make([]string, f.Count)
	copy(dropped, names[:f.Count])
	kept := make([]string, len(names)-f.Count)
	copy(kept, names[f.Count:])
	f.setResult(kept, dropped)
	return nil
}

// Transform は適合済みの選別結果をテーブルへ適用する
func (f *IdentifierFilter) Transform(table *dataset.Table) (*dataset.Table, error) {
	return f.apply(f.Name(), table)
}
