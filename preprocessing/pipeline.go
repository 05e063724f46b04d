// Package preprocessing はテーブルのカラムフィルタリングとラベルエンコーディングを提供する
package preprocessing

import (
	"github.com/liftlab/repform/core/model"
	"github.com/liftlab/repform/dataset"
	"github.com/liftlab/repform/pkg/errors"
	"github.com/liftlab/repform/pkg/log"
)

// ColumnFilter は学習サブセットで適合し、各テーブルへ同一のカラム選別を適用するフィルタ
type ColumnFilter interface {
	// Name はフィルタ名を返す
	Name() string

	// Fit は与えられたテーブルからドロップ対象カラムを決定する
	Fit(table *dataset.Table) error

	// Transform は適合済みの選別結果を適用した新しいテーブルを返す
	Transform(table *dataset.Table) (*dataset.Table, error)

	// Kept は生き残ったカラム名を適合時の順序で返す
	Kept() []string

	// Dropped はドロップされたカラム名を返す
	Dropped() []string
}

// mask は適合済みフィルタのカラム選別結果を保持する共通部品
type mask struct {
	model.BaseEstimator

	kept    []string
	dropped []string
}

// setResult は適合結果を記録し、学習済み状態に遷移する
func (m *mask) setResult(kept, dropped []string) {
	m.kept = kept
	m.dropped = dropped
	m.SetFitted()
}

// Kept は生き残ったカラム名を返す
func (m *mask) Kept() []string {
	out := make([]string, len(m.kept))
	copy(out, m.kept)
	return out
}

// Dropped はドロップされたカラム名を返す
func (m *mask) Dropped() []string {
	out := make([]string, len(m.dropped))
	copy(out, m.dropped)
	return out
}

// apply は選別結果をテーブルへ適用する。
// 生き残りカラムが欠けているテーブルにはSchemaMismatchErrorを返す。
func (m *mask) apply(name string, table *dataset.Table) (*dataset.Table, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError(name, "Transform")
	}
	op := name + ".Transform"
	for _, col := range m.kept {
		if !table.HasColumn(col) {
			return nil, errors.NewSchemaMismatchError(op, table.Name(), col)
		}
	}
	return table.Project(m.kept)
}

// FilterPipeline は欠損率・識別子・準ゼロ分散・相関の4段フィルタをまとめる。
// ラベルカラムを除外した上で学習サブセットにのみ適合し、
// 全テーブルへ同一の射影を適用する。
type FilterPipeline struct {
	model.BaseEstimator

	// Label は対象外とするラベルカラム名（例: "classe"）
	Label string

	// Filters は適用順のフィルタ列
	Filters []ColumnFilter

	features []string
	logger   log.Logger
}

// DefaultFilters は既定の4段フィルタ列を返す
//
// 順序: 欠損率(0.30) → 識別子(先頭7カラム) → 準ゼロ分散 → ペア相関(0.75)
func DefaultFilters() []ColumnFilter {
	return []ColumnFilter{
		NewMissingnessFilter(DefaultMissingnessThreshold),
		NewIdentifierFilter(DefaultIdentifierCount),
		NewNearZeroVarianceFilter(),
		NewCorrelationFilter(DefaultCorrelationCutoff),
	}
}

// NewFilterPipeline は指定したフィルタ列のパイプラインを作成する。
// フィルタを省略した場合は既定の4段構成になる。
func NewFilterPipeline(label string, filters ...ColumnFilter) *FilterPipeline {
	if len(filters) == 0 {
		filters = DefaultFilters()
	}
	return &FilterPipeline{
		Label:   label,
		Filters: filters,
		logger:  log.GetLoggerWithName("preprocessing.pipeline"),
	}
}

// Fit は学習サブセットからカラムマスクを決定する
//
// パラメータ:
//   - table: 学習サブセットのテーブル（ラベルカラム必須）
//
// 戻り値:
//   - error: ラベルカラムが無い場合やフィルタの適合に失敗した場合
func (p *FilterPipeline) Fit(table *dataset.Table) error {
	if p.Label != "" && !table.HasColumn(p.Label) {
		return errors.NewConfigurationError("label_column",
			"not present in table '"+table.Name()+"'", p.Label)
	}

	// ラベルを除いた特徴量テーブルに対して各フィルタを順に適合する
	featureNames := make([]string, 0, table.NCols())
	for _, name := range table.Names() {
		if name == p.Label {
			continue
		}
		featureNames = append(featureNames, name)
	}
	current, err := table.Project(featureNames)
	if err != nil {
		return err
	}

	for _, filter := range p.Filters {
		if err := filter.Fit(current); err != nil {
			return err
		}
		current, err = filter.Transform(current)
		if err != nil {
			return err
		}
		p.logger.Info("Filter pass completed",
			log.OperationKey, log.OperationFit,
			"filter", filter.Name(),
			log.DroppedColumnsKey, len(filter.Dropped()),
			"remaining", current.NCols(),
		)
	}

	p.features = current.Names()
	p.SetFitted()
	return nil
}

// Transform は適合済みマスクをテーブルへ適用する。
// 生き残り特徴量カラムが欠けている場合はSchemaMismatchError、
// ラベルカラムを持つテーブルにはラベルを末尾に残した射影を返す。
// マスクに無い余分なカラムは射影で取り除かれる。
func (p *FilterPipeline) Transform(table *dataset.Table) (*dataset.Table, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("FilterPipeline", "Transform")
	}

	for _, col := range p.features {
		if !table.HasColumn(col) {
			return nil, errors.NewSchemaMismatchError("FilterPipeline.Transform", table.Name(), col)
		}
	}

	names := p.features
	if p.Label != "" && table.HasColumn(p.Label) {
		names = make([]string, 0, len(p.features)+1)
		names = append(names, p.features...)
		names = append(names, p.Label)
	}
	return table.Project(names)
}

// FitTransform は学習サブセットで適合し、同じテーブルを変換する
func (p *FilterPipeline) FitTransform(table *dataset.Table) (*dataset.Table, error) {
	if err := p.Fit(table); err != nil {
		return nil, err
	}
	return p.Transform(table)
}

// FeatureNames は適合後に生き残った特徴量カラム名を順序付きで返す
func (p *FilterPipeline) FeatureNames() []string {
	out := make([]string, len(p.features))
	copy(out, p.features)
	return out
}
