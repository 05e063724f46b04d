package metrics

import (
	"fmt"
	"strings"

	"github.com/liftlab/repform/pkg/errors"
)

// AgreementTable は2つのモデルの正誤の組み合わせを集計した2×2分割表。
// 各サンプルは両モデル正解・片方のみ正解・両モデル不正解のいずれかに数えられる。
type AgreementTable struct {
	ModelA string
	ModelB string

	BothCorrect  int
	OnlyACorrect int
	OnlyBCorrect int
	BothWrong    int
}

// NewAgreementTable は正解ラベルと2つのモデルの予測から分割表を構築する
func NewAgreementTable(modelA, modelB string, yTrue, predA, predB []int) (*AgreementTable, error) {
	// 入力検証
	n := len(yTrue)
	if n == 0 {
		return nil, errors.NewValueError("NewAgreementTable", "empty vector")
	}
	if len(predA) != n {
		return nil, errors.NewDimensionError("NewAgreementTable", n, len(predA), 0)
	}
	if len(predB) != n {
		return nil, errors.NewDimensionError("NewAgreementTable", n, len(predB), 0)
	}

	table := &AgreementTable{ModelA: modelA, ModelB: modelB}
	for i := 0; i < n; i++ {
		aCorrect := predA[i] == yTrue[i]
		bCorrect := predB[i] == yTrue[i]
		switch {
		case aCorrect && bCorrect:
			table.BothCorrect++
		case aCorrect:
			table.OnlyACorrect++
		case bCorrect:
			table.OnlyBCorrect++
		default:
			table.BothWrong++
		}
	}

	return table, nil
}

// Total は全サンプル数を返す
func (at *AgreementTable) Total() int {
	return at.BothCorrect + at.OnlyACorrect + at.OnlyBCorrect + at.BothWrong
}

// AccuracyA はモデルAの正解率を返す
func (at *AgreementTable) AccuracyA() float64 {
	total := at.Total()
	if total == 0 {
		return 0
	}
	return float64(at.BothCorrect+at.OnlyACorrect) / float64(total)
}

// AccuracyB はモデルBの正解率を返す
func (at *AgreementTable) AccuracyB() float64 {
	total := at.Total()
	if total == 0 {
		return 0
	}
	return float64(at.BothCorrect+at.OnlyBCorrect) / float64(total)
}

// Disagreement は片方のモデルだけが正解したサンプル数を返す
func (at *AgreementTable) Disagreement() int {
	return at.OnlyACorrect + at.OnlyBCorrect
}

// String はモデルAを行、モデルBを列とする2×2テーブル表現を返す
func (at *AgreementTable) String() string {
	width := len(fmt.Sprintf("%d", at.Total()))
	if width < 7 {
		width = 7
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s (rows) vs %s (cols)\n", at.ModelA, at.ModelB))
	b.WriteString(fmt.Sprintf("%-10s %*s %*s\n", "", width, "correct", width, "wrong"))
	b.WriteString(fmt.Sprintf("%-10s %*d %*d\n", "correct", width, at.BothCorrect, width, at.OnlyACorrect))
	b.WriteString(fmt.Sprintf("%-10s %*d %*d\n", "wrong", width, at.OnlyBCorrect, width, at.BothWrong))
	return b.String()
}
