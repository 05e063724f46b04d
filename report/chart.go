package report

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/liftlab/repform/pkg/errors"
)

// SaveAccuracyChart writes a bar chart of per-family validation accuracy
// to path. The image format follows the file extension.
func SaveAccuracyChart(path string, names []string, accuracies []float64) error {
	if len(names) == 0 {
		return errors.NewValueError("SaveAccuracyChart", "no families to chart")
	}
	if len(names) != len(accuracies) {
		return errors.NewDimensionError("SaveAccuracyChart", len(names), len(accuracies), 0)
	}

	p := plot.New()
	p.Title.Text = "Validation accuracy by model family"
	p.Y.Label.Text = "Accuracy"
	p.Y.Min = 0
	p.Y.Max = 1

	bars, err := plotter.NewBarChart(plotter.Values(accuracies), vg.Points(40))
	if err != nil {
		return errors.Wrap(err, "building accuracy bars")
	}
	p.Add(bars)
	p.NominalX(names...)

	if err := p.Save(5*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving chart to %s", path)
	}
	return nil
}
