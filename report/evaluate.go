package report

import (
	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/repform/core/model"
	"github.com/liftlab/repform/dataset"
	"github.com/liftlab/repform/metrics"
	"github.com/liftlab/repform/pkg/log"
	"github.com/liftlab/repform/preprocessing"
)

// Evaluation bundles one predictor's confusion matrix and summary scores
// on one labeled table.
type Evaluation struct {
	// Table is the evaluated table's name ("training", "validation").
	Table string

	// Confusion cross-tabulates actual against predicted classes.
	Confusion *metrics.ConfusionMatrix

	// Accuracy is the fraction of rows on the confusion diagonal.
	Accuracy float64

	// Kappa is Cohen's chance-corrected agreement.
	Kappa float64
}

// Evaluate predicts every row of the table with the fitted classifier and
// cross-tabulates the predictions against the actual labels. The feature
// columns and the label encoding must match the ones the classifier was
// trained with.
func Evaluate(clf model.Classifier, table *dataset.Table, features []string,
	label string, encoder *preprocessing.LabelEncoder) (*Evaluation, error) {

	X, err := table.Matrix(features)
	if err != nil {
		return nil, err
	}
	pred, err := clf.Predict(X)
	if err != nil {
		return nil, err
	}

	actual, err := table.Labels(label)
	if err != nil {
		return nil, err
	}
	yTrue, err := encoder.Transform(actual)
	if err != nil {
		return nil, err
	}

	cm, err := metrics.NewConfusionMatrix(yTrue, classIndices(pred), encoder.Classes)
	if err != nil {
		return nil, err
	}

	ev := &Evaluation{
		Table:     table.Name(),
		Confusion: cm,
		Accuracy:  cm.Accuracy(),
		Kappa:     cm.Kappa(),
	}
	log.GetLoggerWithName("report.evaluate").Debug("Evaluation completed",
		log.PhaseKey, table.Name(),
		log.SamplesKey, table.NRows(),
		log.AccuracyKey, ev.Accuracy,
		log.KappaKey, ev.Kappa,
	)
	return ev, nil
}

// classIndices reads the class label out of each row of a prediction
// matrix. Estimators trained on encoded labels predict the class index
// itself.
func classIndices(pred mat.Matrix) []int {
	rows, _ := pred.Dims()
	out := make([]int, rows)
	for i := range out {
		out[i] = int(pred.At(i, 0))
	}
	return out
}
