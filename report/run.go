// Package report orchestrates the one-shot analysis: fetch the two
// remote tables, stratify the training rows, prune feature columns,
// train the competing classifier families under cross-validated grid
// search, and evaluate and compare the survivors.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/repform/core/model"
	"github.com/liftlab/repform/dataset"
	"github.com/liftlab/repform/metrics"
	"github.com/liftlab/repform/model_selection"
	"github.com/liftlab/repform/pkg/errors"
	"github.com/liftlab/repform/pkg/log"
	"github.com/liftlab/repform/preprocessing"
)

// TrainedFamily holds one family's selected estimator together with its
// cross-validation score and evaluations.
type TrainedFamily struct {
	Name       string
	BestParams map[string]interface{}
	CVScore    float64
	CVStd      float64
	Estimator  model.Classifier
	Training   *Evaluation
	Validation *Evaluation
	Duration   time.Duration
}

// FilterPass records one filter pass's drop count.
type FilterPass struct {
	Name    string
	Dropped int
}

// Results carries everything one pipeline run produces.
type Results struct {
	RunID string

	TrainingRows   int
	ValidationRows int
	TestingRows    int

	// FilterPasses records how many columns each pass dropped, in pass
	// order.
	FilterPasses []FilterPass

	// Features are the surviving feature columns, in fitted order.
	Features []string

	// Classes are the label classes in encoding order.
	Classes []string

	// Trained maps family name to its grid-search outcome. Families
	// absent here appear in Failures instead.
	Trained  map[string]*TrainedFamily
	Failures map[string]error

	// Ranking orders the trained family names by validation accuracy,
	// best first. Ties keep the configured family order.
	Ranking []string

	// Agreement cross-tabulates the two best families' correctness on
	// the validation subset. Nil when fewer than two families trained.
	Agreement *metrics.AgreementTable

	// BestFamily names the top-ranked family.
	BestFamily string

	// TestPredictions are the best family's decoded labels for the
	// testing table, in row order.
	TestPredictions []string

	Duration time.Duration
}

// Run executes the full pipeline against cfg. Loading, partitioning and
// filtering errors abort the run. A family whose grid search fails is
// recorded in Results.Failures under its name while the remaining
// families proceed; Run fails outright only when every family fails.
func Run(ctx context.Context, cfg Config) (*Results, error) {
	runID := uuid.NewString()
	logger := log.GetLoggerWithName("report").With(log.RunIDKey, runID)
	start := time.Now()

	logger.Info("Pipeline run started",
		log.RandomSeedKey, cfg.Seed,
		log.FoldsKey, cfg.CVFolds,
		log.WorkersKey, cfg.Workers,
	)

	// Both tables download concurrently; either failure aborts the run.
	fetcher := dataset.NewFetcher(cfg.CacheDir)
	var rawTraining, testing *dataset.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawTraining, err = fetcher.Load(gctx, cfg.TrainingURL, "training")
		return err
	})
	g.Go(func() error {
		var err error
		testing, err = fetcher.Load(gctx, cfg.TestingURL, "testing")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "loading datasets")
	}

	labels, err := rawTraining.Labels(cfg.LabelColumn)
	if err != nil {
		return nil, err
	}
	trainIdx, valIdx, err := model_selection.StratifiedSplit(labels, cfg.TrainFraction, cfg.Seed)
	if err != nil {
		return nil, err
	}
	training, err := rawTraining.RowSubset(trainIdx)
	if err != nil {
		return nil, err
	}
	validation, err := rawTraining.RowSubset(valIdx)
	if err != nil {
		return nil, err
	}
	validation = validation.WithName("validation")

	// The column mask is fitted on the training subset only; the same
	// projection then lands on all three tables.
	pipeline := preprocessing.NewFilterPipeline(cfg.LabelColumn, cfg.filters()...)
	training, err = pipeline.FitTransform(training)
	if err != nil {
		return nil, err
	}
	validation, err = pipeline.Transform(validation)
	if err != nil {
		return nil, err
	}
	testing, err = pipeline.Transform(testing)
	if err != nil {
		return nil, err
	}

	results := &Results{
		RunID:          runID,
		TrainingRows:   training.NRows(),
		ValidationRows: validation.NRows(),
		TestingRows:    testing.NRows(),
		Features:       pipeline.FeatureNames(),
		Trained:        make(map[string]*TrainedFamily),
		Failures:       make(map[string]error),
	}
	for _, f := range pipeline.Filters {
		results.FilterPasses = append(results.FilterPasses, FilterPass{
			Name:    f.Name(),
			Dropped: len(f.Dropped()),
		})
	}

	encoder := preprocessing.NewLabelEncoder()
	trainLabels, err := training.Labels(cfg.LabelColumn)
	if err != nil {
		return nil, err
	}
	if err := encoder.Fit(trainLabels); err != nil {
		return nil, err
	}
	results.Classes = append([]string(nil), encoder.Classes...)

	XTrain, err := training.Matrix(results.Features)
	if err != nil {
		return nil, err
	}
	yTrain, err := encoder.TransformVector(trainLabels)
	if err != nil {
		return nil, err
	}

	logger.Info("Training matrix assembled",
		log.SamplesKey, results.TrainingRows,
		log.FeaturesKey, len(results.Features),
		"classes", len(results.Classes),
	)

	// Family fits are independent. Each runs its grid search inside the
	// bounded group, with panics contained per family.
	families := cfg.families()
	trained := make([]*TrainedFamily, len(families))
	failures := make([]error, len(families))

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	var fg errgroup.Group
	fg.SetLimit(workers)
	for i, fam := range families {
		fg.Go(func() error {
			famStart := time.Now()
			err := errors.SafeExecute(fam.Name+" grid search", func() error {
				tf, err := trainFamily(fam, XTrain, yTrain, len(results.Features), cfg)
				if err != nil {
					return err
				}
				trained[i] = tf
				return nil
			})
			if err != nil {
				failures[i] = err
				logger.Error("Family training failed", err, log.FamilyKey, fam.Name)
				return nil
			}
			trained[i].Duration = time.Since(famStart)
			logger.Info("Family training completed",
				log.FamilyKey, fam.Name,
				log.MeanScoreKey, trained[i].CVScore,
				log.StdScoreKey, trained[i].CVStd,
				log.DurationSecondsKey, trained[i].Duration.Seconds(),
			)
			return nil
		})
	}
	// Every goroutine returns nil; failures land in the failures slots.
	_ = fg.Wait()

	// Evaluate each survivor on the training and validation subsets.
	for i, fam := range families {
		if failures[i] != nil {
			results.Failures[fam.Name] = failures[i]
			continue
		}
		tf := trained[i]
		if tf.Training, err = Evaluate(tf.Estimator, training, results.Features, cfg.LabelColumn, encoder); err != nil {
			results.Failures[fam.Name] = err
			continue
		}
		if tf.Validation, err = Evaluate(tf.Estimator, validation, results.Features, cfg.LabelColumn, encoder); err != nil {
			results.Failures[fam.Name] = err
			continue
		}
		results.Trained[fam.Name] = tf
		results.Ranking = append(results.Ranking, fam.Name)
	}
	if len(results.Trained) == 0 {
		return nil, errors.Newf("all %d model families failed to train", len(families))
	}

	sort.SliceStable(results.Ranking, func(a, b int) bool {
		accA := results.Trained[results.Ranking[a]].Validation.Accuracy
		accB := results.Trained[results.Ranking[b]].Validation.Accuracy
		return accA > accB
	})
	results.BestFamily = results.Ranking[0]

	if len(results.Ranking) >= 2 {
		XVal, err := validation.Matrix(results.Features)
		if err != nil {
			return nil, err
		}
		valLabels, err := validation.Labels(cfg.LabelColumn)
		if err != nil {
			return nil, err
		}
		yVal, err := encoder.Transform(valLabels)
		if err != nil {
			return nil, err
		}

		first := results.Trained[results.Ranking[0]]
		second := results.Trained[results.Ranking[1]]
		predA, err := predictIndices(first.Estimator, XVal)
		if err != nil {
			return nil, err
		}
		predB, err := predictIndices(second.Estimator, XVal)
		if err != nil {
			return nil, err
		}
		results.Agreement, err = metrics.NewAgreementTable(first.Name, second.Name, yVal, predA, predB)
		if err != nil {
			return nil, err
		}
	}

	// Predict the unlabeled testing rows with the best family.
	if results.TestingRows > 0 {
		XTest, err := testing.Matrix(results.Features)
		if err != nil {
			return nil, err
		}
		predTest, err := predictIndices(results.Trained[results.BestFamily].Estimator, XTest)
		if err != nil {
			return nil, err
		}
		results.TestPredictions, err = encoder.InverseTransform(predTest)
		if err != nil {
			return nil, err
		}
	}

	if cfg.ChartPath != "" {
		accs := make([]float64, len(results.Ranking))
		for i, name := range results.Ranking {
			accs[i] = results.Trained[name].Validation.Accuracy
		}
		if err := SaveAccuracyChart(cfg.ChartPath, results.Ranking, accs); err != nil {
			logger.Warn("Accuracy chart not written",
				"path", cfg.ChartPath,
				"reason", err.Error(),
			)
		}
	}

	results.Duration = time.Since(start)
	logger.Info("Pipeline run completed",
		log.FamilyKey, results.BestFamily,
		log.AccuracyKey, results.Trained[results.BestFamily].Validation.Accuracy,
		log.DurationSecondsKey, results.Duration.Seconds(),
	)
	return results, nil
}

// trainFamily runs one family's grid search over the encoded training
// matrix and packages the refit winner.
func trainFamily(fam Family, X, y mat.Matrix, nFeatures int, cfg Config) (*TrainedFamily, error) {
	gs := &model_selection.GridSearch{
		Grid:     fam.Grid(nFeatures),
		Folds:    cfg.CVFolds,
		Seed:     cfg.Seed,
		Parallel: true,
	}
	result, err := gs.Run(func(params map[string]interface{}) (model.Classifier, error) {
		return fam.New(params, cfg.Seed)
	}, X, y)
	if err != nil {
		return nil, errors.NewFitError(fam.Name, "grid search failed", "", err)
	}
	return &TrainedFamily{
		Name:       fam.Name,
		BestParams: result.BestParams,
		CVScore:    result.BestScore,
		CVStd:      result.CVResults[result.BestIndex].GetStdScore(),
		Estimator:  result.Estimator,
	}, nil
}

// predictIndices predicts X and reads the label column back as ints.
func predictIndices(clf model.Classifier, X mat.Matrix) ([]int, error) {
	pred, err := clf.Predict(X)
	if err != nil {
		return nil, err
	}
	return classIndices(pred), nil
}
