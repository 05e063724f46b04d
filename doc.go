// Package repform implements a one-shot analysis pipeline that grades
// weight lifting form from on-body sensor data.
//
// The pipeline downloads the weight lifting exercises dataset (two CSV
// files: ~19k labeled training rows and 20 unlabeled testing rows),
// stratifies the training table into a 60/40 training/validation split,
// prunes the ~160 raw columns in four ordered passes (missingness,
// identifiers, near-zero variance, pairwise correlation), trains four
// classifier families under 10-fold cross-validated grid search, and
// reports confusion matrices, accuracies, a two-model agreement table
// and the ordered test-set predictions.
//
// # Quick Start
//
// Run the whole pipeline with the default configuration:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/liftlab/repform/report"
//	)
//
//	func main() {
//	    results, err := report.Run(context.Background(), report.DefaultConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("best family:", results.BestFamily)
//	    fmt.Println("predictions:", results.TestPredictions)
//	}
//
// Or install and run the command:
//
//	go run github.com/liftlab/repform/cmd/repform
//
// # Packages
//
//   - dataset: immutable column-oriented Table, CSV codec, remote fetch
//   - preprocessing: four column filters, FilterPipeline, LabelEncoder
//   - model_selection: stratified split, k-fold CV, grid search
//   - models/discriminant: linear discriminant analysis
//   - models/ensemble: random forest and gradient boosting
//   - models/naive_bayes: Gaussian naive Bayes
//   - models/tree: CART decision tree
//   - metrics: accuracy, confusion matrix, kappa, agreement table
//   - report: configuration and the end-to-end Run
//   - core/model, core/parallel, pkg/errors, pkg/log: shared infrastructure
//
// Estimators follow a common idiom: constructors with functional options,
// Fit/Predict/PredictProba/Score over gonum/mat matrices, typed errors
// from pkg/errors, and deterministic behavior given a seed.
package repform
