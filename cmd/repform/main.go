// Command repform runs the weight-lifting form classification pipeline:
// fetch the training and testing tables, stratify and prune, train four
// classifier families under cross-validated grid search, and print the
// comparison report.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/liftlab/repform/pkg/log"
	"github.com/liftlab/repform/report"
)

func main() {
	log.SetupLogger("info")

	results, err := report.Run(context.Background(), report.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "repform: %v\n", err)
		os.Exit(1)
	}

	printReport(results)
}

func printReport(r *report.Results) {
	fmt.Println("=== Weight Lifting Form Classification ===")
	fmt.Printf("Run %s\n", r.RunID)

	fmt.Println("\n--- Data ---")
	fmt.Printf("Rows: %d training / %d validation / %d testing\n",
		r.TrainingRows, r.ValidationRows, r.TestingRows)
	fmt.Printf("Classes: %v\n", r.Classes)
	fmt.Printf("Features kept: %d\n", len(r.Features))
	for _, pass := range r.FilterPasses {
		fmt.Printf("  %-24s dropped %d\n", pass.Name, pass.Dropped)
	}

	fmt.Println("\n--- Cross-validated selection ---")
	for _, name := range r.Ranking {
		tf := r.Trained[name]
		fmt.Printf("%-4s cv accuracy %.4f (+/- %.4f)  params %v  [%s]\n",
			name, tf.CVScore, tf.CVStd, tf.BestParams,
			tf.Duration.Round(time.Millisecond))
	}
	if len(r.Failures) > 0 {
		names := make([]string, 0, len(r.Failures))
		for name := range r.Failures {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println("\n--- Failed families ---")
		for _, name := range names {
			fmt.Printf("%-4s %v\n", name, r.Failures[name])
		}
	}

	fmt.Println("\n--- Validation accuracy ---")
	for _, name := range r.Ranking {
		tf := r.Trained[name]
		fmt.Printf("%-4s accuracy %.4f  kappa %.4f\n",
			name, tf.Validation.Accuracy, tf.Validation.Kappa)
	}

	best := r.Trained[r.BestFamily]
	fmt.Printf("\n--- Confusion matrix: %s on validation ---\n", r.BestFamily)
	fmt.Print(best.Validation.Confusion.String())

	if r.Agreement != nil {
		fmt.Println("\n--- Agreement of the two best families ---")
		fmt.Print(r.Agreement.String())
		fmt.Printf("Disagreement on %d of %d rows\n",
			r.Agreement.Disagreement(), r.Agreement.Total())
	}

	fmt.Println("\n--- Test predictions ---")
	for i, label := range r.TestPredictions {
		fmt.Printf("%2d: %s\n", i+1, label)
	}

	fmt.Printf("\n✅ Best family: %s (validation accuracy %.4f) in %s\n",
		r.BestFamily, best.Validation.Accuracy, r.Duration.Round(time.Second))
}
