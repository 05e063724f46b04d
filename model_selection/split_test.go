package model_selection

import (
	"sort"
	"testing"

	"github.com/liftlab/repform/pkg/errors"
)

// classCounts tallies labels at the given row indices
func classCounts(labels []string, idx []int) map[string]int {
	counts := make(map[string]int)
	for _, i := range idx {
		counts[labels[i]]++
	}
	return counts
}

func TestStratifiedSplit(t *testing.T) {
	// 50 A, 30 B, 20 C
	labels := make([]string, 100)
	for i := range labels {
		switch {
		case i < 50:
			labels[i] = "A"
		case i < 80:
			labels[i] = "B"
		default:
			labels[i] = "C"
		}
	}

	train, holdout, err := StratifiedSplit(labels, 0.6, 42)
	if err != nil {
		t.Fatalf("StratifiedSplit failed: %v", err)
	}

	if len(train) != 60 || len(holdout) != 40 {
		t.Errorf("Expected 60/40 split, got %d/%d", len(train), len(holdout))
	}

	// Per class proportions: round(0.6 * classSize)
	wantTrain := map[string]int{"A": 30, "B": 18, "C": 12}
	gotTrain := classCounts(labels, train)
	for label, want := range wantTrain {
		if gotTrain[label] != want {
			t.Errorf("Class %s: expected %d training rows, got %d", label, want, gotTrain[label])
		}
	}

	// Sorted outputs
	if !sort.IntsAreSorted(train) {
		t.Error("Training indices should be sorted")
	}
	if !sort.IntsAreSorted(holdout) {
		t.Error("Holdout indices should be sorted")
	}

	// Disjoint and covering
	seen := make(map[int]int)
	for _, i := range train {
		seen[i]++
	}
	for _, i := range holdout {
		seen[i]++
	}
	if len(seen) != 100 {
		t.Errorf("Union should cover all 100 rows, got %d", len(seen))
	}
	for i, count := range seen {
		if count != 1 {
			t.Errorf("Row %d appears %d times", i, count)
		}
	}
}

func TestStratifiedSplitDeterministic(t *testing.T) {
	labels := make([]string, 60)
	for i := range labels {
		labels[i] = string(rune('A' + i%3))
	}

	train1, holdout1, err := StratifiedSplit(labels, 0.6, 7)
	if err != nil {
		t.Fatalf("StratifiedSplit failed: %v", err)
	}
	train2, holdout2, err := StratifiedSplit(labels, 0.6, 7)
	if err != nil {
		t.Fatalf("StratifiedSplit failed: %v", err)
	}

	if len(train1) != len(train2) {
		t.Fatalf("Same seed should give same sizes: %d vs %d", len(train1), len(train2))
	}
	for i := range train1 {
		if train1[i] != train2[i] {
			t.Fatalf("Same seed should give identical training sets at %d: %d vs %d",
				i, train1[i], train2[i])
		}
	}
	for i := range holdout1 {
		if holdout1[i] != holdout2[i] {
			t.Fatalf("Same seed should give identical holdout sets at %d", i)
		}
	}

	// A different seed moves at least one row
	train3, _, err := StratifiedSplit(labels, 0.6, 8)
	if err != nil {
		t.Fatalf("StratifiedSplit failed: %v", err)
	}
	same := true
	for i := range train1 {
		if train1[i] != train3[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("Different seeds should produce different splits")
	}
}

func TestStratifiedSplitRounding(t *testing.T) {
	// round(0.5 * 3) = 2 for A, round(0.5 * 2) = 1 for B
	labels := []string{"A", "A", "A", "B", "B"}

	train, holdout, err := StratifiedSplit(labels, 0.5, 1)
	if err != nil {
		t.Fatalf("StratifiedSplit failed: %v", err)
	}
	if len(train) != 3 || len(holdout) != 2 {
		t.Errorf("Expected 3/2 split, got %d/%d", len(train), len(holdout))
	}

	gotTrain := classCounts(labels, train)
	if gotTrain["A"] != 2 || gotTrain["B"] != 1 {
		t.Errorf("Expected 2 A and 1 B in training, got %v", gotTrain)
	}
}

func TestStratifiedSplitValidation(t *testing.T) {
	labels := []string{"A", "B", "A", "B"}

	tests := []struct {
		name     string
		labels   []string
		fraction float64
	}{
		{name: "zero fraction", labels: labels, fraction: 0},
		{name: "full fraction", labels: labels, fraction: 1},
		{name: "above one", labels: labels, fraction: 1.2},
		{name: "negative", labels: labels, fraction: -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := StratifiedSplit(tt.labels, tt.fraction, 0)
			if err == nil {
				t.Fatal("Expected configuration error")
			}
			var confErr *errors.ConfigurationError
			if !errors.As(err, &confErr) {
				t.Errorf("Expected ConfigurationError, got %T", err)
			}
		})
	}

	t.Run("empty labels", func(t *testing.T) {
		_, _, err := StratifiedSplit(nil, 0.6, 0)
		if err == nil {
			t.Fatal("Expected error for empty labels")
		}
		if !errors.Is(err, errors.ErrEmptyData) {
			t.Errorf("Expected ErrEmptyData, got %v", err)
		}
	})

	t.Run("missing label value", func(t *testing.T) {
		_, _, err := StratifiedSplit([]string{"A", "", "B"}, 0.6, 0)
		if err == nil {
			t.Fatal("Expected error for empty label value")
		}
		var valErr *errors.ValueError
		if !errors.As(err, &valErr) {
			t.Errorf("Expected ValueError, got %T", err)
		}
	})
}
