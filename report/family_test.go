package report

import (
	"testing"

	"github.com/liftlab/repform/models/ensemble"
	"github.com/liftlab/repform/models/naive_bayes"
)

func gridInts(t *testing.T, grid []map[string]interface{}, key string) []int {
	t.Helper()
	out := make([]int, len(grid))
	for i, candidate := range grid {
		v, ok := asInt(candidate[key])
		if !ok {
			t.Fatalf("Candidate %d has no integer %s: %v", i, key, candidate)
		}
		out[i] = v
	}
	return out
}

func TestForestGrid(t *testing.T) {
	tests := []struct {
		name      string
		nFeatures int
		want      []int
	}{
		{"52 features", 52, []int{3, 7, 14}},
		{"4 features", 4, []int{1, 2, 4}},
		{"2 features", 2, []int{1, 2}},
		{"1 feature", 1, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gridInts(t, forestGrid(tt.nFeatures), "max_features")
			if len(got) != len(tt.want) {
				t.Fatalf("Grid size = %d, want %d (%v)", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Candidate %d mtry = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBoostingGrid(t *testing.T) {
	grid := boostingGrid(52)
	if len(grid) != 9 {
		t.Fatalf("Expected 9 candidates, got %d", len(grid))
	}

	rounds := gridInts(t, grid, "n_estimators")
	depths := gridInts(t, grid, "max_depth")
	if rounds[0] != 50 || depths[0] != 1 {
		t.Errorf("First candidate = (%d, %d), want (50, 1)", rounds[0], depths[0])
	}
	if rounds[8] != 150 || depths[8] != 3 {
		t.Errorf("Last candidate = (%d, %d), want (150, 3)", rounds[8], depths[8])
	}
}

func TestNaiveBayesGrid(t *testing.T) {
	grid := naiveBayesGrid(52)
	if len(grid) != 3 {
		t.Fatalf("Expected 3 candidates, got %d", len(grid))
	}
	want := []float64{1e-9, 1e-6, 1e-3}
	for i, candidate := range grid {
		if candidate["var_smoothing"].(float64) != want[i] {
			t.Errorf("Candidate %d smoothing = %v, want %v", i, candidate["var_smoothing"], want[i])
		}
	}
}

func TestLDAGrid(t *testing.T) {
	grid := ldaGrid(52)
	if len(grid) != 1 || len(grid[0]) != 0 {
		t.Errorf("LDA grid should hold one empty candidate, got %v", grid)
	}
}

func TestDefaultFamilyFactories(t *testing.T) {
	for _, fam := range DefaultFamilies() {
		t.Run(fam.Name, func(t *testing.T) {
			grid := fam.Grid(52)
			if len(grid) == 0 {
				t.Fatal("Empty grid")
			}
			clf, err := fam.New(grid[0], 42)
			if err != nil {
				t.Fatalf("Factory failed: %v", err)
			}
			if clf == nil {
				t.Fatal("Factory returned nil estimator")
			}
			if clf.IsFitted() {
				t.Error("Fresh estimator should not be fitted")
			}
		})
	}
}

func TestForestFactoryAppliesParams(t *testing.T) {
	clf, err := newForest(map[string]interface{}{"max_features": 7}, 42)
	if err != nil {
		t.Fatalf("Factory failed: %v", err)
	}
	params := clf.(*ensemble.RandomForestClassifier).GetParams()
	if params["max_features"].(int) != 7 {
		t.Errorf("max_features = %v, want 7", params["max_features"])
	}
}

func TestBoostingFactoryAppliesParams(t *testing.T) {
	clf, err := newBoosting(map[string]interface{}{"n_estimators": 50, "max_depth": 2}, 42)
	if err != nil {
		t.Fatalf("Factory failed: %v", err)
	}
	params := clf.(*ensemble.GradientBoostingClassifier).GetParams()
	if params["n_estimators"].(int) != 50 {
		t.Errorf("n_estimators = %v, want 50", params["n_estimators"])
	}
	if params["max_depth"].(int) != 2 {
		t.Errorf("max_depth = %v, want 2", params["max_depth"])
	}
	if params["learning_rate"].(float64) != 0.1 {
		t.Errorf("learning_rate = %v, want the fixed 0.1", params["learning_rate"])
	}
}

func TestNaiveBayesFactoryAppliesParams(t *testing.T) {
	clf, err := newNaiveBayes(map[string]interface{}{"var_smoothing": 1e-3}, 42)
	if err != nil {
		t.Fatalf("Factory failed: %v", err)
	}
	params := clf.(*naive_bayes.GaussianNB).GetParams()
	if params["var_smoothing"].(float64) != 1e-3 {
		t.Errorf("var_smoothing = %v, want 1e-3", params["var_smoothing"])
	}
}

func TestFactoriesRejectBadTypes(t *testing.T) {
	if _, err := newForest(map[string]interface{}{"max_features": "lots"}, 42); err == nil {
		t.Error("Forest factory should reject a string mtry")
	}
	if _, err := newBoosting(map[string]interface{}{"n_estimators": "many"}, 42); err == nil {
		t.Error("Boosting factory should reject a string round count")
	}
	if _, err := newNaiveBayes(map[string]interface{}{"var_smoothing": 3}, 42); err == nil {
		t.Error("Naive Bayes factory should reject an integer smoothing")
	}
}

func TestAsInt(t *testing.T) {
	if v, ok := asInt(7); !ok || v != 7 {
		t.Errorf("asInt(int) = %d, %v", v, ok)
	}
	if v, ok := asInt(int64(7)); !ok || v != 7 {
		t.Errorf("asInt(int64) = %d, %v", v, ok)
	}
	if v, ok := asInt(7.0); !ok || v != 7 {
		t.Errorf("asInt(float64) = %d, %v", v, ok)
	}
	if _, ok := asInt("7"); ok {
		t.Error("asInt(string) should fail")
	}
}
