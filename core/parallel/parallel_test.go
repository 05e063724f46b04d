package parallel

import (
	"sync/atomic"
	"testing"
)

func TestParallelize(t *testing.T) {
	tests := []struct {
		name  string
		items int
	}{
		{"empty", 0},
		{"single item", 1},
		{"fewer items than cores", 3},
		{"many items", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			visited := make([]int32, tt.items)
			Parallelize(tt.items, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&visited[i], 1)
				}
			})

			for i, v := range visited {
				if v != 1 {
					t.Errorf("index %d visited %d times, want 1", i, v)
				}
			}
		})
	}
}

func TestParallelizeWithWorkers(t *testing.T) {
	// Results written by index must be identical regardless of worker count
	items := 100
	want := make([]float64, items)
	ParallelizeWithWorkers(items, 1, func(start, end int) {
		for i := start; i < end; i++ {
			want[i] = float64(i) * 2.5
		}
	})

	for _, workers := range []int{2, 4, 7, 100} {
		got := make([]float64, items)
		ParallelizeWithWorkers(items, workers, func(start, end int) {
			for i := start; i < end; i++ {
				got[i] = float64(i) * 2.5
			}
		})
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("workers=%d: index %d got %v, want %v", workers, i, got[i], want[i])
			}
		}
	}
}

func TestParallelizeWithWorkersInvalidCount(t *testing.T) {
	// Non-positive worker counts fall back to the CPU count
	var count int32
	ParallelizeWithWorkers(10, 0, func(start, end int) {
		atomic.AddInt32(&count, int32(end-start))
	})
	if count != 10 {
		t.Errorf("processed %d items, want 10", count)
	}
}

func TestParallelizeWithThreshold(t *testing.T) {
	// Below the threshold the callback runs once over the whole range
	var calls int32
	ParallelizeWithThreshold(5, 10, func(start, end int) {
		atomic.AddInt32(&calls, 1)
		if start != 0 || end != 5 {
			t.Errorf("sequential range got (%d, %d), want (0, 5)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("callback ran %d times, want 1", calls)
	}

	// Above the threshold every index is still covered exactly once
	visited := make([]int32, 50)
	ParallelizeWithThreshold(50, 10, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&visited[i], 1)
		}
	})
	for i, v := range visited {
		if v != 1 {
			t.Errorf("index %d visited %d times, want 1", i, v)
		}
	}
}
