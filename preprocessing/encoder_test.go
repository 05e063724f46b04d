package preprocessing

import (
	"testing"

	"github.com/liftlab/repform/pkg/errors"
)

func TestLabelEncoderFit(t *testing.T) {
	encoder := NewLabelEncoder()
	if err := encoder.Fit([]string{"B", "A", "E", "A", "C", "D"}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	// クラスは辞書順
	want := []string{"A", "B", "C", "D", "E"}
	if len(encoder.Classes) != len(want) {
		t.Fatalf("Classes = %v, want %v", encoder.Classes, want)
	}
	for i, class := range want {
		if encoder.Classes[i] != class {
			t.Errorf("Classes[%d] = %s, want %s", i, encoder.Classes[i], class)
		}
	}
	if encoder.NClasses() != 5 {
		t.Errorf("NClasses = %d, want 5", encoder.NClasses())
	}
}

func TestLabelEncoderOrderIndependent(t *testing.T) {
	// 同じクラス集合なら出現順に関わらず同じ符号化になる
	first := NewLabelEncoder()
	second := NewLabelEncoder()
	if err := first.Fit([]string{"E", "D", "C", "B", "A"}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if err := second.Fit([]string{"A", "A", "B", "C", "D", "E", "E"}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	labels := []string{"C", "A", "E"}
	a, err := first.Transform(labels)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	b, err := second.Transform(labels)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("encoding differs at %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestLabelEncoderTransform(t *testing.T) {
	encoder := NewLabelEncoder()
	encoded, err := encoder.FitTransform([]string{"B", "A", "E", "A"})
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	// Fitは{A,B,E}を学習するので B=1, A=0, E=2
	wantEncoded := []int{1, 0, 2, 0}
	if len(encoded) != len(wantEncoded) {
		t.Fatalf("encoded = %v, want %v", encoded, wantEncoded)
	}
	for i := range wantEncoded {
		if encoded[i] != wantEncoded[i] {
			t.Errorf("encoded[%d] = %d, want %d", i, encoded[i], wantEncoded[i])
		}
	}

	decoded, err := encoder.InverseTransform(encoded)
	if err != nil {
		t.Fatalf("InverseTransform failed: %v", err)
	}
	original := []string{"B", "A", "E", "A"}
	for i := range original {
		if decoded[i] != original[i] {
			t.Errorf("decoded[%d] = %s, want %s", i, decoded[i], original[i])
		}
	}
}

func TestLabelEncoderUnknownLabel(t *testing.T) {
	encoder := NewLabelEncoder()
	if err := encoder.Fit([]string{"A", "B"}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	_, err := encoder.Transform([]string{"A", "Z"})
	if err == nil {
		t.Fatal("Transform with unknown label should fail")
	}
	var valErr *errors.ValueError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValueError, got %T", err)
	}
}

func TestLabelEncoderMissingLabel(t *testing.T) {
	encoder := NewLabelEncoder()
	if err := encoder.Fit([]string{"A", "", "B"}); err == nil {
		t.Fatal("Fit with missing label should fail")
	}
}

func TestLabelEncoderNotFitted(t *testing.T) {
	encoder := NewLabelEncoder()
	_, err := encoder.Transform([]string{"A"})
	if err == nil {
		t.Fatal("Transform before Fit should fail")
	}
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Fatalf("expected NotFittedError, got %T", err)
	}

	if _, err := encoder.InverseTransform([]int{0}); err == nil {
		t.Fatal("InverseTransform before Fit should fail")
	}
}

func TestLabelEncoderEmptyInput(t *testing.T) {
	encoder := NewLabelEncoder()
	if err := encoder.Fit(nil); err == nil {
		t.Fatal("Fit with empty input should fail")
	}
}

func TestLabelEncoderTransformVector(t *testing.T) {
	encoder := NewLabelEncoder()
	if err := encoder.Fit([]string{"A", "B", "E"}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	y, err := encoder.TransformVector([]string{"E", "A", "B", "B"})
	if err != nil {
		t.Fatalf("TransformVector failed: %v", err)
	}
	rows, cols := y.Dims()
	if rows != 4 || cols != 1 {
		t.Fatalf("Dims = (%d, %d), want (4, 1)", rows, cols)
	}
	want := []float64{2, 0, 1, 1}
	for i, v := range want {
		if y.At(i, 0) != v {
			t.Errorf("y[%d] = %v, want %v", i, y.At(i, 0), v)
		}
	}
}

func TestLabelEncoderInverseTransformRange(t *testing.T) {
	encoder := NewLabelEncoder()
	if err := encoder.Fit([]string{"A", "B"}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	for _, index := range []int{-1, 2} {
		if _, err := encoder.InverseTransform([]int{index}); err == nil {
			t.Errorf("index %d: InverseTransform should fail", index)
		}
	}
}
