package dataset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/liftlab/repform/pkg/errors"
)

func TestReadCSV(t *testing.T) {
	input := strings.Join([]string{
		"roll_belt,kurtosis_roll_belt,user_name,classe",
		"1.41,NA,carlitos,A",
		"1.42,#DIV/0!,carlitos,A",
		"1.48,3.5,eurico,B",
	}, "\n")

	table, err := ReadCSV(strings.NewReader(input), "training")
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	if table.NRows() != 3 || table.NCols() != 4 {
		t.Fatalf("shape = (%d, %d), want (3, 4)", table.NRows(), table.NCols())
	}

	roll, err := table.Column("roll_belt")
	if err != nil {
		t.Fatalf("Column failed: %v", err)
	}
	if roll.Type != Numeric {
		t.Errorf("roll_belt type = %v, want numeric", roll.Type)
	}
	if math.Abs(roll.Floats[2]-1.48) > 1e-12 {
		t.Errorf("roll_belt[2] = %v, want 1.48", roll.Floats[2])
	}

	// NA and #DIV/0! are both missing, so the column stays numeric
	kurtosis, _ := table.Column("kurtosis_roll_belt")
	if kurtosis.Type != Numeric {
		t.Fatalf("kurtosis_roll_belt type = %v, want numeric", kurtosis.Type)
	}
	if !math.IsNaN(kurtosis.Floats[0]) || !math.IsNaN(kurtosis.Floats[1]) {
		t.Error("missing tokens not decoded as NaN")
	}
	if math.Abs(kurtosis.Floats[2]-3.5) > 1e-12 {
		t.Errorf("kurtosis_roll_belt[2] = %v, want 3.5", kurtosis.Floats[2])
	}

	user, _ := table.Column("user_name")
	if user.Type != Categorical {
		t.Errorf("user_name type = %v, want categorical", user.Type)
	}
	if user.Strings[2] != "eurico" {
		t.Errorf("user_name[2] = %s, want eurico", user.Strings[2])
	}
}

func TestReadCSVUnnamedHeader(t *testing.T) {
	input := ",user_name,,classe\n1,carlitos,x,A\n"

	table, err := ReadCSV(strings.NewReader(input), "training")
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	names := table.Names()
	if names[0] != "X" {
		t.Errorf("first unnamed column = %s, want X", names[0])
	}
	if names[2] != "V3" {
		t.Errorf("later unnamed column = %s, want V3", names[2])
	}
}

func TestReadCSVMixedColumnWarning(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	input := "mixed\n1.5\nabc\n2.5\n"
	table, err := ReadCSV(strings.NewReader(input), "training")
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	col, _ := table.Column("mixed")
	if col.Type != Categorical {
		t.Fatalf("mixed column type = %v, want categorical", col.Type)
	}
	if col.Strings[1] != "abc" {
		t.Errorf("mixed[1] = %s, want abc", col.Strings[1])
	}

	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	var conv *errors.DataConversionWarning
	if !errors.As(warnings[0], &conv) {
		t.Fatalf("expected DataConversionWarning, got %T", warnings[0])
	}
	if conv.Column != "mixed" {
		t.Errorf("warning column = %s, want mixed", conv.Column)
	}
}

func TestReadCSVPureStringColumnNoWarning(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	input := "user_name\ncarlitos\neurico\n"
	if _, err := ReadCSV(strings.NewReader(input), "training"); err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	if len(warnings) != 0 {
		t.Errorf("pure string column emitted %d warnings, want 0", len(warnings))
	}
}

func TestReadCSVAllMissingColumn(t *testing.T) {
	input := "max_roll_belt\nNA\nNA\nNA\n"
	table, err := ReadCSV(strings.NewReader(input), "training")
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	col, _ := table.Column("max_roll_belt")
	if col.Type != Numeric {
		t.Errorf("all-missing column type = %v, want numeric", col.Type)
	}
	if col.MissingFraction() != 1.0 {
		t.Errorf("MissingFraction = %f, want 1.0", col.MissingFraction())
	}
}

func TestReadCSVRaggedRow(t *testing.T) {
	input := "a,b\n1,2\n3\n"
	if _, err := ReadCSV(strings.NewReader(input), "training"); err == nil {
		t.Error("ReadCSV should fail on a ragged row")
	}
}

func TestReadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	content := "a,b\n1,x\n2,y\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	table, err := ReadCSVFile(path, "testing")
	if err != nil {
		t.Fatalf("ReadCSVFile failed: %v", err)
	}
	if table.NRows() != 2 || table.NCols() != 2 {
		t.Errorf("shape = (%d, %d), want (2, 2)", table.NRows(), table.NCols())
	}

	if _, err := ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv"), "testing"); err == nil {
		t.Error("ReadCSVFile should fail on a missing file")
	}
}

func TestIsMissingToken(t *testing.T) {
	tests := []struct {
		cell string
		want bool
	}{
		{"", true},
		{"NA", true},
		{"#DIV/0!", true},
		{"0", false},
		{"na", false},
		{"NaN", false},
	}

	for _, tt := range tests {
		if got := IsMissingToken(tt.cell); got != tt.want {
			t.Errorf("IsMissingToken(%q) = %v, want %v", tt.cell, got, tt.want)
		}
	}
}
