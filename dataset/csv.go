package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/liftlab/repform/pkg/errors"
)

// missingTokens are the cell values ReadCSV treats as missing. The sensor
// exports use both "NA" and spreadsheet division artifacts.
var missingTokens = map[string]struct{}{
	"":        {},
	"NA":      {},
	"#DIV/0!": {},
}

// IsMissingToken reports whether a raw CSV cell denotes a missing value.
func IsMissingToken(cell string) bool {
	_, ok := missingTokens[cell]
	return ok
}

// ReadCSV decodes a delimited file into a Table named name. The first
// record is the header. Cells matching a missing token are recorded as
// missing. A column whose every non-missing cell parses as a float becomes
// numeric; otherwise it becomes categorical, and when such a column still
// contains parsable numbers a DataConversionWarning is emitted through the
// warning system.
func ReadCSV(r io.Reader, name string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s header", name)
	}
	names := make([]string, len(header))
	for j, h := range header {
		// Unnamed header cells get positional names. The first column of
		// the sensor exports is an unnamed row index conventionally
		// called X.
		if h == "" {
			if j == 0 {
				h = "X"
			} else {
				h = fmt.Sprintf("V%d", j+1)
			}
		}
		names[j] = h
	}

	cells := make([][]string, len(header))
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s row %d", name, row)
		}
		for j, cell := range record {
			cells[j] = append(cells[j], cell)
		}
		row++
	}

	cols := make([]Column, len(header))
	for j := range cells {
		cols[j] = inferColumn(names[j], cells[j])
	}
	table, err := NewTable(name, cols)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", name)
	}
	return table, nil
}

// ReadCSVFile opens path and decodes it with ReadCSV.
func ReadCSVFile(path, name string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return ReadCSV(f, name)
}

// inferColumn types a column from its raw cells. Numeric wins when every
// non-missing cell parses; a mixed column falls back to categorical with a
// conversion warning naming the first unparsable token.
func inferColumn(name string, raw []string) Column {
	floats := make([]float64, len(raw))
	numericOK := true
	parsed := 0
	firstBad := ""
	for i, cell := range raw {
		if IsMissingToken(cell) {
			floats[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			if numericOK {
				firstBad = cell
			}
			numericOK = false
			continue
		}
		floats[i] = v
		parsed++
	}

	if numericOK {
		return NewNumericColumn(name, floats)
	}

	if parsed > 0 {
		errors.Warn(errors.NewDataConversionWarning(
			name, "numeric", "categorical",
			fmt.Sprintf("unparsable token '%s'", firstBad)))
	}
	values := make([]string, len(raw))
	for i, cell := range raw {
		if IsMissingToken(cell) {
			continue
		}
		values[i] = cell
	}
	return NewCategoricalColumn(name, values)
}
