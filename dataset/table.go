// Package dataset provides the column-oriented Table the pipeline runs on,
// a CSV codec with missing-token handling, and remote fetching.
package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/repform/pkg/errors"
)

// ColumnType distinguishes numeric from categorical storage.
type ColumnType int

const (
	// Numeric columns store float64 values. NaN marks a missing cell.
	Numeric ColumnType = iota
	// Categorical columns store strings. The empty string marks a missing cell.
	Categorical
)

// String returns the column type name used in logs and error messages.
func (t ColumnType) String() string {
	if t == Categorical {
		return "categorical"
	}
	return "numeric"
}

// Column is a single named column. Exactly one of Floats or Strings is
// populated, according to Type.
type Column struct {
	Name    string
	Type    ColumnType
	Floats  []float64
	Strings []string
}

// NewNumericColumn builds a numeric column over the given values.
func NewNumericColumn(name string, values []float64) Column {
	return Column{Name: name, Type: Numeric, Floats: values}
}

// NewCategoricalColumn builds a categorical column over the given values.
func NewCategoricalColumn(name string, values []string) Column {
	return Column{Name: name, Type: Categorical, Strings: values}
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	if c.Type == Categorical {
		return len(c.Strings)
	}
	return len(c.Floats)
}

// IsMissing reports whether cell i holds a missing value.
func (c *Column) IsMissing(i int) bool {
	if c.Type == Categorical {
		return c.Strings[i] == ""
	}
	return math.IsNaN(c.Floats[i])
}

// MissingFraction returns the fraction of missing cells. Empty columns
// report 0.
func (c *Column) MissingFraction() float64 {
	n := c.Len()
	if n == 0 {
		return 0
	}
	missing := 0
	for i := 0; i < n; i++ {
		if c.IsMissing(i) {
			missing++
		}
	}
	return float64(missing) / float64(n)
}

// clone returns a deep copy of the column.
func (c *Column) clone() Column {
	out := Column{Name: c.Name, Type: c.Type}
	if c.Type == Categorical {
		out.Strings = make([]string, len(c.Strings))
		copy(out.Strings, c.Strings)
		return out
	}
	out.Floats = make([]float64, len(c.Floats))
	copy(out.Floats, c.Floats)
	return out
}

// gather returns a copy of the column restricted to the given row indices,
// in index order.
func (c *Column) gather(idx []int) Column {
	out := Column{Name: c.Name, Type: c.Type}
	if c.Type == Categorical {
		out.Strings = make([]string, len(idx))
		for i, r := range idx {
			out.Strings[i] = c.Strings[r]
		}
		return out
	}
	out.Floats = make([]float64, len(idx))
	for i, r := range idx {
		out.Floats[i] = c.Floats[r]
	}
	return out
}

// Table is an ordered collection of equal-length named columns. Tables are
// treated as immutable: every derivation (row subset, projection) copies
// the cells it keeps, so no two tables share mutable state. Callers must
// not modify slices obtained through accessors.
type Table struct {
	name  string
	cols  []Column
	index map[string]int
}

// NewTable builds a table from the given columns. Column names must be
// unique and all columns must have the same length.
func NewTable(name string, cols []Column) (*Table, error) {
	index := make(map[string]int, len(cols))
	nRows := 0
	for i := range cols {
		if cols[i].Name == "" {
			return nil, errors.NewValueError("NewTable", "column name must not be empty")
		}
		if _, dup := index[cols[i].Name]; dup {
			return nil, errors.NewValueError("NewTable", "duplicate column name '"+cols[i].Name+"'")
		}
		index[cols[i].Name] = i
		if i == 0 {
			nRows = cols[i].Len()
			continue
		}
		if cols[i].Len() != nRows {
			return nil, errors.NewValueError("NewTable",
				"column '"+cols[i].Name+"' length does not match the first column")
		}
	}
	return &Table{name: name, cols: cols, index: index}, nil
}

// Name returns the table's name ("training", "validation", "testing").
func (t *Table) Name() string { return t.name }

// WithName returns a view of the same data under a new name.
func (t *Table) WithName(name string) *Table {
	return &Table{name: name, cols: t.cols, index: t.index}
}

// NRows returns the number of rows.
func (t *Table) NRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NCols returns the number of columns.
func (t *Table) NCols() int { return len(t.cols) }

// Names returns the column names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i := range t.cols {
		names[i] = t.cols[i].Name
	}
	return names
}

// NumericNames returns the names of numeric columns in table order.
func (t *Table) NumericNames() []string {
	names := make([]string, 0, len(t.cols))
	for i := range t.cols {
		if t.cols[i].Type == Numeric {
			names = append(names, t.cols[i].Name)
		}
	}
	return names
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column. The returned struct shares the table's
// backing slices and must not be modified.
func (t *Table) Column(name string) (Column, error) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, errors.NewSchemaMismatchError("Table.Column", t.name, name)
	}
	return t.cols[i], nil
}

// ColumnAt returns the column at position i in table order.
func (t *Table) ColumnAt(i int) Column { return t.cols[i] }

// Project returns a new table holding copies of the named columns, in the
// given order. A missing column yields a SchemaMismatchError naming it.
func (t *Table) Project(names []string) (*Table, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		i, ok := t.index[name]
		if !ok {
			return nil, errors.NewSchemaMismatchError("Table.Project", t.name, name)
		}
		cols = append(cols, t.cols[i].clone())
	}
	return NewTable(t.name, cols)
}

// RowSubset returns a new table holding copies of the given rows, in index
// order. Indices must be in range and are not required to be sorted.
func (t *Table) RowSubset(idx []int) (*Table, error) {
	nRows := t.NRows()
	for _, r := range idx {
		if r < 0 || r >= nRows {
			return nil, errors.NewValueError("Table.RowSubset", "row index out of range")
		}
	}
	cols := make([]Column, len(t.cols))
	for i := range t.cols {
		cols[i] = t.cols[i].gather(idx)
	}
	return NewTable(t.name, cols)
}

// Matrix assembles the named numeric columns into a dense row-major matrix.
// An absent column yields a SchemaMismatchError; a categorical column
// yields a ValueError.
func (t *Table) Matrix(names []string) (*mat.Dense, error) {
	nRows := t.NRows()
	if nRows == 0 || len(names) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Table.Matrix")
	}
	out := mat.NewDense(nRows, len(names), nil)
	for j, name := range names {
		i, ok := t.index[name]
		if !ok {
			return nil, errors.NewSchemaMismatchError("Table.Matrix", t.name, name)
		}
		col := &t.cols[i]
		if col.Type != Numeric {
			return nil, errors.NewValueError("Table.Matrix",
				"column '"+name+"' is categorical, expected numeric")
		}
		for r := 0; r < nRows; r++ {
			out.Set(r, j, col.Floats[r])
		}
	}
	return out, nil
}

// Labels returns a copy of the named categorical column's values.
func (t *Table) Labels(name string) ([]string, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, errors.NewSchemaMismatchError("Table.Labels", t.name, name)
	}
	col := &t.cols[i]
	if col.Type != Categorical {
		return nil, errors.NewValueError("Table.Labels",
			"column '"+name+"' is numeric, expected categorical")
	}
	out := make([]string, len(col.Strings))
	copy(out, col.Strings)
	return out, nil
}

// DistinctLabels returns the sorted distinct non-missing values of the
// named categorical column.
func (t *Table) DistinctLabels(name string) ([]string, error) {
	values, err := t.Labels(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := make([]string, 0, 8)
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}
