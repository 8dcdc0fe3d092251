// Package table holds the tabular data model shared by the upload boundary
// and the processing pipeline: an ordered set of columns and rows of scalar
// cell values. Original columns are never overwritten; generated columns are
// appended in the order they are first produced.
package table

import "errors"

// Boundary errors from table loading. These are distinct from pipeline errors
// so the caller can tell a bad upload from a failed run.
var (
	ErrEmptyFile         = errors.New("file contains no data rows")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Row is a mapping from column name to scalar cell value. Ordering lives on
// the owning Table's column list, not on the row.
type Row map[string]interface{}

// Table is an ordered collection of columns and the rows beneath them.
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given column order.
func New(columns []string) *Table {
	return &Table{Columns: append([]string{}, columns...)}
}

// Clone returns a deep copy of the table. Pipeline runs operate on a clone so
// a failed or previewed run never corrupts the uploaded original.
func (t *Table) Clone() *Table {
	clone := New(t.Columns)
	clone.Rows = make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		copied := make(Row, len(row))
		for k, v := range row {
			copied[k] = v
		}
		clone.Rows[i] = copied
	}
	return clone
}

// HasColumn reports whether the table already tracks the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column to the ordering if it is not already present.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// Set stores a cell value on the given row, registering the column if needed.
func (t *Table) Set(rowIdx int, column string, value interface{}) {
	if rowIdx < 0 || rowIdx >= len(t.Rows) {
		return
	}
	t.AddColumn(column)
	t.Rows[rowIdx][column] = value
}

// AppendRow adds a row, registering any columns it introduces.
func (t *Table) AppendRow(row Row) {
	for name := range row {
		t.AddColumn(name)
	}
	t.Rows = append(t.Rows, row)
}
