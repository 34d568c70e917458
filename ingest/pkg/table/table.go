// Package table holds the in-memory tabular primitives used while merging the
// sales workbooks: typed cells, row-union concatenation and left outer joins.
//
// Null handling is explicit. A column missing from one side of a union is
// filled with nulls, and a left row without a match keeps null for every
// right-hand column. Nothing is dropped or duplicated.
package table

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMissingColumn = errors.New("missing column")

// Row is one record, positionally aligned with Table.Columns.
type Row []Value

// Table is a row-oriented table.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// New returns an empty table with the given columns.
func New(name string, columns ...string) *Table {
	return &Table{Name: name, Columns: append([]string(nil), columns...)}
}

// Append adds a row, padding or truncating it to the column count.
func (t *Table) Append(values ...Value) {
	row := make(Row, len(t.Columns))
	copy(row, values)
	t.Rows = append(t.Rows, row)
}

func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of a column, or -1.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// MustIndex is Index but returns ErrMissingColumn when the column is absent.
func (t *Table) MustIndex(column string) (int, error) {
	i := t.Index(column)
	if i < 0 {
		return -1, fmt.Errorf("%w: %q in %s", ErrMissingColumn, column, t.Name)
	}
	return i, nil
}

// Get returns the cell at row i for column, or null when the column is absent.
func (t *Table) Get(i int, column string) Value {
	c := t.Index(column)
	if c < 0 || i < 0 || i >= len(t.Rows) {
		return Null()
	}
	return t.Rows[i][c]
}

// Column returns a copy of every cell in a column.
func (t *Table) Column(column string) ([]Value, error) {
	c, err := t.MustIndex(column)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[c]
	}
	return out, nil
}

// TrimColumnNames strips surrounding whitespace from every column name.
func (t *Table) TrimColumnNames() {
	for i, c := range t.Columns {
		t.Columns[i] = strings.TrimSpace(c)
	}
}

// AddColumn appends a derived column computed per row.
func (t *Table) AddColumn(name string, fn func(i int) Value) {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], fn(i))
	}
}

// Select returns a new table holding only the named columns, in order.
func (t *Table) Select(columns ...string) (*Table, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		j, err := t.MustIndex(c)
		if err != nil {
			return nil, err
		}
		idx[i] = j
	}
	out := New(t.Name, columns...)
	out.Rows = make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		r := make(Row, len(idx))
		for k, j := range idx {
			r[k] = row[j]
		}
		out.Rows[i] = r
	}
	return out, nil
}
