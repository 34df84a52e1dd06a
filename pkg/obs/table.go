// Package obs holds the in-memory per-cell metadata table ("obs") that the
// taxonomy builder reads from. Rows are keyed by cell id, columns hold one
// value per cell.
package obs

import (
	"errors"
	"fmt"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrColumnExists   = errors.New("column already exists")
	ErrColumnLength   = errors.New("column length does not match index")
	ErrDuplicateCell  = errors.New("duplicate cell id")
)

// Table is a materialized, column-oriented view of the cell metadata.
// Index holds the cell ids; every column is aligned with it.
type Table struct {
	index   []string
	rows    map[string]int
	columns map[string][]string
	order   []string
}

// NewTable creates an empty table over the given cell ids. Cell ids must be
// unique.
func NewTable(index []string) (*Table, error) {
	rows := make(map[string]int, len(index))
	for i, id := range index {
		if _, ok := rows[id]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCell, id)
		}
		rows[id] = i
	}

	idx := make([]string, len(index))
	copy(idx, index)

	return &Table{
		index:   idx,
		rows:    rows,
		columns: make(map[string][]string),
	}, nil
}

// AddColumn appends a column. values must have one entry per cell.
func (t *Table) AddColumn(name string, values []string) error {
	if _, ok := t.columns[name]; ok {
		return fmt.Errorf("%w: %q", ErrColumnExists, name)
	}
	if len(values) != len(t.index) {
		return fmt.Errorf("%w: %q has %d values, index has %d", ErrColumnLength, name, len(values), len(t.index))
	}

	col := make([]string, len(values))
	copy(col, values)
	t.columns[name] = col
	t.order = append(t.order, name)
	return nil
}

// SetValue sets the value of a column for a single cell, creating the column
// with empty values if needed.
func (t *Table) SetValue(column, cellID, value string) error {
	row, ok := t.rows[cellID]
	if !ok {
		return fmt.Errorf("cell %q not in index", cellID)
	}
	col, ok := t.columns[column]
	if !ok {
		col = make([]string, len(t.index))
		t.columns[column] = col
		t.order = append(t.order, column)
	}
	col[row] = value
	return nil
}

// CellIDs returns the cell ids in table order.
func (t *Table) CellIDs() []string {
	return t.index
}

// Column returns the values of the named column, aligned with CellIDs.
func (t *Table) Column(name string) ([]string, error) {
	col, ok := t.columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return col, nil
}

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

func (t *Table) Len() int {
	return len(t.index)
}
