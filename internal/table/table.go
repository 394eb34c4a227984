// Package table provides the in-memory tabular snapshot that every dataset
// operation works against: an ordered header plus rows of strings, read and
// written as CSV.
package table

import (
	"fmt"
	"strings"
)

// Table is a tabular snapshot. Rows hold one string per header column.
type Table struct {
	Header []string
	Rows   [][]string
}

// New creates an empty table with the given header.
func New(header ...string) *Table {
	return &Table{Header: append([]string(nil), header...)}
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Append adds a row. The row must match the header width.
func (t *Table) Append(row []string) error {
	if len(row) != len(t.Header) {
		return fmt.Errorf("row has %d fields, header has %d", len(row), len(t.Header))
	}
	t.Rows = append(t.Rows, append([]string(nil), row...))
	return nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{Header: append([]string(nil), t.Header...)}
	c.Rows = make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		c.Rows[i] = append([]string(nil), r...)
	}
	return c
}

// Equal reports whether two tables have identical headers and rows,
// including row order.
func (t *Table) Equal(o *Table) bool {
	if o == nil || len(t.Header) != len(o.Header) || len(t.Rows) != len(o.Rows) {
		return false
	}
	for i := range t.Header {
		if t.Header[i] != o.Header[i] {
			return false
		}
	}
	for i := range t.Rows {
		for j := range t.Rows[i] {
			if t.Rows[i][j] != o.Rows[i][j] {
				return false
			}
		}
	}
	return true
}

// Project returns a copy containing only the named columns, in the given
// order. Unknown columns are an error.
func (t *Table) Project(cols ...string) (*Table, error) {
	idx := make([]int, 0, len(cols))
	for _, c := range cols {
		i := t.ColumnIndex(c)
		if i < 0 {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		idx = append(idx, i)
	}
	p := New(cols...)
	for _, r := range t.Rows {
		row := make([]string, len(idx))
		for j, i := range idx {
			row[j] = r[i]
		}
		p.Rows = append(p.Rows, row)
	}
	return p, nil
}

// Drop returns a copy without the named columns. Missing columns are
// ignored.
func (t *Table) Drop(cols ...string) *Table {
	drop := make(map[string]bool, len(cols))
	for _, c := range cols {
		drop[c] = true
	}
	var keep []string
	for _, h := range t.Header {
		if !drop[h] {
			keep = append(keep, h)
		}
	}
	p, _ := t.Project(keep...)
	return p
}

// validateHeader rejects empty and duplicate column names.
func validateHeader(header []string) error {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			return fmt.Errorf("empty column name in header")
		}
		if seen[name] {
			return fmt.Errorf("duplicate column %q in header", name)
		}
		seen[name] = true
	}
	return nil
}
