package table

// system.go - System-managed columns stamped by the save path

import (
	"time"

	"github.com/google/uuid"
)

// System-managed column names. These are set by the save path, never by
// user edits, and are hidden from the editable view.
const (
	ColRowID        = "row_id"
	ColLastModified = "last_modified"
	ColIsActive     = "is_active"
	ColModifiedBy   = "modified_by"
)

// SystemColumns lists every system-managed column.
var SystemColumns = []string{ColRowID, ColLastModified, ColIsActive, ColModifiedBy}

// StripSystem returns the user-visible view of the table: all system
// columns removed.
func (t *Table) StripSystem() *Table {
	return t.Drop(SystemColumns...)
}

// Stamp sets the last_modified, is_active, and modified_by columns on
// every row, adding the columns when absent. The timestamp is rendered as
// RFC 3339 UTC.
func (t *Table) Stamp(user string, at time.Time) *Table {
	s := t.Clone()
	ts := at.UTC().Format(time.RFC3339)
	li := s.ensureColumn(ColLastModified)
	ai := s.ensureColumn(ColIsActive)
	mi := s.ensureColumn(ColModifiedBy)
	for _, row := range s.Rows {
		row[li] = ts
		row[ai] = "true"
		row[mi] = user
	}
	return s
}

// EnsureRowIDs assigns a uuid to every row whose row_id cell is empty,
// adding the column when absent. Existing IDs are preserved so that keyed
// diffing can track rows across edits.
func (t *Table) EnsureRowIDs() *Table {
	s := t.Clone()
	ri := s.ensureColumn(ColRowID)
	for _, row := range s.Rows {
		if row[ri] == "" {
			row[ri] = uuid.New().String()
		}
	}
	return s
}

// ensureColumn returns the index of the named column, appending it (with
// empty cells) when missing.
func (t *Table) ensureColumn(name string) int {
	if i := t.ColumnIndex(name); i >= 0 {
		return i
	}
	t.Header = append(t.Header, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], "")
	}
	return len(t.Header) - 1
}
