// Package diff computes row-level changes between two tabular snapshots.
//
// Two modes exist. When both snapshots carry the configured key column,
// rows are matched by key and changes are classified as added, deleted, or
// modified. Without a key column the fallback compares whole-row content
// hashes, which can only report added and deleted: an edited row shows up
// as a delete of the old content plus an add of the new content.
package diff

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/edp-labs/dataops/internal/table"
)

// Mode identifies how a diff was computed.
type Mode string

const (
	// ModeKeyed matches rows by a stable key column.
	ModeKeyed Mode = "keyed"
	// ModeContent matches rows by whole-row content hash.
	ModeContent Mode = "content"
)

// RowChange is a modified row under keyed diffing.
type RowChange struct {
	Key    string
	Before []string
	After  []string
}

// Changes is the result of comparing an original snapshot against an
// edited one.
type Changes struct {
	Mode     Mode
	Header   []string
	Added    [][]string
	Deleted  [][]string
	Modified []RowChange
}

// Empty reports whether no changes were detected.
func (c *Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Deleted) == 0 && len(c.Modified) == 0
}

// Tables computes changes between original and edited. keyColumn selects
// keyed mode when present in both tables; pass "" to force content mode.
// Rows with an empty key cell (e.g. rows added in the editor before a
// row_id is assigned) fall back to the added set.
func Tables(original, edited *table.Table, keyColumn string) *Changes {
	if keyColumn != "" && original.HasColumn(keyColumn) && edited.HasColumn(keyColumn) {
		return keyed(original, edited, keyColumn)
	}
	return content(original, edited)
}

func keyed(original, edited *table.Table, keyColumn string) *Changes {
	c := &Changes{Mode: ModeKeyed, Header: append([]string(nil), edited.Header...)}
	oi := original.ColumnIndex(keyColumn)
	ei := edited.ColumnIndex(keyColumn)

	origByKey := make(map[string][]string, len(original.Rows))
	for _, row := range original.Rows {
		if k := row[oi]; k != "" {
			origByKey[k] = row
		}
	}

	seen := make(map[string]bool, len(edited.Rows))
	for _, row := range edited.Rows {
		k := row[ei]
		if k == "" {
			c.Added = append(c.Added, row)
			continue
		}
		before, ok := origByKey[k]
		if !ok {
			c.Added = append(c.Added, row)
			continue
		}
		seen[k] = true
		if hashRow(before) != hashRow(row) {
			c.Modified = append(c.Modified, RowChange{Key: k, Before: before, After: row})
		}
	}

	// Originals whose key never appeared in the edited snapshot are
	// deletions. Empty-key originals cannot be matched and count as
	// deleted too.
	for _, row := range original.Rows {
		if k := row[oi]; k == "" || !seen[k] {
			c.Deleted = append(c.Deleted, row)
		}
	}
	return c
}

func content(original, edited *table.Table) *Changes {
	c := &Changes{Mode: ModeContent, Header: append([]string(nil), edited.Header...)}

	origCount := make(map[string]int, len(original.Rows))
	for _, row := range original.Rows {
		origCount[hashRow(row)]++
	}
	editCount := make(map[string]int, len(edited.Rows))
	for _, row := range edited.Rows {
		editCount[hashRow(row)]++
	}

	for _, row := range edited.Rows {
		h := hashRow(row)
		if origCount[h] > 0 {
			origCount[h]--
			continue
		}
		c.Added = append(c.Added, row)
	}
	for _, row := range original.Rows {
		h := hashRow(row)
		if editCount[h] > 0 {
			editCount[h]--
			continue
		}
		c.Deleted = append(c.Deleted, row)
	}
	return c
}

// hashRow hashes the cell contents with a field separator that cannot be
// produced by joining adjacent cells.
func hashRow(row []string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(row, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}
