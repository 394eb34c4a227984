package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp-labs/dataops/internal/table"
)

func mkTable(t *testing.T, header []string, rows ...[]string) *table.Table {
	t.Helper()
	tab := table.New(header...)
	for _, r := range rows {
		require.NoError(t, tab.Append(r))
	}
	return tab
}

func TestContentDiffIdentity(t *testing.T) {
	tab := mkTable(t, []string{"name", "score"},
		[]string{"alice", "9"},
		[]string{"bob", "7"},
	)
	c := Tables(tab, tab.Clone(), "")
	assert.Equal(t, ModeContent, c.Mode)
	assert.True(t, c.Empty(), "diffing a table against itself must be empty")
}

func TestContentDiffEmptyOriginal(t *testing.T) {
	empty := mkTable(t, []string{"name"})
	edited := mkTable(t, []string{"name"}, []string{"alice"}, []string{"bob"})

	c := Tables(empty, edited, "")
	assert.Len(t, c.Added, 2)
	assert.Empty(t, c.Deleted)

	// Symmetric case.
	c = Tables(edited, empty, "")
	assert.Empty(t, c.Added)
	assert.Len(t, c.Deleted, 2)
}

func TestContentDiffEditIsDeletePlusAdd(t *testing.T) {
	orig := mkTable(t, []string{"name", "score"}, []string{"alice", "9"})
	edit := mkTable(t, []string{"name", "score"}, []string{"alice", "10"})

	c := Tables(orig, edit, "")
	assert.Len(t, c.Added, 1)
	assert.Len(t, c.Deleted, 1)
	assert.Empty(t, c.Modified, "content mode cannot classify modifications")
}

func TestContentDiffDuplicateRows(t *testing.T) {
	orig := mkTable(t, []string{"v"}, []string{"x"}, []string{"x"})
	edit := mkTable(t, []string{"v"}, []string{"x"})

	c := Tables(orig, edit, "")
	assert.Empty(t, c.Added)
	assert.Len(t, c.Deleted, 1, "one of the duplicate rows was removed")
}

func TestKeyedDiff(t *testing.T) {
	orig := mkTable(t, []string{"row_id", "name", "score"},
		[]string{"r1", "alice", "9"},
		[]string{"r2", "bob", "7"},
		[]string{"r3", "carol", "5"},
	)
	edit := mkTable(t, []string{"row_id", "name", "score"},
		[]string{"r1", "alice", "9"}, // unchanged
		[]string{"r2", "bob", "8"},   // modified
		[]string{"", "dave", "6"},    // new row, no id yet
		[]string{"r9", "erin", "4"},  // new row with id
	)

	c := Tables(orig, edit, "row_id")
	assert.Equal(t, ModeKeyed, c.Mode)

	require.Len(t, c.Modified, 1)
	assert.Equal(t, "r2", c.Modified[0].Key)
	assert.Equal(t, []string{"r2", "bob", "7"}, c.Modified[0].Before)
	assert.Equal(t, []string{"r2", "bob", "8"}, c.Modified[0].After)

	require.Len(t, c.Added, 2)
	require.Len(t, c.Deleted, 1)
	assert.Equal(t, []string{"r3", "carol", "5"}, c.Deleted[0])
}

func TestKeyedDiffIdentity(t *testing.T) {
	tab := mkTable(t, []string{"row_id", "name"}, []string{"r1", "alice"})
	c := Tables(tab, tab.Clone(), "row_id")
	assert.True(t, c.Empty())
}

func TestKeyedFallsBackWhenColumnMissing(t *testing.T) {
	orig := mkTable(t, []string{"name"}, []string{"alice"})
	edit := mkTable(t, []string{"name"}, []string{"alice"})

	c := Tables(orig, edit, "row_id")
	assert.Equal(t, ModeContent, c.Mode)
	assert.True(t, c.Empty())
}
