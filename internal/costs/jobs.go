package costs

import (
	"fmt"
	"io"
	"strings"

	"github.com/edp-labs/dataops/internal/table"
)

// JobNamesFromCSV reads job names from the named column of a CSV
// stream. Blank cells are skipped and duplicates collapsed, preserving
// first-seen order.
func JobNamesFromCSV(r io.Reader, column string) ([]string, error) {
	tbl, err := table.ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("read job list: %w", err)
	}
	idx := tbl.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("job list: missing column %q", column)
	}
	seen := make(map[string]struct{}, tbl.NumRows())
	var names []string
	for _, row := range tbl.Rows {
		name := strings.TrimSpace(row[idx])
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}
