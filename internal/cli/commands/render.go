package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	pretty "github.com/jedib0t/go-pretty/v6/table"

	"github.com/edp-labs/dataops/internal/table"
)

// sortRowsByFirstColumn orders rows for stable listings.
func sortRowsByFirstColumn(tbl *table.Table) {
	sort.Slice(tbl.Rows, func(i, j int) bool { return tbl.Rows[i][0] < tbl.Rows[j][0] })
}

// renderTable writes a table in the requested output format.
func renderTable(w io.Writer, tbl *table.Table, format string) error {
	switch format {
	case "json":
		return renderJSON(w, tbl)
	case "csv":
		return tbl.WriteCSV(w)
	case "md", "markdown":
		writer := newPrettyWriter(w, tbl)
		writer.RenderMarkdown()
		return nil
	default:
		if tbl.NumRows() == 0 {
			_, _ = fmt.Fprintln(w, "(0 rows)")
			return nil
		}
		writer := newPrettyWriter(w, tbl)
		writer.Render()
		_, _ = fmt.Fprintf(w, "(%d rows)\n", tbl.NumRows())
		return nil
	}
}

func newPrettyWriter(w io.Writer, tbl *table.Table) pretty.Writer {
	t := pretty.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(pretty.StyleLight)

	header := make(pretty.Row, len(tbl.Header))
	for i, col := range tbl.Header {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, r := range tbl.Rows {
		row := make(pretty.Row, len(r))
		for i, cell := range r {
			row[i] = cell
		}
		t.AppendRow(row)
	}
	return t
}

func renderJSON(w io.Writer, tbl *table.Table) error {
	results := make([]map[string]string, 0, tbl.NumRows())
	for _, row := range tbl.Rows {
		m := make(map[string]string, len(tbl.Header))
		for i, col := range tbl.Header {
			m[col] = row[i]
		}
		results = append(results, m)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
