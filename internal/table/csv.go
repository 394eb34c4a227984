package table

// csv.go - CSV serialization for tabular snapshots

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadCSV parses a CSV document into a Table. The first record is the
// header. Column names are trimmed of surrounding whitespace. Ragged rows
// are rejected by the csv reader.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}
	t := &Table{Header: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+2, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// WriteCSV serializes the table as CSV, header first.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if len(t.Header) > 0 {
		if err := cw.Write(t.Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalCSV returns the CSV serialization as a string.
func (t *Table) MarshalCSV() (string, error) {
	var sb strings.Builder
	if err := t.WriteCSV(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
