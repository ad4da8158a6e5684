// Package tabular holds the loosely-typed table that flows from remote
// endpoints into the validation and staging layers. Conversion into typed
// records happens once, at the ingestion boundary.
package tabular

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a rectangular, string-valued dataset with named columns.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New creates an empty table with the given columns.
func New(columns []string) *Table {
	return &Table{Columns: columns}
}

// ColIndex returns the index of the named column, or -1 if absent.
// Matching is case-insensitive because civic portals are inconsistent about
// header casing.
func (t *Table) ColIndex(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// Value returns the cell at (row, column name). Missing columns and ragged
// rows yield the empty string.
func (t *Table) Value(row int, column string) string {
	idx := t.ColIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if idx >= len(r) {
		return ""
	}
	return r[idx]
}

// SetValue writes the cell at (row, column name). Unknown columns are ignored.
func (t *Table) SetValue(row int, column, value string) {
	idx := t.ColIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return
	}
	r := t.Rows[row]
	if idx < len(r) {
		r[idx] = value
	}
}

// AppendRow adds a row, padding or truncating to the column count.
func (t *Table) AppendRow(row []string) {
	if len(row) < len(t.Columns) {
		padded := make([]string, len(t.Columns))
		copy(padded, row)
		row = padded
	} else if len(row) > len(t.Columns) {
		row = row[:len(t.Columns)]
	}
	t.Rows = append(t.Rows, row)
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.Rows) }

// ReadCSV parses a header-first CSV stream into a table.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("tabular: empty csv")
	}
	if err != nil {
		return nil, eris.Wrap(err, "tabular: read header")
	}

	t := New(header)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "tabular: read row")
		}
		t.AppendRow(record)
	}
	return t, nil
}

// WriteCSV writes the table as header-first CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return eris.Wrap(err, "tabular: write header")
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return eris.Wrap(err, "tabular: write row")
		}
	}
	writer.Flush()
	return eris.Wrap(writer.Error(), "tabular: flush")
}
