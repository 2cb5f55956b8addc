// Package dataset reads and writes the tabular survey exports handled by the
// service: delimited text (CSV) and spreadsheets (XLSX).
package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for any file that is neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Format identifies a tabular encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromName infers the format from a file name extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q (expected .csv or .xlsx)", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Table is a header row plus text cells. Every row has len(Header) cells; an
// empty cell is a missing value.
type Table struct {
	Header []string
	Rows   [][]string
}

// NewTable builds a table, padding or truncating rows to the header width.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Header: append([]string(nil), header...)}
	for _, row := range rows {
		t.AppendRow(row)
	}
	return t
}

// AppendRow adds a row normalized to the header width.
func (t *Table) AppendRow(row []string) {
	cells := make([]string, len(t.Header))
	copy(cells, row)
	t.Rows = append(t.Rows, cells)
}

// Len is the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the index of the named column or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Preview returns up to n leading rows.
func (t *Table) Preview(n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

// IsMissing reports whether a cell holds no value.
func IsMissing(cell string) bool {
	return strings.TrimSpace(cell) == ""
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if !IsMissing(cell) {
			return false
		}
	}
	return true
}
