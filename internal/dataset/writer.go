package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// WriteCSV writes the header and rows as comma separated values.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

// WriteXLSX writes the table to the first sheet of a new workbook. Plain
// decimal cells are stored as numbers, everything else as text.
func WriteXLSX(w io.Writer, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := setRow(f, 1, t.Header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, rowNum int, cells []string) error {
	values := make([]interface{}, len(cells))
	for i, cell := range cells {
		if n, ok := numericCell(cell); ok {
			values[i] = n
		} else {
			values[i] = cell
		}
	}

	axis, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("invalid row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheetName, axis, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

// numericCell reports whether cell is a plain decimal that a spreadsheet
// stores and reads back unchanged. Leading zeros, exponents, NaN and Inf stay
// text, as do values with more than 15 significant digits.
func numericCell(cell string) (float64, bool) {
	n, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	if cell == "-0" || strconv.FormatFloat(n, 'f', -1, 64) != cell {
		return 0, false
	}
	digits := strings.TrimLeft(strings.NewReplacer("-", "", ".", "").Replace(cell), "0")
	if len(digits) > 15 {
		return 0, false
	}
	return n, true
}

// WriteFile writes t to path in the format implied by its extension. The
// content goes to a temporary file in the same directory that is renamed into
// place, so readers never see a partial file.
func WriteFile(path string, t *Table) error {
	format, err := FormatFromName(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	switch format {
	case FormatCSV:
		err = WriteCSV(tmp, t)
	case FormatXLSX:
		err = WriteXLSX(tmp, t)
	}
	if err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}
	return nil
}
