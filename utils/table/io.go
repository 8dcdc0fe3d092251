package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ds24m038/GenAI-Table-Processing/utils/template"
)

// LoadFile reads a tabular file, dispatching on extension. The first row is
// taken as the header. Returns ErrEmptyFile when no data rows follow the
// header and ErrUnsupportedFormat for unrecognized extensions.
func LoadFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("error opening %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// SaveFile writes the table back out, dispatching on extension. The export
// preserves the table's column order: original columns first, generated
// columns in the order they were first produced.
func (t *Table) SaveFile(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("error creating %s: %w", path, err)
		}
		defer f.Close()
		return t.WriteCSV(f)
	case ".xlsx":
		return t.writeXLSX(path)
	default:
		return fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// ReadCSV parses CSV data with the first record as the header.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error parsing CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, ErrEmptyFile
	}

	t := New(records[0])
	for _, record := range records[1:] {
		row := make(Row, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteCSV serializes the table as CSV in column order.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("error writing CSV header: %w", err)
	}
	for _, row := range t.Rows {
		record := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			record[i] = template.Stringify(row[col])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("error writing CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// readXLSX loads the first sheet of an Excel workbook.
func readXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("error reading sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyFile
	}

	t := New(rows[0])
	for _, record := range rows[1:] {
		row := make(Row, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// writeXLSX saves the table as a single-sheet Excel workbook.
func (t *Table) writeXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("error writing header row: %w", err)
	}

	for rowIdx, row := range t.Rows {
		record := make([]interface{}, len(t.Columns))
		for i, col := range t.Columns {
			record[i] = template.Stringify(row[col])
		}
		cell, err := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err != nil {
			return fmt.Errorf("error computing cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &record); err != nil {
			return fmt.Errorf("error writing row %d: %w", rowIdx+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("error saving %s: %w", path, err)
	}
	return nil
}
