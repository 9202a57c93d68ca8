// Package loader reads simulation result tables into untyped RawRecords.
// It preserves input order and performs no type coercion beyond what the
// file format itself declares.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dshills/simcheck/internal/schema"
)

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("loader: input has no header row")

// Load reads the file at path, choosing the format by extension: .xlsx is
// read as a workbook (first sheet), anything else as CSV.
func Load(path string) ([]schema.RawRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("loader: open %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f)
	}
}

// ReadCSV reads a CSV table with a header row. Every non-empty cell becomes
// a text value, including numeric-looking ones; blank cells become empty
// values. Short rows are padded with empty values. A record's Row is its
// line offset from the header, so skipped blank lines still count.
func ReadCSV(r io.Reader) ([]schema.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("loader: csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	headerLine, _ := cr.FieldPos(0)
	columns := headerKeys(header)

	var records []schema.RawRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("loader: csv: %w", err)
		}
		if isBlank(row) {
			continue
		}
		line, _ := cr.FieldPos(0)
		records = append(records, buildRecord(line-headerLine, columns, row, func(_ int, cell string) schema.RawValue {
			return textValue(cell)
		}))
	}
	return records, nil
}

// LoadXLSX reads the first sheet of a workbook. Cells the workbook stores
// as numbers become numeric values; other non-empty cells become text.
// A record's Row is its sheet row minus the header row.
func LoadXLSX(path string) ([]schema.RawRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("loader: read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 || isBlank(rows[0]) {
		return nil, ErrNoHeader
	}
	columns := headerKeys(rows[0])

	var records []schema.RawRecord
	for i := 1; i < len(rows); i++ {
		if isBlank(rows[i]) {
			continue
		}
		sheetRow := i + 1
		records = append(records, buildRecord(i, columns, rows[i], func(col int, cell string) schema.RawValue {
			if strings.TrimSpace(cell) == "" {
				return schema.Empty()
			}
			name, err := excelize.CoordinatesToCellName(col+1, sheetRow)
			if err != nil {
				return schema.Text(cell)
			}
			typ, err := f.GetCellType(sheet, name)
			if err != nil {
				return schema.Text(cell)
			}
			return xlsxValue(typ, cell)
		}))
	}
	return records, nil
}

// xlsxValue maps a stored cell to a RawValue. Cells without an explicit
// type default to numeric in the file format, so they are numbers when the
// stored text is one.
func xlsxValue(typ excelize.CellType, cell string) schema.RawValue {
	switch typ {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			return schema.Number(v)
		}
	}
	return schema.Text(cell)
}

func buildRecord(row int, columns []string, cells []string, value func(col int, cell string) schema.RawValue) schema.RawRecord {
	fields := make(map[string]schema.RawValue, len(columns))
	for i, key := range columns {
		if key == "" {
			continue
		}
		if i >= len(cells) {
			fields[key] = schema.Empty()
			continue
		}
		fields[key] = value(i, cells[i])
	}
	return schema.RawRecord{Row: row, Fields: fields}
}

// headerKeys lower-cases and trims header cells. Blank headers are named
// by position; repeated headers after the first are ignored (empty key).
func headerKeys(header []string) []string {
	keys := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if key == "" {
			key = fmt.Sprintf("column_%d", i+1)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		keys[i] = key
	}
	return keys
}

func textValue(cell string) schema.RawValue {
	if strings.TrimSpace(cell) == "" {
		return schema.Empty()
	}
	return schema.Text(cell)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
