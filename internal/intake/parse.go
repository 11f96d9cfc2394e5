package intake

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/caseflow/caseflow/internal/caserec"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for file extensions other than .csv and
// .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrEmptyFile is returned when the file has no header row.
var ErrEmptyFile = errors.New("file has no header row")

// Parse dispatches on the file extension and returns one field map per data
// row, keyed by the cleaned header names.
func Parse(fileName string, r io.Reader) ([]map[string]string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return ParseCSV(r)
	case ".xlsx":
		return ParseXLSX(r)
	default:
		return nil, fmt.Errorf("%s: %w", fileName, ErrUnsupportedFormat)
	}
}

// ParseCSV reads a CSV stream into header-keyed row maps. The stream is
// BOM-stripped and UTF-8 sanitized first; header cells are cleaned of
// whitespace and invisible characters. Short records leave the missing
// trailing fields empty.
func ParseCSV(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(sanitizedReader(r))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	keys := cleanHeader(header)

	var rows []map[string]string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, rowMap(keys, record))
	}
	return rows, nil
}

// ParseXLSX reads the first sheet of an XLSX workbook into header-keyed row
// maps, using the same header cleaning as CSV.
func ParseXLSX(r io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(cells) == 0 {
		return nil, ErrEmptyFile
	}

	keys := cleanHeader(cells[0])
	rows := make([]map[string]string, 0, len(cells)-1)
	for _, record := range cells[1:] {
		rows = append(rows, rowMap(keys, record))
	}
	return rows, nil
}

func cleanHeader(header []string) []string {
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = caserec.CleanKey(h)
	}
	return keys
}

// rowMap pairs header keys with record cells. Empty header cells are
// skipped; a record shorter than the header yields empty values for the
// remaining keys.
func rowMap(keys, record []string) map[string]string {
	m := make(map[string]string, len(keys))
	for i, k := range keys {
		if k == "" {
			continue
		}
		if i < len(record) {
			m[k] = record[i]
		} else {
			m[k] = ""
		}
	}
	return m
}
