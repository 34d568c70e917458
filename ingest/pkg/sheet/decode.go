// Package sheet decodes the sales workbooks into tables.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/malbeclabs/salesdash/ingest/pkg/schema"
	"github.com/malbeclabs/salesdash/ingest/pkg/source"
	"github.com/malbeclabs/salesdash/ingest/pkg/table"
)

var (
	// ErrNotFound is returned when an input file is missing.
	ErrNotFound = source.ErrNotFound
	// ErrParse is returned when an input file cannot be decoded.
	ErrParse = errors.New("parse error")
)

// LoadError reports a failure to load one input file.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Decode reads one file into a table. The format is chosen by extension:
// .csv is comma separated text, anything else is treated as an xlsx workbook.
func Decode(name string, r io.Reader, in schema.Source) (*table.Table, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		records, err = readCSV(r)
	default:
		records, err = readXLSX(r, in.Sheet)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return build(name, records, in.SkipRows)
}

func readXLSX(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	// Raw values keep dates as serial numbers instead of locale formatted text.
	return f.GetRows(sheet, excelize.Options{RawCellValue: true})
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	return cr.ReadAll()
}

// build turns raw records into a typed table. skip rows are discarded above
// the header; fully blank data rows are dropped.
func build(name string, records [][]string, skip int) (*table.Table, error) {
	if skip >= len(records) {
		return nil, fmt.Errorf("%w: %s has %d rows, header expected after %d", ErrParse, name, len(records), skip)
	}
	header := records[skip]
	if isBlank(header) {
		return nil, fmt.Errorf("%w: %s: header row %d is empty", ErrParse, name, skip+1)
	}

	width := len(header)
	for _, rec := range records[skip+1:] {
		width = max(width, len(rec))
	}
	columns := make([]string, width)
	for i := range columns {
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			columns[i] = header[i]
		} else {
			columns[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	t := table.New(name, columns...)
	for _, rec := range records[skip+1:] {
		if isBlank(rec) {
			continue
		}
		row := make([]table.Value, width)
		for i, cell := range rec {
			row[i] = table.Parse(cell)
		}
		t.Append(row...)
	}
	return t, nil
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
