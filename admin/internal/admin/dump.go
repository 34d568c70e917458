package admin

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/malbeclabs/salesdash/ingest/pkg/table"
)

// DumpCSV writes the merged table, header first. Nulls are written as empty
// cells and dates as YYYY-MM-DD.
func DumpCSV(w io.Writer, t *table.Table) error {
	if t == nil {
		return errors.New("no merged table to dump")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		for j := range record {
			record[j] = ""
			if j < len(row) {
				record[j] = row[j].String()
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
