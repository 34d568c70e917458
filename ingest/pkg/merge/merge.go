// Package merge joins the decoded workbooks into the single sales table the
// dashboard reads.
package merge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/malbeclabs/salesdash/ingest/pkg/schema"
	"github.com/malbeclabs/salesdash/ingest/pkg/sheet"
	"github.com/malbeclabs/salesdash/ingest/pkg/table"
)

// Derived columns appended to the merged table.
const (
	YearColumn      = "year"
	LineTotalColumn = "line_total"
)

var (
	ErrParse         = sheet.ErrParse
	ErrMissingColumn = table.ErrMissingColumn
)

// Textual date layouts accepted in addition to Excel serial numbers. Slash
// dates are month first unless the schema says otherwise; one-digit days and
// months are accepted either way.
var (
	isoLayouts = []string{
		time.DateOnly,
		time.DateTime,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006/01/02",
	}
	monthFirstLayouts = []string{"1/2/2006", "1/2/2006 15:04:05", "1/2/2006 15:04"}
	dayFirstLayouts   = []string{"2/1/2006", "2/1/2006 15:04:05", "2/1/2006 15:04"}
)

// Result is the merged table plus what the merge observed along the way.
type Result struct {
	Table *table.Table
	// Origins holds, per merged row, the year label of its sales file.
	Origins []int
	Report  Report
}

// Merge concatenates the yearly sales tables and left joins them against the
// customer, store and product registries. Column names are trimmed on every
// input first. The merged table keeps exactly one row per sales row.
func Merge(wb *sheet.Workbooks, sch schema.Schema) (*Result, error) {
	if wb == nil || wb.Customers == nil || wb.Stores == nil || wb.Products == nil {
		return nil, errors.New("merge: incomplete workbooks")
	}
	cols := sch.Columns
	report := Report{Joins: make(map[string]table.JoinStats, 3)}

	yearly := make([]*table.Table, 0, len(wb.Sales))
	var origins []int
	for _, yt := range wb.Sales {
		yt.Table.TrimColumnNames()
		yearly = append(yearly, yt.Table)
		for range yt.Table.Len() {
			origins = append(origins, yt.Year)
		}
		report.Sources = append(report.Sources, SourceStats{File: yt.Table.Name, Year: yt.Year, Rows: yt.Table.Len()})
	}
	salesTable := table.Concat("sales", yearly...)

	wb.Customers.TrimColumnNames()
	wb.Stores.TrimColumnNames()
	wb.Products.TrimColumnNames()

	customers, nameless, err := customerNames(wb.Customers, cols)
	if err != nil {
		return nil, err
	}
	report.NamelessCustomers = nameless

	merged := salesTable
	joins := []struct {
		name  string
		right *table.Table
		key   string
	}{
		{"customers", customers, cols.CustomerID},
		{"stores", wb.Stores, cols.StoreID},
		{"products", wb.Products, cols.SKU},
	}
	for _, j := range joins {
		var stats table.JoinStats
		merged, stats, err = table.LeftJoin(merged, j.right, j.key)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", j.name, err)
		}
		report.Joins[j.name] = stats
	}

	missing, err := deriveColumns(merged, cols, DateParser{DayFirst: sch.DayFirst})
	if err != nil {
		return nil, err
	}
	report.MissingAmounts = missing

	yc := merged.Index(YearColumn)
	for i, row := range merged.Rows {
		year, _ := row[yc].Float()
		if origins[i] != 0 && int(year) != origins[i] {
			report.YearMismatches++
		}
	}
	report.Rows = merged.Len()

	return &Result{Table: merged, Origins: origins, Report: report}, nil
}

// customerNames derives the display name column and narrows the registry to
// the id and the name. A name is null when either part is missing.
func customerNames(t *table.Table, cols schema.Columns) (*table.Table, int, error) {
	first, err := t.MustIndex(cols.FirstName)
	if err != nil {
		return nil, 0, fmt.Errorf("merge customers: %w", err)
	}
	last, err := t.MustIndex(cols.LastName)
	if err != nil {
		return nil, 0, fmt.Errorf("merge customers: %w", err)
	}

	nameless := 0
	name := func(i int) table.Value {
		f, l := t.Rows[i][first], t.Rows[i][last]
		if f.IsNull() || l.IsNull() {
			nameless++
			return table.Null()
		}
		return table.Str(f.String() + " " + l.String())
	}
	if c := t.Index(cols.CustomerName); c >= 0 {
		for i := range t.Rows {
			t.Rows[i][c] = name(i)
		}
	} else {
		t.AddColumn(cols.CustomerName, name)
	}

	out, err := t.Select(cols.CustomerID, cols.CustomerName)
	if err != nil {
		return nil, 0, fmt.Errorf("merge customers: %w", err)
	}
	return out, nameless, nil
}

// deriveColumns parses the sale date in place and appends year and line
// total. The sale date must be present on every row. A row missing its
// quantity or unit price keeps a null line total and is counted.
func deriveColumns(t *table.Table, cols schema.Columns, dates DateParser) (int, error) {
	dc, err := t.MustIndex(cols.SaleDate)
	if err != nil {
		return 0, fmt.Errorf("merge: %w", err)
	}
	qc, err := t.MustIndex(cols.Quantity)
	if err != nil {
		return 0, fmt.Errorf("merge: %w", err)
	}
	pc, err := t.MustIndex(cols.UnitPrice)
	if err != nil {
		return 0, fmt.Errorf("merge: %w", err)
	}

	missing := 0
	years := make([]table.Value, t.Len())
	totals := make([]table.Value, t.Len())
	for i, row := range t.Rows {
		d, err := dates.Parse(row[dc])
		if err != nil {
			return 0, fmt.Errorf("%w: sales row %d: %s: %v", ErrParse, i+1, cols.SaleDate, err)
		}
		row[dc] = table.Time(d)
		years[i] = table.Num(float64(d.Year()))

		if row[qc].IsNull() || row[pc].IsNull() {
			totals[i] = table.Null()
			missing++
			continue
		}
		q, ok := row[qc].Float()
		if !ok {
			return 0, fmt.Errorf("%w: sales row %d: %s: not a number: %q", ErrParse, i+1, cols.Quantity, row[qc].String())
		}
		p, ok := row[pc].Float()
		if !ok {
			return 0, fmt.Errorf("%w: sales row %d: %s: not a number: %q", ErrParse, i+1, cols.UnitPrice, row[pc].String())
		}
		totals[i] = table.Num(q * p)
	}
	t.AddColumn(YearColumn, func(i int) table.Value { return years[i] })
	t.AddColumn(LineTotalColumn, func(i int) table.Value { return totals[i] })
	return missing, nil
}

// DateParser converts date cells to times. Numbers are Excel serial dates in
// the 1900 system.
type DateParser struct {
	// DayFirst reads slash dates as DD/MM/YYYY instead of MM/DD/YYYY.
	DayFirst bool
}

func (p DateParser) Parse(v table.Value) (time.Time, error) {
	switch v.Kind() {
	case table.KindTime:
		t, _ := v.AsTime()
		return t, nil
	case table.KindNumber:
		f, _ := v.Float()
		return excelize.ExcelDateToTime(f, false)
	case table.KindString:
		s := strings.TrimSpace(v.String())
		slash := monthFirstLayouts
		if p.DayFirst {
			slash = dayFirstLayouts
		}
		for _, layouts := range [][]string{isoLayouts, slash} {
			for _, layout := range layouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t, nil
				}
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	default:
		return time.Time{}, errors.New("missing date")
	}
}

// ParseDate parses with the default month-first reading of slash dates.
func ParseDate(v table.Value) (time.Time, error) {
	return DateParser{}.Parse(v)
}
