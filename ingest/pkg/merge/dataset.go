package merge

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/malbeclabs/salesdash/ingest/pkg/sales"
	"github.com/malbeclabs/salesdash/ingest/pkg/schema"
	"github.com/malbeclabs/salesdash/ingest/pkg/sheet"
	"github.com/malbeclabs/salesdash/ingest/pkg/source"
	"github.com/malbeclabs/salesdash/ingest/pkg/table"
)

// Dataset is the merged sales table. It is built once and never modified, so
// it is safe to share between goroutines.
type Dataset struct {
	id       string
	loadedAt time.Time
	rows     []sales.Row
	table    *table.Table
	report   Report
}

// NewDataset wraps already typed rows. It is used by tests and by callers
// that build rows without workbooks.
func NewDataset(id string, loadedAt time.Time, rows []sales.Row) *Dataset {
	return &Dataset{id: id, loadedAt: loadedAt, rows: rows, report: Report{Rows: len(rows)}}
}

// All yields every row in load order.
func (d *Dataset) All() iter.Seq[sales.Row] { return sales.Slice(d.rows) }

func (d *Dataset) Len() int            { return len(d.rows) }
func (d *Dataset) ID() string          { return d.id }
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }
func (d *Dataset) Report() Report      { return d.report }

// Table returns the merged table with every source column. Callers must not
// modify it. It is nil for datasets created with NewDataset.
func (d *Dataset) Table() *table.Table { return d.table }

type BuildConfig struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	Source source.Source
	Schema schema.Schema
}

func (cfg *BuildConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Source == nil {
		return errors.New("source is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return cfg.Schema.Validate()
}

// Build loads every input, merges them and returns the dataset.
func Build(ctx context.Context, cfg BuildConfig) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := cfg.Clock.Now()

	loader, err := sheet.NewLoader(sheet.LoaderConfig{Logger: cfg.Logger, Source: cfg.Source, Schema: cfg.Schema})
	if err != nil {
		return nil, err
	}
	wb, err := loader.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	cfg.Logger.Debug("merge: inputs decoded", "counts", wb.String())

	res, err := Merge(wb, cfg.Schema)
	if err != nil {
		return nil, err
	}
	rows, err := Project(res, cfg.Schema.Columns)
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		id:       uuid.NewString(),
		loadedAt: cfg.Clock.Now(),
		rows:     rows,
		table:    res.Table,
		report:   res.Report,
	}
	cfg.Logger.Info("merge: dataset ready",
		"id", d.id,
		"rows", d.Len(),
		"year_mismatches", res.Report.YearMismatches,
		"duration", cfg.Clock.Since(start))
	if !res.Report.Clean() {
		cfg.Logger.Warn("merge: dataset has unmatched keys or year mismatches", "report", res.Report.Joins)
	}
	return d, nil
}

// Project converts the merged table into typed rows. Reference columns are
// looked up by name, falling back to the "_y" name a join gives a column that
// also exists in the sales sheets.
func Project(res *Result, cols schema.Columns) ([]sales.Row, error) {
	t := res.Table
	required := func(name string) (int, error) {
		i, err := t.MustIndex(name)
		if err != nil {
			return -1, fmt.Errorf("merge: %w", err)
		}
		return i, nil
	}
	reference := func(name string) (int, error) {
		if i := t.Index(name); i >= 0 {
			return i, nil
		}
		if i := t.Index(name + "_y"); i >= 0 {
			return i, nil
		}
		return -1, fmt.Errorf("merge: %w: %q in %s", ErrMissingColumn, name, t.Name)
	}

	var (
		idx  = make(map[string]int)
		errs []error
	)
	for _, c := range []string{cols.CustomerID, cols.StoreID, cols.SKU, cols.Quantity, cols.UnitPrice, cols.SaleDate, YearColumn, LineTotalColumn} {
		i, err := required(c)
		idx[c] = i
		errs = append(errs, err)
	}
	for _, c := range []string{cols.CustomerName, cols.StoreName, cols.ProductName, cols.Brand, cols.ProductType} {
		i, err := reference(c)
		idx[c] = i
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	saleID := -1
	if cols.SaleID != "" {
		saleID = t.Index(cols.SaleID)
	}

	key := func(v table.Value) string {
		k, _ := v.Key()
		return k
	}
	rows := make([]sales.Row, t.Len())
	for i, r := range t.Rows {
		date, _ := r[idx[cols.SaleDate]].AsTime()
		qty, _ := r[idx[cols.Quantity]].Float()
		price, _ := r[idx[cols.UnitPrice]].Float()
		year, _ := r[idx[YearColumn]].Float()
		total, _ := r[idx[LineTotalColumn]].Float()
		row := sales.Row{
			CustomerID:   key(r[idx[cols.CustomerID]]),
			StoreID:      key(r[idx[cols.StoreID]]),
			SKU:          key(r[idx[cols.SKU]]),
			Quantity:     qty,
			UnitPrice:    price,
			SaleDate:     date,
			Year:         int(year),
			LineTotal:    total,
			CustomerName: r[idx[cols.CustomerName]].String(),
			StoreName:    r[idx[cols.StoreName]].String(),
			ProductName:  r[idx[cols.ProductName]].String(),
			Brand:        r[idx[cols.Brand]].String(),
			ProductType:  r[idx[cols.ProductType]].String(),
		}
		if saleID >= 0 {
			row.SaleID = r[saleID].String()
		}
		if i < len(res.Origins) {
			row.SourceYear = res.Origins[i]
		}
		rows[i] = row
	}
	return rows, nil
}
