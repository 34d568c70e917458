package sheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/malbeclabs/salesdash/ingest/pkg/schema"
	"github.com/malbeclabs/salesdash/ingest/pkg/source"
	"github.com/malbeclabs/salesdash/ingest/pkg/table"
)

type LoaderConfig struct {
	Logger *slog.Logger
	Source source.Source
	Schema schema.Schema
}

func (cfg *LoaderConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Source == nil {
		return errors.New("source is required")
	}
	return cfg.Schema.Validate()
}

type Loader struct {
	log *slog.Logger
	cfg LoaderConfig
}

func NewLoader(cfg LoaderConfig) (*Loader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Loader{log: cfg.Logger, cfg: cfg}, nil
}

// YearTable is one yearly sales table with the year its file is labelled with.
type YearTable struct {
	Year  int
	Table *table.Table
}

// Workbooks holds the six decoded inputs.
type Workbooks struct {
	Sales     []YearTable
	Customers *table.Table
	Stores    *table.Table
	Products  *table.Table
}

// Load opens and decodes a single input.
func (l *Loader) Load(ctx context.Context, in schema.Source) (*table.Table, error) {
	start := time.Now()
	rc, err := l.cfg.Source.Open(ctx, in.File)
	if err != nil {
		return nil, &LoadError{File: in.File, Err: err}
	}
	defer rc.Close()

	t, err := Decode(in.File, rc, in)
	if err != nil {
		return nil, &LoadError{File: in.File, Err: err}
	}
	l.log.Debug("sheet: loaded", "file", in.File, "rows", t.Len(), "columns", len(t.Columns), "duration", time.Since(start))
	return t, nil
}

// LoadAll decodes every input named by the schema concurrently. The first
// failure cancels the rest and is returned.
func (l *Loader) LoadAll(ctx context.Context) (*Workbooks, error) {
	sch := l.cfg.Schema
	wb := &Workbooks{Sales: make([]YearTable, len(sch.Sales))}

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sch.Sales {
		g.Go(func() error {
			t, err := l.Load(gctx, src.Source)
			if err != nil {
				return err
			}
			wb.Sales[i] = YearTable{Year: src.Year, Table: t}
			return nil
		})
	}
	refs := []struct {
		in  schema.Source
		dst **table.Table
	}{
		{sch.Customers, &wb.Customers},
		{sch.Stores, &wb.Stores},
		{sch.Products, &wb.Products},
	}
	for _, ref := range refs {
		g.Go(func() error {
			t, err := l.Load(gctx, ref.in)
			if err != nil {
				return err
			}
			*ref.dst = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.log.Info("sheet: loaded inputs", "location", l.cfg.Source.Location(), "files", len(sch.Files()))
	return wb, nil
}

// String summarizes row counts, for logs.
func (wb *Workbooks) String() string {
	n := 0
	for _, s := range wb.Sales {
		n += s.Table.Len()
	}
	return fmt.Sprintf("sales=%d customers=%d stores=%d products=%d", n, wb.Customers.Len(), wb.Stores.Len(), wb.Products.Len())
}
