// Package admin holds the offline commands run against the sales workbooks:
// the merge report, option listings and a CSV dump of the merged table.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/malbeclabs/salesdash/ingest/pkg/merge"
	"github.com/malbeclabs/salesdash/ingest/pkg/schema"
	"github.com/malbeclabs/salesdash/ingest/pkg/source"
)

type LoadConfig struct {
	Logger      *slog.Logger
	DataDir     string
	SchemaFile  string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

func (cfg *LoadConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.DataDir == "" {
		return errors.New("data dir is required")
	}
	return nil
}

// Load reads and merges the workbooks the same way the server does at
// startup.
func Load(ctx context.Context, cfg LoadConfig) (*merge.Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sch, err := schema.Load(cfg.SchemaFile)
	if err != nil {
		return nil, err
	}
	src, err := source.New(ctx, cfg.DataDir, source.Options{
		Logger:    cfg.Logger,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		PathStyle: cfg.S3PathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open data source: %w", err)
	}
	ds, err := merge.Build(ctx, merge.BuildConfig{
		Logger: cfg.Logger,
		Clock:  clockwork.NewRealClock(),
		Source: src,
		Schema: sch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to merge %s: %w", src.Location(), err)
	}
	return ds, nil
}
