package source

import (
	"context"
	"log/slog"
)

// Options configures New.
type Options struct {
	Logger    *slog.Logger
	Region    string
	Endpoint  string
	PathStyle bool
}

// New returns an S3 source for s3:// locations and a directory source for
// anything else.
func New(ctx context.Context, location string, opts Options) (Source, error) {
	u, isS3, err := ParseS3URL(location)
	if err != nil {
		return nil, err
	}
	if !isS3 {
		return NewDir(location), nil
	}
	return NewS3(ctx, S3Config{
		Logger:    opts.Logger,
		URL:       u,
		Region:    opts.Region,
		Endpoint:  opts.Endpoint,
		PathStyle: opts.PathStyle,
	})
}
