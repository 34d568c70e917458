// Package source opens the named input files the loader reads, either from a
// local directory or from an S3 prefix.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a named object does not exist.
var ErrNotFound = errors.New("source object not found")

// Source opens named input objects.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Location describes where objects are read from, for logs.
	Location() string
}

// Dir reads objects from a local directory.
type Dir struct {
	root string
}

func NewDir(root string) *Dir {
	return &Dir{root: root}
}

func (d *Dir) Location() string { return d.root }

func (d *Dir) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !filepath.IsLocal(name) {
		return nil, fmt.Errorf("invalid object name %q", name)
	}
	f, err := os.Open(filepath.Join(d.root, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Join(d.root, name))
		}
		return nil, err
	}
	return f, nil
}

// S3URL is a parsed s3://bucket/prefix location.
type S3URL struct {
	Bucket string
	Prefix string
}

// ParseS3URL parses an s3://bucket[/prefix] location. ok is false for any
// other string.
func ParseS3URL(loc string) (u S3URL, ok bool, err error) {
	rest, found := strings.CutPrefix(loc, "s3://")
	if !found {
		return S3URL{}, false, nil
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return S3URL{}, true, fmt.Errorf("missing bucket in %q", loc)
	}
	prefix = strings.Trim(prefix, "/")
	return S3URL{Bucket: bucket, Prefix: prefix}, true, nil
}

// Key returns the object key for a name under the prefix.
func (u S3URL) Key(name string) string {
	if u.Prefix == "" {
		return name
	}
	return path.Join(u.Prefix, name)
}

func (u S3URL) String() string {
	if u.Prefix == "" {
		return "s3://" + u.Bucket
	}
	return "s3://" + u.Bucket + "/" + u.Prefix
}
