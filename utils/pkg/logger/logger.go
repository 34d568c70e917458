package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

const timeFormat = "2006-01-02T15:04:05.000Z"

type Options struct {
	Verbose bool
	// NoColor disables ANSI colors, for log files and collectors.
	NoColor bool
}

// New returns the process logger writing to stdout. Colors are disabled when
// NO_COLOR is set.
func New(verbose bool) *slog.Logger {
	return NewWithOptions(os.Stdout, Options{Verbose: verbose, NoColor: os.Getenv("NO_COLOR") != ""})
}

// NewWithOptions returns a tint logger writing to w. Timestamps are UTC with
// millisecond precision and empty string attributes are dropped.
func NewWithOptions(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:   level,
		NoColor: opts.NoColor,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Value = slog.StringValue(formatTime(a.Value.Time()))
			}
			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}
