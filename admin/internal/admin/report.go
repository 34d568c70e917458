package admin

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/malbeclabs/salesdash/ingest/pkg/merge"
)

// ErrUnclean is returned by PrintReport in strict mode when the merge report
// is not clean.
var ErrUnclean = errors.New("merge report has data quality issues")

func PrintReport(w io.Writer, ds *merge.Dataset, strict bool) error {
	if _, err := fmt.Fprintf(w, "dataset: %s\nloaded at: %s\n", ds.ID(), ds.LoadedAt().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	report := ds.Report()
	if _, err := io.WriteString(w, report.String()); err != nil {
		return err
	}
	if strict && !report.Clean() {
		return ErrUnclean
	}
	return nil
}
