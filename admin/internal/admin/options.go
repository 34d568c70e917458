package admin

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/malbeclabs/salesdash/dashboard/pkg/filter"
	"github.com/malbeclabs/salesdash/ingest/pkg/sales"
)

// PrintOptions writes, for every dropdown, the options offered under c and
// finally the number of rows c matches.
func PrintOptions(w io.Writer, rows iter.Seq[sales.Row], c filter.Criteria) error {
	for _, s := range filter.Stages() {
		opts := filter.Options(rows, c, s)
		if _, err := fmt.Fprintf(w, "%s (%d): %s\n", s, len(opts), strings.Join(opts, ", ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "matched: %d\n", len(filter.Apply(rows, c)))
	return err
}
