package merge

import (
	"fmt"
	"slices"
	"strings"

	"github.com/malbeclabs/salesdash/ingest/pkg/table"
)

// SourceStats counts the rows read from one yearly sales file.
type SourceStats struct {
	File string `json:"file"`
	Year int    `json:"year"`
	Rows int    `json:"rows"`
}

// Report describes data quality issues observed while merging. None of them
// stop the merge.
type Report struct {
	Rows    int                        `json:"rows"`
	Sources []SourceStats              `json:"sources"`
	Joins   map[string]table.JoinStats `json:"joins"`
	// NamelessCustomers counts registry entries missing a first or last name.
	NamelessCustomers int `json:"nameless_customers"`
	// YearMismatches counts rows whose sale date falls outside the year their
	// file is labelled with.
	YearMismatches int `json:"year_mismatches"`
	// MissingAmounts counts rows without a quantity or unit price. Their line
	// total is null and adds nothing to any chart.
	MissingAmounts int `json:"missing_amounts"`
}

// Clean reports whether the merge observed none of the issues above.
func (r Report) Clean() bool {
	if r.YearMismatches > 0 || r.MissingAmounts > 0 {
		return false
	}
	for _, s := range r.Joins {
		if s.Unmatched > 0 || s.NullKeys > 0 || s.DuplicateKeys > 0 {
			return false
		}
	}
	return true
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rows: %d\n", r.Rows)
	for _, s := range r.Sources {
		fmt.Fprintf(&b, "source %s (year %d): %d rows\n", s.File, s.Year, s.Rows)
	}
	names := make([]string, 0, len(r.Joins))
	for name := range r.Joins {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		s := r.Joins[name]
		fmt.Fprintf(&b, "join %s: matched=%d unmatched=%d null_keys=%d duplicate_keys=%d\n",
			name, s.Matched, s.Unmatched, s.NullKeys, s.DuplicateKeys)
	}
	fmt.Fprintf(&b, "nameless customers: %d\n", r.NamelessCustomers)
	fmt.Fprintf(&b, "year mismatches: %d\n", r.YearMismatches)
	fmt.Fprintf(&b, "missing amounts: %d\n", r.MissingAmounts)
	return b.String()
}
