package table

import "fmt"

// Concat returns the row union of the given tables. The result has the union
// of all columns in first-seen order; a column absent from a source table is
// null for that table's rows.
func Concat(name string, tables ...*Table) *Table {
	out := New(name)
	pos := make(map[string]int)
	for _, t := range tables {
		for _, c := range t.Columns {
			if _, ok := pos[c]; !ok {
				pos[c] = len(out.Columns)
				out.Columns = append(out.Columns, c)
			}
		}
	}
	for _, t := range tables {
		mapping := make([]int, len(t.Columns))
		for i, c := range t.Columns {
			mapping[i] = pos[c]
		}
		for _, row := range t.Rows {
			r := make(Row, len(out.Columns))
			for i, v := range row {
				if i < len(mapping) {
					r[mapping[i]] = v
				}
			}
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// JoinStats describes how a left join resolved its keys.
type JoinStats struct {
	Matched       int `json:"matched"`
	Unmatched     int `json:"unmatched"`
	NullKeys      int `json:"null_keys"`
	DuplicateKeys int `json:"duplicate_keys"`
}

// LeftJoin joins every row of left with the first row of right that shares
// the key column. Left rows are never dropped or repeated: a missing or null
// key leaves every right-hand column null. When right holds the same key more
// than once the first occurrence wins and the extras are counted.
//
// The key column appears once in the output. Other column names present on
// both sides get an "_x" suffix on the left and "_y" on the right.
func LeftJoin(left, right *Table, key string) (*Table, JoinStats, error) {
	var stats JoinStats
	lk, err := left.MustIndex(key)
	if err != nil {
		return nil, stats, fmt.Errorf("left join: %w", err)
	}
	rk, err := right.MustIndex(key)
	if err != nil {
		return nil, stats, fmt.Errorf("left join: %w", err)
	}

	rightNames := make(map[string]bool, len(right.Columns))
	for i, c := range right.Columns {
		if i != rk {
			rightNames[c] = true
		}
	}
	leftNames := make(map[string]bool, len(left.Columns))
	for _, c := range left.Columns {
		leftNames[c] = true
	}

	out := New(left.Name)
	for i, c := range left.Columns {
		if i != lk && rightNames[c] {
			c += "_x"
		}
		out.Columns = append(out.Columns, c)
	}
	var rightCols []int
	for i, c := range right.Columns {
		if i == rk {
			continue
		}
		if leftNames[c] {
			c += "_y"
		}
		out.Columns = append(out.Columns, c)
		rightCols = append(rightCols, i)
	}

	index := make(map[string]int, len(right.Rows))
	for i, row := range right.Rows {
		k, ok := row[rk].Key()
		if !ok {
			continue
		}
		if _, dup := index[k]; dup {
			stats.DuplicateKeys++
			continue
		}
		index[k] = i
	}

	out.Rows = make([]Row, len(left.Rows))
	for i, row := range left.Rows {
		r := make(Row, len(out.Columns))
		copy(r, row)
		k, ok := row[lk].Key()
		if !ok {
			stats.NullKeys++
			out.Rows[i] = r
			continue
		}
		j, found := index[k]
		if !found {
			stats.Unmatched++
			out.Rows[i] = r
			continue
		}
		stats.Matched++
		for n, c := range rightCols {
			r[len(left.Columns)+n] = right.Rows[j][c]
		}
		out.Rows[i] = r
	}
	return out, stats, nil
}
