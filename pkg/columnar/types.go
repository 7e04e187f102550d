package columnar

import (
	"context"
)

// Querier runs SQL over the union of a set of source files.
type Querier interface {
	Query(ctx context.Context, sources []string, query string, args ...any) (*Result, error)
}

// Result is a tabular query result: ordered named columns and ordered rows.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NewResult returns an empty result with the given columns.
func NewResult(columns ...string) *Result {
	return &Result{Columns: columns, Rows: [][]any{}}
}

// Len returns the number of rows
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Empty reports whether the result has no rows
func (r *Result) Empty() bool {
	return r.Len() == 0
}

// ColumnIndex returns the position of name, or -1.
func (r *Result) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the value of column name in row i.
func (r *Result) Value(i int, name string) (any, bool) {
	if i < 0 || i >= r.Len() {
		return nil, false
	}
	idx := r.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	return r.Rows[i][idx], true
}

// Column returns every value of column name in row order.
func (r *Result) Column(name string) []any {
	idx := r.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]any, 0, r.Len())
	for _, row := range r.Rows {
		out = append(out, row[idx])
	}
	return out
}

// Maps returns the rows as column-name keyed maps.
func (r *Result) Maps() []map[string]any {
	out := make([]map[string]any, 0, r.Len())
	for _, row := range r.Rows {
		m := make(map[string]any, len(r.Columns))
		for i, c := range r.Columns {
			m[c] = row[i]
		}
		out = append(out, m)
	}
	return out
}

// Without returns a copy of r without the named columns.
func (r *Result) Without(names ...string) *Result {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var keep []int
	out := &Result{Rows: make([][]any, 0, r.Len())}
	for i, c := range r.Columns {
		if !drop[c] {
			keep = append(keep, i)
			out.Columns = append(out.Columns, c)
		}
	}
	for _, row := range r.Rows {
		nr := make([]any, len(keep))
		for j, i := range keep {
			nr[j] = row[i]
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}
