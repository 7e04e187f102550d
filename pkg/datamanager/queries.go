package datamanager

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/cache"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/columnar"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/errors"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/molecule"
)

// Operation names, used for cache keys, metrics and logs.
const (
	OpSummaryStats     = "summary_stats"
	OpFilteredData     = "filtered_data"
	OpUniqueValues     = "unique_values"
	OpMoleculeByName   = "molecule_by_name"
	OpMoleculeByIndex  = "molecule_by_index"
	OpAllMoleculeNames = "all_molecule_names"
)

// Summary statistic columns.
const (
	ColTotalRows         = "total_rows"
	ColUniqueFormulas    = "unique_formulas"
	ColConvergedCount    = "converged_count"
	ColNotConvergedCount = "not_converged_count"
)

// Filters maps column names to required values. Nil values are ignored.
type Filters map[string]any

// Summary is the typed form of the summary statistics row.
type Summary struct {
	TotalRows         int64 `json:"total_rows"`
	UniqueFormulas    int64 `json:"unique_formulas"`
	ConvergedCount    int64 `json:"converged_count"`
	NotConvergedCount int64 `json:"not_converged_count"`
}

var (
	summarySQL = `SELECT
	COUNT(*) AS total_rows,
	COUNT(DISTINCT formula) AS unique_formulas,
	COALESCE(SUM(CASE WHEN opt_converged THEN 1 ELSE 0 END), 0) AS converged_count,
	COALESCE(SUM(CASE WHEN NOT opt_converged THEN 1 ELSE 0 END), 0) AS not_converged_count
FROM source`

	recordColumns = func() string {
		names := molecule.ColumnNames()
		for i, n := range names {
			names[i] = columnar.QuoteIdent(n)
		}
		return strings.Join(names, ", ")
	}()

	fileOrder = " ORDER BY " + columnar.FileOrdColumn + ", " + columnar.RowOrdColumn
)

// SummaryStats returns one row with total_rows, unique_formulas,
// converged_count and not_converged_count for the source set. With no files
// the result is empty.
func (m *Manager) SummaryStats(ctx context.Context, fp string) (*columnar.Result, error) {
	paths := m.Paths()
	if len(paths) == 0 {
		return columnar.NewResult(ColTotalRows, ColUniqueFormulas, ColConvergedCount, ColNotConvergedCount), nil
	}

	key, err := cache.NewKey(OpSummaryStats, fp)
	if err != nil {
		return nil, err
	}
	return cache.Memo(ctx, m.memo, key, func(ctx context.Context) (*columnar.Result, error) {
		res, err := m.query(ctx, OpSummaryStats, paths, summarySQL)
		if err != nil {
			return nil, err
		}
		return normalize(res)
	})
}

// Summary is SummaryStats decoded into a Summary. It is the zero Summary when
// there are no files.
func (m *Manager) Summary(ctx context.Context, fp string) (Summary, error) {
	res, err := m.SummaryStats(ctx, fp)
	if err != nil || res.Empty() {
		return Summary{}, err
	}

	get := func(col string) int64 {
		v, _ := res.Value(0, col)
		n, _ := v.(int64)
		return n
	}
	return Summary{
		TotalRows:         get(ColTotalRows),
		UniqueFormulas:    get(ColUniqueFormulas),
		ConvergedCount:    get(ColConvergedCount),
		NotConvergedCount: get(ColNotConvergedCount),
	}, nil
}

// FilteredData returns every record whose columns equal the given filter
// values, in file-then-row order. Filters on columns outside the schema, and
// values that do not fit their column's type, are rejected. String values are
// parsed into the column's type, so "true" matches a converged record.
func (m *Manager) FilteredData(ctx context.Context, filters Filters) (*columnar.Result, error) {
	cols := make([]string, 0, len(filters))
	values := make(map[string]any, len(filters))
	for col, v := range filters {
		if v == nil {
			continue
		}
		if err := filterable(col); err != nil {
			return nil, err
		}
		fv, err := molecule.FilterValue(col, v)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid filter value").
				WithDetail("column", col)
		}
		cols = append(cols, col)
		values[col] = fv
	}
	sort.Strings(cols)

	paths := m.Paths()
	if len(paths) == 0 {
		return columnar.NewResult(molecule.ColumnNames()...), nil
	}

	var (
		where []string
		args  []any
	)
	for _, col := range cols {
		where = append(where, columnar.QuoteIdent(col)+" = ?")
		args = append(args, values[col])
	}

	sql := "SELECT " + recordColumns + " FROM source"
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += fileOrder

	key, err := cache.NewKey(OpFilteredData, fingerprint(paths), cols, args)
	if err != nil {
		return nil, err
	}
	return cache.Memo(ctx, m.memo, key, func(ctx context.Context) (*columnar.Result, error) {
		res, err := m.query(ctx, OpFilteredData, paths, sql, args...)
		if err != nil {
			return nil, err
		}
		return normalize(res)
	})
}

// UniqueValues returns the distinct non-null values of column in ascending
// order.
func (m *Manager) UniqueValues(ctx context.Context, column, fp string) ([]any, error) {
	if err := filterable(column); err != nil {
		return nil, err
	}

	paths := m.Paths()
	if len(paths) == 0 {
		return []any{}, nil
	}

	q := columnar.QuoteIdent(column)
	sql := "SELECT DISTINCT " + q + " FROM source WHERE " + q + " IS NOT NULL ORDER BY " + q

	key, err := cache.NewKey(OpUniqueValues, fp, column)
	if err != nil {
		return nil, err
	}
	return cache.Memo(ctx, m.memo, key, func(ctx context.Context) ([]any, error) {
		res, err := m.query(ctx, OpUniqueValues, paths, sql)
		if err != nil {
			return nil, err
		}
		norm, err := normalize(res)
		if err != nil {
			return nil, err
		}
		return norm.Column(column), nil
	})
}

// MoleculeByName returns the first record named name, or nil when there is
// none.
func (m *Manager) MoleculeByName(ctx context.Context, name string) (*molecule.Record, error) {
	paths := m.Paths()
	if len(paths) == 0 {
		return nil, nil
	}

	sql := "SELECT " + recordColumns + " FROM source WHERE " +
		columnar.QuoteIdent(molecule.ColUniqueName) + " = ?" + fileOrder + " LIMIT 1"
	res, err := m.query(ctx, OpMoleculeByName, paths, sql, name)
	if err != nil {
		return nil, err
	}
	return firstRecord(res)
}

// MoleculeByIndex returns the i-th record in file-then-row order, or nil when
// i is out of range.
func (m *Manager) MoleculeByIndex(ctx context.Context, i int) (*molecule.Record, error) {
	paths := m.Paths()
	if len(paths) == 0 || i < 0 {
		return nil, nil
	}

	sql := "SELECT " + recordColumns + " FROM source" + fileOrder + " LIMIT 1 OFFSET ?"
	res, err := m.query(ctx, OpMoleculeByIndex, paths, sql, i)
	if err != nil {
		return nil, err
	}
	return firstRecord(res)
}

// AllMoleculeNames returns every distinct molecule name in the order it is
// first seen.
func (m *Manager) AllMoleculeNames(ctx context.Context, fp string) ([]string, error) {
	paths := m.Paths()
	if len(paths) == 0 {
		return []string{}, nil
	}

	name := columnar.QuoteIdent(molecule.ColUniqueName)
	sql := `SELECT ` + name + ` FROM (
	SELECT ` + name + `, ` + columnar.FileOrdColumn + `, ` + columnar.RowOrdColumn + `,
		ROW_NUMBER() OVER (PARTITION BY ` + name + fileOrder + `) AS seen
	FROM source WHERE ` + name + ` IS NOT NULL
) WHERE seen = 1` + fileOrder

	key, err := cache.NewKey(OpAllMoleculeNames, fp)
	if err != nil {
		return nil, err
	}
	return cache.Memo(ctx, m.memo, key, func(ctx context.Context) ([]string, error) {
		res, err := m.query(ctx, OpAllMoleculeNames, paths, sql)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, res.Len())
		for _, v := range res.Column(molecule.ColUniqueName) {
			s, ok := v.(string)
			if !ok {
				return nil, errors.Newf(errors.ErrorTypeData, "molecule name has type %T", v)
			}
			names = append(names, s)
		}
		m.logger.Debug("listed molecule names",
			zap.String("fingerprint", fp),
			zap.Int("count", len(names)))
		return names, nil
	})
}

// filterable rejects columns outside the schema and list columns, which have
// no equality semantics.
func filterable(column string) error {
	c, ok := molecule.Lookup(column)
	if !ok {
		return errors.Newf(errors.ErrorTypeValidation, "unknown column %q", column).
			WithDetail("column", column)
	}
	if c.Kind == molecule.KindFloatList {
		return errors.Newf(errors.ErrorTypeValidation, "column %q holds lists and cannot be compared", column).
			WithDetail("column", column)
	}
	return nil
}

// normalize drops the ordering columns and converts every value to its
// logical type.
func normalize(res *columnar.Result) (*columnar.Result, error) {
	out := res.Without(columnar.FileOrdColumn, columnar.RowOrdColumn)
	for _, row := range out.Rows {
		for i, col := range out.Columns {
			v, err := molecule.Normalize(col, row[i])
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "unexpected value in query result").
					WithDetail("column", col)
			}
			row[i] = v
		}
	}
	return out, nil
}

func firstRecord(res *columnar.Result) (*molecule.Record, error) {
	if res.Empty() {
		return nil, nil
	}
	rec, err := molecule.FromRow(res.Columns, res.Rows[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode molecule record")
	}
	return rec, nil
}
