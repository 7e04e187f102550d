package columnar

import (
	"context"
	"database/sql"
	stderrors "errors"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/errors"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/metrics"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/observability"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/pool"
)

// Hidden ordering columns carried by the source relation.
const (
	FileOrdColumn = "_file_ord"
	RowOrdColumn  = "_row_ord"
)

// SourceRelation is the name queries use for the union of source files.
const SourceRelation = "source"

// Options configures an Engine.
type Options struct {
	// DSN is the sqlite data source name, ":memory:" by default
	DSN string
	// BatchSize is the number of parquet rows decoded per record batch
	BatchSize int
	// MemoryMap opens parquet files through mmap
	MemoryMap bool
	// Logger receives engine logs; a no-op logger is used when nil
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.DSN == "" {
		o.DSN = ":memory:"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 4096
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// sourceTable is a parquet file materialized into the engine.
type sourceTable struct {
	name    string
	size    int64
	modTime time.Time
	columns []string
	rows    int64
}

// Stats summarizes what the engine has materialized.
type Stats struct {
	Files int   `json:"files"`
	Rows  int64 `json:"rows"`
}

// Engine answers SQL queries over parquet files. It is safe for concurrent
// use; queries are serialized over a single sqlite connection.
type Engine struct {
	mu     sync.Mutex
	db     *sql.DB
	opts   Options
	logger *zap.Logger
	tables map[string]*sourceTable
	seq    int
}

// Open creates an engine and verifies its sqlite connection.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	opts = opts.withDefaults()

	db, err := sql.Open("sqlite", opts.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open columnar engine").
			WithDetail("dsn", opts.DSN)
	}
	// An in-memory database lives and dies with its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open columnar engine").
			WithDetail("dsn", opts.DSN)
	}

	opts.Logger.Info("columnar engine opened",
		zap.String("dsn", opts.DSN),
		zap.Int("batch_size", opts.BatchSize),
		zap.Bool("memory_map", opts.MemoryMap))

	return &Engine{
		db:     db,
		opts:   opts,
		logger: opts.Logger,
		tables: make(map[string]*sourceTable),
	}, nil
}

// Close releases the sqlite connection.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tables = make(map[string]*sourceTable)
	return e.db.Close()
}

// Stats reports the number of materialized files and rows.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	var s Stats
	for _, t := range e.tables {
		s.Files++
		s.Rows += t.rows
	}
	return s
}

// Query runs query with args over the union of sources. The query refers to
// the union as "source". Querying zero sources is an error: there is no
// relation to read from.
func (e *Engine) Query(ctx context.Context, sources []string, query string, args ...any) (*Result, error) {
	if len(sources) == 0 {
		return nil, errors.New(errors.ErrorTypeQuery, "query requires at least one source file")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tables := make([]*sourceTable, len(sources))
	for i, path := range sources {
		t, err := e.ensure(ctx, path)
		if err != nil {
			return nil, err
		}
		tables[i] = t
	}

	stmt := unionCTE(tables) + query
	rows, err := e.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "query failed").
			WithDetail("query", query)
	}
	defer rows.Close()

	res, err := scanResult(rows)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read query result").
			WithDetail("query", query)
	}
	return res, nil
}

// unionCTE defines the source relation over tables in order. Column names
// come from the first table; every other table must carry them too.
func unionCTE(tables []*sourceTable) string {
	cols := make([]string, len(tables[0].columns))
	for i, c := range tables[0].columns {
		cols[i] = QuoteIdent(c)
	}
	projection := strings.Join(cols, ", ")

	var b strings.Builder
	b.WriteString("WITH ")
	b.WriteString(SourceRelation)
	b.WriteString(" AS (")
	for i, t := range tables {
		if i > 0 {
			b.WriteString(" UNION ALL ")
		}
		b.WriteString("SELECT ")
		b.WriteString(strconv.Itoa(i))
		b.WriteString(" AS ")
		b.WriteString(FileOrdColumn)
		b.WriteString(", ")
		b.WriteString(RowOrdColumn)
		if projection != "" {
			b.WriteString(", ")
			b.WriteString(projection)
		}
		b.WriteString(" FROM ")
		b.WriteString(QuoteIdent(t.name))
	}
	b.WriteString(") ")
	return b.String()
}

func scanResult(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := NewResult(cols...)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = append([]byte(nil), b...)
			}
		}
		res.Rows = append(res.Rows, values)
	}
	return res, rows.Err()
}

// ensure returns the materialized table for path, ingesting the file when it
// is new or its size or modification time changed. Callers hold e.mu.
func (e *Engine) ensure(ctx context.Context, path string) (*sourceTable, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat source file").
			WithDetail("path", path)
	}

	if t, ok := e.tables[path]; ok {
		if t.size == info.Size() && t.modTime.Equal(info.ModTime()) {
			return t, nil
		}
		e.logger.Debug("source file changed, re-ingesting",
			zap.String("path", path),
			zap.String("table", t.name))
	}

	ctx, span := observability.StartSpan(ctx, "columnar.ingest")
	span.SetAttribute("path", path)
	t, err := e.ingest(ctx, path)
	if t != nil {
		span.SetAttribute("rows", t.rows)
	}
	span.End(err)
	if err != nil {
		return nil, err
	}
	t.size = info.Size()
	t.modTime = info.ModTime()

	if old, ok := e.tables[path]; ok {
		if _, err := e.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(old.name)); err != nil {
			e.logger.Warn("failed to drop stale table",
				zap.String("table", old.name),
				zap.Error(err))
		}
	}
	e.tables[path] = t
	return t, nil
}

// ingest materializes the parquet file at path into a new table.
func (e *Engine) ingest(ctx context.Context, path string) (*sourceTable, error) {
	start := time.Now()

	pf, err := file.OpenParquetFile(path, e.opts.MemoryMap)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open parquet file").
			WithDetail("path", path)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{
		BatchSize: int64(e.opts.BatchSize),
	}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create arrow reader").
			WithDetail("path", path)
	}

	schema, err := fr.Schema()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read arrow schema").
			WithDetail("path", path)
	}

	e.seq++
	t := &sourceTable{name: tableName(e.seq)}

	defs := []string{RowOrdColumn + " INTEGER NOT NULL"}
	placeholders := []string{"?"}
	quoted := []string{RowOrdColumn}
	for _, f := range schema.Fields() {
		typ, err := sqliteType(f.Type)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "unsupported column type").
				WithDetail("path", path).
				WithDetail("column", f.Name)
		}
		t.columns = append(t.columns, f.Name)
		defs = append(defs, QuoteIdent(f.Name)+" "+typ)
		placeholders = append(placeholders, "?")
		quoted = append(quoted, QuoteIdent(f.Name))
	}

	rr, err := fr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read parquet row groups").
			WithDetail("path", path)
	}
	defer rr.Release()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to begin ingest transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	create := "CREATE TABLE " + QuoteIdent(t.name) + " (" + strings.Join(defs, ", ") + ")"
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to create source table").
			WithDetail("path", path)
	}

	insert := "INSERT INTO " + QuoteIdent(t.name) + " (" + strings.Join(quoted, ", ") +
		") VALUES (" + strings.Join(placeholders, ", ") + ")"
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to prepare insert")
	}
	defer stmt.Close()

	args := pool.Values.Get()
	defer pool.Values.Put(args)

	var rowOrd int64
	for rr.Next() {
		rec := rr.Record()
		ncols := int(rec.NumCols())
		for i := 0; i < int(rec.NumRows()); i++ {
			*args = append((*args)[:0], rowOrd)
			for c := 0; c < ncols; c++ {
				v, err := sqlValue(rec.Column(c), i)
				if err != nil {
					return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode parquet value").
						WithDetail("path", path).
						WithDetail("column", t.columns[c]).
						WithDetail("row", rowOrd)
				}
				*args = append(*args, v)
			}
			if _, err := stmt.ExecContext(ctx, *args...); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to insert row").
					WithDetail("path", path).
					WithDetail("row", rowOrd)
			}
			rowOrd++
		}
	}
	if err := rr.Err(); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read parquet records").
			WithDetail("path", path)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to commit ingest")
	}
	t.rows = rowOrd

	metrics.FilesIngested.Inc()
	metrics.RowsIngested.Add(float64(rowOrd))
	e.logger.Debug("ingested parquet file",
		zap.String("path", path),
		zap.String("table", t.name),
		zap.Int64("rows", rowOrd),
		zap.Int("columns", len(t.columns)),
		zap.Duration("duration", time.Since(start)))

	return t, nil
}
