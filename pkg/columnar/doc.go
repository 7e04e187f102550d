// Package columnar implements the columnar store connector: a single embedded
// SQL engine that answers queries over an open-ended set of Parquet files.
//
// # Overview
//
// Each Parquet file referenced by a query is decoded with arrow-go in record
// batches and materialized once into an in-memory SQLite table. The engine
// keeps a catalogue of materialized files keyed by path and re-reads a file
// only when its size or modification time changes.
//
// Queries are plain SQL over the relation named source, which the engine
// defines as the UNION ALL of the requested files in order:
//
//	res, err := engine.Query(ctx, paths,
//		`SELECT COUNT(*) AS total_rows FROM source WHERE opt_converged = ?`, true)
//
// Two hidden columns give every row a stable position: _file_ord (index of
// the file in the requested list) and _row_ord (row index inside the file).
// ORDER BY _file_ord, _row_ord yields file-then-row order.
//
// # Type Mapping
//
//   - bool → INTEGER (0/1)
//   - signed and unsigned integers → INTEGER
//   - float32/float64 → REAL
//   - string → TEXT, binary → BLOB
//   - list, large list, fixed size list → TEXT holding a JSON array
//   - dictionary → mapping of the dictionary value type
//
// Any other arrow type fails ingestion with a data error.
//
// # Lifetime
//
// The Connector owns the engine. It creates it lazily on the first call to
// Connection and hands the same instance to every caller afterwards. A failed
// creation is remembered and returned on every later call.
package columnar
