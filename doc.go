// Package iqc is the IQC Dashboard: a web dashboard for browsing the parquet
// result files produced by the IQC quantum chemistry workflow.
//
// Each result file holds one row per molecule: identity (unique name,
// formula, atom and electron counts, spin), the calculator/task/model that
// produced it, initial and optimized energies, convergence information, the
// initial and optimized XYZ geometries, vibrational frequencies and
// thermochemistry.
//
// # Architecture
//
// The dashboard is built from three layers:
//
// 1. Columnar store (pkg/columnar): a process-wide query engine that reads
// parquet files through Apache Arrow and answers SQL over their union. It is
// created once, on first use, and shared by every caller.
//
// 2. Data manager (pkg/datamanager): owns the set of source files, derives a
// fingerprint from their paths, sizes and modification times, and answers
// summary, filter, distinct-value and lookup queries. Results are memoized
// under the fingerprint (pkg/cache), so a changed file set is never served
// stale results.
//
// 3. Structure renderer (pkg/render): turns XYZ text into an embedded
// 3Dmol.js view (pkg/render/threedmol), or a warning/error message when the
// data is missing, invalid, or the viewer is unavailable.
//
// The HTTP surface lives in internal/server; the iqcdash command in
// cmd/iqcdash loads configuration and starts it.
//
// # Quick Start
//
//	iqcdash serve --data 'results/*.parquet' --addr :8501
//
// Or print summary statistics without starting the server:
//
//	iqcdash stats results/run1.parquet results/run2.parquet
//
// # Configuration
//
// Settings are read from a YAML file (--config) and IQC_* environment
// variables; see pkg/config for the full set of keys.
package iqc
