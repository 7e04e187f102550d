// Package datamanager owns the set of source files and answers the
// dashboard's questions about them: summary statistics, filtered rows,
// distinct values and molecule lookups.
//
// Operations that take a fingerprint are memoized under it. Callers obtain
// the fingerprint from Fingerprint and pass it back, so a changed file set is
// always queried fresh while repeated renders of the same state are served
// from the memo table.
//
// With no source files every operation returns an empty result without
// touching the columnar engine.
package datamanager

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/cache"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/columnar"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/errors"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/logger"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/metrics"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/observability"
)

// Connector hands out the shared query engine.
type Connector interface {
	Connection(ctx context.Context) (columnar.Querier, error)
}

// Upload is one user-supplied file. Only the base name of Name is used.
type Upload struct {
	Name string
	Body io.Reader
}

// Manager holds the ordered source file set.
type Manager struct {
	mu      sync.RWMutex
	workDir string
	paths   []string

	conn   Connector
	memo   *cache.Table
	logger *zap.Logger
}

// New creates a manager that stores uploads under workDir, creating the
// directory if needed.
func New(workDir string, conn Connector, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if workDir == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "working directory is required")
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create working directory").
			WithDetail("work_dir", workDir)
	}

	return &Manager{
		workDir: workDir,
		conn:    conn,
		memo:    cache.New(log.Named("cache")),
		logger:  log,
	}, nil
}

// WorkDir returns the directory uploads are written to.
func (m *Manager) WorkDir() string {
	return m.workDir
}

// AddFiles writes every non-nil upload to the working directory and appends
// the written paths to the source set. A name already present overwrites the
// earlier file and keeps its position in the set.
func (m *Manager) AddFiles(files []*Upload) ([]string, error) {
	var written []string
	for _, f := range files {
		if f == nil {
			continue
		}
		path, err := m.write(f)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	m.AddPaths(written...)
	if len(written) > 0 {
		m.logger.Info("uploaded source files",
			zap.Int("count", len(written)),
			zap.Strings("paths", written))
	}
	return written, nil
}

func (m *Manager) write(f *Upload) (string, error) {
	base := filepath.Base(f.Name)
	if base == "." || base == ".." || base == string(filepath.Separator) || f.Name == "" {
		return "", errors.New(errors.ErrorTypeValidation, "upload has no usable file name").
			WithDetail("name", f.Name)
	}
	if f.Body == nil {
		return "", errors.New(errors.ErrorTypeValidation, "upload has no content").
			WithDetail("name", f.Name)
	}

	path := filepath.Join(m.workDir, base)
	out, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to create upload file").
			WithDetail("path", path)
	}
	if _, err := io.Copy(out, f.Body); err != nil {
		_ = out.Close()
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to write upload file").
			WithDetail("path", path)
	}
	if err := out.Close(); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to write upload file").
			WithDetail("path", path)
	}
	return path, nil
}

// AddPaths appends existing files to the source set. Paths already in the
// set are not added twice.
func (m *Manager) AddPaths(paths ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range paths {
		if !slices.Contains(m.paths, p) {
			m.paths = append(m.paths, p)
		}
	}
	metrics.SourceFiles.Set(float64(len(m.paths)))
}

// SetPaths replaces the source set.
func (m *Manager) SetPaths(paths ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = m.paths[:0:0]
	for _, p := range paths {
		if !slices.Contains(m.paths, p) {
			m.paths = append(m.paths, p)
		}
	}
	metrics.SourceFiles.Set(float64(len(m.paths)))
}

// Paths returns a copy of the source set in order.
func (m *Manager) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.paths)
}

// Fingerprint summarizes the current state of the source set. It only stats
// the files; their contents are never read.
func (m *Manager) Fingerprint() string {
	return fingerprint(m.Paths())
}

// query runs sql over paths through the shared engine, recording its latency
// under op.
func (m *Manager) query(ctx context.Context, op string, paths []string, sql string, args ...any) (*columnar.Result, error) {
	timer := metrics.NewTimer(op)
	ctx, span := observability.StartSpan(ctx, "datamanager."+op)
	span.SetAttribute("files", len(paths))

	q, err := m.conn.Connection(ctx)
	if err != nil {
		timer.ObserveQuery(err)
		span.End(err)
		return nil, err
	}

	res, err := q.Query(ctx, paths, sql, args...)
	d := timer.ObserveQuery(err)
	if res != nil {
		span.SetAttribute("rows", res.Len())
	}
	span.End(err)
	if err != nil {
		m.logger.With(logger.Fields(ctx)...).With(errors.Fields(err)...).Error("query failed",
			zap.String("operation", op),
			zap.Int("files", len(paths)))
		return nil, err
	}

	m.logger.With(logger.Fields(ctx)...).Debug("query completed",
		zap.String("operation", op),
		zap.Int("files", len(paths)),
		zap.Int("rows", res.Len()),
		zap.Duration("duration", d))
	return res, nil
}
