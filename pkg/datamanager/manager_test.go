package datamanager

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/columnar"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/errors"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/testutil"
)

// countingConnector wraps a real connector and counts Connection calls.
type countingConnector struct {
	inner Connector
	calls atomic.Int32
}

func (c *countingConnector) Connection(ctx context.Context) (columnar.Querier, error) {
	c.calls.Add(1)
	if c.inner == nil {
		return nil, errors.New(errors.ErrorTypeConnection, "no engine in this test")
	}
	return c.inner.Connection(ctx)
}

func newManager(t *testing.T) (*Manager, *countingConnector) {
	t.Helper()
	logger := testutil.TestLogger(t)
	engine := columnar.NewConnector(columnar.Options{Logger: logger})
	t.Cleanup(func() { _ = engine.Close() })

	conn := &countingConnector{inner: engine}
	m, err := New(filepath.Join(t.TempDir(), "work"), conn, logger)
	require.NoError(t, err)
	return m, conn
}

func TestNewRequiresWorkDir(t *testing.T) {
	_, err := New("", &countingConnector{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestNewCreatesWorkDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	m, err := New(dir, &countingConnector{}, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, m.WorkDir())
	assert.DirExists(t, dir)
	assert.Empty(t, m.Paths())
}

func TestEmptySetNeverTouchesConnector(t *testing.T) {
	conn := &countingConnector{}
	m, err := New(t.TempDir(), conn, testutil.TestLogger(t))
	require.NoError(t, err)
	ctx := testutil.TestContext(t)
	fp := m.Fingerprint()
	assert.Equal(t, EmptyFingerprint, fp)

	stats, err := m.SummaryStats(ctx, fp)
	require.NoError(t, err)
	assert.True(t, stats.Empty())

	summary, err := m.Summary(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)

	data, err := m.FilteredData(ctx, Filters{"formula": "H2O"})
	require.NoError(t, err)
	assert.True(t, data.Empty())
	assert.Len(t, data.Columns, 19)

	values, err := m.UniqueValues(ctx, "formula", fp)
	require.NoError(t, err)
	assert.Equal(t, []any{}, values)

	rec, err := m.MoleculeByName(ctx, "mol_001")
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = m.MoleculeByIndex(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, rec)

	names, err := m.AllMoleculeNames(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, []string{}, names)

	assert.Equal(t, int32(0), conn.calls.Load())
}

func TestAddFiles(t *testing.T) {
	m, _ := newManager(t)
	before := m.Fingerprint()

	paths, err := m.AddFiles([]*Upload{
		{Name: "test1.parquet", Body: strings.NewReader("test data 1")},
		nil,
		{Name: "nested/dir/test2.parquet", Body: strings.NewReader("test data 2")},
	})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, paths, m.Paths())
	assert.Equal(t, filepath.Join(m.WorkDir(), "test2.parquet"), paths[1])

	for i, want := range []string{"test data 1", "test data 2"} {
		b, err := os.ReadFile(paths[i])
		require.NoError(t, err)
		assert.Equal(t, want, string(b))
	}
	assert.NotEqual(t, before, m.Fingerprint())

	// same name overwrites in place
	again, err := m.AddFiles([]*Upload{{Name: "test1.parquet", Body: strings.NewReader("v2")}})
	require.NoError(t, err)
	assert.Equal(t, paths[:1], again)
	assert.Equal(t, paths, m.Paths())
	b, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "v2", string(b))
}

func TestAddFilesRejectsBadNames(t *testing.T) {
	m, _ := newManager(t)
	for _, name := range []string{"", ".", "..", "/"} {
		_, err := m.AddFiles([]*Upload{{Name: name, Body: strings.NewReader("x")}})
		require.Error(t, err, name)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation), name)
	}
	assert.Empty(t, m.Paths())
}

func TestFingerprint(t *testing.T) {
	m, _ := newManager(t)
	dir := t.TempDir()
	a := testutil.WriteSample(t, dir, "a.parquet")
	b := testutil.WriteSample(t, dir, "b.parquet")

	m.SetPaths(a, b)
	fp := m.Fingerprint()
	assert.Len(t, fp, 16)
	assert.Equal(t, fp, m.Fingerprint(), "stable for unchanged state")

	m.SetPaths(b, a)
	assert.NotEqual(t, fp, m.Fingerprint(), "order matters")

	m.SetPaths(a, b)
	assert.Equal(t, fp, m.Fingerprint())

	testutil.Touch(t, a, time.Second)
	assert.NotEqual(t, fp, m.Fingerprint(), "mtime matters")

	fp = m.Fingerprint()
	m.SetPaths(a, b, filepath.Join(dir, "missing.parquet"))
	missing := m.Fingerprint()
	assert.NotEqual(t, fp, missing)
	assert.Equal(t, missing, m.Fingerprint())

	m.SetPaths()
	assert.Equal(t, EmptyFingerprint, m.Fingerprint())
}

func TestFingerprintSizeOnlyChange(t *testing.T) {
	m, _ := newManager(t)
	dir := t.TempDir()
	path := testutil.WriteSample(t, dir, "sample.parquet")
	m.AddPaths(path)
	ctx := testutil.TestContext(t)

	before, err := os.Stat(path)
	require.NoError(t, err)
	fp := m.Fingerprint()
	all, err := m.FilteredData(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 3, all.Len())

	// rewrite with fewer rows, then put the old mtime back
	testutil.WriteMolecules(t, dir, "sample.parquet", testutil.SampleMolecules()[:1])
	require.NoError(t, os.Chtimes(path, before.ModTime(), before.ModTime()))
	after, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, before.ModTime(), after.ModTime())
	require.NotEqual(t, before.Size(), after.Size())

	assert.NotEqual(t, fp, m.Fingerprint())
	all, err = m.FilteredData(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"mol_001"}, all.Column("unique_name"))
}

func TestSummaryStats(t *testing.T) {
	m, _ := newManager(t)
	m.AddPaths(testutil.WriteSample(t, t.TempDir(), "sample.parquet"))
	ctx := testutil.TestContext(t)

	res, err := m.SummaryStats(ctx, m.Fingerprint())
	require.NoError(t, err)
	require.Equal(t, 1, res.Len())
	assert.Equal(t, []string{ColTotalRows, ColUniqueFormulas, ColConvergedCount, ColNotConvergedCount}, res.Columns)
	assert.Equal(t, []any{int64(3), int64(3), int64(2), int64(1)}, res.Rows[0])

	summary, err := m.Summary(ctx, m.Fingerprint())
	require.NoError(t, err)
	assert.Equal(t, Summary{TotalRows: 3, UniqueFormulas: 3, ConvergedCount: 2, NotConvergedCount: 1}, summary)
}

func TestSummaryStatsMemoizedByFingerprint(t *testing.T) {
	m, conn := newManager(t)
	dir := t.TempDir()
	path := testutil.WriteSample(t, dir, "sample.parquet")
	m.AddPaths(path)
	ctx := testutil.TestContext(t)

	fp := m.Fingerprint()
	_, err := m.SummaryStats(ctx, fp)
	require.NoError(t, err)
	_, err = m.SummaryStats(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, int32(1), conn.calls.Load())

	testutil.WriteMolecules(t, dir, "sample.parquet", testutil.SampleMolecules()[:2])
	testutil.Touch(t, path, time.Second)
	fp2 := m.Fingerprint()
	require.NotEqual(t, fp, fp2)

	summary, err := m.Summary(ctx, fp2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalRows)
	assert.Equal(t, int64(0), summary.NotConvergedCount)
	assert.Equal(t, int32(2), conn.calls.Load())
}

func TestFilteredData(t *testing.T) {
	m, _ := newManager(t)
	m.AddPaths(testutil.WriteSample(t, t.TempDir(), "sample.parquet"))
	ctx := testutil.TestContext(t)

	all, err := m.FilteredData(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Len())
	assert.Len(t, all.Columns, 19)
	assert.NotContains(t, all.Columns, columnar.FileOrdColumn)
	assert.Equal(t, []any{"mol_001", "mol_002", "mol_003"}, all.Column("unique_name"))

	conv, err := m.FilteredData(ctx, Filters{"calculator": "mace", "opt_converged": true, "task": nil})
	require.NoError(t, err)
	assert.Equal(t, []any{"mol_001", "mol_002"}, conv.Column("unique_name"))
	for _, v := range conv.Column("opt_converged") {
		assert.Equal(t, true, v)
	}
	assert.Equal(t, []float64{1595.1, 3657.0, 3755.9}, conv.Column("vibrational_frequencies_cm^-1")[0])

	none, err := m.FilteredData(ctx, Filters{"formula": "C6H6"})
	require.NoError(t, err)
	assert.True(t, none.Empty())
}

func TestMemoizedQueriesRecomputeOnChange(t *testing.T) {
	m, conn := newManager(t)
	dir := t.TempDir()
	path := testutil.WriteSample(t, dir, "sample.parquet")
	m.AddPaths(path)
	ctx := testutil.TestContext(t)

	fp := m.Fingerprint()
	for i := 0; i < 2; i++ {
		data, err := m.FilteredData(ctx, Filters{"model": "medium"})
		require.NoError(t, err)
		assert.Equal(t, 3, data.Len())

		formulas, err := m.UniqueValues(ctx, "formula", fp)
		require.NoError(t, err)
		assert.Equal(t, []any{"CO2", "H2O", "NH3"}, formulas)

		names, err := m.AllMoleculeNames(ctx, fp)
		require.NoError(t, err)
		assert.Equal(t, []string{"mol_001", "mol_002", "mol_003"}, names)
	}
	assert.Equal(t, int32(3), conn.calls.Load(), "second round served from the memo table")

	testutil.WriteMolecules(t, dir, "sample.parquet", testutil.SampleMolecules()[:2])
	testutil.Touch(t, path, time.Second)
	fp2 := m.Fingerprint()
	require.NotEqual(t, fp, fp2)

	data, err := m.FilteredData(ctx, Filters{"model": "medium"})
	require.NoError(t, err)
	assert.Equal(t, 2, data.Len())

	formulas, err := m.UniqueValues(ctx, "formula", fp2)
	require.NoError(t, err)
	assert.Equal(t, []any{"CO2", "H2O"}, formulas)

	names, err := m.AllMoleculeNames(ctx, fp2)
	require.NoError(t, err)
	assert.Equal(t, []string{"mol_001", "mol_002"}, names)
	assert.Equal(t, int32(6), conn.calls.Load())
}

func TestFilteredDataCoercesValues(t *testing.T) {
	m, _ := newManager(t)
	m.AddPaths(testutil.WriteSample(t, t.TempDir(), "sample.parquet"))
	ctx := testutil.TestContext(t)

	tests := []struct {
		name    string
		filters Filters
		want    []any
	}{
		{"bool as text", Filters{"opt_converged": "true"}, []any{"mol_001", "mol_002"}},
		{"bool false as text", Filters{"opt_converged": "false"}, []any{"mol_003"}},
		{"int", Filters{"opt_steps": 12}, []any{"mol_001"}},
		{"int32", Filters{"number_of_atoms": int32(4)}, []any{"mol_003"}},
		{"int as text", Filters{"number_of_electrons": "22"}, []any{"mol_002"}},
		{"int for float column", Filters{"spin": 0}, []any{"mol_001", "mol_002", "mol_003"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.FilteredData(ctx, tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Column("unique_name"))
		})
	}
}

func TestFilteredDataRejectsMistypedValues(t *testing.T) {
	m, _ := newManager(t)
	m.AddPaths(testutil.WriteSample(t, t.TempDir(), "sample.parquet"))

	for _, filters := range []Filters{
		{"opt_converged": "maybe"},
		{"opt_converged": 1.5},
		{"opt_steps": "many"},
		{"opt_steps": 1.5},
		{"formula": 3},
	} {
		_, err := m.FilteredData(testutil.TestContext(t), filters)
		require.Error(t, err, "%v", filters)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation), "%v", filters)
	}
}

func TestFilteredDataRejectsUnknownColumn(t *testing.T) {
	m, _ := newManager(t)
	m.AddPaths(testutil.WriteSample(t, t.TempDir(), "sample.parquet"))

	_, err := m.FilteredData(testutil.TestContext(t), Filters{"colour": "blue"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = m.FilteredData(testutil.TestContext(t), Filters{"vibrational_frequencies_cm^-1": []float64{1}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestFilteredDataFileThenRowOrder(t *testing.T) {
	m, _ := newManager(t)
	dir := t.TempDir()
	second := testutil.SampleMolecules()[2:]
	second[0].UniqueName = "mol_000"
	a := testutil.WriteSample(t, dir, "a.parquet")
	b := testutil.WriteMolecules(t, dir, "b.parquet", second)
	m.AddPaths(b, a)

	res, err := m.FilteredData(testutil.TestContext(t), nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"mol_000", "mol_001", "mol_002", "mol_003"}, res.Column("unique_name"))
}

func TestUniqueValues(t *testing.T) {
	m, _ := newManager(t)
	m.AddPaths(testutil.WriteSample(t, t.TempDir(), "sample.parquet"))
	ctx := testutil.TestContext(t)
	fp := m.Fingerprint()

	formulas, err := m.UniqueValues(ctx, "formula", fp)
	require.NoError(t, err)
	assert.Equal(t, []any{"CO2", "H2O", "NH3"}, formulas)

	tasks, err := m.UniqueValues(ctx, "task", fp)
	require.NoError(t, err)
	assert.Equal(t, []any{"freq", "opt"}, tasks)

	conv, err := m.UniqueValues(ctx, "opt_converged", fp)
	require.NoError(t, err)
	assert.Equal(t, []any{false, true}, conv)

	gibbs, err := m.UniqueValues(ctx, "G_eV", fp)
	require.NoError(t, err)
	assert.Equal(t, []any{-13.70}, gibbs)

	_, err = m.UniqueValues(ctx, "nope", fp)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestMoleculeByName(t *testing.T) {
	m, _ := newManager(t)
	m.AddPaths(testutil.WriteSample(t, t.TempDir(), "sample.parquet"))
	ctx := testutil.TestContext(t)

	rec, err := m.MoleculeByName(ctx, "mol_001")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "H2O", rec.Formula)
	assert.Equal(t, int64(3), rec.NumberOfAtoms)
	assert.True(t, rec.OptConverged)
	require.NotNil(t, rec.GibbsEV)
	assert.InDelta(t, -13.70, *rec.GibbsEV, 1e-9)

	nh3, err := m.MoleculeByName(ctx, "mol_003")
	require.NoError(t, err)
	require.NotNil(t, nh3)
	assert.False(t, nh3.OptConverged)
	assert.Nil(t, nh3.GibbsEV)
	assert.Empty(t, nh3.OptXYZ)
	assert.Equal(t, nh3.InitialXYZ, nh3.XYZ(true))

	missing, err := m.MoleculeByName(ctx, "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMoleculeByIndex(t *testing.T) {
	m, _ := newManager(t)
	m.AddPaths(testutil.WriteSample(t, t.TempDir(), "sample.parquet"))
	ctx := testutil.TestContext(t)

	for i, want := range []string{"mol_001", "mol_002", "mol_003"} {
		rec, err := m.MoleculeByIndex(ctx, i)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, want, rec.UniqueName)
	}

	for _, i := range []int{3, 100, -1} {
		rec, err := m.MoleculeByIndex(ctx, i)
		require.NoError(t, err)
		assert.Nil(t, rec, i)
	}
}

func TestAllMoleculeNames(t *testing.T) {
	m, _ := newManager(t)
	dir := t.TempDir()
	dup := testutil.SampleMolecules()
	dup[0].UniqueName, dup[1].UniqueName, dup[2].UniqueName = "mol_009", "mol_002", "mol_009"
	m.AddPaths(testutil.WriteSample(t, dir, "a.parquet"), testutil.WriteMolecules(t, dir, "b.parquet", dup))

	names, err := m.AllMoleculeNames(testutil.TestContext(t), m.Fingerprint())
	require.NoError(t, err)
	assert.Equal(t, []string{"mol_001", "mol_002", "mol_003", "mol_009"}, names)
}

func TestQueryErrorPropagates(t *testing.T) {
	conn := &countingConnector{}
	m, err := New(t.TempDir(), conn, testutil.TestLogger(t))
	require.NoError(t, err)
	m.AddPaths("/does/not/matter.parquet")

	_, err = m.SummaryStats(testutil.TestContext(t), m.Fingerprint())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))

	// errors are not memoized
	_, err = m.SummaryStats(testutil.TestContext(t), m.Fingerprint())
	require.Error(t, err)
	assert.Equal(t, int32(2), conn.calls.Load())
}
