package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/require"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/molecule"
)

// WaterXYZ and friends are small valid geometries used by fixtures.
const (
	WaterXYZ = "3\nwater\nO 0.000 0.000 0.117\nH 0.000 0.757 -0.467\nH 0.000 -0.757 -0.467\n"
	CO2XYZ   = "3\ncarbon dioxide\nC 0.000 0.000 0.000\nO 0.000 0.000 1.160\nO 0.000 0.000 -1.160\n"
	NH3XYZ   = "4\nammonia\nN 0.000 0.000 0.000\nH 0.000 0.940 0.380\nH 0.814 -0.470 0.380\nH -0.814 -0.470 0.380\n"
)

func ptr(f float64) *float64 { return &f }

// SampleMolecules returns three records: H2O and CO2 converged, NH3 not,
// all run with the same calculator, two distinct tasks and one model.
func SampleMolecules() []molecule.Record {
	return []molecule.Record{
		{
			UniqueName: "mol_001", Formula: "H2O",
			NumberOfAtoms: 3, NumberOfElectrons: 10, Spin: 0,
			Calculator: "mace", Task: "opt", Model: "medium",
			InitialEnergyEV: -14.10, OptEnergyEV: -14.22,
			OptConverged: true, OptSteps: 12, OptTime: 0.8,
			InitialXYZ: WaterXYZ, OptXYZ: WaterXYZ,
			GibbsEV: ptr(-13.70), EnthalpyEV: ptr(-13.10), EntropyEVPerK: ptr(0.0020),
			VibrationalFrequencies: []float64{1595.1, 3657.0, 3755.9},
		},
		{
			UniqueName: "mol_002", Formula: "CO2",
			NumberOfAtoms: 3, NumberOfElectrons: 22, Spin: 0,
			Calculator: "mace", Task: "opt", Model: "medium",
			InitialEnergyEV: -22.90, OptEnergyEV: -22.97,
			OptConverged: true, OptSteps: 8, OptTime: 0.5,
			InitialXYZ: CO2XYZ, OptXYZ: CO2XYZ,
			VibrationalFrequencies: []float64{667.4, 667.4, 1333.0, 2349.0},
		},
		{
			UniqueName: "mol_003", Formula: "NH3",
			NumberOfAtoms: 4, NumberOfElectrons: 10, Spin: 0,
			Calculator: "mace", Task: "freq", Model: "medium",
			InitialEnergyEV: -19.40, OptEnergyEV: -19.41,
			OptConverged: false, OptSteps: 200, OptTime: 9.1,
			InitialXYZ: NH3XYZ,
		},
	}
}

// MoleculeSchema is the arrow schema of an IQC result file.
func MoleculeSchema() *arrow.Schema {
	fields := make([]arrow.Field, 0, len(molecule.Schema))
	for _, c := range molecule.Schema {
		var dt arrow.DataType
		switch c.Kind {
		case molecule.KindString:
			dt = arrow.BinaryTypes.String
		case molecule.KindInt:
			dt = arrow.PrimitiveTypes.Int64
		case molecule.KindFloat:
			dt = arrow.PrimitiveTypes.Float64
		case molecule.KindBool:
			dt = arrow.FixedWidthTypes.Boolean
		case molecule.KindFloatList:
			dt = arrow.ListOf(arrow.PrimitiveTypes.Float64)
		}
		fields = append(fields, arrow.Field{Name: c.Name, Type: dt, Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

// WriteParquet writes a single record batch built by fill to dir/name and
// returns the file path.
func WriteParquet(t *testing.T, dir, name string, schema *arrow.Schema, fill func(b *array.RecordBuilder)) string {
	t.Helper()

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	fill(b)
	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	fw, err := pqarrow.NewFileWriter(schema, &buf, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	require.NoError(t, err)
	require.NoError(t, fw.Write(rec))
	require.NoError(t, fw.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// WriteMolecules writes recs as an IQC result file at dir/name.
func WriteMolecules(t *testing.T, dir, name string, recs []molecule.Record) string {
	t.Helper()
	return WriteParquet(t, dir, name, MoleculeSchema(), func(b *array.RecordBuilder) {
		for _, r := range recs {
			appendRecord(b, r)
		}
	})
}

// WriteSample writes SampleMolecules to dir/name.
func WriteSample(t *testing.T, dir, name string) string {
	t.Helper()
	return WriteMolecules(t, dir, name, SampleMolecules())
}

func appendRecord(b *array.RecordBuilder, r molecule.Record) {
	for i, c := range molecule.Schema {
		fb := b.Field(i)
		switch c.Name {
		case molecule.ColUniqueName:
			fb.(*array.StringBuilder).Append(r.UniqueName)
		case molecule.ColFormula:
			fb.(*array.StringBuilder).Append(r.Formula)
		case molecule.ColNumberOfAtoms:
			fb.(*array.Int64Builder).Append(r.NumberOfAtoms)
		case molecule.ColNumberOfElectrons:
			fb.(*array.Int64Builder).Append(r.NumberOfElectrons)
		case molecule.ColSpin:
			fb.(*array.Float64Builder).Append(r.Spin)
		case molecule.ColCalculator:
			fb.(*array.StringBuilder).Append(r.Calculator)
		case molecule.ColTask:
			fb.(*array.StringBuilder).Append(r.Task)
		case molecule.ColModel:
			fb.(*array.StringBuilder).Append(r.Model)
		case molecule.ColInitialEnergy:
			fb.(*array.Float64Builder).Append(r.InitialEnergyEV)
		case molecule.ColOptEnergy:
			fb.(*array.Float64Builder).Append(r.OptEnergyEV)
		case molecule.ColOptConverged:
			fb.(*array.BooleanBuilder).Append(r.OptConverged)
		case molecule.ColOptSteps:
			fb.(*array.Int64Builder).Append(r.OptSteps)
		case molecule.ColOptTime:
			fb.(*array.Float64Builder).Append(r.OptTime)
		case molecule.ColInitialXYZ:
			appendString(fb.(*array.StringBuilder), r.InitialXYZ)
		case molecule.ColOptXYZ:
			appendString(fb.(*array.StringBuilder), r.OptXYZ)
		case molecule.ColFrequencies:
			lb := fb.(*array.ListBuilder)
			if r.VibrationalFrequencies == nil {
				lb.AppendNull()
				continue
			}
			lb.Append(true)
			lb.ValueBuilder().(*array.Float64Builder).AppendValues(r.VibrationalFrequencies, nil)
		case molecule.ColGibbs:
			appendFloat(fb.(*array.Float64Builder), r.GibbsEV)
		case molecule.ColEnthalpy:
			appendFloat(fb.(*array.Float64Builder), r.EnthalpyEV)
		case molecule.ColEntropy:
			appendFloat(fb.(*array.Float64Builder), r.EntropyEVPerK)
		}
	}
}

// empty geometry strings are stored as null
func appendString(b *array.StringBuilder, s string) {
	if s == "" {
		b.AppendNull()
		return
	}
	b.Append(s)
}

func appendFloat(b *array.Float64Builder, f *float64) {
	if f == nil {
		b.AppendNull()
		return
	}
	b.Append(*f)
}

func setMTime(t *testing.T, path string, d time.Duration) {
	info, err := os.Stat(path)
	require.NoError(t, err)
	mt := info.ModTime().Add(d)
	require.NoError(t, os.Chtimes(path, mt, mt))
}
