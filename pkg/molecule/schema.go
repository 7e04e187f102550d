// Package molecule defines the fixed logical schema of IQC result files and
// the typed Record read from them.
package molecule

import (
	"fmt"
	"strconv"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/json"
)

// Kind is the logical type of a schema column.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindFloatList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindFloatList:
		return "float_list"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Column names, exactly as they appear in the parquet files.
const (
	ColUniqueName        = "unique_name"
	ColFormula           = "formula"
	ColNumberOfAtoms     = "number_of_atoms"
	ColNumberOfElectrons = "number_of_electrons"
	ColSpin              = "spin"
	ColCalculator        = "calculator"
	ColTask              = "task"
	ColModel             = "model"
	ColInitialEnergy     = "initial_energy_eV"
	ColOptEnergy         = "opt_energy_eV"
	ColOptConverged      = "opt_converged"
	ColOptSteps          = "opt_steps"
	ColOptTime           = "opt_time"
	ColInitialXYZ        = "initial_xyz"
	ColOptXYZ            = "opt_xyz"
	ColFrequencies       = "vibrational_frequencies_cm^-1"
	ColGibbs             = "G_eV"
	ColEnthalpy          = "H_eV"
	ColEntropy           = "S_eV/K"
)

// Column describes one schema column.
type Column struct {
	Name string
	Kind Kind
}

// Schema is the ordered list of columns every source file carries.
var Schema = []Column{
	{ColUniqueName, KindString},
	{ColFormula, KindString},
	{ColNumberOfAtoms, KindInt},
	{ColNumberOfElectrons, KindInt},
	{ColSpin, KindFloat},
	{ColCalculator, KindString},
	{ColTask, KindString},
	{ColModel, KindString},
	{ColInitialEnergy, KindFloat},
	{ColOptEnergy, KindFloat},
	{ColOptConverged, KindBool},
	{ColOptSteps, KindInt},
	{ColOptTime, KindFloat},
	{ColInitialXYZ, KindString},
	{ColOptXYZ, KindString},
	{ColFrequencies, KindFloatList},
	{ColGibbs, KindFloat},
	{ColEnthalpy, KindFloat},
	{ColEntropy, KindFloat},
}

var schemaIndex = func() map[string]Column {
	m := make(map[string]Column, len(Schema))
	for _, c := range Schema {
		m[c.Name] = c
	}
	return m
}()

// Lookup returns the column with the given name.
func Lookup(name string) (Column, bool) {
	c, ok := schemaIndex[name]
	return c, ok
}

// ColumnNames returns the schema column names in order.
func ColumnNames() []string {
	names := make([]string, len(Schema))
	for i, c := range Schema {
		names[i] = c.Name
	}
	return names
}

// Normalize converts a raw engine value for column name into its logical Go
// type: bool for KindBool, []float64 for KindFloatList, int64, float64 and
// string otherwise. Columns outside the schema are returned unchanged.
func Normalize(name string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	col, ok := schemaIndex[name]
	if !ok {
		return v, nil
	}

	switch col.Kind {
	case KindBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		}
	case KindInt:
		switch n := v.(type) {
		case int64:
			return n, nil
		case float64:
			return int64(n), nil
		}
	case KindFloat:
		switch f := v.(type) {
		case float64:
			return f, nil
		case int64:
			return float64(f), nil
		}
	case KindString:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		}
	case KindFloatList:
		var raw []byte
		switch s := v.(type) {
		case []float64:
			return s, nil
		case string:
			raw = []byte(s)
		case []byte:
			raw = s
		default:
			return nil, fmt.Errorf("column %q: unexpected %T for %s", name, v, col.Kind)
		}
		var out []float64
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("column %q: decode list: %w", name, err)
		}
		return out, nil
	}

	return nil, fmt.Errorf("column %q: unexpected %T for %s", name, v, col.Kind)
}

// ParseValue converts raw text, such as a query string value, into the
// logical type of column name. Unknown columns keep the raw string.
func ParseValue(name, raw string) (any, error) {
	col, ok := schemaIndex[name]
	if !ok {
		return raw, nil
	}

	switch col.Kind {
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("column %q: %q is not a bool", name, raw)
		}
		return b, nil
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("column %q: %q is not an integer", name, raw)
		}
		return n, nil
	case KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("column %q: %q is not a number", name, raw)
		}
		return f, nil
	case KindFloatList:
		var out []float64
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("column %q: decode list: %w", name, err)
		}
		return out, nil
	default:
		return raw, nil
	}
}

// FilterValue converts a caller-supplied comparison value to the logical
// type of column name. Strings are parsed as with ParseValue; other values
// must already match the column kind (any Go integer for int columns, any
// integer or float for float columns).
func FilterValue(name string, v any) (any, error) {
	col, ok := schemaIndex[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	if s, ok := v.(string); ok {
		return ParseValue(name, s)
	}

	switch col.Kind {
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindInt:
		if n, ok := asInt64(v); ok {
			return n, nil
		}
	case KindFloat:
		if n, ok := asInt64(v); ok {
			return float64(n), nil
		}
		switch f := v.(type) {
		case float64:
			return f, nil
		case float32:
			return float64(f), nil
		}
	}
	return nil, fmt.Errorf("column %q: %T cannot be compared with a %s column", name, v, col.Kind)
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	}
	return 0, false
}
