package molecule

import (
	"fmt"
)

// Record is one row of computational chemistry results. Null values in
// non-pointer fields decode as the zero value; thermodynamic quantities are
// pointers because many tasks never compute them.
type Record struct {
	UniqueName             string    `json:"unique_name"`
	Formula                string    `json:"formula"`
	NumberOfAtoms          int64     `json:"number_of_atoms"`
	NumberOfElectrons      int64     `json:"number_of_electrons"`
	Spin                   float64   `json:"spin"`
	Calculator             string    `json:"calculator"`
	Task                   string    `json:"task"`
	Model                  string    `json:"model"`
	InitialEnergyEV        float64   `json:"initial_energy_eV"`
	OptEnergyEV            float64   `json:"opt_energy_eV"`
	OptConverged           bool      `json:"opt_converged"`
	OptSteps               int64     `json:"opt_steps"`
	OptTime                float64   `json:"opt_time"`
	InitialXYZ             string    `json:"initial_xyz"`
	OptXYZ                 string    `json:"opt_xyz"`
	VibrationalFrequencies []float64 `json:"vibrational_frequencies_cm^-1"`
	GibbsEV                *float64  `json:"G_eV"`
	EnthalpyEV             *float64  `json:"H_eV"`
	EntropyEVPerK          *float64  `json:"S_eV/K"`
}

// FromRow builds a Record from a result row. columns names each value in row;
// values may be raw engine values or already normalized. Columns outside the
// schema are ignored.
func FromRow(columns []string, row []any) (*Record, error) {
	if len(columns) != len(row) {
		return nil, fmt.Errorf("row has %d values for %d columns", len(row), len(columns))
	}

	r := &Record{}
	for i, name := range columns {
		v, err := Normalize(name, row[i])
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		switch name {
		case ColUniqueName:
			r.UniqueName = v.(string)
		case ColFormula:
			r.Formula = v.(string)
		case ColNumberOfAtoms:
			r.NumberOfAtoms = v.(int64)
		case ColNumberOfElectrons:
			r.NumberOfElectrons = v.(int64)
		case ColSpin:
			r.Spin = v.(float64)
		case ColCalculator:
			r.Calculator = v.(string)
		case ColTask:
			r.Task = v.(string)
		case ColModel:
			r.Model = v.(string)
		case ColInitialEnergy:
			r.InitialEnergyEV = v.(float64)
		case ColOptEnergy:
			r.OptEnergyEV = v.(float64)
		case ColOptConverged:
			r.OptConverged = v.(bool)
		case ColOptSteps:
			r.OptSteps = v.(int64)
		case ColOptTime:
			r.OptTime = v.(float64)
		case ColInitialXYZ:
			r.InitialXYZ = v.(string)
		case ColOptXYZ:
			r.OptXYZ = v.(string)
		case ColFrequencies:
			r.VibrationalFrequencies = v.([]float64)
		case ColGibbs:
			f := v.(float64)
			r.GibbsEV = &f
		case ColEnthalpy:
			f := v.(float64)
			r.EnthalpyEV = &f
		case ColEntropy:
			f := v.(float64)
			r.EntropyEVPerK = &f
		}
	}
	return r, nil
}

// XYZ returns the optimized geometry when present, otherwise the initial one.
func (r *Record) XYZ(optimized bool) string {
	if optimized && r.OptXYZ != "" {
		return r.OptXYZ
	}
	return r.InitialXYZ
}
