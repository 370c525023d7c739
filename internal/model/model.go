package model

import (
	"math"

	"github.com/rquast/especia/internal/profile"
	"github.com/rquast/especia/internal/section"
)

// LineKind selects which fixed-arity absorption-line profile variant a
// section's lines are built from.
type LineKind int

const (
	KindDoppler LineKind = iota
	KindVoigt
	KindManyMultiplet
)

// Arity returns the number of parameters one line of this kind consumes.
func (k LineKind) Arity() int {
	switch k {
	case KindVoigt:
		return 7
	case KindManyMultiplet:
		return 8
	default:
		return 6
	}
}

func buildLine(kind LineKind, q []float64) profile.Convolvable {
	switch kind {
	case KindVoigt:
		return profile.NewExtendedVoigt(q)
	case KindManyMultiplet:
		return profile.NewManyMultiplet(q)
	default:
		return profile.NewDoppler(q)
	}
}

// SectionBinding ties one spectral Section to the slice of the dense
// parameter vector that feeds it: a single resolving-power parameter
// followed by lineCount lines of kind, each kind.Arity() parameters wide.
type SectionBinding struct {
	Section    *section.Section
	Kind       LineKind
	RIndex     int
	LineIndex  int
	LineCount  int
}

// Model aggregates one or more sections and the parameter table that
// drives them, grounded on the original especia core's Model<Profile>
// (model.h): it splices the optimizer's free-parameter vector into the
// dense table, builds each section's line superposition, and sums costs.
type Model struct {
	table    *ParamTable
	bindings []SectionBinding
}

// New constructs a Model from a resolved parameter table and its section
// bindings.
func New(table *ParamTable, bindings []SectionBinding) *Model {
	return &Model{table: table, bindings: bindings}
}

// Evaluate splices x into the free slots of the parameter table,
// constructs each section's line superposition, and returns the summed
// cost across all sections. A non-finite intermediate result propagates
// as +Inf, so that an offending offspring simply loses
// the ranking rather than aborting the run.
func (m *Model) Evaluate(x []float64) float64 {
	values := m.table.Splice(x)

	var total float64
	for _, b := range m.bindings {
		r := values[b.RIndex]
		lines := make([]profile.Convolvable, b.LineCount)
		arity := b.Kind.Arity()
		for i := 0; i < b.LineCount; i++ {
			start := b.LineIndex + i*arity
			lines[i] = buildLine(b.Kind, values[start:start+arity])
		}
		total += b.Section.Cost(lines, r)
	}

	if math.IsNaN(total) {
		return math.Inf(1)
	}
	return total
}

// InitialValues returns the optimizer's starting mean: the midpoints of
// the bounds of every free parameter.
func (m *Model) InitialValues() []float64 {
	return m.table.InitialValues()
}

// InitialStepSizes returns the optimizer's starting local step sizes:
// the half-widths of the bounds of every free parameter.
func (m *Model) InitialStepSizes() []float64 {
	return m.table.InitialStepSizes()
}

// Constraint returns the bounded constraint built from the free
// parameters' bounds.
func (m *Model) Constraint() BoundedConstraint {
	lower, upper := m.table.Bounds()
	return NewBoundedConstraint(lower, upper)
}

// ApplyOptimum writes the optimized free-parameter vector x and its
// per-parameter uncertainty vector z back into the parameter table, and
// re-evaluates every section at the optimum so that continua and model
// spectra become available for reporting.
func (m *Model) ApplyOptimum(x, z []float64) {
	values, _ := m.table.Apply(x, z)

	for _, b := range m.bindings {
		r := values[b.RIndex]
		lines := make([]profile.Convolvable, b.LineCount)
		arity := b.Kind.Arity()
		for i := 0; i < b.LineCount; i++ {
			start := b.LineIndex + i*arity
			lines[i] = buildLine(b.Kind, values[start:start+arity])
		}
		b.Section.Apply(lines, r)
	}
}

// Values returns the dense parameter vector's current values.
func (m *Model) Values() []float64 {
	return m.table.Values()
}

// Table returns the underlying parameter table, for reporting.
func (m *Model) Table() *ParamTable {
	return m.table
}
