// Package model aggregates spectral sections and the parameter table
// that drives them, exposing the evaluate/bounds/constraint surface the
// optimizer needs, grounded on the original especia core's Model<Profile>
// aggregator (model.h) and its two-pass parameter table construction.
package model

// entry is one parameter-vector element: a value with bounds, a mask flag
// (free vs pinned) and an optional link to another entry.
type entry struct {
	value, lower, upper float64
	free                bool
	ref                 string // symbolic id of the linked entry, empty if none
	linkedTo            int    // resolved index of the entry this one is linked to, -1 if none
	index               int    // index into the free-parameter vector; -1 if pinned
}

// IllegalArgument is returned when a parameter specification is
// malformed: a self-reference, a reference to an unknown id, or a
// duplicate id.
type IllegalArgument struct {
	Reason string
}

func (e *IllegalArgument) Error() string {
	return "illegal argument: " + e.Reason
}

// ParamTable is the resolved, immutable index map from the dense
// parameter vector to the free-parameter vector seen by the optimizer.
// It is built in two passes: Builder.Add collects entries with symbolic
// references, and Builder.Build resolves those references with cycle
// detection, via a two-pass construction pattern.
type ParamTable struct {
	entries   []entry
	freeCount int
	values    []float64
	errs      []float64
}

// Builder collects parameter specifications before they are resolved into
// a ParamTable.
type Builder struct {
	entries []entry
	ids     map[string]int
}

// NewBuilder returns an empty parameter-table builder.
func NewBuilder() *Builder {
	return &Builder{ids: make(map[string]int)}
}

// Add appends a new parameter specification. If id is non-empty, other
// entries may reference it via ref; id must not already be in use. If
// ref is non-empty, this entry inherits its value, bounds and mask from
// the entry named by ref once resolved.
func (b *Builder) Add(id string, value, lower, upper float64, free bool, ref string) (int, error) {
	if id != "" {
		if _, exists := b.ids[id]; exists {
			return 0, &IllegalArgument{Reason: "duplicate parameter identifier: " + id}
		}
	}

	index := len(b.entries)
	b.entries = append(b.entries, entry{
		value: value, lower: lower, upper: upper, free: free, ref: ref, linkedTo: -1,
	})

	if id != "" {
		b.ids[id] = index
	}
	return index, nil
}

// Build resolves every symbolic reference, detects cycles and
// self-references, and assigns consecutive free-parameter indices to
// every entry not itself linked to another.
func (b *Builder) Build() (*ParamTable, error) {
	entries := make([]entry, len(b.entries))
	copy(entries, b.entries)

	for i := range entries {
		if entries[i].ref == "" {
			continue
		}
		target, err := resolve(entries, b.ids, i, map[int]bool{i: true})
		if err != nil {
			return nil, err
		}
		entries[i].linkedTo = target
	}

	for i := range entries {
		if entries[i].linkedTo >= 0 {
			root := entries[i].linkedTo
			entries[i].value = entries[root].value
			entries[i].lower = entries[root].lower
			entries[i].upper = entries[root].upper
			entries[i].free = entries[root].free
		}
	}

	freeCount := 0
	for i := range entries {
		if entries[i].linkedTo >= 0 {
			continue
		}
		if entries[i].free {
			entries[i].index = freeCount
			freeCount++
		} else {
			entries[i].index = -1
		}
	}
	for i := range entries {
		if entries[i].linkedTo >= 0 {
			entries[i].index = entries[entries[i].linkedTo].index
		}
	}

	return &ParamTable{entries: entries, freeCount: freeCount}, nil
}

// resolve follows the chain of references from entry i to its ultimate,
// unlinked root, detecting cycles and unknown or self references along
// the way.
func resolve(entries []entry, ids map[string]int, i int, visited map[int]bool) (int, error) {
	ref := entries[i].ref
	target, ok := ids[ref]
	if !ok {
		return 0, &IllegalArgument{Reason: "reference not found: " + ref}
	}
	if target == i {
		return 0, &IllegalArgument{Reason: "self reference: " + ref}
	}
	if visited[target] {
		return 0, &IllegalArgument{Reason: "circular reference via: " + ref}
	}
	if entries[target].ref == "" {
		return target, nil
	}
	visited[target] = true
	return resolve(entries, ids, target, visited)
}

// Len returns the number of entries in the table (dense parameter
// vector length).
func (t *ParamTable) Len() int {
	return len(t.entries)
}

// FreeCount returns the dimension of the free-parameter vector the
// optimizer sees.
func (t *ParamTable) FreeCount() int {
	return t.freeCount
}

// Values returns a copy of every entry's current value, in dense order.
func (t *ParamTable) Values() []float64 {
	values := make([]float64, len(t.entries))
	for i, e := range t.entries {
		values[i] = e.value
	}
	return values
}

// Splice writes x (length FreeCount()) into the free slots of a copy of
// the dense parameter vector, respecting links, and returns the result.
func (t *ParamTable) Splice(x []float64) []float64 {
	values := make([]float64, len(t.entries))
	for i, e := range t.entries {
		if e.index >= 0 {
			values[i] = x[e.index]
		} else {
			values[i] = e.value
		}
	}
	return values
}

// InitialValues returns the midpoints of the bounds of every free,
// unlinked parameter, in free-vector order — the optimizer's starting
// mean.
func (t *ParamTable) InitialValues() []float64 {
	x := make([]float64, t.freeCount)
	for _, e := range t.entries {
		if e.linkedTo < 0 && e.free {
			x[e.index] = 0.5 * (e.lower + e.upper)
		}
	}
	return x
}

// InitialStepSizes returns the half-widths of the bounds of every free,
// unlinked parameter, in free-vector order — the optimizer's starting
// local step sizes.
func (t *ParamTable) InitialStepSizes() []float64 {
	d := make([]float64, t.freeCount)
	for _, e := range t.entries {
		if e.linkedTo < 0 && e.free {
			d[e.index] = 0.5 * (e.upper - e.lower)
		}
	}
	return d
}

// Bounds returns the lower and upper bound vectors of every free,
// unlinked parameter, in free-vector order.
func (t *ParamTable) Bounds() (lower, upper []float64) {
	lower = make([]float64, t.freeCount)
	upper = make([]float64, t.freeCount)
	for _, e := range t.entries {
		if e.linkedTo < 0 && e.free {
			lower[e.index] = e.lower
			upper[e.index] = e.upper
		}
	}
	return lower, upper
}

// Apply writes optimized values x and per-parameter uncertainties z
// (both length FreeCount()) back into the dense parameter vector and its
// parallel uncertainty vector, retaining both for later reporting via
// Value and Uncertainty.
func (t *ParamTable) Apply(x, z []float64) ([]float64, []float64) {
	values := make([]float64, len(t.entries))
	errs := make([]float64, len(t.entries))
	for i, e := range t.entries {
		if e.free && e.index >= 0 {
			values[i] = x[e.index]
			errs[i] = z[e.index]
		} else {
			values[i] = e.value
			errs[i] = 0.0
		}
	}
	t.values = values
	t.errs = errs
	return values, errs
}

// Value returns the applied value of dense entry i, or its as-parsed
// value if ApplyOptimum has not yet been called.
func (t *ParamTable) Value(i int) float64 {
	if t.values != nil {
		return t.values[i]
	}
	return t.entries[i].value
}

// Uncertainty returns the applied 1-sigma uncertainty of dense entry i,
// or zero if ApplyOptimum has not yet been called.
func (t *ParamTable) Uncertainty(i int) float64 {
	if t.errs != nil {
		return t.errs[i]
	}
	return 0.0
}

// IsFree reports whether dense entry i is a free (not pinned) parameter.
func (t *ParamTable) IsFree(i int) bool {
	return t.entries[i].free
}
