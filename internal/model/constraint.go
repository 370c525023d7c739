package model

// BoundedConstraint tests parameter vectors componentwise against
// [lower, upper]. Its additive cost contribution is always zero:
// constraints are enforced by offspring rejection and resampling in the
// optimizer, never by penalty.
type BoundedConstraint struct {
	lower, upper []float64
}

// NewBoundedConstraint constructs a bounded constraint from parallel
// lower/upper bound vectors.
func NewBoundedConstraint(lower, upper []float64) BoundedConstraint {
	return BoundedConstraint{lower: lower, upper: upper}
}

// IsViolated reports whether x violates the constraint in any component.
func (c BoundedConstraint) IsViolated(x []float64) bool {
	for i, xi := range x {
		if xi < c.lower[i] || xi > c.upper[i] {
			return true
		}
	}
	return false
}

// Cost always returns zero: the bounded constraint carries no penalty
// term of its own.
func (c BoundedConstraint) Cost(x []float64) float64 {
	return 0.0
}
