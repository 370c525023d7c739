package profile

// Superposition evaluates the sum of several profiles of the same type,
// each constructed from a contiguous slice of a flattened parameter
// vector.
type Superposition[P Profile] struct {
	profiles []P
}

// NewSuperposition builds a superposition of n profiles from the
// flattened parameter vector q, calling build on each successive slice
// of arity parameters.
func NewSuperposition[P Profile](n int, arity int, q []float64, build func(q []float64) P) Superposition[P] {
	profiles := make([]P, n)
	for i := 0; i < n; i++ {
		profiles[i] = build(q[i*arity : (i+1)*arity])
	}
	return Superposition[P]{profiles: profiles}
}

// At returns the sum of every component profile's contribution at
// wavelength lambda.
func (s Superposition[P]) At(lambda float64) float64 {
	var d float64
	for _, p := range s.profiles {
		d += p.At(lambda)
	}
	return d
}

// Len returns the number of component profiles.
func (s Superposition[P]) Len() int { return len(s.profiles) }
