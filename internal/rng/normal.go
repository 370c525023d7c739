package rng

import "math"

// Uniform01 is satisfied by any generator producing uniform deviates on
// [0, 1], such as MT19937 or MT19937_32.
type Uniform01 interface {
	Float64() float64
}

// NormalDeviate layers a standard-normal source on top of a uniform
// generator using the polar (Box–Muller) method: a pair (u, v) is drawn
// uniformly from the open unit disk and mapped to two independent N(0,1)
// deviates. The second deviate of each pair is cached and returned on the
// following call.
//
// The source must never return NaN or an infinity; if the underlying
// uniform generator happens to yield exactly 0 or 1, the candidate pair is
// rejected and redrawn, since those values make the polar construction
// degenerate.
type NormalDeviate struct {
	source Uniform01
	cached float64
	have   bool
}

// NewNormalDeviate wraps the given uniform source.
func NewNormalDeviate(source Uniform01) *NormalDeviate {
	return &NormalDeviate{source: source}
}

// Float64 returns the next standard-normal deviate.
func (n *NormalDeviate) Float64() float64 {
	if n.have {
		n.have = false
		return n.cached
	}

	var u, v, s float64
	for {
		u = 2.0*n.uniformOpen() - 1.0
		v = 2.0*n.uniformOpen() - 1.0
		s = u*u + v*v
		if s > 0.0 && s < 1.0 {
			break
		}
	}

	f := math.Sqrt(-2.0 * math.Log(s) / s)
	n.cached = v * f
	n.have = true

	return u * f
}

// uniformOpen redraws a uniform deviate whenever the generator returns
// exactly 0 or 1, so downstream consumers never observe a degenerate pair.
func (n *NormalDeviate) uniformOpen() float64 {
	for {
		x := n.source.Float64()
		if x > 0.0 && x < 1.0 {
			return x
		}
	}
}
