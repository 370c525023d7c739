package profile

import "math"

// ManyMultiplet is the Doppler profile used to probe the variation of the
// fine-structure constant by means of a many-multiplet analysis (Quast,
// Reimers & Levshakov 2004). It extends Doppler with a relativistic
// correction coefficient and a global Δα/α parameter that perturbs the
// rest wavelength before the usual Doppler shift is applied.
type ManyMultiplet struct {
	center    float64
	width     float64
	amplitude float64
}

// manyMultipletArity is the number of parameters a ManyMultiplet profile
// consumes.
const manyMultipletArity = 8

// NewManyMultiplet constructs a ManyMultiplet profile from its eight
// parameters:
//
//	q[0] rest wavelength (Angstrom)
//	q[1] oscillator strength
//	q[2] cosmological redshift
//	q[3] radial velocity (km/s)
//	q[4] line broadening velocity (km/s)
//	q[5] decadic logarithm of the column number density (cm^-2)
//	q[6] relativistic correction coefficient
//	q[7] variation of the fine-structure constant (parts per million)
func NewManyMultiplet(q []float64) ManyMultiplet {
	dAlpha := q[7] * Micro
	modified := 1.0e+08 / (1.0e+08/q[0] + q[6]*dAlpha*(dAlpha+2.0))
	center := modified * (1.0 + q[2]) * (1.0 + q[3]/SpeedOfLight)

	return ManyMultiplet{
		center:    center,
		width:     q[4] * center / SpeedOfLight,
		amplitude: amplitudeCoefficient * q[1] * math.Pow(10.0, q[5]) * (modified * center),
	}
}

// At returns the optical-depth contribution at wavelength lambda,
// truncated to zero beyond truncationK Doppler widths from the center.
func (m ManyMultiplet) At(lambda float64) float64 {
	return m.amplitude * truncate(gaussianKernel, lambda-m.center, m.width, truncationK)
}

// Arity returns the number of parameters a ManyMultiplet profile consumes.
func (ManyMultiplet) Arity() int { return manyMultipletArity }

// Convolve returns this ManyMultiplet profile convolved with a Gaussian
// instrumental kernel of width gamma, itself a profile of combined width.
func (m ManyMultiplet) Convolve(gamma float64) Profile {
	return ManyMultiplet{
		center:    m.center,
		width:     combineGaussianWidths(m.width, gamma),
		amplitude: m.amplitude,
	}
}
