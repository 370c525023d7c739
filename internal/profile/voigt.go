package profile

import "math"

// Voigt is the Voigt profile used to model intergalactic absorption
// lines, carrying seven parameters: the six of Doppler plus a damping
// constant. The true Voigt function (the convolution of a Gaussian and a
// Lorentzian) is replaced by a pseudo-Voigt or extended pseudo-Voigt
// approximation, selected by the caller.
type Voigt struct {
	center           float64
	gaussianWidth    float64
	lorentzianWidth  float64
	amplitude        float64
	approximate      func(b, d float64) Approximation
	approximation    Approximation
}

// voigtArity is the number of parameters a Voigt profile consumes.
const voigtArity = 7

// voigtTruncationK is the number of combined Gaussian/Lorentzian widths
// beyond which a Voigt profile is forced to exactly zero. The Lorentzian
// component decays far more slowly than the Gaussian, so this is set
// well beyond the Doppler truncationK.
const voigtTruncationK = 20.0

// NewVoigt constructs a Voigt profile from its seven parameters, using
// approximate as the strategy for approximating the Voigt function:
//
//	q[0] rest wavelength (Angstrom)
//	q[1] oscillator strength
//	q[2] cosmological redshift
//	q[3] radial velocity (km/s)
//	q[4] line broadening velocity (km/s)
//	q[5] decadic logarithm of the column number density (cm^-2)
//	q[6] damping constant (s^-1)
func NewVoigt(q []float64, approximate func(b, d float64) Approximation) Voigt {
	center := q[0] * (1.0 + q[2]) * (1.0 + q[3]/SpeedOfLight)
	gaussianWidth := q[4] * center / SpeedOfLight
	lorentzianWidth := dampingCoefficient * q[6] * (q[0] * center)

	return newVoigt(center, gaussianWidth, lorentzianWidth,
		amplitudeCoefficient*q[1]*math.Pow(10.0, q[5])*(q[0]*center), approximate)
}

func newVoigt(center, gaussianWidth, lorentzianWidth, amplitude float64, approximate func(b, d float64) Approximation) Voigt {
	return Voigt{
		center:          center,
		gaussianWidth:   gaussianWidth,
		lorentzianWidth: lorentzianWidth,
		amplitude:       amplitude,
		approximate:     approximate,
		approximation:   approximate(gaussianWidth, lorentzianWidth),
	}
}

// NewExtendedVoigt constructs a Voigt profile approximated by the
// extended pseudo-Voigt of Ida, Ando & Toraya (2000), the default and
// most accurate approximation strategy.
func NewExtendedVoigt(q []float64) Voigt {
	return NewVoigt(q, func(b, d float64) Approximation { return NewExtendedPseudoVoigt(b, d) })
}

// NewPlainVoigt constructs a Voigt profile approximated by the plain
// pseudo-Voigt of Ida, Ando & Toraya (2000).
func NewPlainVoigt(q []float64) Voigt {
	return NewVoigt(q, func(b, d float64) Approximation { return NewPseudoVoigt(b, d) })
}

// At returns the optical-depth contribution at wavelength lambda,
// truncated to zero beyond voigtTruncationK combined Gaussian/Lorentzian
// widths from the center.
func (v Voigt) At(lambda float64) float64 {
	width := v.gaussianWidth + v.lorentzianWidth
	return v.amplitude * truncate(func(x, b float64) float64 { return v.approximation.At(x) }, lambda-v.center, width, voigtTruncationK)
}

// Arity returns the number of parameters a Voigt profile consumes.
func (Voigt) Arity() int { return voigtArity }

// Convolve returns this Voigt profile convolved with a Gaussian
// instrumental kernel of width gamma. Since a Voigt profile is itself the
// convolution of a Gaussian and a Lorentzian, convolving it with a second
// Gaussian only broadens its Gaussian component in quadrature, leaving
// the Lorentzian damping width untouched.
func (v Voigt) Convolve(gamma float64) Profile {
	return newVoigt(v.center, combineGaussianWidths(v.gaussianWidth, gamma), v.lorentzianWidth, v.amplitude, v.approximate)
}
