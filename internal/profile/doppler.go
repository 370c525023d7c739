package profile

import "math"

// Doppler is the Doppler profile used to model intergalactic absorption
// lines, carrying six parameters: rest wavelength, oscillator strength,
// cosmological redshift, radial velocity, broadening velocity and column
// density.
type Doppler struct {
	center    float64
	width     float64
	amplitude float64
}

// dopplerArity is the number of parameters a Doppler profile consumes.
const dopplerArity = 6

// NewDoppler constructs a Doppler profile from its six parameters:
//
//	q[0] rest wavelength (Angstrom)
//	q[1] oscillator strength
//	q[2] cosmological redshift
//	q[3] radial velocity (km/s)
//	q[4] line broadening velocity (km/s)
//	q[5] decadic logarithm of the column number density (cm^-2)
func NewDoppler(q []float64) Doppler {
	center := q[0] * (1.0 + q[2]) * (1.0 + q[3]/SpeedOfLight)
	return Doppler{
		center:    center,
		width:     q[4] * center / SpeedOfLight,
		amplitude: amplitudeCoefficient * q[1] * math.Pow(10.0, q[5]) * (q[0] * center),
	}
}

// At returns the optical-depth contribution at wavelength lambda,
// truncated to zero beyond truncationK Doppler widths from the center.
func (d Doppler) At(lambda float64) float64 {
	return d.amplitude * truncate(gaussianKernel, lambda-d.center, d.width, truncationK)
}

// Arity returns the number of parameters a Doppler profile consumes.
func (Doppler) Arity() int { return dopplerArity }

// Convolve returns this Doppler profile convolved with a Gaussian
// instrumental kernel of width gamma, itself a Doppler-shaped profile of
// combined width.
func (d Doppler) Convolve(gamma float64) Profile {
	return Doppler{
		center:    d.center,
		width:     combineGaussianWidths(d.width, gamma),
		amplitude: d.amplitude,
	}
}
