// Package xunits converts between air and vacuum photon wavelengths and
// applies a heliocentric velocity correction, grounded on the original
// especia utilities airtovac.cxx and vactoair.cxx and on the Edlén
// dispersion equations of core/equations.h.
package xunits

import (
	"fmt"
	"math"

	"github.com/rquast/especia/internal/profile"
)

// edlen66 evaluates the IAU-standard refractive-index dispersion formula
// (Edlén 1966) and its derivative, both as functions of wavenumber x in
// nm^-1, following the convention wavenumber := 10.0 / wavelength
// (Angstrom) used throughout the original core/equations.h and
// util/vactoair.cxx.
func edlen66(x float64) (y, dy float64) {
	const (
		a  = 1.0
		b  = 8.34213e-05
		c1 = 1.5997e-10
		d1 = 0.0000389
		c2 = 2.406030e-08
		d2 = 0.000130
	)
	t1 := c1 / (d1 - x*x)
	t2 := c2 / (d2 - x*x)
	n := a + b + t1 + t2
	y = n * x

	dt1 := c1 * (2.0 * x) / sq(d1-x*x)
	dt2 := c2 * (2.0 * x) / sq(d2-x*x)
	dy = n + x*(dt1+dt2)
	return y, dy
}

func sq(x float64) float64 { return x * x }

// VacuumToAir converts a vacuum wavelength (Angstrom) to an air
// wavelength (Angstrom), applying the Edlén 1966 dispersion formula
// directly — grounded on vactoair.cxx's vactoair function.
func VacuumToAir(lambdaVacuum float64) float64 {
	x := 10.0 / lambdaVacuum
	y, _ := edlen66(x)
	return 10.0 / y
}

// AirToVacuum converts an air wavelength (Angstrom) to a vacuum
// wavelength (Angstrom) by inverting the Edlén 1966 formula with
// Newton's method, grounded on airtovac.cxx's solve function.
func AirToVacuum(lambdaAir float64) (float64, error) {
	target := 10.0 / lambdaAir
	x := target

	const maxIterations = 100
	const accuracyGoal = 1.0e-8

	for i := 0; i < maxIterations; i++ {
		y, dy := edlen66(x)
		delta := (y - target) / dy
		x -= delta
		if math.Abs(delta) < accuracyGoal*x {
			return 10.0 / x, nil
		}
	}
	return 0, fmt.Errorf("air-to-vacuum conversion did not reach the accuracy goal for wavelength %g", lambdaAir)
}

// HeliocentricCorrection shifts an observed wavelength (Angstrom) to the
// heliocentric rest frame by the given radial velocity (km/s, positive
// receding), using the same low-velocity Doppler ratio convention as the
// absorption-line profiles (profile.SpeedOfLight, in km/s).
func HeliocentricCorrection(lambdaObserved, velocityHelioKmPerSec float64) float64 {
	return lambdaObserved * (1.0 + velocityHelioKmPerSec/profile.SpeedOfLight)
}
