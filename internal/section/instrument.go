package section

import "math"

// sqrtLn2 is sqrt(ln 2), the factor relating a Gaussian's FWHM to its
// kernel width in the exp(-(x/gamma)^2) convention used throughout
// internal/profile.
var sqrtLn2 = math.Sqrt(math.Log(2.0))

// InstrumentGamma returns the kernel width (in the x/gamma convention) of
// the Gaussian instrumental response at wavelength lambda for resolving
// power r, where FWHM = lambda / r.
func InstrumentGamma(lambda, r float64) float64 {
	fwhm := lambda / r
	return fwhm / (2.0 * sqrtLn2)
}
