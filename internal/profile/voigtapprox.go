package profile

import "math"

// Approximation evaluates an approximation to the Voigt function (the
// convolution of a Gaussian and a Lorentzian) at a given abscissa value,
// for the Gaussian/Lorentzian widths it was constructed with.
type Approximation interface {
	At(x float64) float64
}

// cG and cL are the width-mapping constants shared by both pseudo-Voigt
// approximations.
var (
	cG = 2.0 * math.Sqrt(math.Log(2.0))
	cL = 2.0
)

// PseudoVoigt is the pseudo-Voigt approximation of Ida, Ando & Toraya
// (2000): a weighted sum of a Gaussian and a Lorentzian sharing a common
// scale derived from the target Gaussian and Lorentzian widths.
type PseudoVoigt struct {
	gammaG, gammaL, eta float64
}

// NewPseudoVoigt constructs the approximation for Gaussian width b and
// Lorentzian width d (same arbitrary unit).
func NewPseudoVoigt(b, d float64) PseudoVoigt {
	u := (cG * b) / (cL * d)
	r := 1.0 / math.Pow(1.0+u*(0.07842+u*(4.47163+u*(2.42843+u*(u+2.69269)))), 0.2)

	return PseudoVoigt{
		gammaG: (cL * d) / (cG * r),
		gammaL: (cL * d) / (cL * r),
		eta:    r * (1.36603 - r*(0.47719-r*0.11116)),
	}
}

// At returns the approximation's value at x.
func (p PseudoVoigt) At(x float64) float64 {
	return (1.0-p.eta)*gaussianKernel(x, p.gammaG) + p.eta*lorentzianKernel(x, p.gammaL)
}

// cI and cP are the additional width-mapping constants the extended
// approximation needs for its irrational and sech^2 terms.
var (
	cI = 2.0 * math.Sqrt(math.Pow(2.0, 2.0/3.0)-1.0)
	cP = 2.0 * math.Log(math.Sqrt(2.0)+1.0)
)

// ExtendedPseudoVoigt is the extended pseudo-Voigt approximation of Ida,
// Ando & Toraya (2000): a four-term mixture of a Gaussian, a Lorentzian,
// an irrational term and a squared-hyperbolic-secant term, which tracks
// the true Voigt function more closely than the plain pseudo-Voigt near
// the line core and in the far wings.
type ExtendedPseudoVoigt struct {
	gammaG, gammaL, gammaI, gammaP float64
	etaL, etaI, etaP               float64
}

// NewExtendedPseudoVoigt constructs the approximation for Gaussian width
// b and Lorentzian width d (same arbitrary unit).
func NewExtendedPseudoVoigt(b, d float64) ExtendedPseudoVoigt {
	u := cG*b + cL*d
	r := cL * d / u

	return ExtendedPseudoVoigt{
		gammaG: u * polyWG(r) / cG,
		gammaL: u * polyWL(r) / cL,
		gammaI: u * polyWI(r) / cI,
		gammaP: u * polyWP(r) / cP,
		etaL:   polyEtaL(r),
		etaI:   polyEtaI(r),
		etaP:   polyEtaP(r),
	}
}

// At returns the approximation's value at x.
func (p ExtendedPseudoVoigt) At(x float64) float64 {
	etaG := 1.0 - p.etaL - p.etaI - p.etaP
	return etaG*gaussianKernel(x, p.gammaG) +
		p.etaL*lorentzianKernel(x, p.gammaL) +
		p.etaI*irrationalKernel(x, p.gammaI) +
		p.etaP*sechSquaredKernel(x, p.gammaP)
}

// lorentzianKernel is the normalized Lorentzian f_l(x, gamma) =
// 1 / (pi * gamma * (1 + (x/gamma)^2)).
func lorentzianKernel(x, gamma float64) float64 {
	r := x / gamma
	return 1.0 / ((math.Pi * gamma) * (1.0 + r*r))
}

// irrationalKernel is the f_i term of the extended pseudo-Voigt mixture.
func irrationalKernel(x, gamma float64) float64 {
	r := x / gamma
	return 1.0 / ((2.0 * gamma) * math.Pow(1.0+r*r, 1.5))
}

// sechSquaredKernel is the f_p term of the extended pseudo-Voigt mixture.
func sechSquaredKernel(x, gamma float64) float64 {
	c := math.Cosh(x / gamma)
	return 1.0 / (2.0 * gamma * c * c)
}

// poly evaluates a degree-6 polynomial in Horner form.
func poly(x, h0, h1, h2, h3, h4, h5, h6 float64) float64 {
	return h0 + x*(h1+x*(h2+x*(h3+x*(h4+x*(h5+x*h6)))))
}

func polyWG(r float64) float64 {
	return 1.0 - r*poly(r, 0.66000, 0.15021, -1.24984, 4.74052, -9.48291, 8.48252, -2.95553)
}

func polyWL(r float64) float64 {
	return 1.0 - (1.0-r)*poly(r, -0.42179, -1.25693, 10.30003, -23.45651, 29.14158, -16.50453, 3.19974)
}

func polyWI(r float64) float64 {
	return poly(r, 1.19913, 1.43021, -15.36331, 47.06071, -73.61822, 57.92559, -17.80614)
}

func polyWP(r float64) float64 {
	return poly(r, 1.10186, -0.47745, -0.68688, 2.76622, -4.55466, 4.05475, -1.26571)
}

func polyEtaL(r float64) float64 {
	return r * (1.0 + (1.0-r)*poly(r, -0.30165, -1.38927, 9.31550, -24.10743, 34.96491, -21.18862, 3.70290))
}

func polyEtaI(r float64) float64 {
	return (r * (1.0 - r)) * poly(r, 0.25437, -0.14107, 3.23653, -11.09215, 22.10544, -24.12407, 9.76947)
}

func polyEtaP(r float64) float64 {
	return (r * (1.0 - r)) * poly(r, 1.01579, 1.50429, -9.21815, 23.59717, -39.71134, 32.83023, -10.02142)
}
