package section

import (
	"math"

	"github.com/rquast/especia/internal/profile"
	"github.com/rquast/especia/internal/xcorr"
)

// Sample is one observed (wavelength, flux, error) triple.
type Sample struct {
	Lambda float64
	Flux   float64
	Sigma  float64
}

// Section holds one contiguous spectral window together with its
// validity mask and Legendre continuum basis, and computes the
// optical-depth-attenuated, instrument-convolved forward model and the
// resulting cost for a given superposition of absorption-line profiles.
type Section struct {
	lo, hi  float64
	order   int
	samples []Sample
	mask    Mask

	continuum []float64
	model     []float64
	cost      float64
	validN    int
}

// New constructs a Section over the wavelength window [lo, hi] with a
// Legendre continuum basis of order p, backed by samples. Samples outside
// [lo, hi] are dropped.
func New(lo, hi float64, order int, samples []Sample) *Section {
	kept := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if s.Lambda >= lo && s.Lambda <= hi {
			kept = append(kept, s)
		}
	}
	return &Section{lo: lo, hi: hi, order: order, samples: kept}
}

// Mask adds a masked interval [lo, hi] to the section.
func (s *Section) Mask(lo, hi float64) {
	s.mask.Add(lo, hi)
}

// Bounds returns the section's wavelength window.
func (s *Section) Bounds() (float64, float64) {
	return s.lo, s.hi
}

// ValidDataCount returns the number of unmasked samples evaluated by the
// most recent call to Cost or Apply.
func (s *Section) ValidDataCount() int {
	return s.validN
}

// Cost evaluates the forward model for the given lines (each convolved
// with the Gaussian instrumental response at resolving power r, referred
// to the section's midpoint wavelength) and returns χ² summed over valid
// samples. The fitted continuum and model spectrum of this evaluation are
// retained in the section.
func (s *Section) Cost(lines []profile.Convolvable, r float64) float64 {
	s.evaluate(lines, r)
	return s.cost
}

// Apply evaluates the forward model exactly as Cost does, retaining the
// fitted continuum and model spectrum in the same way, so that the
// section can be rendered afterward.
func (s *Section) Apply(lines []profile.Convolvable, r float64) float64 {
	return s.Cost(lines, r)
}

func (s *Section) evaluate(lines []profile.Convolvable, r float64) {
	n := len(s.samples)

	lambda := make([]float64, 0, n)
	attenuation := make([]float64, 0, n)
	target := make([]float64, 0, n)
	weight := make([]float64, 0, n)
	sigma := make([]float64, 0, n)

	mid := 0.5 * (s.lo + s.hi)
	gamma := InstrumentGamma(mid, r)

	convolved := make([]xcorr.Profile, len(lines))
	for i, l := range lines {
		convolved[i] = l.Convolve(gamma)
	}

	validCount := 0
	for _, sample := range s.samples {
		if !s.mask.Valid(sample.Lambda) {
			continue
		}
		validCount++

		lambda = append(lambda, sample.Lambda)
		target = append(target, sample.Flux)
		weight = append(weight, 1.0/(sample.Sigma*sample.Sigma))
		sigma = append(sigma, sample.Sigma)
	}

	s.validN = validCount

	if validCount == 0 {
		s.cost = 0
		s.continuum = nil
		s.model = nil
		return
	}

	tau := make([]float64, validCount)
	xcorr.SumOpticalDepth(convolved, lambda, tau)
	for i := range tau {
		attenuation = append(attenuation, math.Exp(-tau[i]))
	}

	coeff, err := fitContinuum(s.order, s.lo, s.hi, lambda, attenuation, target, weight)
	if err != nil {
		s.cost = math.Inf(1)
		return
	}
	s.continuum = coeff

	var cost float64
	model := make([]float64, len(lambda))
	for i := range lambda {
		c := evaluateContinuum(coeff, s.lo, s.hi, lambda[i])
		fit := c * attenuation[i]
		model[i] = fit
		residual := (target[i] - fit) / sigma[i]
		cost += residual * residual
	}
	s.model = model
	s.cost = cost
}

// LastCost returns the cost computed by the most recent evaluation.
func (s *Section) LastCost() float64 {
	return s.cost
}
