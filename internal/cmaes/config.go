// Package cmaes implements the derandomized evolution strategy with
// covariance matrix adaption (Hansen & Ostermeier 2001), the optimizer
// at the center of this module. It is grounded on the original especia
// core's Optimizer/Optimizer::Builder/Optimizer::Result split
// (_examples/original_source/.../core/optimizer.h), reworked from the
// original's template-dispatched C++ into an interface-driven Go API.
package cmaes

import "math"

// Config holds one run's immutable strategy parameters, derived once
// from the problem dimension, parent number and population size per
// the derandomized evolution strategy. A Config is built by a Builder and never mutated
// afterwards, mirroring the original Optimizer::Builder's "configure
// then build" shape.
type Config struct {
	dimension      int
	parentNumber   int
	populationSize int
	updateModulus  int
	accuracyGoal   float64
	randomSeed     uint64
	stopGeneration uint64

	weights []float64

	muEff                       float64
	stepSizeCumulationRate      float64 // cs
	distributionCumulationRate  float64 // cc
	covarianceAdaptionRate      float64 // c_cov
	covarianceAdaptionMixing    float64 // a_cov
	stepSizeDamping             float64 // d_sigma
}

func (c *Config) Dimension() int            { return c.dimension }
func (c *Config) ParentNumber() int         { return c.parentNumber }
func (c *Config) PopulationSize() int       { return c.populationSize }
func (c *Config) UpdateModulus() int        { return c.updateModulus }
func (c *Config) AccuracyGoal() float64     { return c.accuracyGoal }
func (c *Config) RandomSeed() uint64        { return c.randomSeed }
func (c *Config) StopGeneration() uint64    { return c.stopGeneration }
func (c *Config) MuEff() float64            { return c.muEff }
func (c *Config) StepSizeCumulationRate() float64     { return c.stepSizeCumulationRate }
func (c *Config) DistributionCumulationRate() float64 { return c.distributionCumulationRate }
func (c *Config) CovarianceAdaptionRate() float64     { return c.covarianceAdaptionRate }
func (c *Config) CovarianceAdaptionMixing() float64   { return c.covarianceAdaptionMixing }
func (c *Config) StepSizeDamping() float64            { return c.stepSizeDamping }

// Weights returns a copy of the normalized recombination weights, one
// per parent.
func (c *Config) Weights() []float64 {
	w := make([]float64, len(c.weights))
	copy(w, c.weights)
	return w
}

// IllegalArgument is returned by Builder.Build when the configuration is
// inconsistent: a non-positive dimension, population, or a parent
// number exceeding half the population.
type IllegalArgument struct {
	Reason string
}

func (e *IllegalArgument) Error() string {
	return "illegal argument: " + e.Reason
}

// Builder collects configuration before deriving the strategy
// parameters. Defaults mirror the original Optimizer::Builder's field
// defaults (optimizer.h).
type Builder struct {
	dimension      int
	parentNumber   int
	populationSize int
	updateModulus  int
	accuracyGoal   float64
	randomSeed     uint64
	stopGeneration uint64
}

// NewBuilder returns a builder preloaded with the original especia
// core's defaults.
func NewBuilder() *Builder {
	return &Builder{
		dimension:      1,
		parentNumber:   4,
		populationSize: 8,
		updateModulus:  1,
		accuracyGoal:   1.0e-4,
		randomSeed:     27182,
		stopGeneration: 1000,
	}
}

func (b *Builder) WithDimension(n int) *Builder {
	b.dimension = n
	return b
}

func (b *Builder) WithParentNumber(mu int) *Builder {
	b.parentNumber = mu
	return b
}

func (b *Builder) WithPopulationSize(lambda int) *Builder {
	b.populationSize = lambda
	return b
}

func (b *Builder) WithCovarianceUpdateModulus(u int) *Builder {
	b.updateModulus = u
	return b
}

func (b *Builder) WithAccuracyGoal(epsilon float64) *Builder {
	b.accuracyGoal = epsilon
	return b
}

func (b *Builder) WithRandomSeed(seed uint64) *Builder {
	b.randomSeed = seed
	return b
}

func (b *Builder) WithStopGeneration(g uint64) *Builder {
	b.stopGeneration = g
	return b
}

// Build validates the configuration and derives the strategy parameters
// (recombination weights, μ_eff, cσ, cc, c_cov, a_cov, d_σ) per
// the derandomized evolution strategy.
func (b *Builder) Build() (*Config, error) {
	if b.dimension <= 0 {
		return nil, &IllegalArgument{Reason: "problem dimension must be positive"}
	}
	if b.populationSize <= 0 {
		return nil, &IllegalArgument{Reason: "population size must be positive"}
	}
	if b.parentNumber <= 0 || b.parentNumber > b.populationSize/2 {
		return nil, &IllegalArgument{Reason: "parent number must satisfy 1 <= mu <= population_size/2"}
	}
	if b.updateModulus <= 0 {
		return nil, &IllegalArgument{Reason: "covariance update modulus must be positive"}
	}

	n := float64(b.dimension)
	mu := b.parentNumber
	lambda := float64(b.populationSize)

	weights := make([]float64, mu)
	for i := 1; i <= mu; i++ {
		weights[i-1] = math.Log((lambda+1.0)/2.0) - math.Log(float64(i))
	}
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	sumSq := 0.0
	for i := range weights {
		weights[i] /= sum
		sumSq += weights[i] * weights[i]
	}
	muEff := 1.0 / sumSq

	cs := (muEff + 2.0) / (n + muEff + 3.0)
	cc := 4.0 / (n + 4.0)
	cCov := (2.0/(sq(n+math.Sqrt2)*muEff))+(1.0-1.0/muEff)*math.Min(1.0, (2.0*muEff-1.0)/(sq(n+2.0)+muEff))
	aCov := muEff
	dSigma := 1.0 + 2.0*math.Max(0.0, math.Sqrt((muEff-1.0)/(n+1.0))-1.0) + cs

	return &Config{
		dimension:                  b.dimension,
		parentNumber:               b.parentNumber,
		populationSize:             b.populationSize,
		updateModulus:              b.updateModulus,
		accuracyGoal:               b.accuracyGoal,
		randomSeed:                 b.randomSeed,
		stopGeneration:             b.stopGeneration,
		weights:                    weights,
		muEff:                      muEff,
		stepSizeCumulationRate:     cs,
		distributionCumulationRate: cc,
		covarianceAdaptionRate:     cCov,
		covarianceAdaptionMixing:   aCov,
		stepSizeDamping:            dSigma,
	}, nil
}

func sq(x float64) float64 { return x * x }
