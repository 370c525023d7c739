package cmaes

import (
	"math"
	"runtime"
	"sync"

	"github.com/rquast/especia/internal/eigen"
	"github.com/rquast/especia/internal/especiaerr"
	"github.com/rquast/especia/internal/rng"
)

// Objective maps a parameter vector to a scalar cost.
type Objective func(x []float64) float64

// Constraint tests parameter vectors and reports an additive cost
// penalty, satisfied by model.BoundedConstraint.
type Constraint interface {
	IsViolated(x []float64) bool
	Cost(x []float64) float64
}

// Comparator orders two fitness values, reporting whether a ranks ahead
// of b. Less drives Minimize, Greater drives Maximize.
type Comparator func(a, b float64) bool

func Less(a, b float64) bool    { return a < b }
func Greater(a, b float64) bool { return a > b }

// maxResampleAttempts bounds the number of redraws the sampler performs
// for one offspring before giving up on it, per the
// "bounded retries" contract.
const maxResampleAttempts = 1000

// historyFactor sets the termination fitness-history window to
// historyFactor * (n + 1) generations, per the "last ~10(n+1)
// generations" termination rule.
const historyFactor = 10

// Optimizer runs the CMA-ES generation loop against one Config. It owns
// the deterministic random source (MT19937 plus the polar normal
// deviate) seeded from the configuration, so that two optimizers built
// from the same Config reproduce the same trajectory, per the
// determinism contract.
type Optimizer struct {
	config  *Config
	deviate *rng.NormalDeviate
}

// New constructs an optimizer from a built configuration.
func New(config *Config) *Optimizer {
	return &Optimizer{
		config:  config,
		deviate: rng.NewNormalDeviate(rng.NewMT19937(config.RandomSeed())),
	}
}

// Minimize runs the generation loop ordering offspring ascending by
// fitness, starting from a fresh distribution centered on x with
// per-axis step sizes d and global step size s.
func (o *Optimizer) Minimize(f Objective, x, d []float64, s float64, constraint Constraint, tracer Tracer) (Result, error) {
	return o.optimize(f, newState(x, d, s), constraint, tracer, Less)
}

// Maximize runs the generation loop ordering offspring descending by
// fitness, starting from a fresh distribution.
func (o *Optimizer) Maximize(f Objective, x, d []float64, s float64, constraint Constraint, tracer Tracer) (Result, error) {
	return o.optimize(f, newState(x, d, s), constraint, tracer, Greater)
}

// ResumeMinimize continues a minimization from a previously saved
// distribution state — the mean, step sizes, rotation, covariance and
// both cumulation paths — rather than restarting the search from
// scratch at a single best point. This is what cmd/resume.go and
// internal/server's job worker use to pick a checkpointed run back up.
func (o *Optimizer) ResumeMinimize(f Objective, state State, constraint Constraint, tracer Tracer) (Result, error) {
	return o.optimize(f, state, constraint, tracer, Less)
}

// ResumeMaximize is ResumeMinimize's maximizing counterpart.
func (o *Optimizer) ResumeMaximize(f Objective, state State, constraint Constraint, tracer Tracer) (Result, error) {
	return o.optimize(f, state, constraint, tracer, Greater)
}

// State is a full CMA-ES distribution snapshot: everything the
// generation loop needs to continue a search exactly where it left
// off, as opposed to a checkpoint that keeps only the best point found
// so far.
type State struct {
	X, D       []float64
	S          float64
	B, C       [][]float64
	PC, PS     []float64
	Generation uint64
}

// newState builds the identity-rotation, zero-path starting state the
// original especia core's Optimizer::minimize begins every fresh run
// from.
func newState(x0, d0 []float64, s0 float64) State {
	n := len(x0)
	C := newMatrix(n)
	for i := 0; i < n; i++ {
		C[i][i] = d0[i] * d0[i]
	}
	return State{
		X: cloneVector(x0),
		D: cloneVector(d0),
		S: s0,
		B: identityMatrix(n),
		C: C,
		PC: zeroVector(n),
		PS: zeroVector(n),
	}
}

type offspring struct {
	z, y, x  []float64
	fitness  float64
	violated bool
}

func (o *Optimizer) optimize(f Objective, state State, constraint Constraint, tracer Tracer, compare Comparator) (Result, error) {
	n := o.config.Dimension()
	if len(state.X) != n || len(state.D) != n {
		return Result{}, &IllegalArgument{Reason: "initial mean and step sizes must match the configured dimension"}
	}
	if tracer == nil {
		tracer = NoTracing{}
	}

	mu := o.config.ParentNumber()
	lambda := o.config.PopulationSize()
	weights := o.config.Weights()
	cs := o.config.StepSizeCumulationRate()
	cc := o.config.DistributionCumulationRate()
	cCov := o.config.CovarianceAdaptionRate()
	aCov := o.config.CovarianceAdaptionMixing()
	dSigma := o.config.StepSizeDamping()
	muEff := o.config.MuEff()

	x := cloneVector(state.X)
	d := cloneVector(state.D)
	s := state.S
	B := cloneMatrix(state.B)
	C := cloneMatrix(state.C)
	pc := cloneVector(state.PC)
	ps := cloneVector(state.PS)

	observer, observesState := tracer.(StateObserver)

	expectedNorm := expectedNormOfStandardNormal(n)
	historyLen := historyFactor * (n + 1)
	history := make([]float64, 0, historyLen)

	g := state.Generation
	result := Result{X: x, D: d, S: s, C: C, B: B, PC: pc, PS: ps, Generation: g}

	for {
		offsprings := make([]offspring, lambda)
		allViolated := true

		for k := 0; k < lambda; k++ {
			z, y, xk, ok := o.sampleOffspring(n, x, s, d, B, constraint)
			offsprings[k] = offspring{z: z, y: y, x: xk, violated: !ok}
			if ok {
				allViolated = false
			}
		}
		if allViolated {
			result.Underflow = true
			result.Generation = g
			return result, nil
		}

		evaluateOffspring(offsprings, f, constraint)

		order := make([]int, lambda)
		for i := range order {
			order[i] = i
		}
		sortByFitness(order, offsprings, compare)

		ybar := zeroVector(n)
		zbar := zeroVector(n)
		for i := 0; i < mu; i++ {
			k := order[i]
			ybar = vecAddScaled(ybar, weights[i], offsprings[k].y)
			zbar = vecAddScaled(zbar, weights[i], offsprings[k].z)
		}
		xbar := vecAddScaled(x, s, ybar)

		ps = vecAddScaled(vecScale(ps, 1.0-cs), math.Sqrt(cs*(2.0-cs)*muEff), matVec(B, zbar))

		hSig := 0.0
		denom := math.Sqrt(1.0 - math.Pow(1.0-cs, 2.0*float64(g+1)))
		if denom > 0 && vecNorm(ps)/denom < (1.4+2.0/float64(n+1))*expectedNorm {
			hSig = 1.0
		}
		pc = vecAddScaled(vecScale(pc, 1.0-cc), hSig*math.Sqrt(cc*(2.0-cc)*muEff), ybar)

		if o.config.UpdateModulus() > 0 && (g+1)%uint64(o.config.UpdateModulus()) == 0 {
			updateCovariance(C, pc, hSig, cc, cCov, aCov, weights, order, offsprings, mu)

			w, z, err := eigen.SymEigen(C)
			if err != nil {
				return Result{}, &especiaerr.RuntimeError{Reason: "covariance eigendecomposition failed", Cause: err}
			}
			for i := range w {
				d[i] = math.Sqrt(math.Max(w[i], 0.0))
			}
			B = z
		}

		s = s * math.Exp((cs/dSigma)*(vecNorm(ps)/expectedNorm-1.0))
		x = xbar
		g++

		bestFitness := offsprings[order[0]].fitness
		history = appendHistory(history, bestFitness, historyLen)

		minStep, maxStep := stepRange(s, d)
		if tracer.IsEnabled(g) {
			tracer.Trace(g, bestFitness, minStep, maxStep)
		}

		result = Result{X: x, D: d, S: s, C: C, B: B, PC: pc, PS: ps, Y: bestFitness, Generation: g}

		if observesState {
			observer.ObserveState(g, x, d, s, B, C, pc, ps)
		}

		if underflowed(s, d) {
			result.Underflow = true
			return result, nil
		}
		if len(history) == historyLen && rangeOf(history) < o.config.AccuracyGoal() &&
			s*maxVector(d) < o.config.AccuracyGoal()*(1.0+math.Abs(bestFitness)) {
			result.Optimized = true
			break
		}
		if g >= o.config.StopGeneration() {
			break
		}
	}

	if result.Optimized {
		result.Z = o.postOptimize(f, constraint, result.X, result.D, result.B, result.S)
	}
	return result, nil
}

// sampleOffspring draws one offspring, redrawing up to maxResampleAttempts
// times if the constraint is violated. It reports ok=false when every
// attempt for this slot violated the constraint.
func (o *Optimizer) sampleOffspring(n int, x []float64, s float64, d []float64, B [][]float64, constraint Constraint) (z, y, xk []float64, ok bool) {
	for attempt := 0; attempt < maxResampleAttempts; attempt++ {
		z = make([]float64, n)
		for i := range z {
			z[i] = o.deviate.Float64()
		}
		y = matVec(B, diagScale(d, z))
		xk = vecAddScaled(x, s, y)
		if constraint == nil || !constraint.IsViolated(xk) {
			return z, y, xk, true
		}
	}
	return z, y, xk, false
}

// evaluateOffspring computes each offspring's fitness. Evaluation may run
// concurrently (the objective is pure once xk is fixed);
// the RNG draws and ranking that bracket this step stay strictly
// sequential.
func evaluateOffspring(offsprings []offspring, f Objective, constraint Constraint) {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(offsprings) {
		workers = len(offsprings)
	}
	if workers <= 1 {
		for i := range offsprings {
			offsprings[i].fitness = evaluateOne(offsprings[i], f, constraint)
		}
		return
	}

	jobs := make(chan int, len(offsprings))
	for i := range offsprings {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				offsprings[i].fitness = evaluateOne(offsprings[i], f, constraint)
			}
		}()
	}
	wg.Wait()
}

func evaluateOne(off offspring, f Objective, constraint Constraint) float64 {
	if off.violated {
		return math.Inf(1)
	}
	y := f(off.x)
	if constraint != nil {
		y += constraint.Cost(off.x)
	}
	if math.IsNaN(y) {
		return math.Inf(1)
	}
	return y
}

func sortByFitness(order []int, offsprings []offspring, compare Comparator) {
	// insertion sort: lambda is small (population sizes in the tens),
	// and a stable, allocation-free sort keeps the ranking step cheap
	// relative to objective evaluation.
	for i := 1; i < len(order); i++ {
		j := i
		for j > 0 && compare(offsprings[order[j]].fitness, offsprings[order[j-1]].fitness) {
			order[j], order[j-1] = order[j-1], order[j]
			j--
		}
	}
}

func updateCovariance(C [][]float64, pc []float64, hSig, cc, cCov, aCov float64, weights []float64, order []int, offsprings []offspring, mu int) {
	n := len(C)
	old := cloneMatrix(C)

	rankMu := newMatrix(n)
	for i := 0; i < mu; i++ {
		outerAddScaled(rankMu, weights[i], offsprings[order[i]].y)
	}

	next := newMatrix(n)
	matAddScaled(next, 1.0-cCov, old)
	outerAddScaled(next, cCov/aCov, pc)
	if hSig == 0.0 {
		matAddScaled(next, (cCov/aCov)*cc*(2.0-cc), old)
	}
	matAddScaled(next, cCov*(1.0-1.0/aCov), rankMu)

	for i := range C {
		copy(C[i], next[i])
	}
}

func expectedNormOfStandardNormal(n int) float64 {
	nf := float64(n)
	return math.Sqrt(nf) * (1.0 - 1.0/(4.0*nf) + 1.0/(21.0*nf*nf))
}

func appendHistory(history []float64, value float64, capacity int) []float64 {
	if len(history) < capacity {
		return append(history, value)
	}
	copy(history, history[1:])
	history[len(history)-1] = value
	return history
}

func rangeOf(history []float64) float64 {
	minV, maxV := history[0], history[0]
	for _, v := range history[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return maxV - minV
}

func maxVector(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func stepRange(s float64, d []float64) (minStep, maxStep float64) {
	minStep, maxStep = s*d[0], s*d[0]
	for _, di := range d[1:] {
		step := s * di
		if step < minStep {
			minStep = step
		}
		if step > maxStep {
			maxStep = step
		}
	}
	return minStep, maxStep
}

func underflowed(s float64, d []float64) bool {
	if s <= 0 || math.IsNaN(s) {
		return true
	}
	for _, di := range d {
		step := s * di
		if math.IsNaN(step) || math.IsInf(step, 0) {
			return true
		}
		if step > 0 && step < math.SmallestNonzeroFloat64*1e8 {
			return true
		}
	}
	return false
}
