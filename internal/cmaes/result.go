package cmaes

// Result is the terminal state of one optimization run: the mean vector
// and its distribution, the fitness reached, and the flags recording
// which termination condition fired. Field shape mirrors the original
// Optimizer::Result (optimizer.h), flattened from its valarray-backed
// matrices into row-major [][]float64.
type Result struct {
	X []float64 // optimized parameter values
	D []float64 // final local step sizes
	S float64   // final global step size
	Z []float64 // parameter uncertainties, set only when Optimized

	Y float64 // optimized fitness

	C [][]float64 // final covariance matrix
	B [][]float64 // final rotation matrix

	PC []float64 // distribution cumulation path
	PS []float64 // step size cumulation path

	Generation uint64

	Optimized bool
	Underflow bool
}
