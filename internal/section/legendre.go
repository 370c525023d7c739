package section

import "github.com/rquast/especia/internal/eigen"

// legendre evaluates the Legendre polynomials of degree 0..p at x using
// the Bonnet three-term recurrence, writing the results into out (which
// must have length p+1).
func legendre(p int, x float64, out []float64) {
	out[0] = 1.0
	if p == 0 {
		return
	}
	out[1] = x
	for k := 2; k <= p; k++ {
		kf := float64(k)
		out[k] = ((2.0*kf-1.0)*x*out[k-1] - (kf-1.0)*out[k-2]) / kf
	}
}

// normalize maps lambda from [lo, hi] to the Legendre basis's natural
// domain [-1, 1].
func normalize(lambda, lo, hi float64) float64 {
	return 2.0*(lambda-lo)/(hi-lo) - 1.0
}

// fitContinuum performs a weighted linear least-squares fit of the
// Legendre continuum basis, modulated by the given attenuation at each
// sample, against the target values. It returns the p+1 basis
// coefficients minimizing Σ weight_i * (target_i - Σ_k a_k*basis_k(i)*attenuation_i)^2.
//
// The normal equations (X^T W X) a = X^T W y are solved through a
// symmetric eigendecomposition of X^T W X rather than direct inversion,
// reusing internal/eigen's solver and its pseudo-inverse behavior near
// singular directions, a conditioning edge case left unspecified
// for high Legendre orders.
func fitContinuum(p int, lo, hi float64, lambda, attenuation, target, weight []float64) ([]float64, error) {
	m := p + 1
	basis := make([]float64, m)

	xtx := make([][]float64, m)
	for i := range xtx {
		xtx[i] = make([]float64, m)
	}
	xty := make([]float64, m)

	for i := range lambda {
		legendre(p, normalize(lambda[i], lo, hi), basis)
		for k := range basis {
			basis[k] *= attenuation[i]
		}
		w := weight[i]
		for a := 0; a < m; a++ {
			xty[a] += w * basis[a] * target[i]
			for b := a; b < m; b++ {
				xtx[a][b] += w * basis[a] * basis[b]
			}
		}
	}
	for a := 0; a < m; a++ {
		for b := 0; b < a; b++ {
			xtx[a][b] = xtx[b][a]
		}
	}

	w, z, err := eigen.SymEigen(xtx)
	if err != nil {
		return nil, err
	}

	coeff := make([]float64, m)
	const singularTolerance = 1e-12
	for k := 0; k < m; k++ {
		if w[k] <= singularTolerance {
			continue
		}
		var proj float64
		for i := 0; i < m; i++ {
			proj += z[i][k] * xty[i]
		}
		proj /= w[k]
		for i := 0; i < m; i++ {
			coeff[i] += z[i][k] * proj
		}
	}

	return coeff, nil
}

// evaluateContinuum returns Σ_k coeff_k * L_k(normalize(lambda, lo, hi)).
func evaluateContinuum(coeff []float64, lo, hi, lambda float64) float64 {
	p := len(coeff) - 1
	basis := make([]float64, p+1)
	legendre(p, normalize(lambda, lo, hi), basis)

	var c float64
	for k, a := range coeff {
		c += a * basis[k]
	}
	return c
}
