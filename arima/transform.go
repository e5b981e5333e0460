package arima

import "math"

// maxPartial bounds partial autocorrelations used as starting values so the
// inverse transform stays finite.
const maxPartial = 0.95

// constrainStationary maps unconstrained reals to the coefficients of a
// stationary AR polynomial 1 - phi_1 B - ... - phi_k B^k.
//
// Each x_k becomes a partial autocorrelation in (-1, 1) and the
// Durbin-Levinson recursion turns those into AR coefficients.
func constrainStationary(x []float64) []float64 {
	k := len(x)
	if k == 0 {
		return nil
	}

	phi := make([]float64, k)
	prev := make([]float64, k)
	for j := 0; j < k; j++ {
		r := x[j] / math.Sqrt(1+x[j]*x[j])
		for i := 0; i < j; i++ {
			phi[i] = prev[i] - r*prev[j-1-i]
		}
		phi[j] = r
		copy(prev, phi)
	}
	return phi
}

// unconstrainStationary is the inverse of constrainStationary. It returns
// nil when phi is not stationary.
func unconstrainStationary(phi []float64) []float64 {
	k := len(phi)
	if k == 0 {
		return nil
	}

	curr := make([]float64, k)
	copy(curr, phi)
	x := make([]float64, k)

	for j := k - 1; j >= 0; j-- {
		r := curr[j]
		if math.Abs(r) >= 1 {
			return nil
		}
		x[j] = r / math.Sqrt(1-r*r)

		den := 1 - r*r
		next := make([]float64, j)
		for i := 0; i < j; i++ {
			next[i] = (curr[i] + r*curr[j-1-i]) / den
		}
		copy(curr, next)
	}
	return x
}

// constrainInvertible maps unconstrained reals to the coefficients of an
// invertible MA polynomial 1 + theta_1 B + ... + theta_k B^k.
func constrainInvertible(x []float64) []float64 {
	theta := constrainStationary(x)
	for i := range theta {
		theta[i] = -theta[i]
	}
	return theta
}

// unconstrainInvertible is the inverse of constrainInvertible.
func unconstrainInvertible(theta []float64) []float64 {
	neg := make([]float64, len(theta))
	for i, v := range theta {
		neg[i] = -v
	}
	return unconstrainStationary(neg)
}

// partialToUnconstrained converts partial autocorrelations to the
// unconstrained scale, clamping them away from the unit boundary.
func partialToUnconstrained(partials []float64) []float64 {
	x := make([]float64, len(partials))
	for i, r := range partials {
		r = math.Max(-maxPartial, math.Min(maxPartial, r))
		x[i] = r / math.Sqrt(1-r*r)
	}
	return x
}
