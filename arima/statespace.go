package arima

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// stateSpace is the Harvey state-space form of a zero-mean ARMA(p, q):
//
//	y_t     = Z a_t
//	a_{t+1} = T a_t + R e_{t+1}
//
// with Z = [1 0 ... 0], T the companion matrix of phi and R = [1 theta_1 ...]'.
// Covariances are kept in units of the innovation variance.
type stateSpace struct {
	dim int
	T   *mat.Dense
	RR  *mat.Dense
}

func newStateSpace(phi, theta []float64) *stateSpace {
	r := max(len(phi), len(theta)+1)

	T := mat.NewDense(r, r, nil)
	for i := 0; i < len(phi); i++ {
		T.Set(i, 0, phi[i])
	}
	for i := 0; i < r-1; i++ {
		T.Set(i, i+1, 1)
	}

	R := mat.NewVecDense(r, nil)
	R.SetVec(0, 1)
	for i := 0; i < len(theta); i++ {
		R.SetVec(i+1, theta[i])
	}

	RR := mat.NewDense(r, r, nil)
	RR.Outer(1, R, R)

	return &stateSpace{dim: r, T: T, RR: RR}
}

// initialCov solves P = T P T' + R R' for the unconditional state covariance
// using the doubling algorithm. It reports false when the iteration does not
// settle, which happens only for non-stationary T.
func (ss *stateSpace) initialCov() (*mat.Dense, bool) {
	P := mat.DenseCopyOf(ss.RR)
	A := mat.DenseCopyOf(ss.T)

	for iter := 0; iter < 64; iter++ {
		var APA, next, AA mat.Dense
		APA.Product(A, P, A.T())
		next.Add(P, &APA)
		AA.Mul(A, A)

		delta := mat.Norm(&APA, 1)
		P = &next
		A = &AA
		if delta <= 1e-12*(1+mat.Norm(P, 1)) {
			return P, true
		}
		if math.IsNaN(delta) || math.IsInf(delta, 0) {
			return nil, false
		}
	}
	return nil, false
}

// filterResult holds the output of one Kalman filter pass.
type filterResult struct {
	innovations []float64
	variances   []float64    // F_t, innovation variance in units of sigma^2
	next        *mat.VecDense // predicted state for the first period after the sample
}

// filter runs the Kalman filter over y. It returns false when the filter
// breaks down numerically.
func (ss *stateSpace) filter(y []float64) (*filterResult, bool) {
	P, ok := ss.initialCov()
	if !ok {
		return nil, false
	}

	r := ss.dim
	a := mat.NewVecDense(r, nil)
	res := &filterResult{
		innovations: make([]float64, len(y)),
		variances:   make([]float64, len(y)),
	}

	for t, yt := range y {
		F := P.At(0, 0)
		if !(F > 0) || math.IsInf(F, 0) {
			return nil, false
		}
		v := yt - a.AtVec(0)
		res.innovations[t] = v
		res.variances[t] = F

		var TP mat.Dense
		TP.Mul(ss.T, P)
		K := mat.NewVecDense(r, nil)
		for i := 0; i < r; i++ {
			K.SetVec(i, TP.At(i, 0)/F)
		}

		next := mat.NewVecDense(r, nil)
		next.MulVec(ss.T, a)
		next.AddScaledVec(next, v, K)
		a = next

		var nextP, KK mat.Dense
		nextP.Mul(&TP, ss.T.T())
		nextP.Add(&nextP, ss.RR)
		KK.Outer(F, K, K)
		nextP.Sub(&nextP, &KK)
		P = &nextP
	}

	res.next = a
	return res, true
}

// concentratedLogLik returns the Gaussian log-likelihood with the innovation
// variance profiled out, together with that variance estimate.
func concentratedLogLik(res *filterResult) (float64, float64) {
	n := float64(len(res.innovations))
	if n == 0 {
		return math.Inf(-1), 0
	}

	ssq := 0.0
	logDet := 0.0
	for t, v := range res.innovations {
		ssq += v * v / res.variances[t]
		logDet += math.Log(res.variances[t])
	}
	sigma2 := ssq / n
	if !(sigma2 > 0) {
		return math.Inf(-1), sigma2
	}

	ll := -0.5*n*(math.Log(2*math.Pi)+1+math.Log(sigma2)) - 0.5*logDet
	return ll, sigma2
}

// project iterates the predicted state forward and returns the expected
// observations for the next steps periods.
func (ss *stateSpace) project(state *mat.VecDense, steps int) []float64 {
	out := make([]float64, steps)
	a := mat.VecDenseCopyOf(state)
	for h := 0; h < steps; h++ {
		out[h] = a.AtVec(0)
		next := mat.NewVecDense(ss.dim, nil)
		next.MulVec(ss.T, a)
		a = next
	}
	return out
}
