// Package stats provides the statistical helpers used when fitting and
// checking demand models.
//
// # Autocorrelation
//
//	acf := stats.ACF(series, 10)   // lags 0..10
//	pacf := stats.PACF(series, 10) // lags 0..10, pacf[0] == 1
//
// The partial autocorrelations double as starting values for the AR part of
// a likelihood fit, since the stationary AR parameterisation is expressed in
// partial autocorrelations.
//
// # Residual Diagnostics
//
// The Ljung-Box test checks fitted residuals for remaining autocorrelation:
//
//	lb := stats.LjungBox(residuals, 10, p+q)
//	if lb != nil && lb.PValue < 0.05 {
//	    // residuals are autocorrelated; the model misses structure
//	}
//
// # Information Criteria
//
//	ic := stats.CalculateIC(logLik, nObs, nParams)
//	fmt.Println(ic.AIC, ic.AICc, ic.BIC)
package stats
