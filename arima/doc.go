// Package arima implements AutoRegressive Integrated Moving Average (ARIMA) models.
//
// An ARIMA(p,d,q) model differences the series d times and models the result
// as an ARMA(p,q) process. Parameters are estimated by exact Gaussian maximum
// likelihood: the ARMA part is cast in state-space form, a Kalman filter
// evaluates the likelihood with the innovation variance concentrated out,
// and Nelder-Mead searches over a reparameterisation that keeps the AR part
// stationary and the MA part invertible. No constant is estimated when d > 0.
//
// # Basic Usage
//
//	model := arima.New(2, 1, 2)
//	if err := model.FitContext(ctx, series); err != nil {
//	    return err
//	}
//	forecasts, _ := model.Predict(4)
//
// FitContext stops early when ctx is done and returns an error wrapping the
// context error, so callers can bound a fit with context.WithTimeout.
//
// # Diagnostics
//
// Summary reports the information criteria and a Ljung-Box test on the
// one-step-ahead residuals:
//
//	s := model.Summary()
//	fmt.Printf("AIC: %.2f converged: %v\n", s.AIC, s.Converged)
package arima
