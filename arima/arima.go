// Package arima implements ARIMA (AutoRegressive Integrated Moving Average) models.
package arima

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/sartorproj/skuforecast/stats"
	"github.com/sartorproj/skuforecast/timeseries"
)

var (
	// ErrInsufficientData is returned when the differenced series is too
	// short to identify the model parameters.
	ErrInsufficientData = errors.New("insufficient data points for the specified order")
	// ErrNotFitted is returned by Predict before a successful Fit.
	ErrNotFitted = errors.New("model must be fitted before prediction")
	// ErrNonFinite is returned when the likelihood cannot be evaluated.
	ErrNonFinite = errors.New("likelihood is not finite")
)

// Order represents ARIMA model order (p, d, q).
type Order struct {
	P int `yaml:"p" json:"p"` // AR order (number of autoregressive terms)
	D int `yaml:"d" json:"d"` // Differencing order
	Q int `yaml:"q" json:"q"` // MA order (number of moving average terms)
}

// String formats the order as ARIMA(p,d,q).
func (o Order) String() string {
	return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
}

// Validate reports whether the order is usable.
func (o Order) Validate() error {
	if o.P < 0 || o.D < 0 || o.Q < 0 {
		return fmt.Errorf("invalid order %s: terms must be non-negative", o)
	}
	return nil
}

// Model represents an ARIMA model.
type Model struct {
	Order     Order
	ARCoeffs  []float64 // AR coefficients (phi)
	MACoeffs  []float64 // MA coefficients (theta)
	Intercept float64   // Mean of the series; only estimated when D == 0
	Variance  float64   // Innovation variance
	AIC       float64
	AICc      float64 // Corrected AIC for small sample sizes
	BIC       float64
	LogLik    float64

	// MaxIterations bounds the Nelder-Mead iterations of a fit.
	MaxIterations int
	// Converged is false when the optimizer stopped on an iteration limit.
	Converged  bool
	Iterations int

	fitted    bool
	data      *timeseries.Series
	residuals []float64
	ss        *stateSpace
	nextState *mat.VecDense
}

// New creates a new ARIMA model with the specified order.
func New(p, d, q int) *Model {
	return NewFromOrder(Order{P: p, D: d, Q: q})
}

// NewFromOrder creates a new ARIMA model from an Order value.
func NewFromOrder(order Order) *Model {
	return &Model{
		Order:         order,
		ARCoeffs:      make([]float64, order.P),
		MACoeffs:      make([]float64, order.Q),
		MaxIterations: 2000,
	}
}

// Fit fits the ARIMA model to the given time series data.
func (m *Model) Fit(series *timeseries.Series) error {
	return m.FitContext(context.Background(), series)
}

// FitContext fits the model by exact Gaussian maximum likelihood. The
// optimizer stops early when ctx is done and the context error is returned.
func (m *Model) FitContext(ctx context.Context, series *timeseries.Series) error {
	if err := m.Order.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("fit %s interrupted: %w", m.Order, err)
	}
	for _, v := range series.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("series contains non-finite values")
		}
	}

	p, q := m.Order.P, m.Order.Q
	diffSeries := series.DiffN(m.Order.D)
	if diffSeries.Len() <= p+q {
		return fmt.Errorf("%w: %d observations after differencing, need more than %d",
			ErrInsufficientData, diffSeries.Len(), p+q)
	}

	m.data = series
	m.fitted = false

	y := diffSeries.Values
	m.Intercept = 0
	if m.Order.D == 0 {
		m.Intercept = diffSeries.Mean()
	}
	centered := make([]float64, len(y))
	for i, v := range y {
		centered[i] = v - m.Intercept
	}

	if isZero(centered) {
		return m.fitDegenerate(centered)
	}

	if p == 0 && q == 0 {
		ss := newStateSpace(nil, nil)
		res, ok := ss.filter(centered)
		if !ok {
			return ErrNonFinite
		}
		m.Converged = true
		return m.finish(ss, res)
	}

	x0 := m.startValues(diffSeries)
	objective := func(x []float64) float64 {
		ss := newStateSpace(constrainStationary(x[:p]), constrainInvertible(x[p:]))
		res, ok := ss.filter(centered)
		if !ok {
			return math.Inf(1)
		}
		ll, _ := concentratedLogLik(res)
		if math.IsNaN(ll) || math.IsInf(ll, 0) {
			return math.Inf(1)
		}
		return -ll
	}

	if math.IsInf(objective(x0), 1) {
		// Fall back to the origin, which is always stationary and invertible.
		x0 = make([]float64, p+q)
	}

	settings := &optimize.Settings{
		MajorIterations: m.MaxIterations,
		FuncEvaluations: 20 * m.MaxIterations,
		Converger: &contextConverger{
			ctx:   ctx,
			inner: &optimize.FunctionConverge{Absolute: 1e-9, Relative: 1e-9, Iterations: 50},
		},
	}
	result, err := optimize.Minimize(optimize.Problem{Func: objective}, x0, settings, &optimize.NelderMead{})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("fit %s interrupted: %w", m.Order, ctxErr)
	}
	if result == nil {
		return fmt.Errorf("optimize %s: %w", m.Order, err)
	}
	if math.IsInf(result.F, 0) || math.IsNaN(result.F) {
		return fmt.Errorf("optimize %s: %w", m.Order, ErrNonFinite)
	}

	m.Iterations = result.Stats.MajorIterations
	m.Converged = err == nil && result.Status != optimize.IterationLimit &&
		result.Status != optimize.FunctionEvaluationLimit

	phi := constrainStationary(result.X[:p])
	theta := constrainInvertible(result.X[p:])
	copy(m.ARCoeffs, phi)
	copy(m.MACoeffs, theta)

	ss := newStateSpace(phi, theta)
	res, ok := ss.filter(centered)
	if !ok {
		return fmt.Errorf("filter at optimum %s: %w", m.Order, ErrNonFinite)
	}
	return m.finish(ss, res)
}

// startValues builds the optimizer starting point: AR terms from the sample
// partial autocorrelations, MA terms at a small positive value.
func (m *Model) startValues(diffSeries *timeseries.Series) []float64 {
	p, q := m.Order.P, m.Order.Q
	x0 := make([]float64, 0, p+q)

	if p > 0 {
		partials := make([]float64, p)
		if pacf := stats.PACF(diffSeries, p); pacf != nil {
			copy(partials, pacf[1:])
		}
		x0 = append(x0, partialToUnconstrained(partials)...)
	}

	if q > 0 {
		theta := make([]float64, q)
		theta[0] = 0.1
		ma := unconstrainInvertible(theta)
		if ma == nil {
			ma = make([]float64, q)
		}
		x0 = append(x0, ma...)
	}
	return x0
}

// fitDegenerate handles a differenced series with no variation: every
// forecast repeats the last level.
func (m *Model) fitDegenerate(centered []float64) error {
	for i := range m.ARCoeffs {
		m.ARCoeffs[i] = 0
	}
	for i := range m.MACoeffs {
		m.MACoeffs[i] = 0
	}
	m.Variance = 0
	m.LogLik = math.Inf(1)
	m.AIC, m.AICc, m.BIC = math.Inf(-1), math.Inf(-1), math.Inf(-1)
	m.residuals = make([]float64, len(centered))
	m.ss = newStateSpace(m.ARCoeffs, m.MACoeffs)
	m.nextState = mat.NewVecDense(m.ss.dim, nil)
	m.Converged = true
	m.fitted = true
	return nil
}

// finish stores filter output and information criteria.
func (m *Model) finish(ss *stateSpace, res *filterResult) error {
	ll, sigma2 := concentratedLogLik(res)
	if math.IsInf(ll, 0) || math.IsNaN(ll) {
		return ErrNonFinite
	}

	m.ss = ss
	m.nextState = res.next
	m.Variance = sigma2
	m.LogLik = ll

	n := len(res.innovations)
	m.residuals = make([]float64, n)
	copy(m.residuals, res.innovations)

	ic := stats.CalculateIC(ll, n, m.numParams())
	m.AIC, m.AICc, m.BIC = ic.AIC, ic.AICc, ic.BIC

	m.fitted = true
	return nil
}

// numParams counts AR, MA, variance and, without differencing, the mean.
func (m *Model) numParams() int {
	k := m.Order.P + m.Order.Q + 1
	if m.Order.D == 0 {
		k++
	}
	return k
}

// Predict generates forecasts for the specified number of steps ahead.
func (m *Model) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}

	if steps < 1 {
		return nil, errors.New("steps must be at least 1")
	}

	forecasts := m.ss.project(m.nextState, steps)
	for i := range forecasts {
		forecasts[i] += m.Intercept
	}

	return m.data.Undiff(m.Order.D, forecasts), nil
}

// Residuals returns the one-step-ahead innovations of the differenced series.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	result := make([]float64, len(m.residuals))
	copy(result, m.residuals)
	return result
}

// FittedValues returns the one-step-ahead predictions of the observations
// from index D onwards, on the original scale.
func (m *Model) FittedValues() []float64 {
	if !m.fitted {
		return nil
	}
	d := m.Order.D
	result := make([]float64, len(m.residuals))
	for t, e := range m.residuals {
		result[t] = m.data.Values[t+d] - e
	}
	return result
}

// Summary returns a summary of the fitted model.
type Summary struct {
	Order     Order
	ARCoeffs  []float64
	MACoeffs  []float64
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64 // Corrected AIC
	BIC       float64
	LogLik    float64
	NObs      int
	Converged bool
	LjungBox  *stats.LjungBoxResult // nil when residuals are too few to test
}

// Summary returns a summary of the fitted model.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}

	residSeries := timeseries.New(m.Residuals())
	lb := stats.LjungBox(residSeries, 10, m.Order.P+m.Order.Q)

	return &Summary{
		Order:     m.Order,
		ARCoeffs:  append([]float64(nil), m.ARCoeffs...),
		MACoeffs:  append([]float64(nil), m.MACoeffs...),
		Intercept: m.Intercept,
		Variance:  m.Variance,
		AIC:       m.AIC,
		AICc:      m.AICc,
		BIC:       m.BIC,
		LogLik:    m.LogLik,
		NObs:      m.data.Len(),
		Converged: m.Converged,
		LjungBox:  lb,
	}
}

// contextConverger stops the optimizer once ctx is done and otherwise
// defers to inner.
type contextConverger struct {
	ctx   context.Context
	inner optimize.Converger
}

func (c *contextConverger) Init(dim int) {
	c.inner.Init(dim)
}

func (c *contextConverger) Converged(loc *optimize.Location) optimize.Status {
	if c.ctx.Err() != nil {
		return optimize.RuntimeLimit
	}
	return c.inner.Converged(loc)
}

func isZero(values []float64) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}
