// Package forecaster fits an ARIMA model to one SKU's demand history and
// turns the point forecast into whole units.
package forecaster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sartorproj/skuforecast/arima"
	"github.com/sartorproj/skuforecast/demand"
	"github.com/sartorproj/skuforecast/logger"
	"github.com/sartorproj/skuforecast/stats"
	"github.com/sartorproj/skuforecast/timeseries"
)

// ErrInvalidHorizon is returned for a horizon below one period.
var ErrInvalidHorizon = errors.New("horizon must be at least 1")

// Options controls model fitting.
type Options struct {
	Order          arima.Order
	FallbackOrders []arima.Order // tried in order after Order fails
	MinHistory     int
	FitTimeout     time.Duration // per order; zero disables the limit
}

// DefaultOptions returns ARIMA(2,1,2), no fallbacks, 10 observations of
// history and a 30 second timeout.
func DefaultOptions() Options {
	return Options{
		Order:      arima.Order{P: 2, D: 1, Q: 2},
		MinHistory: demand.MinHistory,
		FitTimeout: 30 * time.Second,
	}
}

// Forecaster produces per-SKU forecasts. It is safe for concurrent use.
type Forecaster struct {
	opts Options
	log  *logger.Entry
}

// New returns a Forecaster. MinHistory below demand.MinHistory is raised to it.
func New(opts Options) *Forecaster {
	if opts.MinHistory < demand.MinHistory {
		opts.MinHistory = demand.MinHistory
	}
	return &Forecaster{
		opts: opts,
		log:  logger.GetLogger().WithComponent("forecaster"),
	}
}

// Result is a forecast together with the model that produced it.
type Result struct {
	SKU       string
	Order     arima.Order
	Raw       []float64
	Values    []int
	AIC       float64
	Converged bool
	LjungBox  *stats.LjungBoxResult

	// Fitted holds one-step-ahead predictions of the observations from
	// index Order.D onwards.
	Fitted      []float64
	ResidualStd float64
}

// Forecast returns horizon whole-unit forecasts for s.
func (f *Forecaster) Forecast(ctx context.Context, s *demand.Series, horizon int) ([]int, error) {
	res, err := f.Detail(ctx, s, horizon)
	if err != nil {
		return nil, err
	}
	return res.Values, nil
}

// Detail is Forecast plus the fitted order and diagnostics.
func (f *Forecaster) Detail(ctx context.Context, s *demand.Series, horizon int) (*Result, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidHorizon, horizon)
	}
	if s == nil {
		return nil, &demand.InsufficientHistoryError{Required: f.opts.MinHistory}
	}
	if s.Len() < f.opts.MinHistory {
		return nil, &demand.InsufficientHistoryError{
			SKU:      s.SKUID,
			Count:    s.Len(),
			Required: f.opts.MinHistory,
		}
	}

	orders := append([]arima.Order{f.opts.Order}, f.opts.FallbackOrders...)
	var lastErr error
	var lastOrder arima.Order
	for _, order := range orders {
		res, err := f.fit(ctx, s, order, horizon)
		if err == nil {
			return res, nil
		}
		lastErr, lastOrder = err, order

		f.log.WithError(err).WithFields(logger.Fields{
			"sku":   s.SKUID,
			"order": order.String(),
		}).Warn("model fit failed")

		if ctx.Err() != nil {
			break
		}
	}

	return nil, &demand.ModelFitError{SKU: s.SKUID, Order: lastOrder.String(), Err: lastErr}
}

func (f *Forecaster) fit(ctx context.Context, s *demand.Series, order arima.Order, horizon int) (*Result, error) {
	if f.opts.FitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.FitTimeout)
		defer cancel()
	}

	start := time.Now()
	model := arima.NewFromOrder(order)
	if err := model.FitContext(ctx, s.Quantities()); err != nil {
		return nil, err
	}
	raw, err := model.Predict(horizon)
	if err != nil {
		return nil, err
	}

	values := make([]int, len(raw))
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("forecast step %d: %w", i+1, arima.ErrNonFinite)
		}
		values[i] = RoundDemand(v)
	}

	summary := model.Summary()
	residStd := timeseries.New(model.Residuals()).Std()
	logger.LogDuration(f.log.WithFields(logger.Fields{
		"sku":          s.SKUID,
		"order":        order.String(),
		"converged":    summary.Converged,
		"residual_std": residStd,
	}), "fit", time.Since(start), nil)

	return &Result{
		SKU:       s.SKUID,
		Order:     order,
		Raw:       raw,
		Values:    values,
		AIC:       summary.AIC,
		Converged: summary.Converged,
		LjungBox:  summary.LjungBox,

		Fitted:      model.FittedValues(),
		ResidualStd: residStd,
	}, nil
}

// RoundDemand rounds v half-to-even and clamps negative demand to zero.
func RoundDemand(v float64) int {
	n := decimal.NewFromFloat(v).RoundBank(0).IntPart()
	if n < 0 {
		return 0
	}
	return int(n)
}
