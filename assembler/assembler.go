// Package assembler forecasts a list of target SKUs and merges the results
// into one table on a shared weekly calendar.
package assembler

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/skuforecast/demand"
	"github.com/sartorproj/skuforecast/forecaster"
	"github.com/sartorproj/skuforecast/logger"
)

// SKUForecaster forecasts one SKU.
type SKUForecaster interface {
	Forecast(ctx context.Context, s *demand.Series, horizon int) ([]int, error)
}

// Options controls assembly.
type Options struct {
	Anchor  time.Weekday // weekday every forecast date falls on
	Workers int          // concurrent fits; defaults to runtime.NumCPU()
}

// Assembler runs a forecaster over many SKUs.
type Assembler struct {
	fc   SKUForecaster
	opts Options
	log  *logger.Entry
}

// New returns an Assembler.
func New(fc SKUForecaster, opts Options) *Assembler {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Assembler{
		fc:   fc,
		opts: opts,
		log:  logger.GetLogger().WithComponent("assembler"),
	}
}

// SKUFailure is a target that could not be forecast.
type SKUFailure struct {
	SKU string
	Err error
}

// Outcome is the result of a partial assembly.
type Outcome struct {
	Records  []demand.ForecastRecord
	Failures []SKUFailure
}

// ForecastDates returns horizon dates a week apart, starting at the first
// anchor weekday strictly after latest.
func ForecastDates(latest time.Time, anchor time.Weekday, horizon int) []time.Time {
	if horizon < 1 {
		return nil
	}
	day := time.Date(latest.Year(), latest.Month(), latest.Day(), 0, 0, 0, 0, time.UTC)
	ahead := (int(anchor) - int(day.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	first := day.AddDate(0, 0, ahead)

	dates := make([]time.Time, horizon)
	for i := range dates {
		dates[i] = first.AddDate(0, 0, 7*i)
	}
	return dates
}

// Assemble forecasts every target and returns the records grouped by target
// in target order, then by date. Any failure fails the whole call with the
// error of the earliest failing target; fits of later targets are cancelled
// once a failure makes their result unused.
func (a *Assembler) Assemble(ctx context.Context, seriesBySKU map[string]*demand.Series, targets []demand.Target, horizon int) ([]demand.ForecastRecord, error) {
	results, dates, err := a.run(ctx, seriesBySKU, targets, horizon, true)
	if err != nil {
		return nil, err
	}
	for i, r := range results {
		if r.err != nil {
			return nil, fmt.Errorf("forecast %s: %w", targets[i].ID, r.err)
		}
	}

	records := make([]demand.ForecastRecord, 0, len(targets)*horizon)
	for i, r := range results {
		records = append(records, r.records(targets[i], dates)...)
	}
	return records, nil
}

// AssemblePartial is Assemble without the all-or-nothing rule: failing
// targets are reported in Failures, in target order, and contribute no
// records.
func (a *Assembler) AssemblePartial(ctx context.Context, seriesBySKU map[string]*demand.Series, targets []demand.Target, horizon int) (*Outcome, error) {
	results, dates, err := a.run(ctx, seriesBySKU, targets, horizon, false)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Records: make([]demand.ForecastRecord, 0, len(targets)*horizon)}
	for i, r := range results {
		if r.err != nil {
			out.Failures = append(out.Failures, SKUFailure{SKU: targets[i].ID, Err: r.err})
			continue
		}
		out.Records = append(out.Records, r.records(targets[i], dates)...)
	}
	return out, nil
}

type skuResult struct {
	name    string
	values  []int
	err     error
	skipped bool // cancelled after an earlier target failed
}

func (r skuResult) records(target demand.Target, dates []time.Time) []demand.ForecastRecord {
	name := r.name
	if name == "" {
		name = target.Name
	}
	out := make([]demand.ForecastRecord, len(r.values))
	for h, v := range r.values {
		out[h] = demand.ForecastRecord{
			Date:             dates[h],
			SKUID:            target.ID,
			SKUName:          name,
			ForecastedDemand: v,
		}
	}
	return out
}

// run fits every target on the worker pool. Each goroutine owns one slot of
// the result slice, so the order of results never depends on scheduling.
//
// With failFast, a failure at target i cancels the fits of targets after i
// only. Earlier targets run to completion, so the earliest failing target
// always reports its own error.
func (a *Assembler) run(ctx context.Context, seriesBySKU map[string]*demand.Series, targets []demand.Target, horizon int, failFast bool) ([]skuResult, []time.Time, error) {
	if horizon < 1 {
		return nil, nil, fmt.Errorf("%w, got %d", forecaster.ErrInvalidHorizon, horizon)
	}

	ids := make([]string, len(targets))
	for i, t := range targets {
		ids[i] = t.ID
	}
	dates := ForecastDates(demand.LatestDate(seriesBySKU, ids), a.opts.Anchor, horizon)

	start := time.Now()
	results := make([]skuResult, len(targets))

	ctxs := make([]context.Context, len(targets))
	cancels := make([]context.CancelFunc, len(targets))
	for i := range targets {
		ctxs[i], cancels[i] = context.WithCancel(ctx)
	}
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()
	cancelAfter := func(i int) {
		for _, cancel := range cancels[i+1:] {
			cancel()
		}
	}

	var g errgroup.Group
	g.SetLimit(a.opts.Workers)
	for i, t := range targets {
		i := i
		s, ok := seriesBySKU[t.ID]
		if !ok {
			// An unknown SKU has no history; the forecaster reports it.
			s = demand.NewSeries(t.ID, nil)
		}
		g.Go(func() error {
			fitCtx := ctxs[i]
			if fitCtx.Err() != nil && ctx.Err() == nil {
				results[i] = skuResult{err: context.Cause(fitCtx), skipped: true}
				return nil
			}
			values, err := a.fc.Forecast(fitCtx, s, horizon)
			if err == nil && len(values) != horizon {
				err = fmt.Errorf("forecaster returned %d values for horizon %d", len(values), horizon)
			}
			if err == nil {
				results[i] = skuResult{name: s.Name(), values: values}
				return nil
			}

			results[i].err = err
			if fitCtx.Err() != nil && ctx.Err() == nil {
				results[i].skipped = true
			} else if failFast {
				cancelAfter(i)
			}
			return nil
		})
	}
	_ = g.Wait()

	failed, skipped := 0, 0
	for i, r := range results {
		switch {
		case r.skipped:
			skipped++
		case r.err != nil:
			failed++
			a.log.WithError(r.err).WithField("sku", targets[i].ID).Warn("sku forecast failed")
		}
	}
	logger.LogDuration(a.log.WithFields(logger.Fields{
		"targets": len(targets),
		"failed":  failed,
		"skipped": skipped,
		"horizon": horizon,
	}), "assemble", time.Since(start), nil)

	return results, dates, nil
}
