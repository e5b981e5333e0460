package forecaster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sartorproj/skuforecast/arima"
	"github.com/sartorproj/skuforecast/demand"
)

var pepsiHistory = []int{100, 110, 105, 120, 115, 130, 125, 140, 135, 150, 145, 160}

func weeklySeries(sku string, start time.Time, quantities []int) *demand.Series {
	obs := make([]demand.Observation, len(quantities))
	for i, q := range quantities {
		obs[i] = demand.Observation{
			Date:     start.AddDate(0, 0, 7*i),
			SKUID:    sku,
			Quantity: q,
		}
	}
	return demand.NewSeries(sku, obs)
}

var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestForecastHorizonLength(t *testing.T) {
	f := New(DefaultOptions())
	s := weeklySeries("PEP-ORG-330C", monday, pepsiHistory)

	for _, h := range []int{1, 3, 8} {
		values, err := f.Forecast(context.Background(), s, h)
		if err != nil {
			t.Fatalf("horizon %d: %v", h, err)
		}
		if len(values) != h {
			t.Errorf("horizon %d: got %d values", h, len(values))
		}
		for i, v := range values {
			if v < 0 {
				t.Errorf("horizon %d step %d: negative forecast %d", h, i, v)
			}
		}
	}
}

func TestForecastInsufficientHistory(t *testing.T) {
	f := New(DefaultOptions())
	s := weeklySeries("SHORT", monday, []int{5, 6, 7, 8, 9})

	_, err := f.Forecast(context.Background(), s, 1)
	var ih *demand.InsufficientHistoryError
	if !errors.As(err, &ih) {
		t.Fatalf("expected InsufficientHistoryError, got %v", err)
	}
	if ih.SKU != "SHORT" || ih.Count != 5 || ih.Required != 10 {
		t.Errorf("unexpected detail %+v", ih)
	}
}

func TestMinHistoryCannotBeLowered(t *testing.T) {
	opts := DefaultOptions()
	opts.MinHistory = 3
	f := New(opts)
	s := weeklySeries("MD-ORG-600B", monday, []int{80, 85, 83, 90, 88})

	_, err := f.Forecast(context.Background(), s, 1)
	var ih *demand.InsufficientHistoryError
	if !errors.As(err, &ih) {
		t.Fatalf("expected InsufficientHistoryError, got %v", err)
	}
	if ih.SKU != "MD-ORG-600B" || ih.Count != 5 || ih.Required != demand.MinHistory {
		t.Errorf("unexpected detail %+v", ih)
	}
}

func TestStricterMinHistory(t *testing.T) {
	opts := DefaultOptions()
	opts.MinHistory = 20
	_, err := New(opts).Forecast(context.Background(), weeklySeries("PEP-ORG-330C", monday, pepsiHistory), 1)
	var ih *demand.InsufficientHistoryError
	if !errors.As(err, &ih) || ih.Count != 12 || ih.Required != 20 {
		t.Fatalf("expected InsufficientHistoryError requiring 20, got %v", err)
	}
}

func TestForecastMinimumHistoryAccepted(t *testing.T) {
	f := New(DefaultOptions())
	s := weeklySeries("TEN", monday, []int{20, 22, 21, 25, 24, 26, 28, 27, 30, 29})

	if _, err := f.Forecast(context.Background(), s, 1); err != nil {
		t.Fatalf("ten observations should be enough: %v", err)
	}
}

func TestForecastInvalidHorizon(t *testing.T) {
	f := New(DefaultOptions())
	s := weeklySeries("PEP-ORG-330C", monday, pepsiHistory)

	_, err := f.Forecast(context.Background(), s, 0)
	if !errors.Is(err, ErrInvalidHorizon) {
		t.Fatalf("expected ErrInvalidHorizon, got %v", err)
	}
	var ih *demand.InsufficientHistoryError
	var mf *demand.ModelFitError
	if errors.As(err, &ih) || errors.As(err, &mf) {
		t.Error("invalid horizon should not be a domain error")
	}
}

func TestForecastIsDeterministic(t *testing.T) {
	f := New(DefaultOptions())
	s := weeklySeries("PEP-ORG-330C", monday, pepsiHistory)

	first, err := f.Detail(context.Background(), s, 4)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.Detail(context.Background(), s, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first.Raw {
		if first.Raw[i] != second.Raw[i] || first.Values[i] != second.Values[i] {
			t.Errorf("step %d differs between runs: %v vs %v", i, first.Raw[i], second.Raw[i])
		}
	}
}

func TestForecastConstantDemand(t *testing.T) {
	f := New(DefaultOptions())
	s := weeklySeries("FLAT", monday, []int{40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40})

	values, err := f.Forecast(context.Background(), s, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range values {
		if v != 40 {
			t.Errorf("step %d: expected 40, got %d", i, v)
		}
	}
}

func TestDetailReportsModel(t *testing.T) {
	f := New(DefaultOptions())
	s := weeklySeries("PEP-ORG-330C", monday, pepsiHistory)

	res, err := f.Detail(context.Background(), s, 2)
	if err != nil {
		t.Fatal(err)
	}
	if res.SKU != "PEP-ORG-330C" {
		t.Errorf("unexpected SKU %q", res.SKU)
	}
	if res.Order != (arima.Order{P: 2, D: 1, Q: 2}) {
		t.Errorf("unexpected order %v", res.Order)
	}
	if len(res.Raw) != 2 || len(res.Values) != 2 {
		t.Errorf("unexpected lengths raw=%d values=%d", len(res.Raw), len(res.Values))
	}
	for i := range res.Raw {
		if res.Values[i] != RoundDemand(res.Raw[i]) {
			t.Errorf("step %d: value %d does not match rounded raw %f", i, res.Values[i], res.Raw[i])
		}
	}
	if len(res.Fitted) != len(pepsiHistory)-res.Order.D {
		t.Errorf("expected %d fitted values, got %d", len(pepsiHistory)-res.Order.D, len(res.Fitted))
	}
	if !(res.ResidualStd > 0) {
		t.Errorf("expected positive residual std, got %f", res.ResidualStd)
	}
}

func TestFallbackOrders(t *testing.T) {
	opts := DefaultOptions()
	opts.Order = arima.Order{P: 6, D: 1, Q: 6}
	s := weeklySeries("PEP-ORG-330C", monday, pepsiHistory)

	_, err := New(opts).Forecast(context.Background(), s, 1)
	var mf *demand.ModelFitError
	if !errors.As(err, &mf) {
		t.Fatalf("expected ModelFitError without fallbacks, got %v", err)
	}
	if mf.Order != "ARIMA(6,1,6)" || mf.SKU != "PEP-ORG-330C" {
		t.Errorf("unexpected detail %+v", mf)
	}
	if !errors.Is(err, arima.ErrInsufficientData) {
		t.Errorf("expected cause to be kept, got %v", err)
	}

	opts.FallbackOrders = []arima.Order{{P: 0, D: 1, Q: 1}}
	res, err := New(opts).Detail(context.Background(), s, 1)
	if err != nil {
		t.Fatalf("expected fallback to succeed: %v", err)
	}
	if res.Order != (arima.Order{P: 0, D: 1, Q: 1}) {
		t.Errorf("expected fallback order, got %v", res.Order)
	}
}

func TestFitTimeout(t *testing.T) {
	opts := DefaultOptions()
	opts.FitTimeout = time.Nanosecond
	s := weeklySeries("PEP-ORG-330C", monday, pepsiHistory)

	_, err := New(opts).Forecast(context.Background(), s, 1)
	var mf *demand.ModelFitError
	if !errors.As(err, &mf) {
		t.Fatalf("expected ModelFitError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline cause, got %v", err)
	}
	if !demand.Retryable(err) {
		t.Error("timeout should be retryable")
	}
}

func TestCancelledContextSkipsFallbacks(t *testing.T) {
	opts := DefaultOptions()
	opts.FallbackOrders = []arima.Order{{P: 0, D: 1, Q: 1}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(opts).Forecast(ctx, weeklySeries("A", monday, pepsiHistory), 1)
	var mf *demand.ModelFitError
	if !errors.As(err, &mf) {
		t.Fatalf("expected ModelFitError, got %v", err)
	}
	if mf.Order != "ARIMA(2,1,2)" {
		t.Errorf("expected primary order to be reported, got %s", mf.Order)
	}
}

func TestRoundDemand(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{2.5, 2},
		{3.5, 4},
		{2.4, 2},
		{2.6, 3},
		{171.5, 172},
		{-0.4, 0},
		{-12.7, 0},
		{0, 0},
	}
	for _, tt := range tests {
		if got := RoundDemand(tt.in); got != tt.want {
			t.Errorf("RoundDemand(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
