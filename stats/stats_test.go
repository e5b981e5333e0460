package stats

import (
	"math"
	"testing"

	"github.com/sartorproj/skuforecast/timeseries"
)

func TestACF(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i)
	}

	acf := ACF(timeseries.New(values), 10)
	if acf == nil {
		t.Fatal("ACF returned nil")
	}
	if math.Abs(acf[0]-1.0) > 1e-10 {
		t.Errorf("ACF at lag 0 should be 1, got %f", acf[0])
	}
	// A trend decays slowly.
	if acf[1] < 0.9 {
		t.Errorf("Expected high lag-1 autocorrelation for trend, got %f", acf[1])
	}
}

func TestACFConstantSeries(t *testing.T) {
	if acf := ACF(timeseries.New([]float64{5, 5, 5, 5}), 2); acf != nil {
		t.Errorf("Expected nil ACF for constant series, got %v", acf)
	}
}

func TestPACFAR1(t *testing.T) {
	n := 500
	values := make([]float64, n)
	for i := 1; i < n; i++ {
		values[i] = 0.6*values[i-1] + float64(i%7-3)/3
	}

	pacf := PACF(timeseries.New(values), 5)
	if pacf == nil {
		t.Fatal("PACF returned nil")
	}
	if pacf[0] != 1 {
		t.Errorf("PACF at lag 0 should be 1, got %f", pacf[0])
	}
	if math.Abs(pacf[1]) < 0.3 {
		t.Errorf("Expected a strong lag-1 partial autocorrelation, got %f", pacf[1])
	}
	for k := 1; k < len(pacf); k++ {
		if pacf[k] <= -1 || pacf[k] >= 1 {
			t.Errorf("PACF at lag %d out of (-1, 1): %f", k, pacf[k])
		}
	}
}

func TestLjungBox(t *testing.T) {
	n := 100
	autocorrelated := make([]float64, n)
	for i := 1; i < n; i++ {
		autocorrelated[i] = 0.9*autocorrelated[i-1] + float64(i%7-3)/10
	}

	result := LjungBox(timeseries.New(autocorrelated), 10, 0)
	if result == nil {
		t.Fatal("LjungBox returned nil")
	}
	if result.DOF != 10 {
		t.Errorf("Expected 10 degrees of freedom, got %d", result.DOF)
	}
	if result.PValue > 0.05 {
		t.Errorf("Expected autocorrelation to be detected, p=%f", result.PValue)
	}

	t.Logf("Ljung-Box - Q: %f, P-Value: %f", result.Statistic, result.PValue)
}

func TestLjungBoxShortSeries(t *testing.T) {
	if lb := LjungBox(timeseries.New([]float64{1, 2, 3}), 10, 0); lb != nil {
		t.Errorf("Expected nil for short series, got %+v", lb)
	}
}

func TestCalculateIC(t *testing.T) {
	ic := CalculateIC(-100, 50, 3)

	if math.Abs(ic.AIC-206) > 1e-10 {
		t.Errorf("Expected AIC 206, got %f", ic.AIC)
	}
	expectedBIC := 200 + 3*math.Log(50)
	if math.Abs(ic.BIC-expectedBIC) > 1e-10 {
		t.Errorf("Expected BIC %f, got %f", expectedBIC, ic.BIC)
	}
	expectedAICc := 206 + 2*3*4/46.0
	if math.Abs(ic.AICc-expectedAICc) > 1e-10 {
		t.Errorf("Expected AICc %f, got %f", expectedAICc, ic.AICc)
	}

	if small := CalculateIC(-10, 4, 3); !math.IsInf(small.AICc, 1) {
		t.Errorf("Expected infinite AICc when n-k-1 <= 0, got %f", small.AICc)
	}
}
