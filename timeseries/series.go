// Package timeseries provides core time series data structures and operations.
package timeseries

import (
	"math"
	"time"
)

// Series represents a time series with optional timestamps and values.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// New creates a new time series from values without timestamps.
func New(values []float64) *Series {
	return &Series{Values: values}
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// Mean calculates the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s.Values {
		sum += v
	}
	return sum / float64(len(s.Values))
}

// Variance calculates the sample variance of the series.
func (s *Series) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	mean := s.Mean()
	sumSq := 0.0
	for _, v := range s.Values {
		diff := v - mean
		sumSq += diff * diff
	}
	return sumSq / float64(len(s.Values)-1)
}

// Std calculates the standard deviation of the series.
func (s *Series) Std() float64 {
	return math.Sqrt(s.Variance())
}

// Last returns the final observation, or NaN for an empty series.
func (s *Series) Last() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return s.Values[len(s.Values)-1]
}

// Diff calculates the first difference of the series (d=1).
func (s *Series) Diff() *Series {
	return s.DiffN(1)
}

// DiffN applies first differencing n times.
func (s *Series) DiffN(n int) *Series {
	if n <= 0 {
		return s.Copy()
	}
	if len(s.Values) <= n {
		return &Series{Values: []float64{}, Name: s.Name + "_diff"}
	}

	values := make([]float64, len(s.Values))
	copy(values, s.Values)
	for k := 0; k < n; k++ {
		for i := len(values) - 1; i > k; i-- {
			values[i] -= values[i-1]
		}
	}
	result := values[n:]

	var timestamps []time.Time
	if len(s.Timestamps) == len(s.Values) {
		timestamps = make([]time.Time, len(result))
		copy(timestamps, s.Timestamps[n:])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     result,
		Name:       s.Name + "_diff",
	}
}

// Undiff maps forecasts of the d-times differenced series back onto the
// level of s. The forecasts are assumed to continue directly after the last
// observation of s.
func (s *Series) Undiff(d int, forecasts []float64) []float64 {
	result := make([]float64, len(forecasts))
	copy(result, forecasts)
	if d <= 0 || len(s.Values) < d {
		return result
	}

	// tails[k] is the last value of the k-th differenced series.
	tails := make([]float64, d)
	level := s.Copy()
	for k := 0; k < d; k++ {
		tails[k] = level.Last()
		level = level.Diff()
	}

	for h, f := range result {
		v := f
		for k := d - 1; k >= 0; k-- {
			tails[k] += v
			v = tails[k]
		}
		result[h] = v
	}
	return result
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)

	var timestamps []time.Time
	if s.Timestamps != nil {
		timestamps = make([]time.Time, len(s.Timestamps))
		copy(timestamps, s.Timestamps)
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}
