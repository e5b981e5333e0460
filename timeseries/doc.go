// Package timeseries provides the numeric series type the models operate on.
//
// A Series is a dense sequence of float64 observations, optionally paired
// with timestamps. Demand histories are converted into a Series before
// fitting; the model packages never see SKU metadata.
//
// # Creating a Series
//
//	series := timeseries.New([]float64{100, 110, 105, 120})
//
// # Differencing
//
//	diff := series.Diff()     // first difference
//	diff2 := series.DiffN(2)  // d-th order difference
//
// Forecasts produced on the differenced scale are mapped back with Undiff:
//
//	levels := series.Undiff(1, diffForecasts)
package timeseries
