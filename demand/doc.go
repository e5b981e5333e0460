// Package demand defines the records that flow through the forecasting
// pipeline and the closed set of errors it can fail with.
//
// Observations are grouped into a Series per SKU by the loader, read by the
// forecaster, and turned into ForecastRecord values by the assembler. Every
// failure surfaces as one of SchemaError, DateParseError,
// InsufficientHistoryError or ModelFitError; use errors.As to tell them apart.
package demand
