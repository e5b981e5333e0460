// Package recorder keeps a history of forecast runs.
package recorder

import (
	"errors"
	"time"

	"github.com/sartorproj/skuforecast/demand"
)

// Run is one execution of the forecasting pipeline.
type Run struct {
	ID        string // assigned by the recorder when empty
	StartedAt time.Time
	Duration  time.Duration
	Source    string
	Horizon   int
	Order     string
	Records   []demand.ForecastRecord
	Failures  []Failure
	Err       error // set when the run as a whole failed
}

// Failure is a SKU that produced no forecast.
type Failure struct {
	SKU     string
	Kind    string
	Message string
}

// NewFailure describes err for sku.
func NewFailure(sku string, err error) Failure {
	return Failure{SKU: sku, Kind: Kind(err), Message: err.Error()}
}

// Kind names the class of a pipeline error for storage and metrics.
func Kind(err error) string {
	var (
		schemaErr *demand.SchemaError
		dateErr   *demand.DateParseError
		histErr   *demand.InsufficientHistoryError
		fitErr    *demand.ModelFitError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &schemaErr):
		return "schema"
	case errors.As(err, &dateErr):
		return "date_parse"
	case errors.As(err, &histErr):
		return "insufficient_history"
	case errors.As(err, &fitErr):
		if demand.Retryable(err) {
			return "model_fit_timeout"
		}
		return "model_fit"
	default:
		return "other"
	}
}

// Status is "ok", "partial" or "failed".
func (r *Run) Status() string {
	switch {
	case r.Err != nil:
		return "failed"
	case len(r.Failures) > 0:
		return "partial"
	default:
		return "ok"
	}
}

// Recorder persists forecast runs.
type Recorder interface {
	RecordRun(run *Run) error
	Close() error
}
