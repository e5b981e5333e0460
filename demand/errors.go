package demand

import (
	"context"
	"errors"
	"fmt"
)

// SchemaError reports a missing required column or a value that does not
// fit its column. Row is 0 when the problem is in the header.
type SchemaError struct {
	Column string
	Row    int
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("schema error: column %q row %d: %s", e.Column, e.Row, e.Reason)
	}
	return fmt.Sprintf("schema error: column %q: %s", e.Column, e.Reason)
}

// DateParseError reports a date value that could not be parsed.
type DateParseError struct {
	Row   int
	Value string
	Err   error
}

func (e *DateParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: cannot parse date %q", e.Row, e.Value)
	}
	return fmt.Sprintf("cannot parse date %q", e.Value)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// InsufficientHistoryError reports a SKU with fewer observations than the
// forecaster needs.
type InsufficientHistoryError struct {
	SKU      string
	Count    int
	Required int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("not enough data to forecast SKU %s: %d observations, need at least %d",
		e.SKU, e.Count, e.Required)
}

// ModelFitError wraps a numerical failure while fitting a SKU's model.
type ModelFitError struct {
	SKU   string
	Order string
	Err   error
}

func (e *ModelFitError) Error() string {
	return fmt.Sprintf("fit %s for SKU %s: %v", e.Order, e.SKU, e.Err)
}

func (e *ModelFitError) Unwrap() error { return e.Err }

// Retryable reports whether err is a model fit that ran out of time, the
// only failure that may succeed when repeated with a longer deadline.
func Retryable(err error) bool {
	var fitErr *ModelFitError
	if !errors.As(err, &fitErr) {
		return false
	}
	return errors.Is(fitErr.Err, context.DeadlineExceeded)
}
