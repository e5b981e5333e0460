package recorder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sartorproj/skuforecast/demand"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecordRunRoundTrip(t *testing.T) {
	r := openTestRecorder(t)

	d := time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)
	run := &Run{
		StartedAt: time.Date(2024, 3, 19, 8, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Source:    "history.csv",
		Horizon:   2,
		Order:     "ARIMA(2,1,2)",
		Records: []demand.ForecastRecord{
			{Date: d, SKUID: "PEP-ORG-330C", SKUName: "Pepsi Original 330ml Can", ForecastedDemand: 158},
			{Date: d.AddDate(0, 0, 7), SKUID: "PEP-ORG-330C", SKUName: "Pepsi Original 330ml Can", ForecastedDemand: 161},
		},
	}
	if err := r.RecordRun(run); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected run id to be assigned")
	}

	runs, err := r.RecentRuns(10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID || runs[0].Status != "ok" || runs[0].RecordCount != 2 {
		t.Fatalf("unexpected runs %+v", runs)
	}

	records, err := r.Records(run.ID)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for i := range records {
		got, want := records[i], run.Records[i]
		if !got.Date.Equal(want.Date) || got.SKUID != want.SKUID || got.SKUName != want.SKUName || got.ForecastedDemand != want.ForecastedDemand {
			t.Errorf("record %d: expected %+v, got %+v", i, want, got)
		}
	}
}

func TestRecordFailedAndPartialRuns(t *testing.T) {
	r := openTestRecorder(t)

	failed := &Run{
		StartedAt: time.Unix(1000, 0),
		Err:       &demand.SchemaError{Column: "Demand Quantity", Reason: "required column is missing"},
	}
	partial := &Run{
		StartedAt: time.Unix(2000, 0),
		Failures: []Failure{
			NewFailure("MD-ORG-600B", &demand.InsufficientHistoryError{SKU: "MD-ORG-600B", Count: 5, Required: 10}),
		},
	}
	for _, run := range []*Run{failed, partial} {
		if err := r.RecordRun(run); err != nil {
			t.Fatalf("record run: %v", err)
		}
	}

	runs, err := r.RecentRuns(5)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Status != "partial" || runs[0].FailureCount != 1 {
		t.Errorf("unexpected newest run %+v", runs[0])
	}
	if runs[1].Status != "failed" || runs[1].Error == "" {
		t.Errorf("unexpected oldest run %+v", runs[1])
	}
}

func TestRecordRunDuplicateID(t *testing.T) {
	r := openTestRecorder(t)
	if err := r.RecordRun(&Run{ID: "fixed"}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := r.RecordRun(&Run{ID: "fixed"}); err == nil {
		t.Fatal("expected duplicate id to fail")
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&demand.SchemaError{}, "schema"},
		{&demand.DateParseError{}, "date_parse"},
		{fmt.Errorf("wrap: %w", &demand.InsufficientHistoryError{}), "insufficient_history"},
		{&demand.ModelFitError{Err: errors.New("singular")}, "model_fit"},
		{&demand.ModelFitError{Err: context.DeadlineExceeded}, "model_fit_timeout"},
		{errors.New("disk full"), "other"},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	if err := r.RecordRun(&Run{}); err != nil {
		t.Errorf("noop record: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("noop close: %v", err)
	}
}
