// Package allocation looks up resource allocation rows by calendar date.
//
// The allocation file's columns belong to the planning team, so rows are
// returned as header-keyed maps. Only the Date column is interpreted, with
// the same parser and reject-on-first-bad-date rule as the demand loader.
package allocation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sartorproj/skuforecast/demand"
	"github.com/sartorproj/skuforecast/loader"
	"github.com/sartorproj/skuforecast/logger"
)

// TargetLayout is the day-month-year layout of lookup dates, e.g. 04-06-2025.
const TargetLayout = "02-01-2006"

// Record is one allocation row keyed by column name.
type Record map[string]string

// FilterFile is FilterByDate over the CSV file at path.
func FilterFile(path, target string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open allocation data: %w", err)
	}
	defer file.Close()

	return FilterByDate(file, target)
}

// FilterByDate returns the rows of r whose Date falls on target, in input
// order. No match yields an empty slice and a nil error.
func FilterByDate(r io.Reader, target string) ([]Record, error) {
	want, err := parseTarget(target)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &demand.SchemaError{Column: loader.ColumnDate, Reason: "missing header row"}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := loader.IndexColumns(header)
	dateIdx, ok := idx[loader.ColumnDate]
	if !ok {
		return nil, &demand.SchemaError{Column: loader.ColumnDate, Reason: "required column is missing"}
	}
	names := make([]string, len(header))
	for name, i := range idx {
		names[i] = name
	}

	matches := []Record{}
	row := 0
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++

		if dateIdx >= len(fields) {
			return nil, &demand.DateParseError{Row: row, Value: ""}
		}
		raw := fields[dateIdx]
		date, err := loader.ParseDate(raw)
		if err != nil {
			return nil, &demand.DateParseError{Row: row, Value: raw, Err: err}
		}
		if !date.Equal(want) {
			continue
		}

		rec := make(Record, len(names))
		for i, name := range names {
			if name == "" {
				continue
			}
			if i < len(fields) {
				rec[name] = strings.TrimSpace(fields[i])
			} else {
				rec[name] = ""
			}
		}
		matches = append(matches, rec)
	}

	logger.GetLogger().WithComponent("allocation").WithFields(logger.Fields{
		"date":    target,
		"rows":    row,
		"matches": len(matches),
	}).Debug("filtered allocation rows")

	return matches, nil
}

func parseTarget(target string) (time.Time, error) {
	ts, err := time.Parse(TargetLayout, strings.TrimSpace(target))
	if err != nil {
		return time.Time{}, &demand.DateParseError{Value: target, Err: err}
	}
	return ts, nil
}
