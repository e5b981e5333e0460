// Package loader reads demand history from CSV and groups it by SKU.
//
// Required columns are Date, SKU ID and Demand Quantity; SKU Name is
// optional. The first malformed date or quantity aborts the load, so a
// successful result always covers every input row.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sartorproj/skuforecast/demand"
	"github.com/sartorproj/skuforecast/logger"
)

// Column names of the demand history.
const (
	ColumnDate     = "Date"
	ColumnSKUID    = "SKU ID"
	ColumnSKUName  = "SKU Name"
	ColumnQuantity = "Demand Quantity"
)

var requiredColumns = []string{ColumnDate, ColumnSKUID, ColumnQuantity}

// LoadFile loads demand history from the CSV file at path.
func LoadFile(path string) (map[string]*demand.Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open demand history: %w", err)
	}
	defer file.Close()

	return Load(file)
}

// Load reads demand history from r and returns one date-ordered series per
// SKU. Row numbers in errors count data rows from 1, excluding the header.
func Load(r io.Reader) (map[string]*demand.Series, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &demand.SchemaError{Column: ColumnDate, Reason: "missing header row"}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := IndexColumns(header)
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, &demand.SchemaError{Column: col, Reason: "required column is missing"}
		}
	}
	nameIdx, hasName := idx[ColumnSKUName]

	grouped := make(map[string][]demand.Observation)
	var order []string
	row := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++

		if isBlank(record) {
			continue
		}

		rawDate := field(record, idx[ColumnDate])
		date, err := ParseDate(rawDate)
		if err != nil {
			return nil, &demand.DateParseError{Row: row, Value: rawDate, Err: err}
		}

		sku := field(record, idx[ColumnSKUID])
		if sku == "" {
			return nil, &demand.SchemaError{Column: ColumnSKUID, Row: row, Reason: "value is empty"}
		}

		qty, err := parseQuantity(field(record, idx[ColumnQuantity]))
		if err != nil {
			return nil, &demand.SchemaError{Column: ColumnQuantity, Row: row, Reason: err.Error()}
		}

		obs := demand.Observation{Date: date, SKUID: sku, Quantity: qty}
		if hasName {
			obs.SKUName = field(record, nameIdx)
		}
		if _, ok := grouped[sku]; !ok {
			order = append(order, sku)
		}
		grouped[sku] = append(grouped[sku], obs)
	}

	out := make(map[string]*demand.Series, len(grouped))
	for _, sku := range order {
		out[sku] = demand.NewSeries(sku, grouped[sku])
	}

	logger.GetLogger().WithComponent("loader").WithFields(logger.Fields{
		"rows": row,
		"skus": len(out),
	}).Debug("loaded demand history")

	return out, nil
}

// IndexColumns maps trimmed, unquoted header names to their positions. The
// first occurrence of a repeated name wins.
func IndexColumns(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = unquote(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return unquote(record[i])
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// parseQuantity accepts non-negative integers, including integral floats
// such as "12.0".
func parseQuantity(s string) (int, error) {
	if s == "" {
		return 0, errors.New("value is empty")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("quantity %d is negative", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not a whole quantity", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("quantity %s is negative", s)
	}
	if f > math.MaxInt32 {
		return 0, fmt.Errorf("quantity %s is out of range", s)
	}
	return int(f), nil
}
