// Package export renders forecast records as JSON, CSV or Parquet and
// ships them to files or S3.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sartorproj/skuforecast/demand"
)

// CSVHeader is the column order of CSV output.
var CSVHeader = []string{"Date", "SKU ID", "SKU Name", "Forecasted Demand"}

// WriteJSON writes records as an indented JSON array. No records render as [].
func WriteJSON(w io.Writer, records []demand.ForecastRecord) error {
	if records == nil {
		records = []demand.ForecastRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode forecast json: %w", err)
	}
	return nil
}

// WriteCSV writes records with a header row. No records render the header only.
func WriteCSV(w io.Writer, records []demand.ForecastRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{r.DateString(), r.SKUID, r.SKUName, strconv.Itoa(r.ForecastedDemand)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates path, including missing parent directories, and fills
// it with write.
func WriteFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
