package demand

import (
	"encoding/json"
	"fmt"
	"time"
)

type forecastRecordJSON struct {
	Date             string `json:"Date"`
	SKUID            string `json:"SKU ID"`
	SKUName          string `json:"SKU Name"`
	ForecastedDemand int    `json:"Forecasted Demand"`
}

// MarshalJSON renders the record with the column names consumers expect.
func (r ForecastRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(forecastRecordJSON{
		Date:             r.DateString(),
		SKUID:            r.SKUID,
		SKUName:          r.SKUName,
		ForecastedDemand: r.ForecastedDemand,
	})
}

// UnmarshalJSON parses a record produced by MarshalJSON.
func (r *ForecastRecord) UnmarshalJSON(data []byte) error {
	var raw forecastRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return fmt.Errorf("parse forecast date %q: %w", raw.Date, err)
	}
	*r = ForecastRecord{
		Date:             date,
		SKUID:            raw.SKUID,
		SKUName:          raw.SKUName,
		ForecastedDemand: raw.ForecastedDemand,
	}
	return nil
}
