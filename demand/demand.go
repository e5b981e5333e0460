package demand

import (
	"sort"
	"time"

	"github.com/sartorproj/skuforecast/timeseries"
)

// DateLayout is the ISO-8601 calendar date layout used on output.
const DateLayout = "2006-01-02"

// MinHistory is the fewest observations a series may have to be forecast.
// Configuration can raise it but never lower it.
const MinHistory = 10

// Observation is one row of demand history.
type Observation struct {
	Date     time.Time `json:"date"`
	SKUID    string    `json:"sku_id"`
	SKUName  string    `json:"sku_name"`
	Quantity int       `json:"quantity"`
}

// Series is the demand history of a single SKU, ordered by date.
type Series struct {
	SKUID        string
	Observations []Observation
}

// NewSeries returns a Series holding obs sorted by date. Observations that
// share a date keep their input order.
func NewSeries(skuID string, obs []Observation) *Series {
	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return &Series{SKUID: skuID, Observations: sorted}
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.Observations)
}

// LastDate returns the latest observed date, or the zero time for an empty series.
func (s *Series) LastDate() time.Time {
	if len(s.Observations) == 0 {
		return time.Time{}
	}
	return s.Observations[len(s.Observations)-1].Date
}

// Name returns the last non-empty SKU name in the series.
func (s *Series) Name() string {
	for i := len(s.Observations) - 1; i >= 0; i-- {
		if s.Observations[i].SKUName != "" {
			return s.Observations[i].SKUName
		}
	}
	return ""
}

// Quantities converts the series into a numeric time series for fitting.
func (s *Series) Quantities() *timeseries.Series {
	dates := make([]time.Time, len(s.Observations))
	values := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		dates[i] = o.Date
		values[i] = float64(o.Quantity)
	}
	return &timeseries.Series{Timestamps: dates, Values: values, Name: s.SKUID}
}

// Copy returns a deep copy of the series.
func (s *Series) Copy() *Series {
	obs := make([]Observation, len(s.Observations))
	copy(obs, s.Observations)
	return &Series{SKUID: s.SKUID, Observations: obs}
}

// Target is a SKU the caller wants forecast. Name is used when the history
// carries no SKU name.
type Target struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// ForecastRecord is one forecast period for one SKU.
type ForecastRecord struct {
	Date             time.Time
	SKUID            string
	SKUName          string
	ForecastedDemand int
}

// DateString formats the forecast date as YYYY-MM-DD.
func (r ForecastRecord) DateString() string {
	return r.Date.Format(DateLayout)
}

// LatestDate returns the latest observed date across the given SKUs. SKUs
// missing from seriesBySKU are ignored.
func LatestDate(seriesBySKU map[string]*Series, skus []string) time.Time {
	var latest time.Time
	for _, id := range skus {
		s, ok := seriesBySKU[id]
		if !ok || s.Len() == 0 {
			continue
		}
		if d := s.LastDate(); d.After(latest) {
			latest = d
		}
	}
	return latest
}
