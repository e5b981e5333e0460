package loader

import (
	"errors"
	"strings"
	"time"
)

// dateLayouts are tried in order. Time of day is dropped after parsing.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
}

var errUnknownDateFormat = errors.New("no supported date layout matches")

// ParseDate parses s as a calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	s = unquote(s)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, errUnknownDateFormat
}

// unquote strips surrounding whitespace and double quotes, including
// whitespace between the quotes and the value.
func unquote(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "\""))
}
