package utils

import (
	"time"
)

// DefaultDateFormat matches Robinhood's MM/DD/YYYY export format.
const DefaultDateFormat = "01/02/2006"

// dateFormats are tried in order when parsing export dates.
var dateFormats = []string{
	DefaultDateFormat,
	"1/2/2006", // exports do not zero-pad
	"2006-01-02",
	"01-02-2006",
}

// ParseDate parses a date string from a brokerage export. Returns the zero
// time when the string is empty or matches none of the supported formats;
// callers treat zero time as "no date".
func ParseDate(dateStr string) time.Time {
	if dateStr == "" {
		return time.Time{}
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatDate renders a date in the MM/DD/YYYY style used in explanations.
func FormatDate(t time.Time) string {
	return t.Format(DefaultDateFormat)
}

// DaysBetween returns the number of whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
