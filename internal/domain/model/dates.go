package model

import "time"

const (
	// dayMonthYearLayout is the format the backend uses for payment and
	// usage dates.
	dayMonthYearLayout = "02/01/2006"
	// compactDateLayout is the format used by the reading-window endpoint.
	compactDateLayout = "20060102"
)

// ParseDayMonthYear parses a DD/MM/YYYY date string.
func ParseDayMonthYear(s string) (time.Time, error) {
	return time.Parse(dayMonthYearLayout, s)
}

// YearOfDayMonthYear extracts the year from a DD/MM/YYYY date string,
// returning 0 when the string does not parse.
func YearOfDayMonthYear(s string) int {
	t, err := time.Parse(dayMonthYearLayout, s)
	if err != nil {
		return 0
	}
	return t.Year()
}

// ParseCompactDate parses a YYYYMMDD date string.
func ParseCompactDate(s string) (time.Time, error) {
	return time.Parse(compactDateLayout, s)
}
