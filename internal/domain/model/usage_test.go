package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterRecentYears(t *testing.T) {
	h := UsageHistory{Entries: []UsageEntry{
		{Date: "19/07/2023", Usage: 120},
		{Date: "03/01/2024", Usage: 95},
		{Date: "15/05/2021", Usage: 200},
		{Year: 2022, Usage: 80},
	}}

	filtered := h.FilterRecentYears(2023)

	require.Len(t, filtered.Entries, 2)
	assert.Equal(t, 2023, filtered.Entries[0].Year)
	assert.Equal(t, "19/07/2023", filtered.Entries[0].Date)
	assert.Equal(t, 2024, filtered.Entries[1].Year)
}

func TestFilterRecentYearsExplicitYearWins(t *testing.T) {
	// An entry with a populated Year is not re-derived from its date.
	h := UsageHistory{Entries: []UsageEntry{
		{Year: 2024, Date: "01/01/1999", Usage: 10},
	}}

	filtered := h.FilterRecentYears(2023)
	require.Len(t, filtered.Entries, 1)
}

func TestFilterRecentYearsDropsUndated(t *testing.T) {
	h := UsageHistory{Entries: []UsageEntry{
		{Date: "not-a-date", Usage: 1},
		{Usage: 2},
	}}

	assert.Empty(t, h.FilterRecentYears(2023).Entries)
}

func TestYearOfDayMonthYear(t *testing.T) {
	assert.Equal(t, 2023, YearOfDayMonthYear("19/07/2023"))
	assert.Zero(t, YearOfDayMonthYear("2023-07-19"))
	assert.Zero(t, YearOfDayMonthYear(""))
}

func TestParseCompactDate(t *testing.T) {
	d, err := ParseCompactDate("20240115")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, 15, d.Day())

	_, err = ParseCompactDate("2024-01-15")
	require.Error(t, err)
}
