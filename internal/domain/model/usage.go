package model

// UsageEntry is one period's consumption and generation figures.
type UsageEntry struct {
	Date       string  `json:"date"`
	Year       int     `json:"year"`
	Usage      float64 `json:"usage"`
	Generation float64 `json:"generation"`
}

// UsageHistory is the consumption archive of one account.
type UsageHistory struct {
	Entries []UsageEntry `json:"entries"`
}

// FilterRecentYears keeps entries whose year is at or after cutoffYear.
// When an entry carries no year, the year is recovered from its DD/MM/YYYY
// date; entries with neither are dropped.
func (h UsageHistory) FilterRecentYears(cutoffYear int) UsageHistory {
	filtered := make([]UsageEntry, 0, len(h.Entries))
	for _, e := range h.Entries {
		year := e.Year
		if year == 0 {
			year = YearOfDayMonthYear(e.Date)
		}
		if year >= cutoffYear {
			e.Year = year
			filtered = append(filtered, e)
		}
	}
	return UsageHistory{Entries: filtered}
}
