package model

import "time"

// Meter describes one physical meter attached to an account.
type Meter struct {
	Number string `json:"number"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// MeterDetails is the meter inventory of one account.
type MeterDetails struct {
	Meters []Meter `json:"meters"`
}

// MeterReading is the latest self-reported or remote index of a meter.
type MeterReading struct {
	MeterNumber string  `json:"meter_number"`
	Value       float64 `json:"value"`
	ReadDate    string  `json:"read_date"`
}

// ReadingWindow is the interval in which the backend accepts a new
// self-reported meter index.
type ReadingWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window, inclusive on both ends.
func (w ReadingWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
