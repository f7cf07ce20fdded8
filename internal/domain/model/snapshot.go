package model

import "time"

// ResourceKind names one fetchable per-account resource.
type ResourceKind string

const (
	ResourceBill          ResourceKind = "bill"
	ResourceBillHistory   ResourceKind = "bill_history"
	ResourceMeterDetails  ResourceKind = "meter_details"
	ResourceMeterReading  ResourceKind = "meter_reading"
	ResourceReadingWindow ResourceKind = "reading_window"
	ResourceUsageHistory  ResourceKind = "usage_history"
)

// FailureKind classifies why a fetch or a whole cycle failed.
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureAuthentication FailureKind = "authentication"
	FailureSessionExpired FailureKind = "session_expired"
	FailureAccessRevoked  FailureKind = "access_revoked"
	FailureTransport      FailureKind = "transport"
	FailureMalformed      FailureKind = "malformed"
)

// AccountSnapshot holds whatever resources a refresh cycle managed to fetch
// for one account. Resource pointers are nil when the fetch failed; Errors
// records the reason per resource.
type AccountSnapshot struct {
	Account       Account                 `json:"account"`
	Bill          *Bill                   `json:"bill,omitempty"`
	BillHistory   *BillHistory            `json:"bill_history,omitempty"`
	MeterDetails  *MeterDetails           `json:"meter_details,omitempty"`
	MeterReading  *MeterReading           `json:"meter_reading,omitempty"`
	ReadingWindow *ReadingWindow          `json:"reading_window,omitempty"`
	UsageHistory  *UsageHistory           `json:"usage_history,omitempty"`
	Errors        map[ResourceKind]string `json:"errors,omitempty"`
	Failure       FailureKind             `json:"failure,omitempty"`
}

// RecordError marks one resource fetch as failed, keeping the most severe
// failure kind for the snapshot as a whole.
func (s *AccountSnapshot) RecordError(kind ResourceKind, failure FailureKind, err error) {
	if s.Errors == nil {
		s.Errors = make(map[ResourceKind]string)
	}
	s.Errors[kind] = err.Error()
	if s.Failure == FailureNone || failure == FailureAccessRevoked {
		s.Failure = failure
	}
}

// SucceededCount returns how many resources were fetched for the snapshot.
func (s *AccountSnapshot) SucceededCount() int {
	var n int
	if s.Bill != nil {
		n++
	}
	if s.BillHistory != nil {
		n++
	}
	if s.MeterDetails != nil {
		n++
	}
	if s.MeterReading != nil {
		n++
	}
	if s.ReadingWindow != nil {
		n++
	}
	if s.UsageHistory != nil {
		n++
	}
	return n
}

// RefreshResult is the immutable outcome of one refresh cycle: every visible
// account in login order, with a snapshot per utility account number.
type RefreshResult struct {
	CycleID   string                      `json:"cycle_id"`
	FetchedAt time.Time                   `json:"fetched_at"`
	Accounts  []Account                   `json:"accounts"`
	Snapshots map[string]*AccountSnapshot `json:"snapshots"`
}

// Snapshot returns the snapshot for the given utility account number, or nil.
func (r *RefreshResult) Snapshot(utilityAccountNumber string) *AccountSnapshot {
	if r == nil {
		return nil
	}
	return r.Snapshots[utilityAccountNumber]
}
