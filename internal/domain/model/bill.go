package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Bill is the current billing state of one account.
type Bill struct {
	Amount           float64       `json:"amount"`
	RemainingBalance float64       `json:"remaining_balance"`
	DueDate          string        `json:"due_date"`
	Invoices         []BillInvoice `json:"invoices"`
}

// BillInvoice is a single outstanding invoice attached to the current bill.
type BillInvoice struct {
	Number  string  `json:"number"`
	Amount  float64 `json:"amount"`
	DueDate string  `json:"due_date"`
}

// Payment is one settled payment from the billing history.
type Payment struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// BillHistory is the payment archive of one account over the queried range.
type BillHistory struct {
	Payments []Payment `json:"payments"`
}

// TotalPaid sums every payment amount in the history.
func (h BillHistory) TotalPaid() float64 {
	var total float64
	for _, p := range h.Payments {
		total += p.Amount
	}
	return total
}

// GroupPaymentsByYear buckets the history's payments by the year of their
// DD/MM/YYYY date. Payments with unparseable dates land under year 0.
func (h BillHistory) GroupPaymentsByYear() map[int][]Payment {
	grouped := make(map[int][]Payment)
	for _, p := range h.Payments {
		year := YearOfDayMonthYear(p.Date)
		grouped[year] = append(grouped[year], p)
	}
	return grouped
}

// ParseLocalizedAmount parses a monetary amount that may use Romanian
// formatting ("1.580,10") or plain decimal notation ("1580.10").
func ParseLocalizedAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}
