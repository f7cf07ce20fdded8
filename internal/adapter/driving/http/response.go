package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cnecrea/hidropanel/internal/application"
	"github.com/cnecrea/hidropanel/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// AccountResponse is the JSON representation of one utility account handle.
type AccountResponse struct {
	AccountNumber        string `json:"account_number"`
	UtilityAccountNumber string `json:"utility_account_number"`
	Address              string `json:"address"`
	IsDefault            bool   `json:"is_default"`
}

// InvoiceResponse is a single outstanding invoice on the current bill.
type InvoiceResponse struct {
	Number  string  `json:"number"`
	Amount  float64 `json:"amount"`
	DueDate string  `json:"due_date"`
}

// BillResponse is the JSON representation of the current bill.
type BillResponse struct {
	Amount           float64           `json:"amount"`
	RemainingBalance float64           `json:"remaining_balance"`
	DueDate          string            `json:"due_date"`
	Invoices         []InvoiceResponse `json:"invoices"`
}

// PaymentResponse is one settled payment from the billing history.
type PaymentResponse struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// BillHistoryResponse groups the payment archive flat and by year.
type BillHistoryResponse struct {
	Payments  []PaymentResponse         `json:"payments"`
	TotalPaid float64                   `json:"total_paid"`
	Years     map[int][]PaymentResponse `json:"years"`
}

// MeterResponse is one physical meter.
type MeterResponse struct {
	Number string `json:"number"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// MeterReadingResponse is the latest meter index.
type MeterReadingResponse struct {
	MeterNumber string  `json:"meter_number"`
	Value       float64 `json:"value"`
	ReadDate    string  `json:"read_date"`
}

// ReadingWindowResponse is the self-reading submission window.
type ReadingWindowResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// UsageEntryResponse is one period's consumption and generation figures.
type UsageEntryResponse struct {
	Date       string  `json:"date"`
	Year       int     `json:"year"`
	Usage      float64 `json:"usage"`
	Generation float64 `json:"generation"`
}

// AccountSnapshotResponse is the per-account slice of a refresh result.
// Resource fields are omitted when the corresponding fetch failed; errors
// lists the reason per resource.
type AccountSnapshotResponse struct {
	Account       AccountResponse        `json:"account"`
	Bill          *BillResponse          `json:"bill,omitempty"`
	BillHistory   *BillHistoryResponse   `json:"bill_history,omitempty"`
	Meters        []MeterResponse        `json:"meters,omitempty"`
	MeterReading  *MeterReadingResponse  `json:"meter_reading,omitempty"`
	ReadingWindow *ReadingWindowResponse `json:"reading_window,omitempty"`
	Usage         []UsageEntryResponse   `json:"usage,omitempty"`
	Errors        map[string]string      `json:"errors,omitempty"`
	Failure       string                 `json:"failure,omitempty"`
}

// SnapshotResponse is the JSON representation of a full refresh result.
type SnapshotResponse struct {
	CycleID   string                             `json:"cycle_id"`
	FetchedAt string                             `json:"fetched_at"`
	Accounts  []AccountResponse                  `json:"accounts"`
	Snapshots map[string]AccountSnapshotResponse `json:"snapshots"`
}

// StatusResponse is the JSON representation of the cycle status endpoint.
type StatusResponse struct {
	HasSnapshot         bool   `json:"has_snapshot"`
	LastAttemptAt       string `json:"last_attempt_at,omitempty"`
	LastSuccessAt       string `json:"last_success_at,omitempty"`
	LastFailureKind     string `json:"last_failure_kind,omitempty"`
	LastError           string `json:"last_error,omitempty"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
}

// CredentialsRequest is the JSON body for the credential update endpoint.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toAccountResponse converts a domain Account to its JSON representation.
func toAccountResponse(a model.Account) AccountResponse {
	return AccountResponse{
		AccountNumber:        a.AccountNumber,
		UtilityAccountNumber: a.UtilityAccountNumber,
		Address:              a.Address,
		IsDefault:            a.IsDefault,
	}
}

// toBillHistoryResponse converts a BillHistory, adding the per-year grouping
// and the paid total.
func toBillHistoryResponse(h model.BillHistory) *BillHistoryResponse {
	payments := make([]PaymentResponse, 0, len(h.Payments))
	for _, p := range h.Payments {
		payments = append(payments, PaymentResponse{Date: p.Date, Amount: p.Amount})
	}

	years := make(map[int][]PaymentResponse)
	for year, group := range h.GroupPaymentsByYear() {
		forYear := make([]PaymentResponse, 0, len(group))
		for _, p := range group {
			forYear = append(forYear, PaymentResponse{Date: p.Date, Amount: p.Amount})
		}
		years[year] = forYear
	}

	return &BillHistoryResponse{
		Payments:  payments,
		TotalPaid: h.TotalPaid(),
		Years:     years,
	}
}

// toSnapshotResponse converts an account snapshot to its JSON representation.
func toSnapshotResponse(s *model.AccountSnapshot) AccountSnapshotResponse {
	resp := AccountSnapshotResponse{
		Account: toAccountResponse(s.Account),
		Failure: string(s.Failure),
	}

	if s.Bill != nil {
		invoices := make([]InvoiceResponse, 0, len(s.Bill.Invoices))
		for _, inv := range s.Bill.Invoices {
			invoices = append(invoices, InvoiceResponse{Number: inv.Number, Amount: inv.Amount, DueDate: inv.DueDate})
		}
		resp.Bill = &BillResponse{
			Amount:           s.Bill.Amount,
			RemainingBalance: s.Bill.RemainingBalance,
			DueDate:          s.Bill.DueDate,
			Invoices:         invoices,
		}
	}

	if s.BillHistory != nil {
		resp.BillHistory = toBillHistoryResponse(*s.BillHistory)
	}

	if s.MeterDetails != nil {
		resp.Meters = make([]MeterResponse, 0, len(s.MeterDetails.Meters))
		for _, m := range s.MeterDetails.Meters {
			resp.Meters = append(resp.Meters, MeterResponse{Number: m.Number, Type: m.Type, Status: m.Status})
		}
	}

	if s.MeterReading != nil {
		resp.MeterReading = &MeterReadingResponse{
			MeterNumber: s.MeterReading.MeterNumber,
			Value:       s.MeterReading.Value,
			ReadDate:    s.MeterReading.ReadDate,
		}
	}

	if s.ReadingWindow != nil {
		resp.ReadingWindow = &ReadingWindowResponse{
			Start: s.ReadingWindow.Start.Format("2006-01-02"),
			End:   s.ReadingWindow.End.Format("2006-01-02"),
		}
	}

	if s.UsageHistory != nil {
		resp.Usage = make([]UsageEntryResponse, 0, len(s.UsageHistory.Entries))
		for _, e := range s.UsageHistory.Entries {
			resp.Usage = append(resp.Usage, UsageEntryResponse{
				Date:       e.Date,
				Year:       e.Year,
				Usage:      e.Usage,
				Generation: e.Generation,
			})
		}
	}

	if len(s.Errors) > 0 {
		resp.Errors = make(map[string]string, len(s.Errors))
		for kind, msg := range s.Errors {
			resp.Errors[string(kind)] = msg
		}
	}

	return resp
}

// toResultResponse converts a full refresh result to its JSON representation.
func toResultResponse(result *model.RefreshResult) SnapshotResponse {
	accounts := make([]AccountResponse, 0, len(result.Accounts))
	for _, a := range result.Accounts {
		accounts = append(accounts, toAccountResponse(a))
	}

	snapshots := make(map[string]AccountSnapshotResponse, len(result.Snapshots))
	for uan, snap := range result.Snapshots {
		snapshots[uan] = toSnapshotResponse(snap)
	}

	return SnapshotResponse{
		CycleID:   result.CycleID,
		FetchedAt: result.FetchedAt.UTC().Format(time.RFC3339),
		Accounts:  accounts,
		Snapshots: snapshots,
	}
}

// toStatusResponse converts the board's cycle status to its JSON representation.
func toStatusResponse(status application.CycleStatus, hasSnapshot bool) StatusResponse {
	resp := StatusResponse{
		HasSnapshot:         hasSnapshot,
		LastFailureKind:     string(status.LastFailureKind),
		LastError:           status.LastError,
		ConsecutiveFailures: status.ConsecutiveFailures,
	}
	if !status.LastAttemptAt.IsZero() {
		resp.LastAttemptAt = status.LastAttemptAt.UTC().Format(time.RFC3339)
	}
	if !status.LastSuccessAt.IsZero() {
		resp.LastSuccessAt = status.LastSuccessAt.UTC().Format(time.RFC3339)
	}
	return resp
}
