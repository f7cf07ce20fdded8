// Package hidroelectrica implements the UtilityClient port against the
// Hidroelectrica România mobile backend.
package hidroelectrica

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cnecrea/hidropanel/internal/domain/model"
	"github.com/cnecrea/hidropanel/internal/domain/port/driven"
)

// DefaultBaseURL is the production endpoint of the mobile backend.
const DefaultBaseURL = "https://hidroelectrica-svc.smartcmobile.com"

// userAgent matches the mobile app; the backend rejects unknown agents.
const userAgent = "okhttp/4.9.0"

const (
	pathGetID           = "/API/UserLogin/GetId"
	pathValidateLogin   = "/API/UserLogin/ValidateUserLogin"
	pathUserSetting     = "/API/UserLogin/GetUserSetting"
	pathBill            = "/Service/Billing/GetBill"
	pathBillHistory     = "/Service/Billing/GetBillingHistoryList"
	pathMultiMeter      = "/Service/Usage/GetMultiMeter"
	pathMeterValue      = "/Service/SelfMeterReading/GetMeterValue"
	pathWindowDates     = "/Service/SelfMeterReading/GetWindowDatesENC"
	pathUsageGeneration = "/Service/Usage/GetUsageGeneration"
)

// SourceType header values: 0 before authentication, 1 after.
const (
	sourceTypeAnonymous     = "0"
	sourceTypeAuthenticated = "1"
)

// Compile-time interface satisfaction check.
var _ driven.UtilityClient = (*Client)(nil)

// Client implements the driven.UtilityClient port over the backend's
// POST-JSON wire protocol.
type Client struct {
	httpClient *http.Client
	baseURL    string
	now        func() time.Time
}

// NewClient creates a client against baseURL (DefaultBaseURL when empty)
// with the given per-call timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		now:        time.Now,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		now:        time.Now,
	}
}

// Login performs the three-step handshake: obtain the transient key/tokenId
// pair, validate the credential seed against it, then load the account list
// for the fresh session.
func (c *Client) Login(ctx context.Context, seed model.Seed) (*driven.LoginResult, error) {
	var idResp getIDResponse
	if err := c.postJSON(ctx, pathGetID, sourceTypeAnonymous, "", struct{}{}, &idResp); err != nil {
		return nil, err
	}
	key := idResp.Result.Data.Key
	tokenID := idResp.Result.Data.TokenID
	if key == "" || tokenID == "" {
		return nil, &driven.MalformedResponseError{Endpoint: pathGetID, Err: fmt.Errorf("missing key or tokenId")}
	}

	stamp := c.now().Format("01/02/2006 15:04:05")
	payload := validateLoginPayload{
		DeviceType:      "MobileApp",
		OperatingSystem: "Android",
		UpdatedDate:     stamp,
		LanguageCode:    "RO",
		Password:        seed.Password,
		UserID:          seed.Username,
		OSVersion:       14,
		TimeOffSet:      "120",
		LUpdHideShow:    stamp,
		Browser:         "NA",
	}
	var loginResp validateLoginResponse
	auth := basicAuth(key, tokenID)
	if err := c.postJSON(ctx, pathValidateLogin, sourceTypeAnonymous, auth, payload, &loginResp); err != nil {
		return nil, err
	}
	table := loginResp.Result.Data.Table
	if len(table) == 0 {
		return nil, &driven.AuthenticationError{Reason: "login rejected, result table is empty"}
	}
	session := model.Session{
		UserID: table[0].UserID.String(),
		Token:  table[0].SessionToken,
	}
	if !session.IsValid() {
		return nil, &driven.AuthenticationError{Reason: "login accepted but no session token returned"}
	}

	accounts, err := c.FetchAccounts(ctx, session)
	if err != nil {
		return nil, err
	}

	slog.Debug("login handshake complete",
		"user_id", session.UserID,
		"account_count", len(accounts),
	)

	return &driven.LoginResult{Session: session, Accounts: accounts}, nil
}

// FetchAccounts re-reads the account list visible to the session.
func (c *Client) FetchAccounts(ctx context.Context, session model.Session) ([]model.Account, error) {
	var resp userSettingResponse
	err := c.postAuthed(ctx, pathUserSetting, session, userSettingPayload{UserID: session.UserID}, &resp)
	if err != nil {
		return nil, err
	}
	return mergeAccountRows(resp.Result.Data.Table1, resp.Result.Data.Table2), nil
}

// FetchBill retrieves the current bill for one account.
func (c *Client) FetchBill(ctx context.Context, session model.Session, account model.Account) (*model.Bill, error) {
	payload := billPayload{
		LanguageCode:         "RO",
		UserID:               session.UserID,
		IsBillPDF:            "0",
		UtilityAccountNumber: account.UtilityAccountNumber,
		AccountNumber:        account.AccountNumber,
	}
	var resp billResponse
	if err := c.postAuthed(ctx, pathBill, session, payload, &resp); err != nil {
		return nil, err
	}

	bill := &model.Bill{
		Amount:           float64(resp.Result.BillAmount),
		RemainingBalance: float64(resp.Result.RemBalance),
		DueDate:          resp.Result.DueDate,
		Invoices:         make([]model.BillInvoice, 0, len(resp.Result.Facturi)),
	}
	for _, f := range resp.Result.Facturi {
		bill.Invoices = append(bill.Invoices, model.BillInvoice{
			Number:  f.BillNo,
			Amount:  float64(f.RemBalance),
			DueDate: f.DueDate,
		})
	}
	return bill, nil
}

// FetchBillHistory retrieves the payment archive between from and to.
func (c *Client) FetchBillHistory(ctx context.Context, session model.Session, account model.Account, from, to time.Time) (*model.BillHistory, error) {
	payload := billHistoryPayload{
		LanguageCode:         "RO",
		UserID:               session.UserID,
		UtilityAccountNumber: account.UtilityAccountNumber,
		AccountNumber:        account.AccountNumber,
		FromDate:             from.Format("2006-01-02"),
		ToDate:               to.Format("2006-01-02"),
	}
	var resp billHistoryResponse
	if err := c.postAuthed(ctx, pathBillHistory, session, payload, &resp); err != nil {
		return nil, err
	}

	history := &model.BillHistory{Payments: make([]model.Payment, 0, len(resp.Result.Payments))}
	for _, p := range resp.Result.Payments {
		history.Payments = append(history.Payments, model.Payment{
			Date:   p.PaymentDate,
			Amount: float64(p.Amount),
		})
	}
	return history, nil
}

// FetchMeterDetails retrieves the electric meter inventory of one account.
func (c *Client) FetchMeterDetails(ctx context.Context, session model.Session, account model.Account) (*model.MeterDetails, error) {
	var resp meterDetailsResponse
	if err := c.postAuthed(ctx, pathMultiMeter, session, c.meterPayload(session, account), &resp); err != nil {
		return nil, err
	}

	details := &model.MeterDetails{Meters: make([]model.Meter, 0, len(resp.Result.Data.Table))}
	for _, m := range resp.Result.Data.Table {
		details.Meters = append(details.Meters, model.Meter{
			Number: m.MeterNumber,
			Type:   m.MeterType,
			Status: m.MeterStatus,
		})
	}
	return details, nil
}

// FetchMeterReading retrieves the latest recorded meter index.
func (c *Client) FetchMeterReading(ctx context.Context, session model.Session, account model.Account) (*model.MeterReading, error) {
	var resp meterReadingResponse
	if err := c.postAuthed(ctx, pathMeterValue, session, c.meterPayload(session, account), &resp); err != nil {
		return nil, err
	}
	if len(resp.Result.Data.Table) == 0 {
		return nil, &driven.MalformedResponseError{Endpoint: pathMeterValue, Err: fmt.Errorf("empty reading table")}
	}
	row := resp.Result.Data.Table[0]
	return &model.MeterReading{
		MeterNumber: row.MeterNumber,
		Value:       float64(row.MeterReading),
		ReadDate:    row.ReadingDate,
	}, nil
}

// FetchReadingWindow retrieves the self-reading submission window.
func (c *Client) FetchReadingWindow(ctx context.Context, session model.Session, account model.Account) (*model.ReadingWindow, error) {
	var resp readingWindowResponse
	if err := c.postAuthed(ctx, pathWindowDates, session, c.meterPayload(session, account), &resp); err != nil {
		return nil, err
	}

	start, err := model.ParseCompactDate(resp.Result.Data.FromDate)
	if err != nil {
		return nil, &driven.MalformedResponseError{Endpoint: pathWindowDates, Err: fmt.Errorf("window start: %w", err)}
	}
	end, err := model.ParseCompactDate(resp.Result.Data.ToDate)
	if err != nil {
		return nil, &driven.MalformedResponseError{Endpoint: pathWindowDates, Err: fmt.Errorf("window end: %w", err)}
	}
	return &model.ReadingWindow{Start: start, End: end}, nil
}

// FetchUsageHistory retrieves monthly consumption and generation, keeping
// the last two calendar years plus the current one.
func (c *Client) FetchUsageHistory(ctx context.Context, session model.Session, account model.Account) (*model.UsageHistory, error) {
	payload := usagePayload{
		Mode:                 "M",
		HourlyType:           "H",
		UsageType:            "e",
		LanguageCode:         "RO",
		Type:                 "D",
		TimeOffset:           "120",
		UserType:             "Residential",
		UserID:               session.UserID,
		UtilityAccountNumber: account.UtilityAccountNumber,
		AccountNumber:        account.AccountNumber,
	}
	var resp usageResponse
	if err := c.postAuthed(ctx, pathUsageGeneration, session, payload, &resp); err != nil {
		return nil, err
	}

	history := model.UsageHistory{Entries: make([]model.UsageEntry, 0, len(resp.Result.Data.Entries))}
	for _, e := range resp.Result.Data.Entries {
		history.Entries = append(history.Entries, model.UsageEntry{
			Date:       e.UsageDate,
			Year:       e.Year,
			Usage:      float64(e.Usage),
			Generation: float64(e.Generation),
		})
	}
	filtered := history.FilterRecentYears(c.now().Year() - 2)
	return &filtered, nil
}

func (c *Client) meterPayload(session model.Session, account model.Account) meterPayload {
	return meterPayload{
		MeterType:            "E",
		UserID:               session.UserID,
		UtilityAccountNumber: account.UtilityAccountNumber,
		AccountNumber:        account.AccountNumber,
	}
}

// postAuthed posts a resource payload under the session's Basic credentials.
func (c *Client) postAuthed(ctx context.Context, path string, session model.Session, payload, out any) error {
	return c.postJSON(ctx, path, sourceTypeAuthenticated, basicAuth(session.UserID, session.Token), payload, out)
}

// postJSON performs one POST round trip and classifies the outcome: decoded
// body on success, ErrSessionExpired when the expiry marker is present (raw
// HTTP 401 or in-body status_code 401), TransportError on network failures
// and other non-200 statuses, MalformedResponseError when a 200 body does
// not decode.
func (c *Client) postJSON(ctx context.Context, path, sourceType, authorization string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("SourceType", sourceType)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &driven.TransportError{Endpoint: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &driven.TransportError{Endpoint: path, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", path, driven.ErrSessionExpired)
	}

	// Some endpoints report expiry inside the body instead of the status line;
	// the marker wins over whatever HTTP status surrounds it.
	var probe statusProbe
	if err := json.Unmarshal(raw, &probe); err == nil && probe.StatusCode.String() == "401" {
		return fmt.Errorf("%s: %w", path, driven.ErrSessionExpired)
	}

	if resp.StatusCode != http.StatusOK {
		return &driven.TransportError{Endpoint: path, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &driven.MalformedResponseError{Endpoint: path, Err: err}
	}
	return nil
}

// basicAuth builds the Authorization header value from the colon-joined pair.
func basicAuth(left, right string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(left+":"+right))
}
