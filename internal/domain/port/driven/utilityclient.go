// Package driven defines the outbound ports of the application and the error
// taxonomy shared by their implementations.
package driven

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cnecrea/hidropanel/internal/domain/model"
)

// ErrSessionExpired signals that the backend rejected the session token.
// Implementations return it (possibly wrapped) whenever a response carries
// the expiry marker, so the orchestrator can re-authenticate and retry once.
var ErrSessionExpired = errors.New("session expired")

// AuthenticationError is a permanent login failure: bad credentials, a
// rejected handshake step, or an empty login result. Retrying with the same
// seed will not help.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// TransportError covers network failures, timeouts, and unexpected HTTP
// status codes on a resource call.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("call %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError means the backend answered 200 but the body did not
// decode into the expected shape.
type MalformedResponseError struct {
	Endpoint string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Endpoint, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// AccessRevokedError marks an account that disappeared from the account list
// after a forced re-login.
type AccessRevokedError struct {
	UtilityAccountNumber string
}

func (e *AccessRevokedError) Error() string {
	return fmt.Sprintf("access to account %s revoked", e.UtilityAccountNumber)
}

// FailureKindOf classifies an error from a UtilityClient call into the
// domain failure taxonomy.
func FailureKindOf(err error) model.FailureKind {
	if err == nil {
		return model.FailureNone
	}
	var authErr *AuthenticationError
	var revokedErr *AccessRevokedError
	var malformedErr *MalformedResponseError
	switch {
	case errors.Is(err, ErrSessionExpired):
		return model.FailureSessionExpired
	case errors.As(err, &authErr):
		return model.FailureAuthentication
	case errors.As(err, &revokedErr):
		return model.FailureAccessRevoked
	case errors.As(err, &malformedErr):
		return model.FailureMalformed
	default:
		return model.FailureTransport
	}
}

// LoginResult is the outcome of a full login handshake: the fresh session
// plus the account list the backend reports for it.
type LoginResult struct {
	Session  model.Session
	Accounts []model.Account
}

// UtilityClient defines the driven port for the utility provider's mobile
// backend. Every method takes the caller's context; resource calls return
// ErrSessionExpired when the backend rejects the session token.
type UtilityClient interface {
	// Login performs the full handshake with the credential seed and
	// returns the session together with its visible accounts.
	Login(ctx context.Context, seed model.Seed) (*LoginResult, error)

	// FetchAccounts re-reads the account list for an existing session.
	FetchAccounts(ctx context.Context, session model.Session) ([]model.Account, error)

	FetchBill(ctx context.Context, session model.Session, account model.Account) (*model.Bill, error)
	FetchBillHistory(ctx context.Context, session model.Session, account model.Account, from, to time.Time) (*model.BillHistory, error)
	FetchMeterDetails(ctx context.Context, session model.Session, account model.Account) (*model.MeterDetails, error)
	FetchMeterReading(ctx context.Context, session model.Session, account model.Account) (*model.MeterReading, error)
	FetchReadingWindow(ctx context.Context, session model.Session, account model.Account) (*model.ReadingWindow, error)
	FetchUsageHistory(ctx context.Context, session model.Session, account model.Account) (*model.UsageHistory, error)
}
