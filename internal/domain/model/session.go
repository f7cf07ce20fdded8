// Package model contains the core domain types shared across the application.
package model

// Seed is the long-lived credential pair entered by the user. It is the only
// input the login handshake needs; everything else is derived per session.
type Seed struct {
	Username string
	Password string
}

// IsComplete reports whether both halves of the seed are present.
func (s Seed) IsComplete() bool {
	return s.Username != "" && s.Password != ""
}

// Session is the short-lived identity produced by a successful login
// handshake. UserID and Token authorize all resource calls until the server
// rejects them with an expiry marker.
type Session struct {
	UserID string
	Token  string
}

// IsValid reports whether the session holds a token. A valid session may
// still be rejected by the server; rejection is detected per call.
func (s Session) IsValid() bool {
	return s.Token != ""
}
