package model

import "time"

// Credential holds one stored credential. Key identifies the credential
// type ("username", "password"), Value is the decrypted plaintext.
type Credential struct {
	ID        int64
	Key       string
	Value     string
	UpdatedAt time.Time
}
