package models

import "time"

// AgeVerification is an append-only audit row recording one successful
// age attestation. The IP is stored as a one-way hash; rows are never
// updated or deleted by normal operation.
type AgeVerification struct {
	ID         string
	SessionID  string
	IPHash     string
	UserAgent  string
	VerifiedAt time.Time
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
