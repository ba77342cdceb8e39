package domain

import "time"

// AccessToken models the stored access token record. Tokens are opaque; the
// raw value is only ever returned to the client once.
type AccessToken struct {
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	ClientID  string
	Resource  string // inherited from the authorization code
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Valid reports whether the token has not yet expired at now.
func (t AccessToken) Valid(now time.Time) bool {
	return t.ExpiresAt.After(now)
}

// Remaining returns how long the token stays valid after now.
func (t AccessToken) Remaining(now time.Time) time.Duration {
	return max(t.ExpiresAt.Sub(now), 0)
}
