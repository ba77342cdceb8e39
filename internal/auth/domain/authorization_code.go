package domain

import "time"

// PKCE challenge methods.
const (
	CodeChallengeMethodS256  = "S256"
	CodeChallengeMethodPlain = "plain"
)

// AuthorizationCode represents an issued OAuth 2.0 authorization code. The raw
// code is never persisted, only its fingerprint.
type AuthorizationCode struct {
	CodeHash            string
	ClientID            string
	RedirectURI         string
	CodeChallenge       string // empty when the client did not use PKCE
	CodeChallengeMethod string
	Resource            string // RFC 8707 resource indicator, optional
	Used                bool
	UsedAt              *time.Time
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

// HasChallenge reports whether the code was issued with a PKCE challenge.
func (c AuthorizationCode) HasChallenge() bool {
	return c.CodeChallenge != ""
}

// Redeemable reports whether the code may still be exchanged at now.
func (c AuthorizationCode) Redeemable(now time.Time) bool {
	return !c.Used && c.ExpiresAt.After(now)
}
