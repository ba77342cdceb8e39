package domain

import "time"

// Client is a registered OAuth client. Clients are created either by dynamic
// registration or by the startup seed and are never mutated afterwards.
type Client struct {
	ID          string
	Name        string
	SecretHash  string // empty for public clients
	RedirectURI string // only one redirect URI is retained per client
	CreatedAt   time.Time
}

// IsConfidential reports whether the client was issued a secret.
func (c Client) IsConfidential() bool {
	return c.SecretHash != ""
}
