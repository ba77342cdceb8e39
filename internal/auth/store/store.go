package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/mcpauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres,
// redis) implement this. It exposes sub-repositories to keep concerns tidy and
// testable. Multi-step writes are not composed by callers; the one operation
// that must be atomic is a dedicated method so every driver can implement it
// with its own primitive (a SQL transaction, a Lua script).
type Store interface {
	Clients() Clients
	AuthorizationCodes() AuthorizationCodes
	AccessTokens() AccessTokens

	// RedeemAuthorizationCode flips the code identified by codeHash from unused
	// to used and persists token, as one atomic unit. The flip only happens if
	// the code is unused and unexpired at now. When it does not happen nothing
	// is written and ErrNotFound is returned, so concurrent redemptions of the
	// same code yield exactly one token.
	RedeemAuthorizationCode(ctx context.Context, codeHash string, token domain.AccessToken, now time.Time) error

	// ApplyMigrations brings the schema up to date. Drivers without a schema
	// treat it as a no-op.
	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backend connection is still alive.
	Ping(ctx context.Context) error
}

type Clients interface {
	// CreateClient inserts a client. Returns ErrAlreadyExists on id collision.
	CreateClient(ctx context.Context, c domain.Client) error

	// GetClientByID fetches a client by id.
	GetClientByID(ctx context.Context, id string) (domain.Client, error)
}

type AuthorizationCodes interface {
	// CreateAuthorizationCode stores a new, unused code.
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// GetValidAuthorizationCode returns the code only if it is unused and
	// expires after now.
	GetValidAuthorizationCode(ctx context.Context, codeHash string, now time.Time) (domain.AuthorizationCode, error)

	// MarkAuthorizationCodeUsed is a compare-and-swap of used false to true.
	// Returns ErrNotFound when no unused, unexpired row transitioned.
	MarkAuthorizationCodeUsed(ctx context.Context, codeHash string, now time.Time) error

	// DeleteDeadAuthorizationCodes removes codes that are used or expired.
	DeleteDeadAuthorizationCodes(ctx context.Context, now time.Time) (int64, error)
}

type AccessTokens interface {
	// CreateAccessToken stores a minted token.
	CreateAccessToken(ctx context.Context, token domain.AccessToken) error

	// GetValidAccessToken returns the token only if it expires after now.
	GetValidAccessToken(ctx context.Context, tokenHash string, now time.Time) (domain.AccessToken, error)

	// DeleteExpiredAccessTokens removes tokens that expired at or before now.
	DeleteExpiredAccessTokens(ctx context.Context, now time.Time) (int64, error)
}
