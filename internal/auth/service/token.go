package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/mcpauth/internal/auth/domain"
	"github.com/aussiebroadwan/mcpauth/internal/auth/store"
	"github.com/aussiebroadwan/mcpauth/pkg/cryptox"
	"github.com/aussiebroadwan/mcpauth/pkg/slogx"
	"github.com/aussiebroadwan/mcpauth/pkg/telemetry"
)

var (
	ErrInvalidGrant         = errors.New("invalid_grant")
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")
	ErrInvalidToken         = errors.New("invalid_token")
)

// TokenTypeBearer is the token_type of every issued token.
const TokenTypeBearer = "bearer"

// TokenService redeems authorization codes and validates the opaque access
// tokens it mints.
type TokenService struct {
	Store    store.Store
	Hasher   cryptox.SecretHasher
	TokenTTL time.Duration
	Metrics  *telemetry.Metrics
	Now      func() time.Time
}

// ExchangeRequest is the form of an authorization_code token request.
type ExchangeRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	ClientID     string
	ClientSecret string
	CodeVerifier string
}

// IssuedToken is a freshly minted access token. AccessToken is the only copy
// of the plaintext value.
type IssuedToken struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
	ClientID    string
	Resource    string
}

// ExchangeAuthorizationCode implements the authorization_code grant. The code
// is consumed and the token stored atomically, so a code yields at most one
// token even under concurrent redemption.
func (s *TokenService) ExchangeAuthorizationCode(ctx context.Context, req ExchangeRequest) (IssuedToken, error) {
	token, err := s.exchange(ctx, req)
	if err != nil {
		s.Metrics.ExchangeFailed(ctx, errorCode(err))
		return IssuedToken{}, err
	}
	s.Metrics.TokenIssued(ctx, token.ClientID)
	return token, nil
}

func (s *TokenService) exchange(ctx context.Context, req ExchangeRequest) (IssuedToken, error) {
	l := slogx.FromContext(ctx)
	now := currentTime(s.Now)

	if req.GrantType != GrantTypeAuthorizationCode {
		return IssuedToken{}, ErrUnsupportedGrantType
	}

	code := strings.TrimSpace(req.Code)
	if code == "" || req.RedirectURI == "" || req.ClientID == "" {
		return IssuedToken{}, ErrInvalidRequest
	}

	codeHash := cryptox.FingerprintToken(code)
	authCode, err := s.Store.AuthorizationCodes().GetValidAuthorizationCode(ctx, codeHash, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("token request rejected", slog.String("client_id", req.ClientID), slog.String("reason", "unknown, used or expired code"))
			return IssuedToken{}, ErrInvalidGrant
		}
		return IssuedToken{}, fmt.Errorf("get authorization code: %w", err)
	}

	if authCode.RedirectURI != req.RedirectURI || authCode.ClientID != req.ClientID {
		l.Info("token request rejected", slog.String("client_id", req.ClientID), slog.String("reason", "binding mismatch"))
		return IssuedToken{}, ErrInvalidRequest
	}

	if err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret); err != nil {
		return IssuedToken{}, err
	}

	if authCode.HasChallenge() {
		verifier := strings.TrimSpace(req.CodeVerifier)
		if verifier == "" {
			return IssuedToken{}, ErrInvalidRequest
		}
		if !VerifyPKCE(verifier, authCode.CodeChallenge, authCode.CodeChallengeMethod) {
			l.Info("token request rejected", slog.String("client_id", req.ClientID), slog.String("reason", "pkce"))
			return IssuedToken{}, ErrInvalidGrant
		}
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("generate access token: %w", err)
	}

	token := domain.AccessToken{
		TokenHash: cryptox.FingerprintToken(raw),
		ClientID:  authCode.ClientID,
		Resource:  authCode.Resource,
		CreatedAt: now,
		ExpiresAt: now.Add(s.TokenTTL),
	}
	if err := s.Store.RedeemAuthorizationCode(ctx, codeHash, token, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Warn("authorization code redeemed concurrently", slog.String("client_id", req.ClientID))
			return IssuedToken{}, ErrInvalidGrant
		}
		return IssuedToken{}, fmt.Errorf("redeem authorization code: %w", err)
	}

	l.Info("access token issued",
		slog.String("client_id", token.ClientID),
		slog.String("token_fingerprint", token.TokenHash[:8]),
	)

	return IssuedToken{
		AccessToken: raw,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   s.TokenTTL,
		ClientID:    token.ClientID,
		Resource:    token.Resource,
	}, nil
}

// authenticateClient checks an optional client_secret. Client authentication
// is only enforced when a secret is presented for a client that has one.
func (s *TokenService) authenticateClient(ctx context.Context, clientID, secret string) error {
	if secret == "" {
		return nil
	}

	client, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidClient
		}
		return fmt.Errorf("get client: %w", err)
	}
	if !client.IsConfidential() {
		return nil
	}

	if err := s.Hasher.Verify(secret, client.SecretHash); err != nil {
		slogx.FromContext(ctx).Info("client authentication failed", slog.String("client_id", clientID))
		return ErrInvalidClient
	}
	return nil
}

// ValidateAccessToken resolves a presented bearer token to its stored record.
// Unknown and expired tokens both yield ErrInvalidToken.
func (s *TokenService) ValidateAccessToken(ctx context.Context, raw string) (domain.AccessToken, error) {
	if raw == "" {
		return domain.AccessToken{}, ErrInvalidToken
	}

	token, err := s.Store.AccessTokens().GetValidAccessToken(ctx, cryptox.FingerprintToken(raw), currentTime(s.Now))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AccessToken{}, ErrInvalidToken
		}
		return domain.AccessToken{}, fmt.Errorf("get access token: %w", err)
	}
	return token, nil
}

// errorCode maps a service error to its OAuth error code for metrics.
func errorCode(err error) string {
	for _, sentinel := range []error{
		ErrInvalidRequest,
		ErrInvalidClient,
		ErrInvalidGrant,
		ErrUnsupportedGrantType,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "server_error"
}
