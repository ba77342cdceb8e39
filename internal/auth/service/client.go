package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/mcpauth/internal/auth/domain"
	"github.com/aussiebroadwan/mcpauth/internal/auth/store"
	"github.com/aussiebroadwan/mcpauth/pkg/cryptox"
	"github.com/aussiebroadwan/mcpauth/pkg/idx"
	"github.com/aussiebroadwan/mcpauth/pkg/slogx"
	"github.com/aussiebroadwan/mcpauth/pkg/telemetry"
)

var (
	ErrInvalidRedirectURI    = errors.New("invalid_redirect_uri")
	ErrInvalidClientMetadata = errors.New("invalid_client_metadata")
)

const (
	// ClientIDPrefix is prepended to every dynamically registered client id.
	ClientIDPrefix = "mcp_"
	// DefaultClientName is used when a registration omits client_name.
	DefaultClientName = "MCP Client"

	// GrantTypeAuthorizationCode is the only grant this server issues.
	GrantTypeAuthorizationCode = "authorization_code"
	// ResponseTypeCode is the only response type this server issues.
	ResponseTypeCode = "code"
	// TokenEndpointAuthMethod is advertised to every registered client.
	TokenEndpointAuthMethod = "client_secret_post"
)

// Seeded development client, public and bound to a localhost callback.
const (
	TestClientID          = "test_client"
	TestClientName        = "Test MCP Client"
	TestClientRedirectURI = "http://localhost:3000/callback"
)

// ClientService registers OAuth clients.
type ClientService struct {
	Store   store.Store
	Hasher  cryptox.SecretHasher
	Metrics *telemetry.Metrics
	Now     func() time.Time
}

// RegistrationRequest is the RFC 7591 client metadata accepted by
// RegisterClient. Unknown metadata is ignored.
type RegistrationRequest struct {
	ClientName              string   `json:"client_name,omitempty"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
}

// ClientCredentials is the outcome of a registration. ClientSecret is the
// only copy of the plaintext secret.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	ClientName   string
	RedirectURI  string
	Scope        string
	IssuedAt     time.Time
}

// RegisterClient validates the metadata and stores a new confidential client.
// Only the first redirect URI is retained.
func (s *ClientService) RegisterClient(ctx context.Context, req RegistrationRequest) (ClientCredentials, error) {
	l := slogx.FromContext(ctx)

	if len(req.RedirectURIs) == 0 {
		return ClientCredentials{}, ErrInvalidRedirectURI
	}
	for _, gt := range req.GrantTypes {
		if gt != GrantTypeAuthorizationCode {
			l.Info("registration rejected", slog.String("reason", "grant_type"), slog.String("grant_type", gt))
			return ClientCredentials{}, ErrInvalidClientMetadata
		}
	}
	for _, rt := range req.ResponseTypes {
		if rt != ResponseTypeCode {
			l.Info("registration rejected", slog.String("reason", "response_type"), slog.String("response_type", rt))
			return ClientCredentials{}, ErrInvalidClientMetadata
		}
	}

	redirectURI := strings.TrimSpace(req.RedirectURIs[0])
	if !validRedirectURI(redirectURI) {
		return ClientCredentials{}, ErrInvalidRedirectURI
	}

	name := strings.TrimSpace(req.ClientName)
	if name == "" {
		name = DefaultClientName
	}

	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return ClientCredentials{}, fmt.Errorf("generate client secret: %w", err)
	}
	secretHash, err := s.Hasher.Hash(secret)
	if err != nil {
		return ClientCredentials{}, fmt.Errorf("hash client secret: %w", err)
	}

	client := domain.Client{
		ID:          idx.NewPrefixed(ClientIDPrefix),
		Name:        name,
		SecretHash:  secretHash,
		RedirectURI: redirectURI,
		CreatedAt:   currentTime(s.Now),
	}
	if err := s.Store.Clients().CreateClient(ctx, client); err != nil {
		return ClientCredentials{}, fmt.Errorf("create client: %w", err)
	}

	s.Metrics.ClientRegistered(ctx)
	l.Info("client registered", slog.String("client_id", client.ID), slog.String("client_name", name))

	return ClientCredentials{
		ClientID:     client.ID,
		ClientSecret: secret,
		ClientName:   client.Name,
		RedirectURI:  client.RedirectURI,
		Scope:        strings.TrimSpace(req.Scope),
		IssuedAt:     client.CreatedAt,
	}, nil
}

// EnsureClient stores c unless a client with the same id already exists.
func (s *ClientService) EnsureClient(ctx context.Context, c domain.Client) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = currentTime(s.Now)
	}

	err := s.Store.Clients().CreateClient(ctx, c)
	switch {
	case err == nil:
		slogx.FromContext(ctx).Info("client seeded", slog.String("client_id", c.ID))
		return nil
	case errors.Is(err, store.ErrAlreadyExists):
		return nil
	default:
		return fmt.Errorf("seed client %s: %w", c.ID, err)
	}
}

// SeedTestClient ensures the public development client exists.
func (s *ClientService) SeedTestClient(ctx context.Context) error {
	return s.EnsureClient(ctx, domain.Client{
		ID:          TestClientID,
		Name:        TestClientName,
		RedirectURI: TestClientRedirectURI,
	})
}

// validRedirectURI accepts absolute URIs without a fragment (RFC 6749 §3.1.2).
func validRedirectURI(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Fragment == "" && !strings.Contains(raw, "#")
}

func currentTime(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
