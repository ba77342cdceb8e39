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
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrAccessDenied            = errors.New("access_denied")

	// ErrMissingRedirectURI and ErrRedirectURIMismatch mean the user agent
	// must not be redirected: there is no trustworthy place to send it.
	ErrMissingRedirectURI  = errors.New("missing redirect_uri")
	ErrRedirectURIMismatch = errors.New("redirect_uri does not match the registered redirect URI")
)

// AuthorizeService drives the authorization endpoint: validate the request,
// show consent, then issue a code or record the denial.
type AuthorizeService struct {
	Store   store.Store
	CodeTTL time.Duration
	Metrics *telemetry.Metrics
	Now     func() time.Time
}

// AuthorizeRequest carries the authorization request parameters. It is
// rendered into the consent form and posted back unchanged with the decision.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	State               string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
	Resource            string
}

// ConsentPrompt is what the consent page shows.
type ConsentPrompt struct {
	Client  domain.Client
	Request AuthorizeRequest
}

// IssuedCode is a freshly minted authorization code. Code is the only copy
// of the plaintext value.
type IssuedCode struct {
	Code        string
	RedirectURI string
	State       string
	ExpiresAt   time.Time
}

// Validate checks an authorization request up to the point where consent can
// be asked. Errors other than ErrMissingRedirectURI and ErrRedirectURIMismatch
// are reported to the client through its redirect URI.
func (s *AuthorizeService) Validate(ctx context.Context, req AuthorizeRequest) (ConsentPrompt, error) {
	if strings.TrimSpace(req.RedirectURI) == "" {
		return ConsentPrompt{}, ErrMissingRedirectURI
	}
	if req.ResponseType != ResponseTypeCode {
		return ConsentPrompt{}, ErrUnsupportedResponseType
	}

	client, err := s.Store.Clients().GetClientByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ConsentPrompt{}, ErrInvalidClient
		}
		return ConsentPrompt{}, fmt.Errorf("get client: %w", err)
	}

	if client.RedirectURI != req.RedirectURI {
		slogx.FromContext(ctx).Warn("authorization request redirect_uri mismatch",
			slog.String("client_id", client.ID),
		)
		return ConsentPrompt{}, ErrRedirectURIMismatch
	}

	return ConsentPrompt{Client: client, Request: req}, nil
}

// Approve re-validates the request, normalizes PKCE and stores a single-use
// code bound to the client, redirect URI, challenge and resource.
func (s *AuthorizeService) Approve(ctx context.Context, req AuthorizeRequest) (IssuedCode, error) {
	l := slogx.FromContext(ctx)

	prompt, err := s.Validate(ctx, req)
	if err != nil {
		return IssuedCode{}, err
	}

	challenge, method, err := NormalizePKCE(req.CodeChallenge, req.CodeChallengeMethod)
	if err != nil {
		l.Info("authorization request rejected", slog.String("client_id", req.ClientID), slog.String("reason", "pkce"))
		return IssuedCode{}, err
	}

	code, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return IssuedCode{}, fmt.Errorf("generate authorization code: %w", err)
	}

	now := currentTime(s.Now)
	authCode := domain.AuthorizationCode{
		CodeHash:            cryptox.FingerprintToken(code),
		ClientID:            prompt.Client.ID,
		RedirectURI:         req.RedirectURI,
		CodeChallenge:       challenge,
		CodeChallengeMethod: method,
		Resource:            strings.TrimSpace(req.Resource),
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.CodeTTL),
	}
	if err := s.Store.AuthorizationCodes().CreateAuthorizationCode(ctx, authCode); err != nil {
		return IssuedCode{}, fmt.Errorf("create authorization code: %w", err)
	}

	s.Metrics.CodeIssued(ctx, prompt.Client.ID)
	l.Info("authorization code issued",
		slog.String("client_id", prompt.Client.ID),
		slog.Bool("pkce", challenge != ""),
	)

	return IssuedCode{
		Code:        code,
		RedirectURI: req.RedirectURI,
		State:       req.State,
		ExpiresAt:   authCode.ExpiresAt,
	}, nil
}

// Deny records a refused consent. It re-validates the request so a denial is
// only ever redirected to the registered redirect URI, then returns
// ErrAccessDenied.
func (s *AuthorizeService) Deny(ctx context.Context, req AuthorizeRequest) error {
	if _, err := s.Validate(ctx, req); err != nil {
		return err
	}

	s.Metrics.AuthorizationDenied(ctx, req.ClientID)
	slogx.FromContext(ctx).Info("authorization denied by user", slog.String("client_id", req.ClientID))
	return ErrAccessDenied
}
