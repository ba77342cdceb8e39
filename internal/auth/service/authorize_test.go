package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/mcpauth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeValidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestServices(t)
	require.NoError(t, svc.clients.SeedTestClient(ctx))

	t.Run("valid request yields a consent prompt", func(t *testing.T) {
		prompt, err := svc.authorize.Validate(ctx, authorizeRequest())
		require.NoError(t, err)
		require.Equal(t, TestClientName, prompt.Client.Name)
		require.Equal(t, "xyz", prompt.Request.State)
	})

	tests := []struct {
		name   string
		mutate func(*AuthorizeRequest)
		want   error
	}{
		{"missing redirect uri", func(r *AuthorizeRequest) { r.RedirectURI = "" }, ErrMissingRedirectURI},
		{"token response type", func(r *AuthorizeRequest) { r.ResponseType = "token" }, ErrUnsupportedResponseType},
		{"unknown client", func(r *AuthorizeRequest) { r.ClientID = "mcp_unknown" }, ErrInvalidClient},
		{"empty client", func(r *AuthorizeRequest) { r.ClientID = "" }, ErrInvalidClient},
		{"redirect mismatch", func(r *AuthorizeRequest) { r.RedirectURI = "http://evil.example/callback" }, ErrRedirectURIMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authorizeRequest()
			tt.mutate(&req)
			_, err := svc.authorize.Validate(ctx, req)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthorizeApprove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores a bound code by fingerprint", func(t *testing.T) {
		svc := newTestServices(t)
		require.NoError(t, svc.clients.SeedTestClient(ctx))

		issued, err := svc.authorize.Approve(ctx, authorizeRequest())
		require.NoError(t, err)
		require.Len(t, issued.Code, 22)
		require.Equal(t, "xyz", issued.State)
		require.Equal(t, testRedirectURI, issued.RedirectURI)

		code, err := svc.store.AuthorizationCodes().GetValidAuthorizationCode(ctx, cryptox.FingerprintToken(issued.Code), svc.clock.Now())
		require.NoError(t, err)
		require.Equal(t, TestClientID, code.ClientID)
		require.Equal(t, testRedirectURI, code.RedirectURI)
		require.Equal(t, testChallenge, code.CodeChallenge)
		require.Equal(t, "S256", code.CodeChallengeMethod)
		require.Equal(t, testResource, code.Resource)
		require.False(t, code.Used)
		require.Equal(t, svc.clock.Now().Add(svc.authorize.CodeTTL), code.ExpiresAt)
	})

	t.Run("codes without PKCE are allowed", func(t *testing.T) {
		svc := newTestServices(t)
		require.NoError(t, svc.clients.SeedTestClient(ctx))

		req := authorizeRequest()
		req.CodeChallenge, req.CodeChallengeMethod = "", ""
		issued, err := svc.authorize.Approve(ctx, req)
		require.NoError(t, err)

		code, err := svc.store.AuthorizationCodes().GetValidAuthorizationCode(ctx, cryptox.FingerprintToken(issued.Code), svc.clock.Now())
		require.NoError(t, err)
		require.False(t, code.HasChallenge())
	})

	t.Run("invalid PKCE is an invalid request", func(t *testing.T) {
		svc := newTestServices(t)
		require.NoError(t, svc.clients.SeedTestClient(ctx))

		req := authorizeRequest()
		req.CodeChallengeMethod = "S512"
		_, err := svc.authorize.Approve(ctx, req)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("revalidates the request", func(t *testing.T) {
		svc := newTestServices(t)
		require.NoError(t, svc.clients.SeedTestClient(ctx))

		req := authorizeRequest()
		req.RedirectURI = "http://localhost:3000/other"
		_, err := svc.authorize.Approve(ctx, req)
		require.ErrorIs(t, err, ErrRedirectURIMismatch)
	})
}

func TestAuthorizeDeny(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestServices(t)
	require.NoError(t, svc.clients.SeedTestClient(ctx))

	require.ErrorIs(t, svc.authorize.Deny(ctx, authorizeRequest()), ErrAccessDenied)

	req := authorizeRequest()
	req.ClientID = "mcp_unknown"
	require.ErrorIs(t, svc.authorize.Deny(ctx, req), ErrInvalidClient)
}
