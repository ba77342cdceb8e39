package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/mcpauth/internal/auth/service"
	"github.com/aussiebroadwan/mcpauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func requireTokenError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	require.Equal(t, status, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body authsdk.ErrorResponse
	decodeBody(t, rec, &body)
	require.Equal(t, code, body.Error)
}

func TestToken_ExchangeCode(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	code := env.approve(t, authorizeForm())
	rec := env.postForm("/token", tokenForm(code))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Equal(t, "no-cache", rec.Header().Get("Pragma"))

	var tok authsdk.TokenResponse
	decodeBody(t, rec, &tok)
	require.Len(t, tok.AccessToken, 43)
	require.Equal(t, "bearer", tok.TokenType)
	require.Equal(t, 3600, tok.ExpiresIn)
	require.Equal(t, testBaseURL, tok.Resource)

	t.Run("second redemption is invalid_grant", func(t *testing.T) {
		requireTokenError(t, env.postForm("/token", tokenForm(code)), http.StatusBadRequest, "invalid_grant")
	})
}

func TestToken_Errors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	t.Run("non form content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(`{"grant_type":"authorization_code"}`))
		req.Header.Set("Content-Type", "application/json")
		requireTokenError(t, env.do(req), http.StatusBadRequest, "invalid_request")
	})

	t.Run("unsupported grant type", func(t *testing.T) {
		form := tokenForm("whatever")
		form.Set("grant_type", "client_credentials")
		requireTokenError(t, env.postForm("/token", form), http.StatusBadRequest, "unsupported_grant_type")
	})

	t.Run("missing parameters", func(t *testing.T) {
		for _, field := range []string{"code", "redirect_uri", "client_id"} {
			form := tokenForm("whatever")
			form.Del(field)
			requireTokenError(t, env.postForm("/token", form), http.StatusBadRequest, "invalid_request")
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		requireTokenError(t, env.postForm("/token", tokenForm("not-a-code")), http.StatusBadRequest, "invalid_grant")
	})

	t.Run("wrong verifier", func(t *testing.T) {
		form := tokenForm(env.approve(t, authorizeForm()))
		form.Set("code_verifier", strings.Repeat("a", 43))
		requireTokenError(t, env.postForm("/token", form), http.StatusBadRequest, "invalid_grant")
	})

	t.Run("missing verifier", func(t *testing.T) {
		form := tokenForm(env.approve(t, authorizeForm()))
		form.Del("code_verifier")
		requireTokenError(t, env.postForm("/token", form), http.StatusBadRequest, "invalid_request")
	})

	t.Run("redirect uri mismatch", func(t *testing.T) {
		form := tokenForm(env.approve(t, authorizeForm()))
		form.Set("redirect_uri", "http://localhost:3000/other")
		requireTokenError(t, env.postForm("/token", form), http.StatusBadRequest, "invalid_request")
	})

	t.Run("padded redirect uri does not match", func(t *testing.T) {
		form := tokenForm(env.approve(t, authorizeForm()))
		form.Set("redirect_uri", " "+testRedirectURI+" ")
		requireTokenError(t, env.postForm("/token", form), http.StatusBadRequest, "invalid_request")

		// The code survives a rejected binding and redeems with exact values.
		form.Set("redirect_uri", testRedirectURI)
		rec := env.postForm("/token", form)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("padded client id does not match", func(t *testing.T) {
		form := tokenForm(env.approve(t, authorizeForm()))
		form.Set("client_id", service.TestClientID+" ")
		requireTokenError(t, env.postForm("/token", form), http.StatusBadRequest, "invalid_request")
	})

	t.Run("expired code", func(t *testing.T) {
		form := tokenForm(env.approve(t, authorizeForm()))
		env.clock.Advance(11 * time.Minute)
		requireTokenError(t, env.postForm("/token", form), http.StatusBadRequest, "invalid_grant")
	})
}

func TestToken_ConfidentialClient(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	creds, err := env.clients.RegisterClient(context.Background(), service.RegistrationRequest{
		ClientName:   "Confidential",
		RedirectURIs: []string{testRedirectURI},
	})
	require.NoError(t, err)

	authorize := authorizeForm()
	authorize.Set("client_id", creds.ClientID)

	t.Run("wrong secret is invalid_client", func(t *testing.T) {
		form := tokenForm(env.approve(t, authorize))
		form.Set("client_id", creds.ClientID)
		form.Set("client_secret", "wrong")
		requireTokenError(t, env.postForm("/token", form), http.StatusUnauthorized, "invalid_client")
	})

	t.Run("correct secret", func(t *testing.T) {
		form := tokenForm(env.approve(t, authorize))
		form.Set("client_id", creds.ClientID)
		form.Set("client_secret", creds.ClientSecret)

		rec := env.postForm("/token", form)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}
