package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/mcpauth/internal/auth/service"
	"github.com/aussiebroadwan/mcpauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func requireInactive(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.JSONEq(t, `{"active":false}`, rec.Body.String())
}

func TestIntrospect_ActiveToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	issuedAt := env.clock.Now()
	token := env.issueToken(t)

	rec := env.postForm("/introspect", url.Values{"token": {token}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Equal(t, "no-cache", rec.Header().Get("Pragma"))

	var info authsdk.IntrospectionResponse
	decodeBody(t, rec, &info)
	require.Equal(t, authsdk.IntrospectionResponse{
		Active:    true,
		ClientID:  service.TestClientID,
		TokenType: "bearer",
		Exp:       issuedAt.Add(time.Hour).Unix(),
		Iat:       issuedAt.Unix(),
		Aud:       testBaseURL,
	}, info)

	t.Run("access_token hint is accepted", func(t *testing.T) {
		rec := env.postForm("/introspect", url.Values{
			"token":           {token},
			"token_type_hint": {"access_token"},
		})
		var info authsdk.IntrospectionResponse
		decodeBody(t, rec, &info)
		require.True(t, info.Active)
	})

	t.Run("other hints are inactive", func(t *testing.T) {
		requireInactive(t, env.postForm("/introspect", url.Values{
			"token":           {token},
			"token_type_hint": {"refresh_token"},
		}))
	})
}

func TestIntrospect_ExpiredToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	token := env.issueToken(t)
	env.clock.Advance(61 * time.Minute)

	requireInactive(t, env.postForm("/introspect", url.Values{"token": {token}}))
}

func TestIntrospect_Errors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	t.Run("unknown token is inactive", func(t *testing.T) {
		requireInactive(t, env.postForm("/introspect", url.Values{"token": {"not-a-token"}}))
	})

	t.Run("missing token", func(t *testing.T) {
		requireTokenError(t, env.postForm("/introspect", url.Values{}), http.StatusBadRequest, "invalid_request")
	})

	t.Run("non form content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/introspect", strings.NewReader(`{"token":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		requireTokenError(t, env.do(req), http.StatusBadRequest, "invalid_request")
	})

	t.Run("get is not routed", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/introspect?token=x", nil))
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
