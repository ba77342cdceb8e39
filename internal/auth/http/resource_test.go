package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/mcpauth/pkg/authsdk"
	"github.com/aussiebroadwan/mcpauth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func getResource(env *testEnv, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	return env.do(req)
}

func TestResourceGuard_Rejects(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	metadataURL := testBaseURL + "/.well-known/oauth-protected-resource"

	t.Run("missing header", func(t *testing.T) {
		rec := getResource(env, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t,
			`Bearer realm="mcp", resource_metadata="`+metadataURL+`"`,
			rec.Header().Get("WWW-Authenticate"),
		)

		var body authsdk.ErrorResponse
		decodeBody(t, rec, &body)
		require.Equal(t, "invalid_token", body.Error)
	})

	t.Run("non bearer scheme", func(t *testing.T) {
		rec := getResource(env, "Basic dXNlcjpwYXNz")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.NotContains(t, rec.Header().Get("WWW-Authenticate"), "error=")
	})

	t.Run("unknown token", func(t *testing.T) {
		rec := getResource(env, "Bearer not-a-token")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t,
			`Bearer realm="mcp", resource_metadata="`+metadataURL+`", error="invalid_token"`,
			rec.Header().Get("WWW-Authenticate"),
		)
	})
}

func TestResourceGuard_Admits(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token := env.issueToken(t)

	rec := getResource(env, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Empty(t, rec.Header().Get(httpx.TokenExpiresInHeader))

	var res authsdk.ResourceResponse
	decodeBody(t, rec, &res)
	require.Equal(t, "You have accessed a protected resource!", res.Message)
	require.Equal(t, "test_client", res.ClientID)
	require.Equal(t, testBaseURL, res.Resource)

	t.Run("warns near expiry", func(t *testing.T) {
		env.clock.Advance(56 * time.Minute)

		rec := getResource(env, "Bearer "+token)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "240", rec.Header().Get(httpx.TokenExpiresInHeader))
	})

	t.Run("rejects after expiry", func(t *testing.T) {
		env.clock.Advance(5 * time.Minute)

		rec := getResource(env, "Bearer "+token)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
