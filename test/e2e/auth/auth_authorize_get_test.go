//go:build e2e

package auth_test

import (
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/aussiebroadwan/mcpauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

// TestAuthorizeGET_ConsentPage verifies the consent page is rendered and
// carries the request through as hidden fields.
func TestAuthorizeGET_ConsentPage(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	pkce := authsdk.GeneratePKCEChallenge()

	consentURL := client.BuildAuthorizeURL(authsdk.AuthorizeParams{
		ClientID:    testClientID,
		RedirectURI: testRedirectURI,
		State:       "consent-state",
		PKCE:        pkce,
	})

	resp, err := noRedirectClient().Get(consentURL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "Test MCP Client")
	require.Contains(t, string(body), pkce.Challenge)
	require.Contains(t, string(body), "consent-state")
}

// TestAuthorizeGET_UntrustedRedirect verifies errors are never sent to a
// redirect URI that does not match the registration.
func TestAuthorizeGET_UntrustedRedirect(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	consentURL := client.BuildAuthorizeURL(authsdk.AuthorizeParams{
		ClientID:    testClientID,
		RedirectURI: "https://attacker.example/callback",
		PKCE:        authsdk.GeneratePKCEChallenge(),
	})

	resp, err := noRedirectClient().Get(consentURL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Location"))
}

// TestAuthorizeGET_UnknownClient verifies an unknown client is reported to
// the caller's redirect URI with the state preserved.
func TestAuthorizeGET_UnknownClient(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	consentURL := client.BuildAuthorizeURL(authsdk.AuthorizeParams{
		ClientID:    "mcp_does_not_exist",
		RedirectURI: testRedirectURI,
		State:       "s1",
	})

	resp, err := noRedirectClient().Get(consentURL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, authsdk.ErrorCodeInvalidClient, loc.Query().Get("error"))
	require.Equal(t, "s1", loc.Query().Get("state"))
}

// TestAuthorizePOST_Deny verifies a denied consent issues no code.
func TestAuthorizePOST_Deny(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	_, err := client.Authorize(t.Context(), authsdk.AuthorizeParams{
		ClientID:    testClientID,
		RedirectURI: testRedirectURI,
		State:       "deny-state",
		PKCE:        authsdk.GeneratePKCEChallenge(),
	}, authsdk.DecisionDeny)
	assertOAuthError(t, err, authsdk.ErrorCodeAccessDenied)
}
