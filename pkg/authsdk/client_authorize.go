package authsdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// Consent decisions posted back to the authorization endpoint.
const (
	DecisionApprove = "approve"
	DecisionDeny    = "deny"
)

// PKCEChallenge holds the PKCE verifier and challenge pair.
// The verifier is kept secret by the client, and the challenge is sent to the authorization endpoint.
type PKCEChallenge struct {
	// Verifier is the high-entropy cryptographic random string (kept secret)
	Verifier string

	// Challenge is sent to the authorization endpoint
	Challenge string

	// Method is "S256" or "plain"
	Method string
}

// GeneratePKCEChallenge creates a new S256 verifier and challenge pair per RFC 7636.
func GeneratePKCEChallenge() *PKCEChallenge {
	verifier := oauth2.GenerateVerifier()
	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: oauth2.S256ChallengeFromVerifier(verifier),
		Method:    "S256",
	}
}

// AuthorizeParams are the parameters of an authorization request.
type AuthorizeParams struct {
	ClientID    string
	RedirectURI string
	State       string
	Scope       string
	// Resource is the RFC 8707 resource indicator the token should be bound to.
	Resource string
	// PKCE is optional but strongly recommended.
	PKCE *PKCEChallenge
}

func (p AuthorizeParams) values() url.Values {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", p.ClientID)
	params.Set("redirect_uri", p.RedirectURI)

	if p.State != "" {
		params.Set("state", p.State)
	}
	if p.Scope != "" {
		params.Set("scope", p.Scope)
	}
	if p.Resource != "" {
		params.Set("resource", p.Resource)
	}
	if p.PKCE != nil {
		params.Set("code_challenge", p.PKCE.Challenge)
		params.Set("code_challenge_method", p.PKCE.Method)
	}
	return params
}

// BuildAuthorizeURL constructs the URL a user agent is sent to in order to
// begin the authorization code flow. The server answers it with a consent page.
//
// Example:
//
//	pkce := authsdk.GeneratePKCEChallenge()
//	u := client.BuildAuthorizeURL(authsdk.AuthorizeParams{
//		ClientID:    "test_client",
//		RedirectURI: "http://localhost:3000/callback",
//		State:       "random-state",
//		PKCE:        pkce,
//	})
//	// Store pkce.Verifier for the token request, then open u in a browser
func (c *SDKClient) BuildAuthorizeURL(p AuthorizeParams) string {
	return fmt.Sprintf("%s/authorize?%s", c.BaseURL, p.values().Encode())
}

// AuthorizationRedirect is the outcome of a consent decision: the URL the
// server redirected to and the parameters it carried.
type AuthorizationRedirect struct {
	Location string
	Code     string
	State    string
}

// Authorize submits a consent decision for the request described by p, as the
// consent page form would, and returns the redirect the server issued.
// Errors delivered through the redirect URI are returned as *OAuth2Error
// alongside the redirect. Errors the server refuses to redirect (unknown or
// mismatched redirect_uri) are returned as *OAuth2Error from the response body.
func (c *SDKClient) Authorize(ctx context.Context, p AuthorizeParams, decision string) (*AuthorizationRedirect, error) {
	data := p.values()
	data.Set("decision", decision)

	// The redirect target is usually a local callback that is not listening.
	noRedirectClient := &http.Client{
		Transport: c.HTTPClient.Transport,
		Timeout:   c.HTTPClient.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.url("/authorize"),
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := noRedirectClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusFound {
		if err := parseErrorResponse(resp, bodyBytes); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("authorize request returned status %d, expected a redirect", resp.StatusCode)
	}

	return parseAuthorizationRedirect(resp.Header.Get("Location"))
}

func parseAuthorizationRedirect(location string) (*AuthorizationRedirect, error) {
	if location == "" {
		return nil, fmt.Errorf("redirect response missing Location header")
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redirect URL: %w", err)
	}

	q := u.Query()
	redirect := &AuthorizationRedirect{
		Location: location,
		Code:     q.Get("code"),
		State:    q.Get("state"),
	}

	if code := q.Get("error"); code != "" {
		return redirect, &OAuth2Error{
			StatusCode:  http.StatusFound,
			Code:        code,
			Description: q.Get("error_description"),
		}
	}
	if redirect.Code == "" {
		return redirect, fmt.Errorf("redirect missing authorization code")
	}

	return redirect, nil
}
