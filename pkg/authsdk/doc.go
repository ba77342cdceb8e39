/*
Package authsdk provides a client SDK and the shared wire types for the mcpauth
authorization server.

# Overview

An MCP client discovers the server through its metadata documents, registers
itself, runs the authorization code flow with PKCE and then calls protected
resources with the issued bearer token:

	client := authsdk.NewSDKClient("https://auth.example.com")

	// Discover the authorization server
	meta, err := client.GetAuthorizationServerMetadata(ctx)

	// Register a client (RFC 7591)
	reg, err := client.Register(ctx, authsdk.RegistrationRequest{
		ClientName:   "My MCP Client",
		RedirectURIs: []string{"http://localhost:3000/callback"},
	})

	// Authorize with PKCE
	pkce := authsdk.GeneratePKCEChallenge()
	redirect, err := client.Authorize(ctx, authsdk.AuthorizeParams{
		ClientID:    reg.ClientID,
		RedirectURI: reg.RedirectURIs[0],
		State:       "af0ifjsldkj",
		PKCE:        pkce,
	}, authsdk.DecisionApprove)

	// Exchange the code for a token
	token, err := client.ExchangeCode(ctx, authsdk.ExchangeParams{
		ClientID:     reg.ClientID,
		ClientSecret: reg.ClientSecret,
		RedirectURI:  reg.RedirectURIs[0],
		Code:         redirect.Code,
		PKCE:         pkce,
	})

	// Call the protected resource
	res, err := client.GetResource(ctx, token.AccessToken)

# Consent

The server never approves an authorization request on its own: GET /authorize
renders a consent page and the decision is posted back to the same endpoint.
Authorize plays the user's part in that exchange and returns the parameters of
the final redirect instead of following it.

# Error Handling

Every non-2xx response is returned as *OAuth2Error carrying the HTTP status and
the OAuth error code:

	_, err := client.ExchangeCode(ctx, params)
	var oauthErr *authsdk.OAuth2Error
	if errors.As(err, &oauthErr) && oauthErr.Code == authsdk.ErrorCodeInvalidGrant {
		// the code was already used or has expired
	}

Errors delivered through the redirect URI are returned the same way by Authorize.

# Server Use

The handlers of the server render their errors through the predefined
OAuth2Error values (ErrInvalidRequest, ErrInvalidGrant, ...) and encode the
response types declared here, so the SDK and the server cannot drift apart.
*/
package authsdk
