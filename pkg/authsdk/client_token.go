package authsdk

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// ExchangeParams are the inputs of an authorization_code token request.
type ExchangeParams struct {
	ClientID string
	// ClientSecret is optional; when set it is sent as client_secret_post.
	ClientSecret string
	RedirectURI  string
	Code         string
	// CodeVerifier is required when the code was issued with a PKCE challenge.
	CodeVerifier string
}

// ExchangeCode redeems an authorization code for an access token. A code can
// be redeemed once; later attempts fail with ErrorCodeInvalidGrant.
func (c *SDKClient) ExchangeCode(ctx context.Context, p ExchangeParams) (*TokenResponse, error) {
	cfg := c.OAuth2Config(p.ClientID, p.ClientSecret, p.RedirectURI)
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)

	var opts []oauth2.AuthCodeOption
	if p.CodeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(p.CodeVerifier))
	}

	tok, err := cfg.Exchange(ctx, p.Code, opts...)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
			return nil, &OAuth2Error{
				StatusCode:  retrieveErr.Response.StatusCode,
				Code:        retrieveErr.ErrorCode,
				Description: retrieveErr.ErrorDescription,
			}
		}
		return nil, fmt.Errorf("token request failed: %w", err)
	}

	resource, _ := tok.Extra("resource").(string)
	return &TokenResponse{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ExpiresIn:   int(tok.ExpiresIn),
		Resource:    resource,
	}, nil
}
