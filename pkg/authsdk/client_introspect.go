package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// IntrospectToken asks the server whether an access token is live (RFC 7662).
// Unknown and expired tokens are reported with Active false, not an error.
func (c *SDKClient) IntrospectToken(ctx context.Context, token string) (*IntrospectionResponse, error) {
	form := url.Values{
		"token":           {token},
		"token_type_hint": {"access_token"},
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/introspect", strings.NewReader(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"}, "")
	if err != nil {
		return nil, err
	}

	var out IntrospectionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}

	return &out, nil
}
