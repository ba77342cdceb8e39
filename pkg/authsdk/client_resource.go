package authsdk

import (
	"context"
	"net/http"
)

// GetResource calls the example protected resource with accessToken.
func (c *SDKClient) GetResource(ctx context.Context, accessToken string) (*ResourceResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/resource", nil, nil, accessToken)
	if err != nil {
		return nil, err
	}

	var res ResourceResponse
	if err := decodeJSON(resp, &res, http.StatusOK); err != nil {
		return nil, err
	}

	return &res, nil
}
