package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Register creates a client through RFC 7591 dynamic registration. The
// returned ClientSecret is not retrievable later.
func (c *SDKClient) Register(ctx context.Context, req RegistrationRequest) (*RegistrationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode registration request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/register", bytes.NewReader(body),
		map[string]string{"Content-Type": "application/json"}, "")
	if err != nil {
		return nil, err
	}

	var reg RegistrationResponse
	if err := decodeJSON(resp, &reg, http.StatusCreated); err != nil {
		return nil, err
	}

	return &reg, nil
}
