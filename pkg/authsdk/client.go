package authsdk

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// SDKClient is a client for the mcpauth authorization server.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new client for the server at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// OAuth2Config returns a golang.org/x/oauth2 configuration for a registered
// client. Credentials are sent in the form body, matching the
// client_secret_post method the server advertises.
func (c *SDKClient) OAuth2Config(clientID, clientSecret, redirectURI string, scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.url("/authorize"),
			TokenURL:  c.url("/token"),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
