package authsdk

import "context"

// Well-known discovery paths.
const (
	ProtectedResourceMetadataPath   = "/.well-known/oauth-protected-resource"
	AuthorizationServerMetadataPath = "/.well-known/oauth-authorization-server"
)

// GetProtectedResourceMetadata fetches the RFC 9728 document.
func (c *SDKClient) GetProtectedResourceMetadata(ctx context.Context) (*ProtectedResourceMetadata, error) {
	var meta ProtectedResourceMetadata
	if err := c.getJSON(ctx, ProtectedResourceMetadataPath, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// GetAuthorizationServerMetadata fetches the RFC 8414 document.
func (c *SDKClient) GetAuthorizationServerMetadata(ctx context.Context) (*AuthorizationServerMetadata, error) {
	var meta AuthorizationServerMetadata
	if err := c.getJSON(ctx, AuthorizationServerMetadataPath, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
