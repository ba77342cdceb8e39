package http

import (
	"net/http"

	"github.com/aussiebroadwan/mcpauth/internal/auth/domain"
	"github.com/aussiebroadwan/mcpauth/internal/auth/service"
	"github.com/aussiebroadwan/mcpauth/pkg/authsdk"
	"github.com/aussiebroadwan/mcpauth/pkg/httpx"
)

// MetadataHandler publishes the discovery documents. Every URL is derived
// from BaseURL, which must not end in a slash.
type MetadataHandler struct {
	BaseURL         string
	ScopesSupported []string
}

// ProtectedResource godoc
//
//	@Summary		Protected Resource Metadata
//	@Description	RFC 9728 document pointing clients at the authorization server for this resource.
//	@Description	Also served at /.well-known/oauth-protected-resource/mcp.
//	@Tags			Discovery
//	@Produce		json
//	@Success		200	{object}	authsdk.ProtectedResourceMetadata
//	@Router			/.well-known/oauth-protected-resource [get]
func (h *MetadataHandler) ProtectedResource(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.ProtectedResourceMetadata{
		Resource:               h.BaseURL,
		AuthorizationServers:   []string{h.BaseURL},
		BearerMethodsSupported: []string{"header"},
		ScopesSupported:        h.ScopesSupported,
	})
}

// AuthorizationServer godoc
//
//	@Summary		Authorization Server Metadata
//	@Description	RFC 8414 document describing the endpoints and capabilities of this server.
//	@Tags			Discovery
//	@Produce		json
//	@Success		200	{object}	authsdk.AuthorizationServerMetadata
//	@Router			/.well-known/oauth-authorization-server [get]
func (h *MetadataHandler) AuthorizationServer(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.AuthorizationServerMetadata{
		Issuer:                            h.BaseURL,
		AuthorizationEndpoint:             h.BaseURL + "/authorize",
		TokenEndpoint:                     h.BaseURL + "/token",
		RegistrationEndpoint:              h.BaseURL + "/register",
		IntrospectionEndpoint:             h.BaseURL + "/introspect",
		ResponseTypesSupported:            []string{service.ResponseTypeCode},
		GrantTypesSupported:               []string{service.GrantTypeAuthorizationCode},
		CodeChallengeMethodsSupported:     []string{domain.CodeChallengeMethodS256},
		ScopesSupported:                   h.ScopesSupported,
		SubjectTypesSupported:             []string{"public"},
		TokenEndpointAuthMethodsSupported: []string{service.TokenEndpointAuthMethod, "none"},
	})
}
