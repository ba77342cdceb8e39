package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/mcpauth/internal/auth/service"
	"github.com/aussiebroadwan/mcpauth/pkg/authsdk"
	"github.com/aussiebroadwan/mcpauth/pkg/httpx"
	"github.com/aussiebroadwan/mcpauth/pkg/slogx"
)

// maxRegistrationBody bounds the client metadata document.
const maxRegistrationBody = 64 << 10

// RegisterHandler serves the RFC 7591 dynamic client registration endpoint.
type RegisterHandler struct {
	ClientService *service.ClientService
}

// ServeHTTP handles POST /register
//
//	@Summary		Dynamic Client Registration
//	@Description	Registers a new OAuth2 client (RFC 7591). Only the first redirect URI is kept.
//	@Description	The client_secret is returned once and never expires.
//	@Tags			OAuth2
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegistrationRequest		true	"Client metadata"
//	@Success		201		{object}	authsdk.RegistrationResponse	"Client information"
//	@Failure		400		{object}	authsdk.ErrorResponse			"invalid_redirect_uri or invalid_client_metadata"
//	@Failure		500		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Router			/register [post]
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// Parse request body
	var req service.RegistrationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRegistrationBody)).Decode(&req); err != nil {
		authsdk.NewOAuth2Error(
			http.StatusBadRequest,
			authsdk.ErrorCodeInvalidClientMetadata,
			"request body must be a JSON client metadata document",
		).WriteError(w)
		return
	}

	creds, err := h.ClientService.RegisterClient(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRedirectURI):
			authsdk.ErrInvalidRedirectURI.WriteError(w)
		case errors.Is(err, service.ErrInvalidClientMetadata):
			authsdk.ErrInvalidClientMetadata.WriteError(w)
		default:
			log.Error("failed to register client", "error", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, RegistrationResponse(creds))
}

// RegistrationResponse renders registered credentials as the RFC 7591 client
// information response. The secret is only ever returned here.
func RegistrationResponse(creds service.ClientCredentials) authsdk.RegistrationResponse {
	return authsdk.RegistrationResponse{
		ClientID:                creds.ClientID,
		ClientSecret:            creds.ClientSecret,
		ClientIDIssuedAt:        creds.IssuedAt.Unix(),
		ClientSecretExpiresAt:   0,
		ClientName:              creds.ClientName,
		RedirectURIs:            []string{creds.RedirectURI},
		GrantTypes:              []string{service.GrantTypeAuthorizationCode},
		ResponseTypes:           []string{service.ResponseTypeCode},
		TokenEndpointAuthMethod: service.TokenEndpointAuthMethod,
		Scope:                   creds.Scope,
	}
}
