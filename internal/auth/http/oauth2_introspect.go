package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/mcpauth/internal/auth/service"
	"github.com/aussiebroadwan/mcpauth/pkg/authsdk"
	"github.com/aussiebroadwan/mcpauth/pkg/httpx"
	"github.com/aussiebroadwan/mcpauth/pkg/slogx"
)

// IntrospectHandler serves POST /introspect following RFC 7662.
// It reports whether an access token is live and what it is bound to.
type IntrospectHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Introspection Endpoint
//	@Description	Introspects an access token and returns metadata about it (RFC 7662).
//	@Description	Unknown, expired and non access tokens all yield {"active":false}.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string							true	"The token to introspect"
//	@Param			token_type_hint	formData	string							false	"Hint about token type (only 'access_token' is supported)"	Enums(access_token)
//	@Success		200				{object}	authsdk.IntrospectionResponse	"Token introspection result"
//	@Failure		400				{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		500				{object}	authsdk.ErrorResponse			"error, error_description"
//	@Header			200				{string}	Cache-Control					"no-store"
//	@Header			200				{string}	Pragma							"no-cache"
//	@Router			/introspect [post]
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// 1. Ensure the right content-type
	if !httpx.IsFormURLEncoded(r) {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	// 2. Parse the form body
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	token := strings.TrimSpace(r.PostForm.Get("token"))
	if token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	// 3. Only access tokens exist here
	if hint := r.PostForm.Get("token_type_hint"); hint != "" && hint != "access_token" {
		writeInactiveResponse(w)
		return
	}

	// 4. Resolve the token; never reveal why it is inactive
	at, err := h.TokenService.ValidateAccessToken(ctx, token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			writeInactiveResponse(w)
			return
		}
		slogx.FromContext(ctx).Error("token introspection failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	resp := authsdk.IntrospectionResponse{
		Active:    true,
		ClientID:  at.ClientID,
		TokenType: service.TokenTypeBearer,
		Exp:       at.ExpiresAt.Unix(),
		Iat:       at.CreatedAt.Unix(),
		Aud:       at.Resource,
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// writeInactiveResponse returns the minimal RFC 7662 response.
func writeInactiveResponse(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse{Active: false})
}
