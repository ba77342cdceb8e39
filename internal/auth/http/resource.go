package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/mcpauth/internal/auth/service"
	"github.com/aussiebroadwan/mcpauth/pkg/authsdk"
	"github.com/aussiebroadwan/mcpauth/pkg/httpx"
	"github.com/aussiebroadwan/mcpauth/pkg/telemetry"
)

// BearerRealm is advertised in every WWW-Authenticate challenge.
const BearerRealm = "mcp"

// TokenExpiryWarning is how close to expiry a token must be before responses
// carry the X-Token-Expires-In header.
const TokenExpiryWarning = 5 * time.Minute

// NewResourceGuard returns the middleware that admits requests carrying a
// valid access token. Rejections point the client at the protected resource
// metadata.
func NewResourceGuard(tokens *service.TokenService, baseURL string, metrics *telemetry.Metrics) httpx.Middleware {
	validate := func(ctx context.Context, raw string) (httpx.Access, error) {
		token, err := tokens.ValidateAccessToken(ctx, raw)
		if err != nil {
			return httpx.Access{}, err
		}
		return httpx.Access{
			ClientID:  token.ClientID,
			Resource:  token.Resource,
			ExpiresAt: token.ExpiresAt,
		}, nil
	}

	return httpx.BearerAuth(validate, httpx.BearerAuthConfig{
		Realm:               BearerRealm,
		ResourceMetadataURL: baseURL + authsdk.ProtectedResourceMetadataPath,
		ExpiryWarning:       TokenExpiryWarning,
		Now:                 tokens.Now,
		OnReject:            metrics.GuardRejected,
	})
}

// ResourceHandler godoc
//
//	@Summary		Example Protected Resource
//	@Description	Returns the identity bound to the presented access token.
//	@Description	Requests without a valid token receive 401 with a WWW-Authenticate challenge naming the resource metadata URL.
//	@Tags			Resource
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.ResourceResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Header			200	{string}	X-Token-Expires-In		"seconds left, when under five minutes"
//	@Router			/resource [get]
func ResourceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := httpx.AccessFromContext(r.Context())
		if !ok {
			authsdk.ErrInvalidToken.WriteError(w)
			return
		}

		httpx.WriteJSON(w, http.StatusOK, authsdk.ResourceResponse{
			Message:  "You have accessed a protected resource!",
			ClientID: access.ClientID,
			Resource: access.Resource,
		})
	}
}
