package httpx

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/mcpauth/pkg/slogx"
)

// TokenExpiresInHeader warns clients that their token is about to expire.
const TokenExpiresInHeader = "X-Token-Expires-In"

// TokenValidator resolves a raw bearer token. Any error means the token is
// unknown or expired.
type TokenValidator func(ctx context.Context, token string) (Access, error)

// BearerAuthConfig configures the challenge returned on 401.
type BearerAuthConfig struct {
	// Realm is advertised in the WWW-Authenticate challenge.
	Realm string
	// ResourceMetadataURL points clients at the RFC 9728 document.
	ResourceMetadataURL string
	// ExpiryWarning sets TokenExpiresInHeader when the token has less than
	// this left. Zero disables the header.
	ExpiryWarning time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
	// OnReject is called for every rejected request, e.g. to count it.
	OnReject func(ctx context.Context, reason string)
}

// BearerAuth rejects requests without a valid bearer token. Accepted requests
// carry an Access in their context.
func BearerAuth(validate TokenValidator, cfg BearerAuthConfig) Middleware {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Realm == "" {
		cfg.Realm = "mcp"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := ExtractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				cfg.reject(ctx, "missing")
				writeBearerChallenge(w, cfg, "", "Missing or invalid authorization header")
				return
			}

			access, err := validate(ctx, raw)
			if err != nil {
				log.Debug("bearer token rejected", "err", err)
				cfg.reject(ctx, "invalid")
				writeBearerChallenge(w, cfg, "invalid_token", "Invalid or expired token")
				return
			}

			if cfg.ExpiryWarning > 0 {
				if left := access.ExpiresAt.Sub(cfg.Now()); left < cfg.ExpiryWarning {
					w.Header().Set(TokenExpiresInHeader, strconv.Itoa(max(int(left.Seconds()), 0)))
				}
			}

			next.ServeHTTP(w, r.WithContext(WithAccess(ctx, access)))
		})
	}
}

func (cfg BearerAuthConfig) reject(ctx context.Context, reason string) {
	if cfg.OnReject != nil {
		cfg.OnReject(ctx, reason)
	}
}

// ExtractBearerToken returns the token from an Authorization header value.
// The scheme is matched case-insensitively.
func ExtractBearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// BearerChallenge formats the RFC 6750 / RFC 9728 WWW-Authenticate value.
// errorCode is omitted when empty, as for requests that sent no credentials.
func BearerChallenge(realm, resourceMetadataURL, errorCode string) string {
	parts := []string{`realm="` + quoteEscape(realm) + `"`}
	if resourceMetadataURL != "" {
		parts = append(parts, `resource_metadata="`+quoteEscape(resourceMetadataURL)+`"`)
	}
	if errorCode != "" {
		parts = append(parts, `error="`+quoteEscape(errorCode)+`"`)
	}
	return "Bearer " + strings.Join(parts, ", ")
}

func writeBearerChallenge(w http.ResponseWriter, cfg BearerAuthConfig, errorCode, desc string) {
	w.Header().Set("WWW-Authenticate", BearerChallenge(cfg.Realm, cfg.ResourceMetadataURL, errorCode))
	WriteError(w, http.StatusUnauthorized, "invalid_token", desc)
}

func quoteEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
