package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/mcpauth/internal/auth/service"
	"github.com/aussiebroadwan/mcpauth/internal/auth/store"
	"github.com/aussiebroadwan/mcpauth/pkg/authsdk"
	"github.com/aussiebroadwan/mcpauth/pkg/httpx"
	"github.com/aussiebroadwan/mcpauth/pkg/slogx"
	"github.com/aussiebroadwan/mcpauth/pkg/telemetry"

	_ "github.com/aussiebroadwan/mcpauth/api/mcpauth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// swaggerCSP lets the bundled Swagger UI load its own scripts and styles.
const swaggerCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"

// RouterConfig carries the settings the HTTP surface depends on.
type RouterConfig struct {
	// BaseURL is the issuer and resource identifier. A trailing slash is
	// trimmed.
	BaseURL         string
	Environment     string
	BuildVersion    string
	StoreDriver     string
	ScopesSupported []string
	RateLimits      httpx.RateLimitProfiles
	CORSOrigins     []string
	MCPEnabled      bool

	// MetricsHandler is mounted at /metrics when non-nil.
	MetricsHandler http.Handler
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	cfg       RouterConfig
	startTime time.Time
	logger    *slog.Logger

	store            store.Store
	Metrics          *telemetry.Metrics
	ClientService    *service.ClientService
	AuthorizeService *service.AuthorizeService
	TokenService     *service.TokenService
}

func NewRouter(cfg RouterConfig, st store.Store, logger *slog.Logger) *Router {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	r := &Router{
		Mux:       http.NewServeMux(),
		cfg:       cfg,
		startTime: time.Now(),
		store:     st,
		logger:    logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.SecurityHeaders(cfg.BaseURL),
		httpx.CORS(httpx.CORSConfig{AllowedOrigins: cfg.CORSOrigins}),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerDiscovery()
	r.registerOAuth2()
	r.registerResources()
	r.registerSystem()

	r.Mux.Handle("/swagger/", swaggerHandler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			mcpauth Authorization Server API
//	@version		0.1.0
//	@description	OAuth 2.0 authorization code server with PKCE and dynamic client registration for MCP clients.
//	@description
//	@description				Access tokens are opaque bearer strings validated against the credential store.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/mcpauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Opaque access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerDiscovery() {
	h := &MetadataHandler{
		BaseURL:         r.cfg.BaseURL,
		ScopesSupported: r.cfg.ScopesSupported,
	}
	public := httpx.RateLimitByIP(r.cfg.RateLimits.Public)

	// The path-suffixed variant is what clients derive from the /mcp resource URL.
	r.Mux.Handle("GET "+authsdk.ProtectedResourceMetadataPath,
		httpx.Chain(http.HandlerFunc(h.ProtectedResource), public),
	)
	r.Mux.Handle("GET "+authsdk.ProtectedResourceMetadataPath+MCPEndpointPath,
		httpx.Chain(http.HandlerFunc(h.ProtectedResource), public),
	)
	r.Mux.Handle("GET "+authsdk.AuthorizationServerMetadataPath,
		httpx.Chain(http.HandlerFunc(h.AuthorizationServer), public),
	)
}

func (r *Router) registerOAuth2() {
	authorizeHandler := &AuthorizeHandler{AuthorizeService: r.AuthorizeService}

	// GET /authorize - lenient rate limit (only renders the consent page)
	r.Mux.Handle("GET /authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandleGet),
			httpx.RateLimitByIP(r.cfg.RateLimits.Lenient),
		),
	)

	// POST /authorize - strict rate limit by IP + client_id (code issuance)
	r.Mux.Handle("POST /authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandlePost),
			httpx.RateLimitByIPAndFormField(r.cfg.RateLimits.Strict, "client_id"),
		),
	)

	// POST /token - strict rate limit by IP (brute force of codes and verifiers)
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(r.cfg.RateLimits.Strict),
		),
	)

	// POST /introspect - moderate rate limit by IP
	introspectHandler := &IntrospectHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /introspect",
		httpx.Chain(introspectHandler,
			httpx.RateLimitByIP(r.cfg.RateLimits.Moderate),
		),
	)

	// POST /register - moderate rate limit by IP
	registerHandler := &RegisterHandler{ClientService: r.ClientService}
	r.Mux.Handle("POST /register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(r.cfg.RateLimits.Moderate),
		),
	)
}

func (r *Router) registerResources() {
	guard := NewResourceGuard(r.TokenService, r.cfg.BaseURL, r.Metrics)

	// Authenticated endpoints - lenient rate limit by client
	r.Mux.Handle("GET /resource",
		httpx.Chain(ResourceHandler(),
			guard,
			httpx.RateLimitByClient(r.cfg.RateLimits.Lenient),
		),
	)

	if !r.cfg.MCPEnabled {
		return
	}
	r.Mux.Handle(MCPEndpointPath,
		httpx.Chain(NewMCPHandler(r.cfg.BuildVersion, r.TokenService.Now),
			guard,
			httpx.RateLimitByClient(r.cfg.RateLimits.Lenient),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	lenient := httpx.RateLimitByIP(r.cfg.RateLimits.Lenient)

	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.cfg.BuildVersion), lenient),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.cfg.BuildVersion, r.cfg.StoreDriver, r.store), lenient),
	)
	r.Mux.Handle("GET /health",
		httpx.Chain(HealthHandler(r.cfg.Environment, r.cfg.BuildVersion), lenient),
	)
	r.Mux.Handle("GET /info",
		httpx.Chain(InfoHandler(r.cfg.Environment, r.cfg.BuildVersion), lenient),
	)

	if r.cfg.MetricsHandler != nil {
		r.Mux.Handle("GET /metrics", r.cfg.MetricsHandler)
	}
}

func swaggerHandler() http.Handler {
	h := httpSwagger.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Security-Policy", swaggerCSP)
		h.ServeHTTP(w, req)
	})
}
