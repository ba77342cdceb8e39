package http

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/mcpauth/internal/auth/service"
	"github.com/aussiebroadwan/mcpauth/pkg/authsdk"
	"github.com/aussiebroadwan/mcpauth/pkg/httpx"
	"github.com/aussiebroadwan/mcpauth/pkg/slogx"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	consentTemplate = template.Must(template.ParseFS(templateFS, "templates/consent.html"))
	errorTemplate   = template.Must(template.ParseFS(templateFS, "templates/error.html"))
)

// AuthorizeHandler serves the authorization endpoint. A request is first
// answered with a consent page; the page posts the decision back to the same
// endpoint.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
}

// HandleGet renders the consent page for an authorization request.
//
//	@Summary		OAuth2 authorization endpoint (GET)
//	@Description	Validates an authorization code request and renders the consent page.
//	@Description	Consent is never granted automatically; the page posts the user's decision back to POST /authorize.
//	@Description
//	@Description	**Errors:**
//	@Description	- Missing or mismatched redirect_uri: 400 error page, no redirect
//	@Description	- Unsupported response_type or unknown client_id: 302 to redirect_uri with error and state
//	@Tags			OAuth2
//	@Produce		html
//	@Param			response_type			query		string					true	"Must be 'code'"	default(code)
//	@Param			client_id				query		string					true	"OAuth2 client identifier"
//	@Param			redirect_uri			query		string					true	"Callback URI (must match the registered redirect URI)"
//	@Param			state					query		string					false	"Opaque value echoed back in the redirect"
//	@Param			scope					query		string					false	"Space-delimited list of scopes"	example(mcp:tools)
//	@Param			code_challenge			query		string					false	"PKCE code challenge"	example(E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM)
//	@Param			code_challenge_method	query		string					false	"PKCE method (defaults to plain)"	Enums(S256, plain)
//	@Param			resource				query		string					false	"RFC 8707 resource indicator"
//	@Success		200						{string}	string					"Consent page"
//	@Success		302						{string}	string					"Redirect to redirect_uri with error and state"
//	@Failure		400						{object}	authsdk.ErrorResponse	"Missing or mismatched redirect_uri"
//	@Router			/authorize [get]
func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.prompt(w, r, buildAuthorizeRequest(r.URL.Query()))
}

// HandlePost resumes an authorization request with the user's decision. A
// POST without a decision is treated like GET.
//
//	@Summary		OAuth2 authorization endpoint (POST)
//	@Description	Submits the consent decision for an authorization request.
//	@Description	- decision=approve: a single-use code is issued and the user agent is redirected to redirect_uri?code=...&state=...
//	@Description	- decision=deny: redirect to redirect_uri?error=access_denied&state=...
//	@Description	- any other decision: redirect with error=invalid_request
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Produce		html
//	@Param			decision				formData	string					false	"Consent decision"	Enums(approve, deny)
//	@Param			response_type			formData	string					true	"Must be 'code'"	default(code)
//	@Param			client_id				formData	string					true	"OAuth2 client identifier"
//	@Param			redirect_uri			formData	string					true	"Callback URI (must match the registered redirect URI)"
//	@Param			state					formData	string					false	"Opaque value echoed back in the redirect"
//	@Param			code_challenge			formData	string					false	"PKCE code challenge"
//	@Param			code_challenge_method	formData	string					false	"PKCE method (defaults to plain)"	Enums(S256, plain)
//	@Param			resource				formData	string					false	"RFC 8707 resource indicator"
//	@Success		302						{string}	string					"Redirect to redirect_uri with code or error, and state"
//	@Failure		400						{object}	authsdk.ErrorResponse	"Missing or mismatched redirect_uri"
//	@Router			/authorize [post]
func (h *AuthorizeHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	if !httpx.IsFormURLEncoded(r) {
		h.errorPage(w, r, authsdk.ErrInvalidContentType)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.errorPage(w, r, authsdk.ErrInvalidFormBody)
		return
	}

	ctx := r.Context()
	req := buildAuthorizeRequest(r.Form)

	switch decision := r.PostForm.Get("decision"); decision {
	case "":
		h.prompt(w, r, req)
	case authsdk.DecisionApprove:
		issued, err := h.AuthorizeService.Approve(ctx, req)
		if err != nil {
			h.fail(w, r, req, err)
			return
		}
		http.Redirect(w, r, buildAuthorizeRedirect(issued.RedirectURI, issued.Code, issued.State), http.StatusFound)
	case authsdk.DecisionDeny:
		h.fail(w, r, req, h.AuthorizeService.Deny(ctx, req))
	default:
		if _, err := h.AuthorizeService.Validate(ctx, req); err != nil {
			h.fail(w, r, req, err)
			return
		}
		slogx.FromContext(ctx).Info("unknown consent decision", slog.String("decision", decision))
		h.fail(w, r, req, service.ErrInvalidRequest)
	}
}

func (h *AuthorizeHandler) prompt(w http.ResponseWriter, r *http.Request, req service.AuthorizeRequest) {
	prompt, err := h.AuthorizeService.Validate(r.Context(), req)
	if err != nil {
		h.fail(w, r, req, err)
		return
	}

	data := struct {
		service.ConsentPrompt
		Action string
	}{prompt, r.URL.Path}

	httpx.NoCache(w)
	w.Header().Set("Content-Security-Policy", httpx.PageCSP)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := consentTemplate.Execute(w, data); err != nil {
		slogx.FromContext(r.Context()).Error("failed to render consent page", "error", err)
	}
}

// fail reports err to the client. Only a validated redirect URI receives the
// error; the rest are rendered directly (RFC 6749 §4.1.2.1).
func (h *AuthorizeHandler) fail(w http.ResponseWriter, r *http.Request, req service.AuthorizeRequest, err error) {
	log := slogx.FromContext(r.Context())

	var oauthErr *authsdk.OAuth2Error
	switch {
	case errors.Is(err, service.ErrMissingRedirectURI):
		h.errorPage(w, r, authsdk.ErrMissingRedirectURI)
		return
	case errors.Is(err, service.ErrRedirectURIMismatch):
		h.errorPage(w, r, authsdk.ErrRedirectURIMismatch)
		return
	case errors.Is(err, service.ErrUnsupportedResponseType):
		oauthErr = authsdk.ErrUnsupportedResponseType
	case errors.Is(err, service.ErrInvalidClient):
		oauthErr = authsdk.ErrInvalidClient
	case errors.Is(err, service.ErrInvalidRequest):
		oauthErr = authsdk.ErrInvalidRequest
	case errors.Is(err, service.ErrAccessDenied):
		oauthErr = authsdk.ErrAccessDenied
	default:
		log.Error("authorize request failed", "error", err)
		oauthErr = authsdk.ErrServerError
	}

	location, ok := buildErrorRedirect(req.RedirectURI, req.State, oauthErr)
	if !ok {
		h.errorPage(w, r, authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "malformed redirect_uri"))
		return
	}

	log.Debug("authorize request redirected with error", slog.String("error_code", oauthErr.Code), slog.String("client_id", req.ClientID))
	http.Redirect(w, r, location, http.StatusFound)
}

// errorPage renders e as HTML for browsers and as JSON for everything else.
func (h *AuthorizeHandler) errorPage(w http.ResponseWriter, r *http.Request, e *authsdk.OAuth2Error) {
	if !strings.Contains(r.Header.Get("Accept"), "text/html") {
		e.WriteError(w)
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Security-Policy", httpx.PageCSP)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(e.StatusCode)
	if err := errorTemplate.Execute(w, e); err != nil {
		slogx.FromContext(r.Context()).Error("failed to render error page", "error", err)
	}
}

func buildAuthorizeRequest(values url.Values) service.AuthorizeRequest {
	pick := func(key string) string {
		return strings.TrimSpace(values.Get(key))
	}

	// client_id and redirect_uri must byte-match the registration, so they
	// are passed through untouched.
	return service.AuthorizeRequest{
		ResponseType:        pick("response_type"),
		ClientID:            values.Get("client_id"),
		RedirectURI:         values.Get("redirect_uri"),
		State:               values.Get("state"),
		Scope:               pick("scope"),
		CodeChallenge:       pick("code_challenge"),
		CodeChallengeMethod: pick("code_challenge_method"),
		Resource:            pick("resource"),
	}
}

// buildAuthorizeRedirect adds the code and state to a validated redirect URI.
func buildAuthorizeRedirect(baseURI, code, state string) string {
	u, err := url.Parse(baseURI)
	if err != nil {
		// Registered redirect URIs are validated at registration.
		return baseURI
	}

	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// buildErrorRedirect constructs a redirect URL for an OAuth2 error.
func buildErrorRedirect(baseURI, state string, oauthError *authsdk.OAuth2Error) (string, bool) {
	u, err := url.Parse(baseURI)
	if err != nil || !u.IsAbs() {
		return "", false
	}

	q := u.Query()
	q.Set("error", oauthError.Code)
	if oauthError.Description != "" {
		q.Set("error_description", oauthError.Description)
	}
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()

	return u.String(), true
}
