package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/mcpauth/internal/auth/service"
	"github.com/aussiebroadwan/mcpauth/internal/auth/store"
	"github.com/aussiebroadwan/mcpauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/mcpauth/pkg/authsdk"
	"github.com/aussiebroadwan/mcpauth/pkg/cryptox"
	"github.com/aussiebroadwan/mcpauth/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL     = "http://auth.test"
	testRedirectURI = service.TestClientRedirectURI

	// RFC 7636 Appendix B.
	testVerifier  = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	testChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	router  *Router
	store   store.Store
	clock   *fakeClock
	clients *service.ClientService
}

// newTestEnv wires a router over an in-memory store with rate limiting
// disabled and the test client seeded.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	hasher := cryptox.SecretHasher{Pepper: "test-pepper"}

	clients := &service.ClientService{Store: st, Hasher: hasher, Now: clock.Now}
	require.NoError(t, clients.SeedTestClient(context.Background()))

	router := NewRouter(RouterConfig{
		BaseURL:         testBaseURL + "/",
		Environment:     "test",
		BuildVersion:    "test-version",
		StoreDriver:     "sqlite",
		ScopesSupported: []string{"mcp:tools"},
		MCPEnabled:      true,
	}, st, slogx.Discard())
	router.ClientService = clients
	router.AuthorizeService = &service.AuthorizeService{Store: st, CodeTTL: 10 * time.Minute, Now: clock.Now}
	router.TokenService = &service.TokenService{Store: st, Hasher: hasher, TokenTTL: time.Hour, Now: clock.Now}
	router.ApplyRoutes()

	return &testEnv{router: router, store: st, clock: clock, clients: clients}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

// authorizeForm returns an S256 authorization request for the seeded client.
func authorizeForm() url.Values {
	return url.Values{
		"response_type":         {"code"},
		"client_id":             {service.TestClientID},
		"redirect_uri":          {testRedirectURI},
		"state":                 {"xyz"},
		"code_challenge":        {testChallenge},
		"code_challenge_method": {"S256"},
		"resource":              {testBaseURL},
	}
}

// approve posts an approving decision and returns the issued code.
func (e *testEnv) approve(t *testing.T, form url.Values) string {
	t.Helper()

	form.Set("decision", authsdk.DecisionApprove)
	rec := e.postForm("/authorize", form)
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	code := loc.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

func tokenForm(code string) url.Values {
	return url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {testRedirectURI},
		"client_id":     {service.TestClientID},
		"code_verifier": {testVerifier},
	}
}

// issueToken runs the authorization code flow for the seeded client and
// returns the access token.
func (e *testEnv) issueToken(t *testing.T) string {
	t.Helper()

	rec := e.postForm("/token", tokenForm(e.approve(t, authorizeForm())))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tok authsdk.TokenResponse
	decodeBody(t, rec, &tok)
	return tok.AccessToken
}

// redirectQuery returns the query of the Location header.
func redirectQuery(t *testing.T, rec *httptest.ResponseRecorder) url.Values {
	t.Helper()

	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return loc.Query()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}
