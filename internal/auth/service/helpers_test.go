package service

import (
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/mcpauth/internal/auth/store"
	"github.com/aussiebroadwan/mcpauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/mcpauth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

const (
	testRedirectURI = "http://localhost:3000/callback"
	testResource    = "http://localhost:8080"

	// RFC 7636 Appendix B.
	testVerifier  = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	testChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
)

var testHasher = cryptox.SecretHasher{Pepper: "test-pepper"}

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
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

// testServices wires the three request services over one store and clock.
type testServices struct {
	store     store.Store
	clock     *fakeClock
	clients   *ClientService
	authorize *AuthorizeService
	tokens    *TokenService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	s := newTestStore(t)
	clock := newFakeClock()
	return &testServices{
		store:     s,
		clock:     clock,
		clients:   &ClientService{Store: s, Hasher: testHasher, Now: clock.Now},
		authorize: &AuthorizeService{Store: s, CodeTTL: 10 * time.Minute, Now: clock.Now},
		tokens:    &TokenService{Store: s, Hasher: testHasher, TokenTTL: time.Hour, Now: clock.Now},
	}
}

// authorizeRequest returns an S256 request for the seeded test client.
func authorizeRequest() AuthorizeRequest {
	return AuthorizeRequest{
		ResponseType:        ResponseTypeCode,
		ClientID:            TestClientID,
		RedirectURI:         testRedirectURI,
		State:               "xyz",
		CodeChallenge:       testChallenge,
		CodeChallengeMethod: "S256",
		Resource:            testResource,
	}
}
