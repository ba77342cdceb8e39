// Package storetest holds the behavioural contract every credential store
// driver must satisfy. Driver packages call Run from their own tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/mcpauth/internal/auth/domain"
	"github.com/aussiebroadwan/mcpauth/internal/auth/store"
)

// Factory returns a fresh, migrated store. It should register its own cleanup.
type Factory func(t *testing.T) store.Store

// Run executes the full contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Clients", func(t *testing.T) { testClients(t, newStore(t)) })
	t.Run("AuthorizationCodes", func(t *testing.T) { testAuthorizationCodes(t, newStore(t)) })
	t.Run("AccessTokens", func(t *testing.T) { testAccessTokens(t, newStore(t)) })
	t.Run("Redeem", func(t *testing.T) { testRedeem(t, newStore(t)) })
	t.Run("ConcurrentRedeem", func(t *testing.T) { testConcurrentRedeem(t, newStore(t)) })
	t.Run("Housekeeping", func(t *testing.T) { testHousekeeping(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, newStore(t).Ping(context.Background()))
	})
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func seedClient(t *testing.T, s store.Store, id string) domain.Client {
	t.Helper()
	c := domain.Client{
		ID:          id,
		Name:        "Client " + id,
		RedirectURI: "http://localhost:3000/callback",
		CreatedAt:   now(),
	}
	require.NoError(t, s.Clients().CreateClient(context.Background(), c))
	return c
}

func newCode(clientID, hash string, issuedAt time.Time, ttl time.Duration) domain.AuthorizationCode {
	return domain.AuthorizationCode{
		CodeHash:            hash,
		ClientID:            clientID,
		RedirectURI:         "http://localhost:3000/callback",
		CodeChallenge:       "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		CodeChallengeMethod: domain.CodeChallengeMethodS256,
		Resource:            "http://localhost:8080",
		CreatedAt:           issuedAt,
		ExpiresAt:           issuedAt.Add(ttl),
	}
}

func newToken(clientID, hash string, issuedAt time.Time, ttl time.Duration) domain.AccessToken {
	return domain.AccessToken{
		TokenHash: hash,
		ClientID:  clientID,
		Resource:  "http://localhost:8080",
		CreatedAt: issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
	}
}

func testClients(t *testing.T, s store.Store) {
	ctx := context.Background()

	t.Run("create and fetch", func(t *testing.T) {
		created := domain.Client{
			ID:          "mcp_confidential",
			Name:        "Confidential",
			SecretHash:  "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
			RedirectURI: "https://app.example.com/cb",
			CreatedAt:   now(),
		}
		require.NoError(t, s.Clients().CreateClient(ctx, created))

		got, err := s.Clients().GetClientByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, created.ID, got.ID)
		require.Equal(t, created.Name, got.Name)
		require.Equal(t, created.SecretHash, got.SecretHash)
		require.Equal(t, created.RedirectURI, got.RedirectURI)
		require.True(t, created.CreatedAt.Equal(got.CreatedAt))
		require.True(t, got.IsConfidential())
	})

	t.Run("public client has no secret", func(t *testing.T) {
		seedClient(t, s, "test_client")
		got, err := s.Clients().GetClientByID(ctx, "test_client")
		require.NoError(t, err)
		require.Empty(t, got.SecretHash)
		require.False(t, got.IsConfidential())
	})

	t.Run("duplicate id is rejected", func(t *testing.T) {
		seedClient(t, s, "dup")
		err := s.Clients().CreateClient(ctx, domain.Client{ID: "dup", Name: "other", RedirectURI: "http://x/cb", CreatedAt: now()})
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		got, err := s.Clients().GetClientByID(ctx, "dup")
		require.NoError(t, err)
		require.Equal(t, "Client dup", got.Name)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.Clients().GetClientByID(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func testAuthorizationCodes(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := seedClient(t, s, "codes_client")
	issued := now()

	t.Run("valid code round trips", func(t *testing.T) {
		code := newCode(c.ID, "code-valid", issued, 10*time.Minute)
		require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

		got, err := s.AuthorizationCodes().GetValidAuthorizationCode(ctx, code.CodeHash, issued)
		require.NoError(t, err)
		require.Equal(t, code.ClientID, got.ClientID)
		require.Equal(t, code.RedirectURI, got.RedirectURI)
		require.Equal(t, code.CodeChallenge, got.CodeChallenge)
		require.Equal(t, code.CodeChallengeMethod, got.CodeChallengeMethod)
		require.Equal(t, code.Resource, got.Resource)
		require.False(t, got.Used)
		require.Nil(t, got.UsedAt)
		require.True(t, code.ExpiresAt.Equal(got.ExpiresAt))
	})

	t.Run("code without pkce or resource", func(t *testing.T) {
		code := newCode(c.ID, "code-bare", issued, 10*time.Minute)
		code.CodeChallenge, code.CodeChallengeMethod, code.Resource = "", "", ""
		require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

		got, err := s.AuthorizationCodes().GetValidAuthorizationCode(ctx, code.CodeHash, issued)
		require.NoError(t, err)
		require.False(t, got.HasChallenge())
		require.Empty(t, got.Resource)
	})

	t.Run("expired code is not returned", func(t *testing.T) {
		code := newCode(c.ID, "code-expired", issued.Add(-time.Hour), 10*time.Minute)
		require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

		_, err := s.AuthorizationCodes().GetValidAuthorizationCode(ctx, code.CodeHash, issued)
		require.ErrorIs(t, err, store.ErrNotFound)

		err = s.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, code.CodeHash, issued)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("code is not valid at its expiry instant", func(t *testing.T) {
		code := newCode(c.ID, "code-boundary", issued, 10*time.Minute)
		require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

		_, err := s.AuthorizationCodes().GetValidAuthorizationCode(ctx, code.CodeHash, code.ExpiresAt)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("mark used transitions once", func(t *testing.T) {
		code := newCode(c.ID, "code-cas", issued, 10*time.Minute)
		require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

		require.NoError(t, s.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, code.CodeHash, issued))
		require.ErrorIs(t, s.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, code.CodeHash, issued), store.ErrNotFound)

		_, err := s.AuthorizationCodes().GetValidAuthorizationCode(ctx, code.CodeHash, issued)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := s.AuthorizationCodes().GetValidAuthorizationCode(ctx, "nope", issued)
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, s.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, "nope", issued), store.ErrNotFound)
	})
}

func testAccessTokens(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := seedClient(t, s, "tokens_client")
	issued := now()

	t.Run("valid token round trips", func(t *testing.T) {
		token := newToken(c.ID, "token-valid", issued, time.Hour)
		require.NoError(t, s.AccessTokens().CreateAccessToken(ctx, token))

		got, err := s.AccessTokens().GetValidAccessToken(ctx, token.TokenHash, issued)
		require.NoError(t, err)
		require.Equal(t, token.ClientID, got.ClientID)
		require.Equal(t, token.Resource, got.Resource)
		require.True(t, token.ExpiresAt.Equal(got.ExpiresAt))
	})

	t.Run("token is invalid once expired", func(t *testing.T) {
		token := newToken(c.ID, "token-short", issued, time.Minute)
		require.NoError(t, s.AccessTokens().CreateAccessToken(ctx, token))

		_, err := s.AccessTokens().GetValidAccessToken(ctx, token.TokenHash, issued.Add(2*time.Minute))
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := s.AccessTokens().GetValidAccessToken(ctx, "nope", issued)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func testRedeem(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := seedClient(t, s, "redeem_client")
	issued := now()

	t.Run("first redemption stores the token", func(t *testing.T) {
		code := newCode(c.ID, "redeem-once", issued, 10*time.Minute)
		require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

		token := newToken(c.ID, "redeem-token-1", issued, time.Hour)
		require.NoError(t, s.RedeemAuthorizationCode(ctx, code.CodeHash, token, issued))

		_, err := s.AccessTokens().GetValidAccessToken(ctx, token.TokenHash, issued)
		require.NoError(t, err)

		_, err = s.AuthorizationCodes().GetValidAuthorizationCode(ctx, code.CodeHash, issued)
		require.ErrorIs(t, err, store.ErrNotFound)

		second := newToken(c.ID, "redeem-token-2", issued, time.Hour)
		err = s.RedeemAuthorizationCode(ctx, code.CodeHash, second, issued)
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.AccessTokens().GetValidAccessToken(ctx, second.TokenHash, issued)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("expired code writes nothing", func(t *testing.T) {
		code := newCode(c.ID, "redeem-expired", issued.Add(-time.Hour), 10*time.Minute)
		require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

		token := newToken(c.ID, "redeem-token-expired", issued, time.Hour)
		require.ErrorIs(t, s.RedeemAuthorizationCode(ctx, code.CodeHash, token, issued), store.ErrNotFound)

		_, err := s.AccessTokens().GetValidAccessToken(ctx, token.TokenHash, issued)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unknown code", func(t *testing.T) {
		token := newToken(c.ID, "redeem-token-unknown", issued, time.Hour)
		require.ErrorIs(t, s.RedeemAuthorizationCode(ctx, "missing", token, issued), store.ErrNotFound)
	})
}

func testConcurrentRedeem(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := seedClient(t, s, "race_client")
	issued := now()

	code := newCode(c.ID, "race-code", issued, 10*time.Minute)
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

	const attempts = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []string
	)
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := newToken(c.ID, fmt.Sprintf("race-token-%d", i), issued, time.Hour)
			if err := s.RedeemAuthorizationCode(ctx, code.CodeHash, token, issued); err == nil {
				mu.Lock()
				wins = append(wins, token.TokenHash)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, wins, 1, "exactly one redemption must succeed")

	found := 0
	for i := range attempts {
		if _, err := s.AccessTokens().GetValidAccessToken(ctx, fmt.Sprintf("race-token-%d", i), issued); err == nil {
			found++
		}
	}
	require.Equal(t, 1, found)
}

func testHousekeeping(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := seedClient(t, s, "gc_client")
	issued := now()

	live := newCode(c.ID, "gc-live", issued, 10*time.Minute)
	used := newCode(c.ID, "gc-used", issued, 10*time.Minute)
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, live))
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, used))
	require.NoError(t, s.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, used.CodeHash, issued))

	liveToken := newToken(c.ID, "gc-token-live", issued, time.Hour)
	require.NoError(t, s.AccessTokens().CreateAccessToken(ctx, liveToken))

	deleted, err := s.AuthorizationCodes().DeleteDeadAuthorizationCodes(ctx, issued)
	require.NoError(t, err)
	require.GreaterOrEqual(t, deleted, int64(1))

	_, err = s.AccessTokens().DeleteExpiredAccessTokens(ctx, issued)
	require.NoError(t, err)

	_, err = s.AuthorizationCodes().GetValidAuthorizationCode(ctx, live.CodeHash, issued)
	require.NoError(t, err)
	_, err = s.AccessTokens().GetValidAccessToken(ctx, liveToken.TokenHash, issued)
	require.NoError(t, err)

	// The purge also reaches tokens that were valid until a later instant.
	later := issued.Add(2 * time.Hour)
	_, err = s.AccessTokens().DeleteExpiredAccessTokens(ctx, later)
	require.NoError(t, err)
	_, err = s.AccessTokens().GetValidAccessToken(ctx, liveToken.TokenHash, later)
	require.ErrorIs(t, err, store.ErrNotFound)
}
