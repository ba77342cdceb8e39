package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/mcpauth/internal/auth/domain"
	"github.com/aussiebroadwan/mcpauth/internal/auth/store"
)

type storedClient struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SecretHash  string `json:"secret_hash,omitempty"`
	RedirectURI string `json:"redirect_uri"`
	CreatedAt   int64  `json:"created_at"`
}

type storedCode struct {
	CodeHash            string `json:"code_hash"`
	ClientID            string `json:"client_id"`
	RedirectURI         string `json:"redirect_uri"`
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`
	Resource            string `json:"resource,omitempty"`
	Used                bool   `json:"used"`
	UsedAt              int64  `json:"used_at,omitempty"`
	CreatedAt           int64  `json:"created_at"`
	ExpiresAt           int64  `json:"expires_at"`
}

type storedToken struct {
	TokenHash string `json:"token_hash"`
	ClientID  string `json:"client_id"`
	Resource  string `json:"resource,omitempty"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

func toStoredToken(t domain.AccessToken) storedToken {
	return storedToken{
		TokenHash: t.TokenHash,
		ClientID:  t.ClientID,
		Resource:  t.Resource,
		CreatedAt: t.CreatedAt.UnixMilli(),
		ExpiresAt: t.ExpiresAt.UnixMilli(),
	}
}

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

type clientsRepo struct {
	s *Store
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	return r.s.create(ctx, r.s.key(KeyTypeClient, c.ID), storedClient{
		ID:          c.ID,
		Name:        c.Name,
		SecretHash:  c.SecretHash,
		RedirectURI: c.RedirectURI,
		CreatedAt:   c.CreatedAt.UnixMilli(),
	}, 0)
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	var c storedClient
	if err := r.s.getJSON(ctx, r.s.key(KeyTypeClient, id), &c); err != nil {
		return domain.Client{}, err
	}
	return domain.Client{
		ID:          c.ID,
		Name:        c.Name,
		SecretHash:  c.SecretHash,
		RedirectURI: c.RedirectURI,
		CreatedAt:   fromMillis(c.CreatedAt),
	}, nil
}

type authorizationCodesRepo struct {
	s *Store
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	return r.s.create(ctx, r.s.key(KeyTypeCode, code.CodeHash), storedCode{
		CodeHash:            code.CodeHash,
		ClientID:            code.ClientID,
		RedirectURI:         code.RedirectURI,
		CodeChallenge:       code.CodeChallenge,
		CodeChallengeMethod: code.CodeChallengeMethod,
		Resource:            code.Resource,
		CreatedAt:           code.CreatedAt.UnixMilli(),
		ExpiresAt:           code.ExpiresAt.UnixMilli(),
	}, code.ExpiresAt.UnixMilli())
}

func (r *authorizationCodesRepo) GetValidAuthorizationCode(ctx context.Context, codeHash string, now time.Time) (domain.AuthorizationCode, error) {
	c, err := r.s.getCode(ctx, codeHash)
	if err != nil {
		return domain.AuthorizationCode{}, err
	}
	code := mapCode(c)
	if !code.Redeemable(now) {
		return domain.AuthorizationCode{}, store.ErrNotFound
	}
	return code, nil
}

func (r *authorizationCodesRepo) MarkAuthorizationCodeUsed(ctx context.Context, codeHash string, now time.Time) error {
	c, err := r.s.getCode(ctx, codeHash)
	if err != nil {
		return err
	}
	n, err := markUsedScript.Run(ctx, r.s.client,
		[]string{r.s.key(KeyTypeCode, codeHash)},
		now.UnixMilli(), c.ExpiresAt,
	).Int()
	if err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteDeadAuthorizationCodes removes used codes. Expired codes are already
// evicted by their key expiry.
func (r *authorizationCodesRepo) DeleteDeadAuthorizationCodes(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	iter := r.s.client.Scan(ctx, 0, r.s.key(KeyTypeCode, "*"), 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		var c storedCode
		if err := r.s.getJSON(ctx, key, &c); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return deleted, err
		}
		if !c.Used && c.ExpiresAt > now.UnixMilli() {
			continue
		}
		n, err := r.s.client.Del(ctx, key).Result()
		if err != nil {
			return deleted, fmt.Errorf("delete %s: %w", key, err)
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scan codes: %w", err)
	}
	return deleted, nil
}

type accessTokensRepo struct {
	s *Store
}

func (r *accessTokensRepo) CreateAccessToken(ctx context.Context, token domain.AccessToken) error {
	return r.s.create(ctx, r.s.key(KeyTypeToken, token.TokenHash), toStoredToken(token), token.ExpiresAt.UnixMilli())
}

func (r *accessTokensRepo) GetValidAccessToken(ctx context.Context, tokenHash string, now time.Time) (domain.AccessToken, error) {
	var t storedToken
	if err := r.s.getJSON(ctx, r.s.key(KeyTypeToken, tokenHash), &t); err != nil {
		return domain.AccessToken{}, err
	}
	token := domain.AccessToken{
		TokenHash: t.TokenHash,
		ClientID:  t.ClientID,
		Resource:  t.Resource,
		CreatedAt: fromMillis(t.CreatedAt),
		ExpiresAt: fromMillis(t.ExpiresAt),
	}
	if !token.Valid(now) {
		return domain.AccessToken{}, store.ErrNotFound
	}
	return token, nil
}

// DeleteExpiredAccessTokens is a no-op; token keys expire natively.
func (r *accessTokensRepo) DeleteExpiredAccessTokens(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func mapCode(c storedCode) domain.AuthorizationCode {
	var usedAt *time.Time
	if c.UsedAt != 0 {
		t := fromMillis(c.UsedAt)
		usedAt = &t
	}
	return domain.AuthorizationCode{
		CodeHash:            c.CodeHash,
		ClientID:            c.ClientID,
		RedirectURI:         c.RedirectURI,
		CodeChallenge:       c.CodeChallenge,
		CodeChallengeMethod: c.CodeChallengeMethod,
		Resource:            c.Resource,
		Used:                c.Used,
		UsedAt:              usedAt,
		CreatedAt:           fromMillis(c.CreatedAt),
		ExpiresAt:           fromMillis(c.ExpiresAt),
	}
}
