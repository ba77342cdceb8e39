// Package sqldb implements the store contract on top of database/sql. The
// sqlite and postgres drivers wrap it with their own connection setup and
// migrations.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/mcpauth/internal/auth/domain"
	"github.com/aussiebroadwan/mcpauth/internal/auth/store"
)

type Store struct {
	db     *sql.DB
	q      *Queries
	rebind Rebinder
}

func New(db *sql.DB, rebind Rebinder) *Store {
	return &Store{
		db:     db,
		q:      NewQueries(db, rebind),
		rebind: rebind,
	}
}

// DB exposes the underlying pool for migration drivers.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Clients() store.Clients                       { return &clientsRepo{q: s.q} }
func (s *Store) AuthorizationCodes() store.AuthorizationCodes { return &authorizationCodesRepo{q: s.q} }
func (s *Store) AccessTokens() store.AccessTokens             { return &accessTokensRepo{q: s.q} }

// RedeemAuthorizationCode marks the code used and inserts the token inside a
// single transaction.
func (s *Store) RedeemAuthorizationCode(ctx context.Context, codeHash string, token domain.AccessToken, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin redeem: %w", err)
	}

	// Ensure rollback is called if we return early with error
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	q := NewQueries(tx, s.rebind)

	// 1. Compare-and-swap the used flag; zero rows means another request won.
	n, err := q.MarkAuthorizationCodeUsed(ctx, codeHash, toMillis(now))
	if err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}

	// 2. Persist the token in the same unit of work.
	if err := q.CreateAccessToken(ctx, mapAccessTokenRow(token)); err != nil {
		return fmt.Errorf("create access token: %w", err)
	}

	return tx.Commit()
}

type clientsRepo struct {
	q *Queries
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	n, err := r.q.CreateClient(ctx, clientRow{
		ID:          c.ID,
		Name:        c.Name,
		SecretHash:  mapStringNull(c.SecretHash),
		RedirectURI: c.RedirectURI,
		CreatedAt:   toMillis(c.CreatedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	row, err := r.q.GetClientByID(ctx, id)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	return mapClient(row), nil
}

type authorizationCodesRepo struct {
	q *Queries
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	return r.q.CreateAuthorizationCode(ctx, authorizationCodeRow{
		CodeHash:            code.CodeHash,
		ClientID:            code.ClientID,
		RedirectURI:         code.RedirectURI,
		CodeChallenge:       mapStringNull(code.CodeChallenge),
		CodeChallengeMethod: mapStringNull(code.CodeChallengeMethod),
		Resource:            mapStringNull(code.Resource),
		CreatedAt:           toMillis(code.CreatedAt),
		ExpiresAt:           toMillis(code.ExpiresAt),
	})
}

func (r *authorizationCodesRepo) GetValidAuthorizationCode(ctx context.Context, codeHash string, now time.Time) (domain.AuthorizationCode, error) {
	row, err := r.q.GetValidAuthorizationCode(ctx, codeHash, toMillis(now))
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	return mapAuthorizationCode(row), nil
}

func (r *authorizationCodesRepo) MarkAuthorizationCodeUsed(ctx context.Context, codeHash string, now time.Time) error {
	n, err := r.q.MarkAuthorizationCodeUsed(ctx, codeHash, toMillis(now))
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *authorizationCodesRepo) DeleteDeadAuthorizationCodes(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteDeadAuthorizationCodes(ctx, toMillis(now))
}

type accessTokensRepo struct {
	q *Queries
}

func (r *accessTokensRepo) CreateAccessToken(ctx context.Context, token domain.AccessToken) error {
	return r.q.CreateAccessToken(ctx, mapAccessTokenRow(token))
}

func (r *accessTokensRepo) GetValidAccessToken(ctx context.Context, tokenHash string, now time.Time) (domain.AccessToken, error) {
	row, err := r.q.GetValidAccessToken(ctx, tokenHash, toMillis(now))
	if err != nil {
		return domain.AccessToken{}, mapNotFound(err)
	}
	return mapAccessToken(row), nil
}

func (r *accessTokensRepo) DeleteExpiredAccessTokens(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredAccessTokens(ctx, toMillis(now))
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func mapClient(row clientRow) domain.Client {
	return domain.Client{
		ID:          row.ID,
		Name:        row.Name,
		SecretHash:  mapNullString(row.SecretHash),
		RedirectURI: row.RedirectURI,
		CreatedAt:   fromMillis(row.CreatedAt),
	}
}

func mapAuthorizationCode(row authorizationCodeRow) domain.AuthorizationCode {
	var usedAt *time.Time
	if row.UsedAt.Valid {
		t := fromMillis(row.UsedAt.Int64)
		usedAt = &t
	}
	return domain.AuthorizationCode{
		CodeHash:            row.CodeHash,
		ClientID:            row.ClientID,
		RedirectURI:         row.RedirectURI,
		CodeChallenge:       mapNullString(row.CodeChallenge),
		CodeChallengeMethod: mapNullString(row.CodeChallengeMethod),
		Resource:            mapNullString(row.Resource),
		Used:                row.Used,
		UsedAt:              usedAt,
		CreatedAt:           fromMillis(row.CreatedAt),
		ExpiresAt:           fromMillis(row.ExpiresAt),
	}
}

func mapAccessToken(row accessTokenRow) domain.AccessToken {
	return domain.AccessToken{
		TokenHash: row.TokenHash,
		ClientID:  row.ClientID,
		Resource:  mapNullString(row.Resource),
		CreatedAt: fromMillis(row.CreatedAt),
		ExpiresAt: fromMillis(row.ExpiresAt),
	}
}

func mapAccessTokenRow(t domain.AccessToken) accessTokenRow {
	return accessTokenRow{
		TokenHash: t.TokenHash,
		ClientID:  t.ClientID,
		Resource:  mapStringNull(t.Resource),
		CreatedAt: toMillis(t.CreatedAt),
		ExpiresAt: toMillis(t.ExpiresAt),
	}
}
