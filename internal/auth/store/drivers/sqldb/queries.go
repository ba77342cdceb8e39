package sqldb

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Rebinder rewrites a query written with '?' placeholders into the
// placeholder style of the target database.
type Rebinder func(query string) string

// Question keeps '?' placeholders (SQLite).
func Question(query string) string { return query }

// Dollar rewrites '?' placeholders to $1, $2, ... (PostgreSQL).
func Dollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

const (
	createClient = `INSERT INTO clients (id, name, secret_hash, redirect_uri, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`

	getClientByID = `SELECT id, name, secret_hash, redirect_uri, created_at
FROM clients WHERE id = ?`

	createAuthorizationCode = `INSERT INTO authorization_codes
(code_hash, client_id, redirect_uri, code_challenge, code_challenge_method, resource, used, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, FALSE, ?, ?)`

	getValidAuthorizationCode = `SELECT code_hash, client_id, redirect_uri, code_challenge, code_challenge_method,
resource, used, used_at, created_at, expires_at
FROM authorization_codes
WHERE code_hash = ? AND used = FALSE AND expires_at > ?`

	markAuthorizationCodeUsed = `UPDATE authorization_codes
SET used = TRUE, used_at = ?
WHERE code_hash = ? AND used = FALSE AND expires_at > ?`

	deleteDeadAuthorizationCodes = `DELETE FROM authorization_codes
WHERE used = TRUE OR expires_at <= ?`

	createAccessToken = `INSERT INTO access_tokens (token_hash, client_id, resource, created_at, expires_at)
VALUES (?, ?, ?, ?, ?)`

	getValidAccessToken = `SELECT token_hash, client_id, resource, created_at, expires_at
FROM access_tokens
WHERE token_hash = ? AND expires_at > ?`

	deleteExpiredAccessTokens = `DELETE FROM access_tokens WHERE expires_at <= ?`
)

type clientRow struct {
	ID          string
	Name        string
	SecretHash  sql.NullString
	RedirectURI string
	CreatedAt   int64
}

type authorizationCodeRow struct {
	CodeHash            string
	ClientID            string
	RedirectURI         string
	CodeChallenge       sql.NullString
	CodeChallengeMethod sql.NullString
	Resource            sql.NullString
	Used                bool
	UsedAt              sql.NullInt64
	CreatedAt           int64
	ExpiresAt           int64
}

type accessTokenRow struct {
	TokenHash string
	ClientID  string
	Resource  sql.NullString
	CreatedAt int64
	ExpiresAt int64
}

// Queries holds the hand written statements shared by the SQL drivers.
type Queries struct {
	db     DBTX
	rebind Rebinder
}

func NewQueries(db DBTX, rebind Rebinder) *Queries {
	if rebind == nil {
		rebind = Question
	}
	return &Queries{db: db, rebind: rebind}
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) CreateClient(ctx context.Context, row clientRow) (int64, error) {
	return q.exec(ctx, createClient, row.ID, row.Name, row.SecretHash, row.RedirectURI, row.CreatedAt)
}

func (q *Queries) GetClientByID(ctx context.Context, id string) (clientRow, error) {
	var row clientRow
	err := q.db.QueryRowContext(ctx, q.rebind(getClientByID), id).Scan(
		&row.ID,
		&row.Name,
		&row.SecretHash,
		&row.RedirectURI,
		&row.CreatedAt,
	)
	return row, err
}

func (q *Queries) CreateAuthorizationCode(ctx context.Context, row authorizationCodeRow) error {
	_, err := q.exec(ctx, createAuthorizationCode,
		row.CodeHash,
		row.ClientID,
		row.RedirectURI,
		row.CodeChallenge,
		row.CodeChallengeMethod,
		row.Resource,
		row.CreatedAt,
		row.ExpiresAt,
	)
	return err
}

func (q *Queries) GetValidAuthorizationCode(ctx context.Context, codeHash string, now int64) (authorizationCodeRow, error) {
	var row authorizationCodeRow
	err := q.db.QueryRowContext(ctx, q.rebind(getValidAuthorizationCode), codeHash, now).Scan(
		&row.CodeHash,
		&row.ClientID,
		&row.RedirectURI,
		&row.CodeChallenge,
		&row.CodeChallengeMethod,
		&row.Resource,
		&row.Used,
		&row.UsedAt,
		&row.CreatedAt,
		&row.ExpiresAt,
	)
	return row, err
}

func (q *Queries) MarkAuthorizationCodeUsed(ctx context.Context, codeHash string, now int64) (int64, error) {
	return q.exec(ctx, markAuthorizationCodeUsed, now, codeHash, now)
}

func (q *Queries) DeleteDeadAuthorizationCodes(ctx context.Context, now int64) (int64, error) {
	return q.exec(ctx, deleteDeadAuthorizationCodes, now)
}

func (q *Queries) CreateAccessToken(ctx context.Context, row accessTokenRow) error {
	_, err := q.exec(ctx, createAccessToken, row.TokenHash, row.ClientID, row.Resource, row.CreatedAt, row.ExpiresAt)
	return err
}

func (q *Queries) GetValidAccessToken(ctx context.Context, tokenHash string, now int64) (accessTokenRow, error) {
	var row accessTokenRow
	err := q.db.QueryRowContext(ctx, q.rebind(getValidAccessToken), tokenHash, now).Scan(
		&row.TokenHash,
		&row.ClientID,
		&row.Resource,
		&row.CreatedAt,
		&row.ExpiresAt,
	)
	return row, err
}

func (q *Queries) DeleteExpiredAccessTokens(ctx context.Context, now int64) (int64, error) {
	return q.exec(ctx, deleteExpiredAccessTokens, now)
}
