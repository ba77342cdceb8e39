// Package redis is a Redis-backed credential store. Records are JSON values
// under prefixed keys; codes and tokens carry a native expiry so Redis drops
// them on its own, and the two writes that must be atomic run as Lua scripts.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/mcpauth/internal/auth/domain"
	"github.com/aussiebroadwan/mcpauth/internal/auth/store"
)

// Key types used to namespace records.
const (
	KeyTypeClient = "client"
	KeyTypeCode   = "code"
	KeyTypeToken  = "token"
)

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "mcpauth:"

// Config holds the connection settings for NewStore.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Store struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewStore connects to Redis and verifies the connection.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 3 * time.Second
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{cfg.Addr},
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewStoreWithClient wraps a pre-configured client. Tests pass a miniredis
// backed client here.
func NewStoreWithClient(client redis.UniversalClient, keyPrefix string) *Store {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Store{client: client, keyPrefix: keyPrefix}
}

func (s *Store) Close() error { return s.client.Close() }

// Ping verifies the Redis connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// ApplyMigrations is a no-op; Redis has no schema.
func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Clients() store.Clients                       { return &clientsRepo{s: s} }
func (s *Store) AuthorizationCodes() store.AuthorizationCodes { return &authorizationCodesRepo{s: s} }
func (s *Store) AccessTokens() store.AccessTokens             { return &accessTokensRepo{s: s} }

func (s *Store) key(keyType, id string) string {
	return s.keyPrefix + keyType + ":" + id
}

// createScript stores ARGV[1] under KEYS[1] only when the key is absent and
// sets an absolute expiry when ARGV[2] is positive.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1])
local exp = tonumber(ARGV[2])
if exp > 0 then
	redis.call('PEXPIREAT', KEYS[1], exp)
end
return 1
`)

// markUsedLua flips used on the code in KEYS[1] when it is unused and
// unexpired at ARGV[1]. It is shared by markUsedScript and redeemScript.
const markUsedLua = `
local data = redis.call('GET', KEYS[1])
if not data then
	return 0
end
local code = cjson.decode(data)
local now = tonumber(ARGV[1])
if code.used or tonumber(code.expires_at) <= now then
	return 0
end
code.used = true
code.used_at = now
redis.call('SET', KEYS[1], cjson.encode(code))
redis.call('PEXPIREAT', KEYS[1], ARGV[2])
`

var markUsedScript = redis.NewScript(markUsedLua + `
return 1
`)

// redeemScript runs the compare-and-swap and then writes the token in
// KEYS[2] from ARGV[3] with expiry ARGV[4].
var redeemScript = redis.NewScript(markUsedLua + `
redis.call('SET', KEYS[2], ARGV[3])
redis.call('PEXPIREAT', KEYS[2], ARGV[4])
return 1
`)

// RedeemAuthorizationCode marks the code used and stores the token in one
// script invocation.
func (s *Store) RedeemAuthorizationCode(ctx context.Context, codeHash string, token domain.AccessToken, now time.Time) error {
	code, err := s.getCode(ctx, codeHash)
	if err != nil {
		return err
	}

	data, err := json.Marshal(toStoredToken(token))
	if err != nil {
		return fmt.Errorf("marshal access token: %w", err)
	}

	n, err := redeemScript.Run(ctx, s.client,
		[]string{s.key(KeyTypeCode, codeHash), s.key(KeyTypeToken, token.TokenHash)},
		now.UnixMilli(), code.ExpiresAt, string(data), token.ExpiresAt.UnixMilli(),
	).Int()
	if err != nil {
		return fmt.Errorf("redeem authorization code: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) getCode(ctx context.Context, codeHash string) (storedCode, error) {
	var code storedCode
	if err := s.getJSON(ctx, s.key(KeyTypeCode, codeHash), &code); err != nil {
		return storedCode{}, err
	}
	return code, nil
}

func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.ErrNotFound
		}
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) create(ctx context.Context, key string, v any, expiresAt int64) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	n, err := createScript.Run(ctx, s.client, []string{key}, string(data), expiresAt).Int()
	if err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}
	if n == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}
