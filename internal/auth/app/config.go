package app

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/mcpauth/pkg/httpx"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileEnv names the environment variable holding the optional YAML
// config file. The --config flag takes precedence.
const ConfigFileEnv = "AUTH_CONFIG_FILE"

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	// BaseURL is the issuer and protected resource identifier
	// (default: http://localhost:<Port>).
	BaseURL string

	StoreDriver  string // sqlite, postgres or redis (default: sqlite)
	DatabaseFile string // SQLite database file (default: ./auth.db)
	PostgresDSN  string // Required when StoreDriver is postgres
	Redis        RedisConfig

	CodeTTL         time.Duration // Authorization code lifetime (default: 10m)
	TokenTTL        time.Duration // Access token lifetime (default: 1h)
	ScopesSupported []string      // Advertised scopes (default: mcp:tools)
	SeedTestClient  bool          // Seed test_client on startup (default: true)
	PepperFile      string        // Pepper for client secret hashing (default: ./pepper)

	MetricsEnabled bool     // Expose /metrics (default: true)
	MCPEnabled     bool     // Mount the MCP tool server at /mcp (default: true)
	CORSOrigins    []string // Browser origins allowed by CORS

	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Purge interval (default: 1h)

	RateLimits httpx.RateLimitProfiles
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// envKeys maps the recognised environment variables onto koanf paths. The
// same paths are used in the YAML file.
var envKeys = map[string]string{
	"ENV":                   "env",
	"LOG_LEVEL":             "log.level",
	"LOG_FORMAT":            "log.format",
	"PORT":                  "port",
	"AUTH_BASE_URL":         "base_url",
	"AUTH_STORE_DRIVER":     "store.driver",
	"AUTH_DATABASE_FILE":    "store.sqlite.file",
	"AUTH_POSTGRES_DSN":     "store.postgres.dsn",
	"AUTH_REDIS_ADDR":       "store.redis.addr",
	"AUTH_REDIS_PASSWORD":   "store.redis.password",
	"AUTH_REDIS_DB":         "store.redis.db",
	"AUTH_REDIS_KEY_PREFIX": "store.redis.key_prefix",
	"AUTH_CODE_TTL":         "oauth.code_ttl",
	"AUTH_TOKEN_TTL":        "oauth.token_ttl",
	"AUTH_SCOPES_SUPPORTED": "oauth.scopes_supported",
	"AUTH_SEED_TEST_CLIENT": "oauth.seed_test_client",
	"AUTH_PEPPER_FILE":      "oauth.pepper_file",
	"AUTH_METRICS_ENABLED":  "metrics.enabled",
	"AUTH_MCP_ENABLED":      "mcp.enabled",
	"AUTH_CORS_ORIGINS":     "cors.origins",
	"SHUTDOWN_GRACE_PERIOD": "shutdown_grace_period",
	"HOUSEKEEPING_INTERVAL": "housekeeping_interval",
}

var rateLimitProfiles = []string{"strict", "moderate", "lenient", "public"}

func init() {
	for _, p := range rateLimitProfiles {
		upper := strings.ToUpper(p)
		envKeys["RATELIMIT_"+upper+"_REQUESTS"] = "ratelimit." + p + ".requests"
		envKeys["RATELIMIT_"+upper+"_WINDOW_SEC"] = "ratelimit." + p + ".window_sec"
		envKeys["RATELIMIT_"+upper+"_BURST"] = "ratelimit." + p + ".burst"
	}
}

func defaults() map[string]any {
	d := map[string]any{
		"env":                    "dev",
		"log.level":              "info",
		"log.format":             "json",
		"port":                   8080,
		"store.driver":           DriverSQLite,
		"store.sqlite.file":      "auth.db",
		"store.redis.addr":       "localhost:6379",
		"store.redis.db":         0,
		"store.redis.key_prefix": "mcpauth:",
		"oauth.code_ttl":         "10m",
		"oauth.token_ttl":        "1h",
		"oauth.scopes_supported": "mcp:tools",
		"oauth.seed_test_client": true,
		"oauth.pepper_file":      "pepper",
		"metrics.enabled":        true,
		"mcp.enabled":            true,
		"shutdown_grace_period":  "10s",
		"housekeeping_interval":  "1h",
	}

	profiles := httpx.DefaultRateLimitProfiles()
	for p, rl := range map[string]httpx.RateLimitConfig{
		"strict":   profiles.Strict,
		"moderate": profiles.Moderate,
		"lenient":  profiles.Lenient,
		"public":   profiles.Public,
	} {
		d["ratelimit."+p+".requests"] = rl.RequestsPerWindow
		d["ratelimit."+p+".window_sec"] = int(rl.Window / time.Second)
		d["ratelimit."+p+".burst"] = rl.Burst
	}
	return d
}

// LoadConfig layers built-in defaults, the optional YAML file at path (or
// $AUTH_CONFIG_FILE) and the environment, then validates the result.
func LoadConfig(path string) (Config, error) {
	return loadConfig(path, env.Provider("", ".", transformEnv))
}

func loadConfig(path string, envProvider koanf.Provider) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	// The config file location may itself come from the environment.
	envLayer := koanf.New(".")
	if err := envLayer.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}
	if path == "" {
		path = envLayer.String("config_file")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Merge(envLayer); err != nil {
		return Config{}, fmt.Errorf("merge environment: %w", err)
	}

	cfg := Config{
		Env:          k.String("env"),
		LogLevel:     k.String("log.level"),
		LogFormat:    k.String("log.format"),
		Port:         k.Int("port"),
		BaseURL:      strings.TrimRight(k.String("base_url"), "/"),
		StoreDriver:  strings.ToLower(k.String("store.driver")),
		DatabaseFile: k.String("store.sqlite.file"),
		PostgresDSN:  k.String("store.postgres.dsn"),
		Redis: RedisConfig{
			Addr:      k.String("store.redis.addr"),
			Password:  k.String("store.redis.password"),
			DB:        k.Int("store.redis.db"),
			KeyPrefix: k.String("store.redis.key_prefix"),
		},
		ScopesSupported: httpx.ParseSpaceDelimitedFields(k.String("oauth.scopes_supported")),
		SeedTestClient:  k.Bool("oauth.seed_test_client"),
		PepperFile:      k.String("oauth.pepper_file"),
		MetricsEnabled:  k.Bool("metrics.enabled"),
		MCPEnabled:      k.Bool("mcp.enabled"),
		CORSOrigins:     httpx.ParseOrigins(k.String("cors.origins")),
	}

	var err error
	if cfg.CodeTTL, err = parseDuration(k.String("oauth.code_ttl"), false); err != nil {
		return Config{}, fmt.Errorf("AUTH_CODE_TTL: %w", err)
	}
	if cfg.TokenTTL, err = parseDuration(k.String("oauth.token_ttl"), false); err != nil {
		return Config{}, fmt.Errorf("AUTH_TOKEN_TTL: %w", err)
	}
	if cfg.ShutdownGracePeriod, err = parseDuration(k.String("shutdown_grace_period"), false); err != nil {
		return Config{}, fmt.Errorf("SHUTDOWN_GRACE_PERIOD: %w", err)
	}
	if cfg.HousekeepingInterval, err = parseDuration(k.String("housekeeping_interval"), true); err != nil {
		return Config{}, fmt.Errorf("HOUSEKEEPING_INTERVAL: %w", err)
	}

	cfg.RateLimits = httpx.RateLimitProfiles{
		Strict:   rateLimit(k, "strict"),
		Moderate: rateLimit(k, "moderate"),
		Lenient:  rateLimit(k, "lenient"),
		Public:   rateLimit(k, "public"),
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be served.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d is out of range", c.Port)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("AUTH_BASE_URL %q must be an absolute http(s) URL", c.BaseURL)
	}

	switch c.StoreDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			return errors.New("AUTH_DATABASE_FILE is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("AUTH_POSTGRES_DSN is required for the postgres driver")
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return errors.New("AUTH_REDIS_ADDR is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown AUTH_STORE_DRIVER %q", c.StoreDriver)
	}

	if c.CodeTTL <= 0 || c.TokenTTL <= 0 {
		return errors.New("AUTH_CODE_TTL and AUTH_TOKEN_TTL must be positive")
	}
	if c.HousekeepingInterval <= 0 {
		return errors.New("HOUSEKEEPING_INTERVAL must be positive")
	}
	return nil
}

// transformEnv maps a recognised environment variable onto its koanf path.
// Anything else is ignored.
func transformEnv(s string) string {
	if s == ConfigFileEnv {
		return "config_file"
	}
	return envKeys[s]
}

// parseDuration accepts Go durations ("90s", "1h"). With minutes set a bare
// integer is read as minutes.
func parseDuration(value string, minutes bool) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	if minutes {
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Minute, nil
		}
	}
	return 0, fmt.Errorf("invalid duration %q", value)
}

func rateLimit(k *koanf.Koanf, profile string) httpx.RateLimitConfig {
	prefix := "ratelimit." + profile + "."
	return httpx.RateLimitConfig{
		RequestsPerWindow: k.Int(prefix + "requests"),
		Window:            time.Duration(k.Int(prefix+"window_sec")) * time.Second,
		Burst:             k.Int(prefix + "burst"),
	}
}
