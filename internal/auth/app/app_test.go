package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/mcpauth/internal/auth/service"
	"github.com/aussiebroadwan/mcpauth/pkg/authsdk"
	"github.com/aussiebroadwan/mcpauth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()

	return Config{
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "json",
		Port:                 8080,
		BaseURL:              "http://localhost:8080",
		StoreDriver:          DriverSQLite,
		DatabaseFile:         filepath.Join(dir, "auth.db"),
		CodeTTL:              10 * time.Minute,
		TokenTTL:             time.Hour,
		ScopesSupported:      []string{"mcp:tools"},
		SeedTestClient:       true,
		PepperFile:           filepath.Join(dir, "pepper"),
		MetricsEnabled:       true,
		MCPEnabled:           true,
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
		RateLimits:           httpx.DefaultRateLimitProfiles(),
	}
}

func TestNew_WiresApplication(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	application, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.db.Close() })

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(srv.Close)

	_, err = os.Stat(cfg.PepperFile)
	require.NoError(t, err, "pepper is created on first start")

	sdk := authsdk.NewSDKClient(srv.URL)

	t.Run("readiness reports the driver", func(t *testing.T) {
		ready, err := sdk.GetReadiness(context.Background())
		require.NoError(t, err)
		require.Equal(t, DriverSQLite, ready.Checks.Driver)
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("test client is seeded", func(t *testing.T) {
		c, err := application.db.Clients().GetClientByID(context.Background(), service.TestClientID)
		require.NoError(t, err)
		require.Equal(t, service.TestClientRedirectURI, c.RedirectURI)
	})

	t.Run("metadata uses the configured base url", func(t *testing.T) {
		asm, err := sdk.GetAuthorizationServerMetadata(context.Background())
		require.NoError(t, err)
		require.Equal(t, cfg.BaseURL, asm.Issuer)
	})
}

func TestNew_UnknownDriver(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.StoreDriver = "mysql"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}

func writeConfigFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	path := filepath.Join(dir, "mcpauth.yaml")
	body := "store:\n  driver: sqlite\n  sqlite:\n    file: " + filepath.Join(dir, "auth.db") +
		"\noauth:\n  pepper_file: " + filepath.Join(dir, "pepper") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRegisterClientCommand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"register-client",
		"--config", writeConfigFile(t),
		"--name", "CLI Client",
		"--redirect-uri", "https://app.example/callback",
	})
	require.NoError(t, cmd.Execute())

	var resp authsdk.RegistrationResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.ClientID, service.ClientIDPrefix))
	require.NotEmpty(t, resp.ClientSecret)
	require.Equal(t, "CLI Client", resp.ClientName)
	require.Equal(t, []string{"https://app.example/callback"}, resp.RedirectURIs)
	require.Zero(t, resp.ClientSecretExpiresAt)
}

func TestRegisterClientCommand_RequiresRedirectURI(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"register-client", "--config", writeConfigFile(t)})
	require.Error(t, cmd.Execute())
}

func TestMigrateCommand(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"migrate", "--config", writeConfigFile(t)})
	require.NoError(t, cmd.Execute())
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "mcpauth "+BuildVersion+"\n", out.String())
}
