//go:build e2e

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/aussiebroadwan/mcpauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for the authorization server
 * end-to-end tests: container setup, the authorization code flow and
 * assertions.
 */

const (
	testImageName = "mcpauth-test:latest"

	testClientID    = "test_client"
	testRedirectURI = "http://localhost:3000/callback"
)

// TestMain builds the Docker image once before all tests and cleans it up
// after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building mcpauth Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up mcpauth Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/mcpauth/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // image might not exist
}

// relaxedRateLimits lifts the per-profile limits so tests making many rapid
// requests do not trip them.
var relaxedRateLimits = map[string]string{
	"RATELIMIT_STRICT_REQUESTS":   "1000",
	"RATELIMIT_STRICT_WINDOW_SEC": "60",
	"RATELIMIT_STRICT_BURST":      "1000",
	"RATELIMIT_MODERATE_REQUESTS": "1000",
	"RATELIMIT_MODERATE_BURST":    "1000",
	"RATELIMIT_LENIENT_REQUESTS":  "1000",
	"RATELIMIT_LENIENT_BURST":     "1000",
}

// setupAuthContainer starts the server with relaxed rate limits and returns
// its base URL.
func setupAuthContainer(t *testing.T) (string, func()) {
	t.Helper()
	return startContainer(t, relaxedRateLimits)
}

// setupAuthContainerWithDefaultRateLimits starts the server with the
// production limits. Only rate limit tests should use it.
func setupAuthContainerWithDefaultRateLimits(t *testing.T) (string, func()) {
	t.Helper()
	return startContainer(t, nil)
}

func startContainer(t *testing.T, extraEnv map[string]string) (string, func()) {
	t.Helper()
	ctx := context.Background()

	env := map[string]string{
		"ENV":                   "test",
		"LOG_LEVEL":             "info",
		"LOG_FORMAT":            "json",
		"AUTH_STORE_DRIVER":     "sqlite",
		"AUTH_SEED_TEST_CLIENT": "true",
	}
	for k, v := range extraEnv {
		env[k] = v
	}

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// authorizeAndExchange runs consent and redemption for the given client and
// returns the token response.
func authorizeAndExchange(t *testing.T, client *authsdk.SDKClient, clientID, clientSecret, redirectURI string, pkce *authsdk.PKCEChallenge) *authsdk.TokenResponse {
	t.Helper()
	ctx := t.Context()

	redirect, err := client.Authorize(ctx, authsdk.AuthorizeParams{
		ClientID:    clientID,
		RedirectURI: redirectURI,
		State:       "e2e-state",
		PKCE:        pkce,
	}, authsdk.DecisionApprove)
	require.NoError(t, err, "Authorization should succeed")
	require.Equal(t, "e2e-state", redirect.State, "State must round-trip")
	require.NotEmpty(t, redirect.Code, "Code should not be empty")

	params := authsdk.ExchangeParams{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		Code:         redirect.Code,
	}
	if pkce != nil {
		params.CodeVerifier = pkce.Verifier
	}

	tok, err := client.ExchangeCode(ctx, params)
	require.NoError(t, err, "Code exchange should succeed")
	assertTokenResponse(t, tok)
	return tok
}

// assertTokenResponse verifies a token response has all required fields.
func assertTokenResponse(t *testing.T, resp *authsdk.TokenResponse) {
	t.Helper()
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.AccessToken, "Access token should not be empty")
	require.Equal(t, "bearer", resp.TokenType, "Token type should be bearer")
	require.Positive(t, resp.ExpiresIn, "Token should expire")
}

// assertOAuthError checks err is an OAuth2 error with the given code.
func assertOAuthError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)

	var oauthErr *authsdk.OAuth2Error
	require.True(t, errors.As(err, &oauthErr), "expected an OAuth2 error, got: %v", err)
	require.Equal(t, code, oauthErr.Code)
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
