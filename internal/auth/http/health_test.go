package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/mcpauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	t.Run("livez", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/livez", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var health authsdk.HealthResponse
		decodeBody(t, rec, &health)
		require.Equal(t, "ok", health.Status)
		require.Equal(t, "test-version", health.Version)
		require.Nil(t, health.Checks)
	})

	t.Run("readyz", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var health authsdk.HealthResponse
		decodeBody(t, rec, &health)
		require.Equal(t, "ok", health.Status)
		require.NotNil(t, health.Checks)
		require.Equal(t, "ok", health.Checks.Store)
		require.Equal(t, "sqlite", health.Checks.Driver)
	})

	t.Run("health", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var status authsdk.StatusResponse
		decodeBody(t, rec, &status)
		require.Equal(t, "healthy", status.Status)
		require.Equal(t, "test", status.Environment)
	})

	t.Run("info", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/info", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var info authsdk.InfoResponse
		decodeBody(t, rec, &info)
		require.Equal(t, ServiceName, info.Name)
		require.Equal(t, "test-version", info.Version)
	})

	t.Run("security headers", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/livez", nil))
		require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})
}

func TestReadyz_StoreDown(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	require.NoError(t, env.store.Close())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var health authsdk.HealthResponse
	decodeBody(t, rec, &health)
	require.Equal(t, "degraded", health.Status)
	require.Contains(t, health.Checks.Store, "error")
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
