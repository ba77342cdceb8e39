package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/mcpauth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func fromIP(ip, target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = ip + ":12345"
	return req
}

func TestIPKeyExtractor(t *testing.T) {
	t.Run("extracts from RemoteAddr", func(t *testing.T) {
		require.Equal(t, "192.168.1.1", httpx.IPKeyExtractor(fromIP("192.168.1.1", "/")))
	})

	t.Run("prefers X-Forwarded-For", func(t *testing.T) {
		req := fromIP("192.168.1.1", "/")
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")
		require.Equal(t, "203.0.113.1", httpx.IPKeyExtractor(req))
	})

	t.Run("uses X-Real-IP if X-Forwarded-For absent", func(t *testing.T) {
		req := fromIP("192.168.1.1", "/")
		req.Header.Set("X-Real-IP", "203.0.113.2")
		require.Equal(t, "203.0.113.2", httpx.IPKeyExtractor(req))
	})
}

func TestFormFieldKeyExtractor(t *testing.T) {
	extractor := httpx.FormFieldKeyExtractor("client_id")

	t.Run("extracts from query", func(t *testing.T) {
		require.Equal(t, "test_client", extractor(httptest.NewRequest(http.MethodGet, "/?client_id=test_client", nil)))
	})

	t.Run("extracts from POST form", func(t *testing.T) {
		form := url.Values{"client_id": {"mcp_abc"}}
		req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		require.Equal(t, "mcp_abc", extractor(req))
	})

	t.Run("returns empty for missing field", func(t *testing.T) {
		require.Equal(t, "", extractor(httptest.NewRequest(http.MethodGet, "/", nil)))
	})
}

func TestClientIDKeyExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	require.Empty(t, httpx.ClientIDKeyExtractor(req))

	req = req.WithContext(httpx.WithAccess(req.Context(), httpx.Access{ClientID: "test_client"}))
	require.Equal(t, "test_client", httpx.ClientIDKeyExtractor(req))
}

func TestCompositeKeyExtractor(t *testing.T) {
	extractor := httpx.CompositeKeyExtractor(":",
		httpx.IPKeyExtractor,
		httpx.FormFieldKeyExtractor("client_id"),
	)

	require.Equal(t, "192.168.1.1:alice", extractor(fromIP("192.168.1.1", "/?client_id=alice")))
	require.Equal(t, "192.168.1.1", extractor(fromIP("192.168.1.1", "/")), "empty values are skipped")
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("blocks requests over limit", func(t *testing.T) {
		h := httpx.RateLimitMiddleware(httpx.RateLimitConfig{
			RequestsPerWindow: 3,
			Window:            time.Minute,
			Burst:             3,
		}, httpx.IPKeyExtractor)(okHandler)

		for i := range 3 {
			require.Equal(t, http.StatusOK, serve(h, fromIP("192.168.1.1", "/")).Code, "request %d should succeed", i+1)
		}

		rec := serve(h, fromIP("192.168.1.1", "/"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
		require.Contains(t, rec.Body.String(), "rate_limit_exceeded")
	})

	t.Run("different keys are tracked separately", func(t *testing.T) {
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{
			RequestsPerWindow: 1,
			Window:            time.Minute,
			Burst:             1,
		})(okHandler)

		require.Equal(t, http.StatusOK, serve(h, fromIP("192.168.1.1", "/")).Code)
		require.Equal(t, http.StatusTooManyRequests, serve(h, fromIP("192.168.1.1", "/")).Code)
		require.Equal(t, http.StatusOK, serve(h, fromIP("192.168.1.2", "/")).Code)
	})

	t.Run("burst defaults to the window size", func(t *testing.T) {
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{
			RequestsPerWindow: 2,
			Window:            time.Minute,
		})(okHandler)

		require.Equal(t, http.StatusOK, serve(h, fromIP("10.0.0.1", "/")).Code)
		require.Equal(t, http.StatusOK, serve(h, fromIP("10.0.0.1", "/")).Code)
		require.Equal(t, http.StatusTooManyRequests, serve(h, fromIP("10.0.0.1", "/")).Code)
	})

	t.Run("disabled config passes everything", func(t *testing.T) {
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{})(okHandler)
		for range 10 {
			require.Equal(t, http.StatusOK, serve(h, fromIP("10.0.0.2", "/")).Code)
		}
	})

	t.Run("allows request when key extractor returns empty", func(t *testing.T) {
		h := httpx.RateLimitMiddleware(httpx.RateLimitConfig{
			RequestsPerWindow: 1,
			Window:            time.Minute,
			Burst:             1,
		}, func(*http.Request) string { return "" })(okHandler)

		for range 3 {
			require.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
		}
	})
}

func TestRateLimitByIPAndFormField(t *testing.T) {
	h := httpx.RateLimitByIPAndFormField(httpx.RateLimitConfig{
		RequestsPerWindow: 2,
		Window:            time.Minute,
		Burst:             2,
	}, "client_id")(okHandler)

	for range 2 {
		require.Equal(t, http.StatusOK, serve(h, fromIP("192.168.1.1", "/?client_id=alice")).Code)
	}
	require.Equal(t, http.StatusTooManyRequests, serve(h, fromIP("192.168.1.1", "/?client_id=alice")).Code)
	require.Equal(t, http.StatusOK, serve(h, fromIP("192.168.1.1", "/?client_id=bob")).Code)
}

func TestDefaultRateLimitProfiles(t *testing.T) {
	p := httpx.DefaultRateLimitProfiles()

	for name, config := range map[string]httpx.RateLimitConfig{
		"strict":   p.Strict,
		"moderate": p.Moderate,
		"lenient":  p.Lenient,
		"public":   p.Public,
	} {
		t.Run(name, func(t *testing.T) {
			require.True(t, config.Enabled())
			require.Positive(t, config.Burst)
		})
	}

	require.Less(t, p.Strict.RequestsPerWindow, p.Moderate.RequestsPerWindow)
	require.Less(t, p.Moderate.RequestsPerWindow, p.Lenient.RequestsPerWindow)
	require.Less(t, p.Lenient.RequestsPerWindow, p.Public.RequestsPerWindow)
}

func BenchmarkRateLimitMiddleware(b *testing.B) {
	h := httpx.RateLimitByIP(httpx.RateLimitConfig{
		RequestsPerWindow: 1_000_000,
		Window:            time.Minute,
		Burst:             1000,
	})(okHandler)
	req := fromIP("192.168.1.1", "/")

	b.ResetTimer()
	for b.Loop() {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
