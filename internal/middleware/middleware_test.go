package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/mieszkaniownik/internal/logger"
	"github.com/yanizio/mieszkaniownik/internal/metrics"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

/*──────────────────────────── ForceHTTPS ───────────────────────────────────*/

func TestForceHTTPS(t *testing.T) {
	cases := []struct {
		name   string
		host   string
		proto  string
		code   int
		target string
	}{
		{"plain http redirects", "mieszkaniownik.pl", "", http.StatusPermanentRedirect, "https://mieszkaniownik.pl/alerts/1/edit?x=1"},
		{"proxy says https", "mieszkaniownik.pl", "https", http.StatusNoContent, ""},
		{"localhost passes", "localhost:8080", "", http.StatusNoContent, ""},
		{"ipv6 loopback passes", "[::1]:8080", "", http.StatusNoContent, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/alerts/1/edit?x=1", nil)
			req.Host = tc.host
			if tc.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tc.proto)
			}
			rec := httptest.NewRecorder()
			ForceHTTPS(ok).ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.target, rec.Header().Get("Location"))
		})
	}
}

/*──────────────────────────── Security ─────────────────────────────────────*/

func TestSecurity(t *testing.T) {
	rec := httptest.NewRecorder()
	Security(false)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	h := rec.Header()
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Contains(t, h.Get("Content-Security-Policy"), "form-action 'self'")
	assert.Empty(t, h.Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	Security(true)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=")
}

/*──────────────────────────── RequestID ────────────────────────────────────*/

func TestRequestID(t *testing.T) {
	var seen string
	var hasLogger bool
	h := RequestID(zap.NewNop().Sugar())(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		hasLogger = logger.FromContext(r.Context()) != nil
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(HeaderRequestID))
	assert.True(t, hasLogger)

	// A valid inbound id is kept, garbage is replaced.
	const inbound = "0b5c3c4e-8d1a-4c59-9a2f-3f0e8c1d2b7a"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, inbound)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, inbound, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, "<script>", seen)
}

/*──────────────────────────── RateLimiter ──────────────────────────────────*/

func post(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(""))
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func byRemote(r *http.Request) string { return r.RemoteAddr }

func TestRateLimiter_PerClientBurst(t *testing.T) {
	l := NewRateLimiter(1, 2, byRemote)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	h := l.Middleware(ok)

	before := testutil.ToFloat64(metrics.RateLimitedTotal)

	assert.Equal(t, http.StatusNoContent, post(h, "a").Code)
	assert.Equal(t, http.StatusNoContent, post(h, "a").Code)
	rec := post(h, "a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RateLimitedTotal))

	// Another client has its own bucket.
	assert.Equal(t, http.StatusNoContent, post(h, "b").Code)

	// One second later one token is back.
	now = now.Add(time.Second)
	assert.Equal(t, http.StatusNoContent, post(h, "a").Code)
}

func TestRateLimiter_SafeMethodsPass(t *testing.T) {
	l := NewRateLimiter(0.001, 1, byRemote)
	h := l.Middleware(ok)
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestRateLimiter_SkipExemptsMatchingRequests(t *testing.T) {
	l := NewRateLimiter(0.001, 1, byRemote)
	l.Skip = func(r *http.Request) bool { return r.URL.Query().Get("op") == "add_keyword" }
	h := l.Middleware(ok)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/alerts/7/edit?op=add_keyword", nil)
		req.RemoteAddr = "a"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, "exempt request %d limited", i)
	}

	// Exempt requests spent no tokens.
	assert.Equal(t, http.StatusNoContent, post(h, "a").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(h, "a").Code)
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	l := NewRateLimiter(1, 1, byRemote)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(idleTTL + sweepEvery + time.Second)
	l.Allow("b")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.buckets, "a")
	assert.Contains(t, l.buckets, "b")
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 60, retryAfter(0))
	assert.Equal(t, 1, retryAfter(5))
	assert.Equal(t, 10, retryAfter(0.1))
}
