package app

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/mieszkaniownik/components/alerts"
	authc "github.com/yanizio/mieszkaniownik/components/auth"
	"github.com/yanizio/mieszkaniownik/components/notfound"
	"github.com/yanizio/mieszkaniownik/internal/alert"
	"github.com/yanizio/mieszkaniownik/internal/api"
	"github.com/yanizio/mieszkaniownik/internal/component"
	"github.com/yanizio/mieszkaniownik/internal/editor"
	"github.com/yanizio/mieszkaniownik/internal/form"
	"github.com/yanizio/mieszkaniownik/internal/session"
	"github.com/yanizio/mieszkaniownik/internal/view"
)

const apiBase = "http://api.test"

type harness struct {
	h     http.Handler
	mt    *httpmock.MockTransport
	forms *form.Registry
}

func newHarness(t *testing.T, o Options) *harness {
	t.Helper()

	mt := httpmock.NewMockTransport()
	client, err := api.New(apiBase, 0, api.WithHTTPClient(&http.Client{Transport: mt}))
	require.NoError(t, err)

	sessions, err := session.New(session.Options{Secret: []byte(strings.Repeat("s", 32))})
	require.NoError(t, err)

	forms := form.NewRegistry(form.NewCSRF([]byte("csrf-secret"), 0))
	deps := &component.Deps{
		Views:    view.New(16),
		Sessions: sessions,
		Forms:    forms,
		Alerts:   client,
		Accounts: client,
		Routes:   editor.Routes{Login: "/login", Alerts: "/alerts", Matches: "/matches"},
		Log:      zap.NewNop().Sugar(),
	}

	h, err := NewRouter(o, deps, []component.Component{alerts.New(), authc.New(), notfound.New()})
	require.NoError(t, err)
	return &harness{h: h, mt: mt, forms: forms}
}

func (hs *harness) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	hs.h.ServeHTTP(rec, req)
	return rec
}

func (hs *harness) post(t *testing.T, path string, v url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	tok, err := hs.forms.Token()
	require.NoError(t, err)
	v.Set("csrf_token", tok)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return hs.do(req, cookies...)
}

// login signs in through the real handler and returns the session cookie.
func (hs *harness) login(t *testing.T) *http.Cookie {
	t.Helper()
	hs.mt.RegisterResponder(http.MethodPost, apiBase+"/auth/login",
		httpmock.NewStringResponder(200, `{"access_token":"tok-1"}`))

	rec := hs.post(t, "/login", url.Values{"email": {"a@b.pl"}, "password": {"pw"}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(t, "/alerts", rec.Header().Get("Location"))
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie after login")
	return nil
}

func TestRouter_RootRedirectsToAlerts(t *testing.T) {
	hs := newHarness(t, Options{})
	rec := hs.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/alerts", rec.Header().Get("Location"))
}

func TestRouter_SecurityHeadersAndRequestID(t *testing.T) {
	hs := newHarness(t, Options{HSTS: true})
	rec := hs.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_StaticAndMetrics(t *testing.T) {
	hs := newHarness(t, Options{})

	rec := hs.do(httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")

	rec = hs.do(httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")
	assert.Contains(t, rec.Body.String(), "data-submit-once")

	rec = hs.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_rate_limited_total")
}

func TestRouter_UnknownPathRendersNotFound(t *testing.T) {
	hs := newHarness(t, Options{})
	rec := hs.do(httptest.NewRequest(http.MethodGet, "/no/such/page", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Strona nie została znaleziona")
	assert.Contains(t, rec.Body.String(), `href="/"`)
}

func TestRouter_AnonymousEditRedirectsToLogin(t *testing.T) {
	hs := newHarness(t, Options{})
	rec := hs.do(httptest.NewRequest(http.MethodGet, "/alerts/7/edit", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Zero(t, hs.mt.GetTotalCallCount(), "no API call for anonymous visitors")
}

func TestRouter_LoginEditSave(t *testing.T) {
	hs := newHarness(t, Options{})
	cookie := hs.login(t)

	var auth string
	hs.mt.RegisterResponder(http.MethodGet, apiBase+"/alerts/7",
		func(req *http.Request) (*http.Response, error) {
			auth = req.Header.Get("Authorization")
			return httpmock.NewStringResponse(200,
				`{"id":"7","name":"Mokotów 2 pokoje","city":"Warszawa","notificationMethod":"EMAIL"}`), nil
		})
	hs.mt.RegisterResponder(http.MethodPatch, apiBase+"/alerts/7",
		httpmock.NewStringResponder(200, `{}`))

	rec := hs.do(httptest.NewRequest(http.MethodGet, "/alerts/7/edit", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Bearer tok-1", auth)
	assert.Contains(t, rec.Body.String(), "Mokotów 2 pokoje")
	assert.Contains(t, rec.Body.String(), "Wyloguj")

	rec = hs.post(t, "/alerts/7/edit", url.Values{
		"name":               {"Mokotów 3 pokoje"},
		"city":               {"Warszawa"},
		"notificationMethod": {"EMAIL"},
		"op":                 {"save"},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/matches?alert=7", rec.Header().Get("Location"))
	assert.Equal(t, 1, hs.mt.GetCallCountInfo()["PATCH "+apiBase+"/alerts/7"])
}

func TestRouter_LogoutClearsSession(t *testing.T) {
	hs := newHarness(t, Options{})
	cookie := hs.login(t)

	rec := hs.post(t, "/logout", url.Values{}, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "session cookie not expired")
}

func TestRouter_RateLimitAppliesToPOST(t *testing.T) {
	hs := newHarness(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 1})

	first := hs.post(t, "/logout", url.Values{})
	assert.Equal(t, http.StatusSeeOther, first.Code)

	second := hs.post(t, "/logout", url.Values{})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// GETs are never limited.
	get := hs.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, get.Code)
}

func TestRouter_KeywordRoundTripsSkipRateLimit(t *testing.T) {
	hs := newHarness(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 1})
	cookie := hs.login(t) // spends the only token

	form := url.Values{"name": {"Mokotów"}, "city": {"Warszawa"}, "notificationMethod": {"EMAIL"}}
	for _, kw := range []string{"balkon", "metro", "winda"} {
		v := url.Values{}
		for k, vs := range form {
			v[k] = vs
		}
		v.Set("op", alert.OpAddKeyword)
		v.Set(alert.FieldKeywordInput, kw)
		rec := hs.post(t, "/alerts/7/edit", v, cookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `name="keywords" value="`+kw+`"`)
		form.Add(alert.FieldKeywords, kw)
	}

	rm := url.Values{alert.FieldRemoveKeyword: {"metro"}}
	for k, vs := range form {
		rm[k] = vs
	}
	rec := hs.post(t, "/alerts/7/edit", rm, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `name="keywords" value="metro"`)

	// Saving still counts against the bucket.
	form.Set("op", "save")
	rec = hs.post(t, "/alerts/7/edit", form, cookie)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Zero(t, hs.mt.GetCallCountInfo()["PATCH "+apiBase+"/alerts/7"])

	// The exemption is scoped to the edit page.
	rec = hs.post(t, "/login", url.Values{"op": {alert.OpAddKeyword}, "email": {"a@b.pl"}, "password": {"pw"}})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
