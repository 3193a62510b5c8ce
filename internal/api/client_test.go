package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/mieszkaniownik/internal/alert"
	"github.com/yanizio/mieszkaniownik/internal/auth"
	"github.com/yanizio/mieszkaniownik/internal/metrics"
)

const base = "http://api.test/v1"

func newMocked(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	c, err := New(base, 0, WithHTTPClient(&http.Client{Transport: mt}))
	require.NoError(t, err)
	return c, mt
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New("ftp://api.test", 0)
	assert.Error(t, err)
	_, err = New("://nope", 0)
	assert.Error(t, err)
}

func TestFetchAlert_DecodesRecordAndSendsBearer(t *testing.T) {
	c, mt := newMocked(t)
	mt.RegisterResponder(http.MethodGet, base+"/alerts/42",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer tok-1", req.Header.Get("Authorization"))
			assert.Equal(t, "application/json", req.Header.Get("Accept"))
			return httpmock.NewStringResponse(200,
				`{"id":"42","name":"A","city":"Wrocław","minRooms":2,"minFloor":0,"elevator":null,"pets":false}`), nil
		})

	ctx := auth.WithToken(context.Background(), "tok-1")
	rec, err := c.FetchAlert(ctx, "42")
	require.NoError(t, err)

	assert.Equal(t, "Wrocław", rec.City)
	require.NotNil(t, rec.MinRooms)
	assert.Equal(t, 2, *rec.MinRooms)
	require.NotNil(t, rec.MinFloor)
	assert.Equal(t, 0, *rec.MinFloor)
	assert.Equal(t, alert.Unset, rec.Elevator)
	assert.Equal(t, alert.False, rec.Pets)
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestFetchAlert_NoTokenNoHeader(t *testing.T) {
	c, mt := newMocked(t)
	mt.RegisterResponder(http.MethodGet, base+"/alerts/7",
		func(req *http.Request) (*http.Response, error) {
			assert.Empty(t, req.Header.Get("Authorization"))
			return httpmock.NewStringResponse(200, `{"name":"x","city":"y"}`), nil
		})

	rec, err := c.FetchAlert(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "7", rec.ID, "id falls back to the requested one")
}

func TestFetchAlert_NotFound(t *testing.T) {
	c, mt := newMocked(t)
	mt.RegisterResponder(http.MethodGet, base+"/alerts/99", httpmock.NewStringResponder(404, `{"message":"Alert not found"}`))

	_, err := c.FetchAlert(context.Background(), "99")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNetwork(err))
}

func TestFetchAlert_Unauthorized(t *testing.T) {
	c, mt := newMocked(t)
	mt.RegisterResponder(http.MethodGet, base+"/alerts/1", httpmock.NewStringResponder(401, `{"message":"Unauthorized"}`))

	_, err := c.FetchAlert(context.Background(), "1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestFetchAlert_TransportErrorIsNetwork(t *testing.T) {
	c, mt := newMocked(t)
	boom := errors.New("connection refused")
	mt.RegisterResponder(http.MethodGet, base+"/alerts/1", httpmock.NewErrorResponder(boom))

	before := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "error"))
	_, err := c.FetchAlert(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "error")))
	assert.Equal(t, 1, mt.GetTotalCallCount(), "no retries")
}

func TestFetchAlert_ServerErrorIsNetwork(t *testing.T) {
	c, mt := newMocked(t)
	mt.RegisterResponder(http.MethodGet, base+"/alerts/1", func(*http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(502, "<html><body><h1>Bad Gateway</h1><p>upstream down</p></body></html>")
		resp.Header.Set("Content-Type", "text/html; charset=utf-8")
		return resp, nil
	})

	_, err := c.FetchAlert(context.Background(), "1")
	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, 502, ne.Status)
	assert.Contains(t, ne.Err.Error(), "Bad Gateway")
	assert.NotContains(t, ne.Err.Error(), "<h1>")
}

func TestUpdateAlert_SendsOnlyPresentFields(t *testing.T) {
	c, mt := newMocked(t)
	var got map[string]any
	mt.RegisterResponder(http.MethodPatch, base+"/alerts/42",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			raw, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, &got))
			return httpmock.NewStringResponse(200, `{}`), nil
		})

	name, city, rooms, method := "A", "Warszawa", 2, alert.NotifyEmail
	err := c.UpdateAlert(context.Background(), "42", alert.Patch{
		Name:               &name,
		City:               &city,
		MinRooms:           &rooms,
		NotificationMethod: &method,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":               "A",
		"city":               "Warszawa",
		"minRooms":           float64(2),
		"notificationMethod": "EMAIL",
	}, got)
}

func TestUpdateAlert_ValidationMessage(t *testing.T) {
	c, mt := newMocked(t)
	mt.RegisterResponder(http.MethodPatch, base+"/alerts/42",
		httpmock.NewStringResponder(400, `{"statusCode":400,"message":["minPrice must be a number","city should not be empty"]}`))

	err := c.UpdateAlert(context.Background(), "42", alert.Patch{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 400, ve.Status)
	assert.Equal(t, "minPrice must be a number; city should not be empty", ve.Message)
}

func TestUpdateAlert_EmptyID(t *testing.T) {
	c, _ := newMocked(t)
	assert.Error(t, c.UpdateAlert(context.Background(), "", alert.Patch{}))
}

func TestLogin_AcceptsEitherTokenField(t *testing.T) {
	c, mt := newMocked(t)
	mt.RegisterResponder(http.MethodPost, base+"/auth/login", httpmock.NewStringResponder(201, `{"access_token":"jwt-1"}`))

	tok, err := c.Login(context.Background(), Credentials{Email: "ola@example.com", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", tok)

	mt.RegisterResponder(http.MethodPost, base+"/auth/login", httpmock.NewStringResponder(200, `{"token":"jwt-2"}`))
	tok, err = c.Login(context.Background(), Credentials{Email: "ola@example.com", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "jwt-2", tok)

	mt.RegisterResponder(http.MethodPost, base+"/auth/login", httpmock.NewStringResponder(200, `{}`))
	_, err = c.Login(context.Background(), Credentials{})
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestServerMessage(t *testing.T) {
	cases := []struct {
		name, ct, body, want string
	}{
		{"json string", "application/json", `{"message":"nope"}`, "nope"},
		{"json error", "application/json; charset=utf-8", `{"error":"Bad Request"}`, "Bad Request"},
		{"plain", "text/plain", "  just text ", "just text"},
		{"empty", "application/json", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, serverMessage(tc.ct, []byte(tc.body)))
		})
	}
}

func TestAlertPath_EscapesIDOnce(t *testing.T) {
	cases := map[string]string{
		"42":  "/v1/alerts/42",
		"a b": "/v1/alerts/a%20b",
		"x/y": "/v1/alerts/x%2Fy",
		"50%": "/v1/alerts/50%25",
	}
	for id, want := range cases {
		t.Run(id, func(t *testing.T) {
			c, mt := newMocked(t)
			var got string
			mt.RegisterNoResponder(func(req *http.Request) (*http.Response, error) {
				got = req.URL.EscapedPath()
				return httpmock.NewStringResponse(200, `{"id":"x","name":"A","city":"B"}`), nil
			})

			_, err := c.FetchAlert(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			require.NoError(t, c.UpdateAlert(context.Background(), id, alert.Patch{}))
			assert.Equal(t, want, got)
		})
	}
}

func TestFetchAlert_SpaceInIDHitsEscapedRoute(t *testing.T) {
	c, mt := newMocked(t)
	mt.RegisterResponder(http.MethodGet, base+"/alerts/a%20b",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, base+"/alerts/a%20b", req.URL.String())
			return httpmock.NewStringResponse(200, `{"id":"a b","name":"A","city":"B"}`), nil
		})

	rec, err := c.FetchAlert(context.Background(), "a b")
	require.NoError(t, err)
	assert.Equal(t, "a b", rec.ID)
}
