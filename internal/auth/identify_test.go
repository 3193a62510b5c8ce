package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func sign(t *testing.T, claims jwt.MapClaims, key []byte) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

type staticSource string

func (s staticSource) SessionToken(*http.Request) (string, bool) { return string(s), s != "" }

func TestParseUser_NumericSub(t *testing.T) {
	raw := sign(t, jwt.MapClaims{"sub": 12, "email": "ola@example.com", "exp": time.Now().Add(time.Hour).Unix()}, secret)
	u, err := ParseUser(raw, secret)
	if err != nil {
		t.Fatalf("ParseUser: %v", err)
	}
	if u.ID != "12" || u.Email != "ola@example.com" {
		t.Fatalf("got %+v", u)
	}
}

func TestParseUser_RejectsWrongKeyAndExpired(t *testing.T) {
	raw := sign(t, jwt.MapClaims{"sub": "1"}, []byte("another-secret-another-secret-00"))
	if _, err := ParseUser(raw, secret); err == nil {
		t.Fatalf("expected signature error")
	}

	raw = sign(t, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(-time.Minute).Unix()}, secret)
	if _, err := ParseUser(raw, secret); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestParseUser_NoIdentityClaims(t *testing.T) {
	raw := sign(t, jwt.MapClaims{"role": "user"}, secret)
	if _, err := ParseUser(raw, secret); err == nil {
		t.Fatalf("expected error for token without identity")
	}
}

func TestIdentify_PlacesTokenAndUser(t *testing.T) {
	raw := sign(t, jwt.MapClaims{"userId": "u-9", "email": "jan@example.pl"}, secret)

	var gotTok string
	var gotUser User
	var hasUser bool
	h := Identify(staticSource(raw), secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTok, _ = Token(r.Context())
		gotUser, hasUser = UserFrom(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if gotTok != raw {
		t.Fatalf("token not forwarded")
	}
	if !hasUser || gotUser.ID != "u-9" {
		t.Fatalf("user = %+v, %v", gotUser, hasUser)
	}
}

func TestIdentify_OpaqueTokenStillForwarded(t *testing.T) {
	var hasTok, hasUser bool
	h := Identify(staticSource("not-a-jwt"), secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasTok = Token(r.Context())
		_, hasUser = UserFrom(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !hasTok || hasUser {
		t.Fatalf("hasTok=%v hasUser=%v, want true false", hasTok, hasUser)
	}
}

func TestIdentify_NoSession(t *testing.T) {
	called := false
	h := Identify(staticSource(""), secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := Token(r.Context()); ok {
			t.Fatalf("unexpected token")
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatalf("next not called")
	}
}
