// internal/auth/identify.go
//
// Identify middleware: session token → request context.
//
// The token lives in the session cookie (internal/session).  On every
// request we copy it into the context for the API client and, when it
// verifies against the shared HS256 secret, derive a User from its claims.
// Verification failures are logged at debug level and otherwise ignored;
// the guard on protected pages decides what to do.

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// TokenSource yields the persisted session token for r.
type TokenSource interface {
	SessionToken(r *http.Request) (string, bool)
}

// Identify attaches the token and, when verifiable, the user to the request
// context.  An empty secret disables local verification.
func Identify(src TokenSource, secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := src.SessionToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithToken(r.Context(), tok)
			if len(secret) > 0 {
				u, err := ParseUser(tok, secret)
				if err != nil {
					zap.S().Debugw("session token not verified", "err", err)
				} else {
					ctx = WithUser(ctx, u)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ParseUser verifies an HS256 token and extracts the user.  The id comes
// from "userId" or "sub", either numeric or string.
func ParseUser(raw string, secret []byte) (User, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return User{}, fmt.Errorf("auth: parse token: %w", err)
	}

	u := User{}
	u.Email, _ = claims["email"].(string)
	for _, key := range []string{"userId", "sub"} {
		if id := claimString(claims[key]); id != "" {
			u.ID = id
			break
		}
	}
	if u.ID == "" && u.Email == "" {
		return User{}, errors.New("auth: token carries no identity claims")
	}
	return u, nil
}

// claimString normalises numeric (float64 after JSON decode) and string ids.
func claimString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return ""
	}
}
