// internal/auth/context.go
//
// Request-scoped identity helpers.
//
// Usage
// -----
//     // Identify middleware, after the session cookie is decoded.
//     ctx = auth.WithToken(ctx, tok)
//     ctx = auth.WithUser(ctx, auth.User{Email: "jan@example.pl"})
//
//     // Downstream code (API client, editor guard).
//     tok, ok := auth.Token(ctx)
//     u, ok := auth.UserFrom(ctx)
//
// Notes
// -----
// • The token is forwarded verbatim to the alert API as a bearer token.
// • The user is only present when the token verified locally; an
//   unverifiable token still travels, the API has the final word.
// • Oxford commas, two spaces after periods.

package auth

import "context"

// User is the in-memory identity derived from a verified token.
type User struct {
	ID    string
	Email string
}

// userKey and tokenKey are unexported to avoid context-key collisions.
type (
	userKey  struct{}
	tokenKey struct{}
)

// WithUser returns a new context carrying u.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom extracts the user from ctx.  It returns (User{}, false) when no
// user is set.
func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey{}).(User)
	return u, ok
}

// WithToken returns a new context carrying the raw session token.
func WithToken(ctx context.Context, tok string) context.Context {
	return context.WithValue(ctx, tokenKey{}, tok)
}

// Token extracts the raw session token.  Empty tokens report false.
func Token(ctx context.Context) (string, bool) {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok, tok != ""
}
