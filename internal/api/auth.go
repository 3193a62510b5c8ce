package api

import (
	"context"
	"errors"
)

// Credentials is the body of POST /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse accepts both token spellings seen from the backend.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
}

// ErrNoToken is returned when the login call succeeds without a token.
var ErrNoToken = errors.New("api: login response carried no token")

// Login exchanges credentials for a session token.  Bad credentials come
// back as ErrUnauthorized or *ValidationError depending on the backend.
func (c *Client) Login(ctx context.Context, cr Credentials) (string, error) {
	var out loginResponse
	if err := c.Post(ctx, "/auth/login", cr, &out); err != nil {
		return "", err
	}
	switch {
	case out.AccessToken != "":
		return out.AccessToken, nil
	case out.Token != "":
		return out.Token, nil
	default:
		return "", ErrNoToken
	}
}
