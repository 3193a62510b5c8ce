// internal/form/csrf.go
//
// Forms subsystem: stateless CSRF token utilities.
//
// Context
//   Every rendered form embeds a hidden `csrf_token` input.  The server must
//   verify this token on POST to ensure the request originated from a form it
//   rendered.  We implement a *stateless* token:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(secret, nonce+unixMicro) )
//
//   •  nonce – 16 random bytes.
//   •  unixMicro – microseconds since Unix epoch, 8 bytes, big-endian.
//   •  HMAC – calculated with the configured secret (csrf.secret).
//
//   Validation checks the signature and ensures the timestamp is within
//   maxAge.  No server-side state is required, so several instances behind a
//   load balancer accept each other's tokens.
//
// Workflow
//   •  NewCSRF(secret, maxAge) → *CSRF, built once in main.
//   •  GenerateToken()         → token string for the renderer.
//   •  VerifyToken(tok)        → constant-time verify; false on any failure.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"time"

	"go.uber.org/zap"
)

const (
	tokenBytes    = 16 + 8 + sha256.Size // nonce + ts + sig
	defaultMaxAge = 2 * time.Hour        // token valid window
	clockSkew     = time.Minute
)

// CSRF issues and verifies tokens.  Safe for concurrent use.
type CSRF struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewCSRF returns a token service.  An empty secret selects a random one,
// which invalidates outstanding tokens on every restart.  maxAge <= 0
// selects two hours.
func NewCSRF(secret []byte, maxAge time.Duration) *CSRF {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
		zap.S().Warnw("csrf.secret not set, using an ephemeral key")
	}
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	return &CSRF{secret: secret, maxAge: maxAge, now: time.Now}
}

// GenerateToken creates a new CSRF token.  Call once per form render.
func (c *CSRF) GenerateToken() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(c.now().UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, c.sign(nonce, ts)...)

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// VerifyToken returns true if tok passes HMAC and age checks.
func (c *CSRF) VerifyToken(tok string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}

	nonce := raw[:16]
	tsBytes := raw[16:24]
	sig := raw[24:]

	// Timestamp window check.
	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(tsBytes)))
	now := c.now()
	if now.Sub(issued) > c.maxAge || issued.Sub(now) > clockSkew {
		return false
	}

	return hmac.Equal(sig, c.sign(nonce, tsBytes))
}

func (c *CSRF) sign(nonce, ts []byte) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(nonce)
	mac.Write(ts)
	return mac.Sum(nil)
}
