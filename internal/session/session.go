// internal/session/session.go
//
// Cookie session: API token and one-shot flash banners.
//
// Context
//   The browser never sees the API token directly.  After login we store it
//   in a signed and encrypted cookie (gorilla/sessions CookieStore) under the
//   key “mieszkaniownik:token”.  Flash banners survive exactly one redirect:
//   they are added before a 303 and consumed by the next page render.
//
// Workflow
//   •  Manager is built once in main from config (secret, max age, secure).
//   •  Manager.SessionToken feeds auth.Identify on every request.
//   •  Manager.For(w, r) binds the manager to one request and satisfies the
//      editor's session provider interface.
//
// Notes
//   •  Store errors (tampered or expired cookie) read as “no session”.
//   •  Oxford commas, two spaces after periods.
//
//------------------------------------------------------------------------------

package session

import (
	"crypto/sha256"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/yanizio/mieszkaniownik/internal/auth"
)

const (
	// CookieName names the session cookie.
	CookieName = "mieszkaniownik"
	// TokenKey is the session value holding the API token.
	TokenKey = "mieszkaniownik:token"
)

// Flash kinds map to banner styles in the layout.
const (
	FlashError   = "error"
	FlashSuccess = "success"
)

// Flash is one banner message.
type Flash struct {
	Kind    string
	Message string
}

// Options configures the cookie.
type Options struct {
	Secret []byte
	MaxAge int // seconds, 0 means browser session
	Secure bool
	Path   string
}

// Manager wraps the cookie store.  Safe for concurrent use.
type Manager struct {
	store *sessions.CookieStore
}

// New builds a Manager.  The secret signs the cookie; a second key derived
// from it encrypts the payload.
func New(o Options) (*Manager, error) {
	if len(o.Secret) < 32 {
		return nil, fmt.Errorf("session: secret must be at least 32 bytes, got %d", len(o.Secret))
	}
	enc := sha256.Sum256(append([]byte("enc:"), o.Secret...))
	st := sessions.NewCookieStore(o.Secret, enc[:])

	path := o.Path
	if path == "" {
		path = "/"
	}
	st.Options = &sessions.Options{
		Path:     path,
		MaxAge:   o.MaxAge,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	st.MaxAge(o.MaxAge)
	return &Manager{store: st}, nil
}

func (m *Manager) get(r *http.Request) *sessions.Session {
	s, err := m.store.Get(r, CookieName)
	if err != nil {
		// Get still returns a fresh session alongside decode errors.
		s, _ = m.store.New(r, CookieName)
	}
	return s
}

// SessionToken implements auth.TokenSource.
func (m *Manager) SessionToken(r *http.Request) (string, bool) {
	tok, _ := m.get(r).Values[TokenKey].(string)
	return tok, tok != ""
}

// SetToken persists tok for subsequent requests.
func (m *Manager) SetToken(w http.ResponseWriter, r *http.Request, tok string) error {
	s := m.get(r)
	s.Values[TokenKey] = tok
	return s.Save(r, w)
}

// Clear drops the token and expires the cookie.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	s := m.get(r)
	delete(s.Values, TokenKey)
	s.Options.MaxAge = -1
	return s.Save(r, w)
}

// AddFlash queues a banner for the next render.  A cleared session cannot
// carry flashes, so callers clear first and flash on the login page.
func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, f Flash) error {
	s := m.get(r)
	s.AddFlash(f.Message, f.Kind)
	return s.Save(r, w)
}

// Flashes consumes pending banners.  Must run before the response body is
// written because it rewrites the cookie.
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request) []Flash {
	s := m.get(r)
	var out []Flash
	for _, kind := range []string{FlashError, FlashSuccess} {
		for _, v := range s.Flashes(kind) {
			if msg, ok := v.(string); ok {
				out = append(out, Flash{Kind: kind, Message: msg})
			}
		}
	}
	if len(out) > 0 {
		_ = s.Save(r, w)
	}
	return out
}

// -----------------------------------------------------------------------------
// Request-bound view
// -----------------------------------------------------------------------------

// Request binds a Manager to one request.  It is what page handlers hand to
// the alert editor as its session provider.
type Request struct {
	m *Manager
	w http.ResponseWriter
	r *http.Request
}

// For returns the session view for one request.
func (m *Manager) For(w http.ResponseWriter, r *http.Request) *Request {
	return &Request{m: m, w: w, r: r}
}

// CurrentUser reports the in-memory user placed by auth.Identify.
func (s *Request) CurrentUser() (auth.User, bool) { return auth.UserFrom(s.r.Context()) }

// Token reports the persisted session token.
func (s *Request) Token() (string, bool) { return s.m.SessionToken(s.r) }

// Clear ends the session.
func (s *Request) Clear() error { return s.m.Clear(s.w, s.r) }
