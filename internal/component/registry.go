// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  At boot the app hands every
// registered component the shared Deps via Init(), then lets it add its
// routes to the root router.  Components never reach for globals; whatever
// they need travels in Deps.
//
// Notes
// -----
// • Components register routes on the root router rather than being
//   mounted at “/”, so several of them can share the root.
// • Oxford commas, two spaces after periods.

package component

import (
	"context"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/mieszkaniownik/internal/api"
	"github.com/yanizio/mieszkaniownik/internal/editor"
	"github.com/yanizio/mieszkaniownik/internal/form"
	"github.com/yanizio/mieszkaniownik/internal/session"
	"github.com/yanizio/mieszkaniownik/internal/view"
)

// Component contract.
//
// Routes() should register page endpoints on r, e.g:
//
//	r.Get("/login", c.getLogin)
//	r.Post("/login", c.postLogin)
type Component interface {
	Name() string
	Init(*Deps) error
	Routes(r chi.Router)
}

// Authenticator exchanges credentials for an API token.  *api.Client
// satisfies it.
type Authenticator interface {
	Login(ctx context.Context, cr api.Credentials) (string, error)
}

// Deps are the shared services every component may use.
type Deps struct {
	Views    *view.Engine
	Sessions *session.Manager
	Forms    *form.Registry
	Alerts   editor.Store
	Accounts Authenticator
	Routes   editor.Routes
	Log      *zap.SugaredLogger

	// OverrideDir mirrors templates.override_dir; forms are read from
	// <OverrideDir>/components/<name>/forms.
	OverrideDir string
}

// LoadForms registers the component's embedded forms/*.yaml, then any
// operator overrides on disk.
func (d *Deps) LoadForms(name string, fsys fs.FS) error {
	if err := d.Forms.Load(fsys, "forms"); err != nil {
		return err
	}
	if d.OverrideDir == "" {
		return nil
	}
	return d.Forms.Load(os.DirFS(filepath.Join(d.OverrideDir, "components", name)), "forms")
}

// Page seeds render data: pending flashes, identity, and the logout token.
// It rewrites the session cookie, so call it before writing the body.
func (d *Deps) Page(w http.ResponseWriter, r *http.Request) *view.Page {
	p := view.NewPage(r, d.Sessions.Flashes(w, r))
	if _, ok := d.Sessions.SessionToken(r); ok {
		p.SignedIn = true
	}
	if p.SignedIn {
		if tok, err := d.Forms.Token(); err == nil {
			p.CSRF = tok
		}
	}
	return p
}

// Flash queues a banner and logs when the cookie cannot be written.
func (d *Deps) Flash(w http.ResponseWriter, r *http.Request, kind, msg string) {
	if err := d.Sessions.AddFlash(w, r, session.Flash{Kind: kind, Message: msg}); err != nil {
		d.Log.Warnw("flash not stored", "err", err)
	}
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
