// internal/view/render.go
//
// Central view engine: template lookup, override chain, func-map injection,
// and an LRU of parsed *template.Template* sets.
//
// Public helpers
// --------------
//   - Engine.Render  – execute a page inside the shared layout and write it
//     to an http.ResponseWriter with the given status.
//   - NewPage        – seed the per-request render data.
//
// Lookup precedence (first hit wins):
//  1. <override>/components/<comp>/templates/<tpl>.html
//  2. templates/<tpl>.html inside the component's embedded fs.FS
//
// The layout follows the same rule: <override>/layout.html, else the
// embedded templates/layout.html.  A page template defines "content" (and
// may define any helper it needs); the engine always executes "layout".
//
// Rendering goes to a buffer first, so a template error still produces a
// clean 500 instead of half a page.
//
// Style
// -----
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/yanizio/mieszkaniownik/internal/auth"
	"github.com/yanizio/mieszkaniownik/internal/cache"
	"github.com/yanizio/mieszkaniownik/internal/head"
	"github.com/yanizio/mieszkaniownik/internal/requestinfo"
	"github.com/yanizio/mieszkaniownik/internal/session"
)

//go:embed templates/*.html
var embedded embed.FS

// DefaultCacheSize bounds the parsed-set LRU when the caller passes 0.
const DefaultCacheSize = 256

// Page is the data handed to the layout.  Components put their own view
// model in Data.
type Page struct {
	Head     *head.Builder
	Flashes  []session.Flash
	User     *auth.User
	SignedIn bool // a session token exists, with or without a decoded User
	Info     *requestinfo.Info
	CSRF     string // token for the logout form
	Data     any
}

// NewPage seeds a Page from the request context: identity, request info,
// and a fresh head builder.
func NewPage(r *http.Request, flashes []session.Flash) *Page {
	p := &Page{
		Head:    head.New(),
		Flashes: flashes,
		Info:    requestinfo.FromContext(r.Context()),
	}
	if u, ok := auth.UserFrom(r.Context()); ok {
		p.User = &u
		p.SignedIn = true
	}
	return p
}

// Engine renders component templates.  Safe for concurrent use.
type Engine struct {
	override string
	nocache  bool
	sets     *cache.LRU[string, *template.Template]
}

// Option tweaks an Engine.
type Option func(*Engine)

// WithOverrideDir makes templates under dir win over embedded ones.
func WithOverrideDir(dir string) Option { return func(e *Engine) { e.override = dir } }

// WithoutCache re-parses on every render (development).
func WithoutCache() Option { return func(e *Engine) { e.nocache = true } }

// New returns an Engine.  size <= 0 selects DefaultCacheSize.
func New(size int, opts ...Option) *Engine {
	if size <= 0 {
		size = DefaultCacheSize
	}
	e := &Engine{sets: cache.New[string, *template.Template](size)}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Render executes comp/name inside the layout and writes it with status.
func (e *Engine) Render(w http.ResponseWriter, status int, comp string, fsys fs.FS, name string, p *Page) error {
	t, err := e.load(comp, fsys, name)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return fmt.Errorf("view: execute %s/%s: %w", comp, name, err)
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

//
// internal: load
//

func (e *Engine) load(comp string, fsys fs.FS, name string) (*template.Template, error) {
	key := comp + "::" + name
	if !e.nocache {
		if t, ok := e.sets.Get(key); ok {
			return t, nil
		}
	}

	layout, err := e.source(filepath.Join(e.override, "layout.html"), embedded, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("view: layout: %w", err)
	}
	page, err := e.source(
		filepath.Join(e.override, "components", comp, "templates", name+".html"),
		fsys, path.Join("templates", name+".html"),
	)
	if err != nil {
		return nil, fmt.Errorf("view: %s/%s: %w", comp, name, err)
	}

	t, err := template.New("layout").Funcs(funcMap()).Parse(string(layout))
	if err != nil {
		return nil, fmt.Errorf("view: parse layout: %w", err)
	}
	if _, err := t.New(name).Parse(string(page)); err != nil {
		return nil, fmt.Errorf("view: parse %s/%s: %w", comp, name, err)
	}

	if !e.nocache {
		e.sets.Add(key, t)
	}
	return t, nil
}

// source reads the override file when an override dir is configured and the
// file exists, else the embedded one.
func (e *Engine) source(overridePath string, fsys fs.FS, name string) ([]byte, error) {
	if e.override != "" {
		b, err := os.ReadFile(overridePath)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if fsys == nil {
		return nil, fs.ErrNotExist
	}
	return fs.ReadFile(fsys, name)
}

//
// func-map
//

func funcMap() template.FuncMap {
	fm := template.FuncMap{
		"dict": dict,
	}
	for k, v := range uaFuncMap() {
		fm[k] = v
	}
	return fm
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}

//go:embed static
var staticFS embed.FS

// Static serves the embedded stylesheet and form script under prefix.
func Static(prefix string) http.Handler {
	sub, _ := fs.Sub(staticFS, "static")
	return http.StripPrefix(prefix, http.FileServer(http.FS(sub)))
}
