// components/notfound/notfound.go
//
// Static 404 page.  It is the router's NotFound handler, so it registers no
// routes of its own.  No I/O beyond rendering; the only action is a link
// back to “/”.
package notfound

import (
	"embed"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/mieszkaniownik/internal/component"
	"github.com/yanizio/mieszkaniownik/internal/logger"
)

//go:embed templates/*.html
var assets embed.FS

var _ component.Component = (*Component)(nil)

// Component renders the not-found view.
type Component struct {
	d *component.Deps
}

// New returns an uninitialised Component.
func New() *Component { return &Component{} }

func init() { component.Register(New()) }

// Name returns the canonical component key.
func (c *Component) Name() string { return "notfound" }

// Init keeps the shared services.
func (c *Component) Init(d *component.Deps) error {
	c.d = d
	return nil
}

// Routes installs the page as the router's fallback.
func (c *Component) Routes(r chi.Router) { r.NotFound(c.ServeHTTP) }

// ServeHTTP renders the page with status 404.
func (c *Component) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := c.d.Page(w, r)
	p.Head.SetTitle("Strona nie została znaleziona")
	p.Head.NoIndex()
	if err := c.d.Views.Render(w, http.StatusNotFound, c.Name(), assets, "notfound", p); err != nil {
		logger.FromContext(r.Context()).Errorw("render failed", "template", "notfound", "err", err)
	}
}
