// components/alerts/alerts.go
//
// Alert edit page.
//
// Context
// -------
// Binds the alert editor to HTTP.  Every request builds a fresh Editor for
// the alert id in the path, ties it to the request context (a client that
// goes away unmounts it), and turns its Outcome into a page or a 303.
//
// Routes
// ------
//   - GET  /alerts/{id}/edit – guard, fetch, and render the prefilled form.
//   - POST /alerts/{id}/edit – one round-trip of the form.  The pressed
//     button decides the operation:
//       • remove_keyword=<k> – drop k, re-render.
//       • op=add_keyword     – add the pending keyword, re-render.
//       • op=save (default)  – validate, PATCH, then redirect to matches.
//
// Notes
// -----
// • The posted form is the buffer, so nothing is fetched on POST.
// • Keyword round-trips only check CSRF; required fields may be empty
//   while the user is still typing.
// • Oxford commas, two spaces after periods.
package alerts

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/mieszkaniownik/internal/alert"
	"github.com/yanizio/mieszkaniownik/internal/component"
	"github.com/yanizio/mieszkaniownik/internal/editor"
	"github.com/yanizio/mieszkaniownik/internal/form"
	"github.com/yanizio/mieszkaniownik/internal/logger"
	"github.com/yanizio/mieszkaniownik/internal/session"
)

// FormID names the edit form definition.
const FormID = "alerts/edit"

//go:embed forms/*.yaml templates/*.html
var assets embed.FS

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component serves the alert edit page.
type Component struct {
	d *component.Deps
}

// New returns an uninitialised Component.
func New() *Component { return &Component{} }

func init() { component.Register(New()) }

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "alerts" }

// Init loads the edit form and keeps the shared services.
func (c *Component) Init(d *component.Deps) error {
	c.d = d
	return d.LoadForms(c.Name(), assets)
}

// Routes registers the edit page.
func (c *Component) Routes(r chi.Router) {
	r.Get("/alerts/{id}/edit", c.getEdit)
	r.Post("/alerts/{id}/edit", c.postEdit)
}

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) getEdit(w http.ResponseWriter, r *http.Request) {
	ed := c.editor(r)
	defer ed.BindContext(r.Context())()

	out, err := ed.Mount(r.Context(), c.d.Sessions.For(w, r))
	if err != nil {
		c.abandon(r, err)
		return
	}
	c.finish(w, r, ed, out)
}

func (c *Component) postEdit(w http.ResponseWriter, r *http.Request) {
	ed := c.editor(r)
	defer ed.BindContext(r.Context())()

	sess := c.d.Sessions.For(w, r)
	if out, ok := ed.Guard(sess); !ok {
		c.finish(w, r, ed, out)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	posted := r.PostForm
	if err := ed.Restore(posted); err != nil {
		c.abandon(r, err)
		return
	}

	if !c.d.Forms.VerifyCSRF(posted) {
		ed.Fail(nil, form.MsgCSRF)
		c.render(w, r, ed, http.StatusForbidden)
		return
	}

	switch {
	case posted.Has(alert.FieldRemoveKeyword):
		if _, err := ed.RemoveKeyword(posted.Get(alert.FieldRemoveKeyword)); err != nil {
			c.abandon(r, err)
			return
		}
		c.render(w, r, ed, http.StatusOK)

	case posted.Get("op") == alert.OpAddKeyword:
		if _, err := ed.AddKeyword(posted.Get(alert.FieldKeywordInput)); err != nil {
			c.abandon(r, err)
			return
		}
		c.render(w, r, ed, http.StatusOK)

	default:
		if _, ferrs := c.d.Forms.Validate(FormID, posted); len(ferrs) > 0 {
			ed.Fail(toAlertErrors(ferrs), "")
			c.render(w, r, ed, http.StatusUnprocessableEntity)
			return
		}
		out, err := ed.Submit(r.Context(), sess)
		if err != nil {
			c.abandon(r, err)
			return
		}
		c.finish(w, r, ed, out)
	}
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

func (c *Component) editor(r *http.Request) *editor.Editor {
	return editor.New(chi.URLParam(r, "id"), c.d.Alerts, c.d.Routes, logger.FromContext(r.Context()))
}

// finish applies an Outcome: redirect (with optional flash) or render.
func (c *Component) finish(w http.ResponseWriter, r *http.Request, ed *editor.Editor, out editor.Outcome) {
	if out.Navigates() {
		if out.Flash != "" {
			c.d.Flash(w, r, session.FlashError, out.Flash)
		}
		http.Redirect(w, r, out.Redirect, http.StatusSeeOther)
		return
	}
	c.render(w, r, ed, out.Status)
}

// abandon handles an editor that can no longer answer.  Unmounted means the
// client is gone, so nothing is written.
func (c *Component) abandon(r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	if errors.Is(err, editor.ErrUnmounted) {
		log.Debugw("request gone before the editor finished", "path", r.URL.Path)
		return
	}
	log.Errorw("alert editor refused request", "path", r.URL.Path, "err", err)
}

// editPage is the view model of edit.html.
type editPage struct {
	View     editor.View
	NotFound bool
	Title    string
	Intro    string
	Form     template.HTML
	Action   string
	Back     string
}

func (c *Component) render(w http.ResponseWriter, r *http.Request, ed *editor.Editor, status int) {
	v := ed.View()
	p := c.d.Page(w, r)
	p.Head.NoIndex()

	data := editPage{
		View:     v,
		NotFound: v.State == editor.StateNotFound,
		Action:   r.URL.Path,
		Back:     c.d.Routes.Alerts,
	}

	if fd, ok := c.d.Forms.Get(FormID); ok {
		data.Title, data.Intro = fd.Title, fd.Intro
	}
	p.Head.SetTitle(data.Title)

	if !data.NotFound {
		prefill := make(map[string]string, len(v.Buffer.Values)+1)
		for k, val := range v.Buffer.Values {
			prefill[k] = val
		}
		prefill[alert.FieldKeywordInput] = v.Buffer.KeywordInput

		html, err := c.d.Forms.Render(FormID, form.RenderOptions{
			Prefill: prefill,
			Lists:   map[string][]string{alert.FieldKeywords: v.Buffer.Keywords},
			Errors:  toFormErrors(v.Errors),
		})
		if err != nil {
			logger.FromContext(r.Context()).Errorw("form render failed", "form", FormID, "err", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		data.Form = html
	}

	p.Data = data
	if err := c.d.Views.Render(w, status, c.Name(), assets, "edit", p); err != nil {
		logger.FromContext(r.Context()).Errorw("render failed", "template", "alerts/edit", "err", err)
	}
}

func toAlertErrors(in []form.ErrorField) []alert.FieldError {
	out := make([]alert.FieldError, 0, len(in))
	for _, e := range in {
		out = append(out, alert.FieldError{Field: e.Name, Message: e.Message})
	}
	return out
}

func toFormErrors(in []alert.FieldError) []form.ErrorField {
	out := make([]form.ErrorField, 0, len(in))
	for _, e := range in {
		out = append(out, form.ErrorField{Name: e.Field, Message: e.Message})
	}
	return out
}
