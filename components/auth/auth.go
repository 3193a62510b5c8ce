// components/auth/auth.go
//
// Authentication component: login and logout.
//
// Context
// -------
// The alert API issues the token; this component only collects the
// credentials, stores the returned token in the session cookie, and ends the
// session on logout.  The alert editor's guard sends anonymous visitors here.
//
// Routes
// ------
//   - GET  /login  – login form.  Signed-in visitors go straight to alerts.
//   - POST /login  – validate, call the API, store the token, redirect.
//   - POST /logout – CSRF-checked; clears the session.
//
//------------------------------------------------------------------------------

package auth

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/mieszkaniownik/internal/api"
	"github.com/yanizio/mieszkaniownik/internal/component"
	"github.com/yanizio/mieszkaniownik/internal/form"
	"github.com/yanizio/mieszkaniownik/internal/logger"
)

// FormID names the login form definition.
const FormID = "auth/login"

// User-facing messages.
const (
	MsgBadCredentials = "Nieprawidłowy email lub hasło."
	MsgLoginFailed    = "Błąd: Nie udało się zalogować"
)

//go:embed forms/*.yaml templates/*.html
var assets embed.FS

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component encapsulates login functionality.
type Component struct {
	d *component.Deps
}

// New returns an uninitialised Component.
func New() *Component { return &Component{} }

// Register component at program start.
func init() { component.Register(New()) }

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "auth" }

// Init loads the login form.
func (c *Component) Init(d *component.Deps) error {
	c.d = d
	return d.LoadForms(c.Name(), assets)
}

// Routes registers login and logout.
func (c *Component) Routes(r chi.Router) {
	r.Get(c.d.Routes.Login, c.handleLoginGET)
	r.Post(c.d.Routes.Login, c.handleLoginPOST)
	r.Post("/logout", c.handleLogout)
}

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) handleLoginGET(w http.ResponseWriter, r *http.Request) {
	if _, ok := c.d.Sessions.SessionToken(r); ok {
		http.Redirect(w, r, c.d.Routes.Alerts, http.StatusSeeOther)
		return
	}
	c.render(w, r, http.StatusOK, form.RenderOptions{}, "")
}

func (c *Component) handleLoginPOST(w http.ResponseWriter, r *http.Request) {
	data, err := c.d.Forms.HandleSubmit(FormID, r)
	if err != nil {
		if form.IsValidationError(err) {
			c.render(w, r, http.StatusUnprocessableEntity, form.RenderOptions{
				Errors:  form.FieldErrors(err),
				Prefill: prefill(r),
			}, "")
			return
		}
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	log := logger.FromContext(r.Context())
	tok, err := c.d.Accounts.Login(r.Context(), api.Credentials{
		Email:    data["email"],
		Password: data["password"],
	})
	if err != nil {
		var ve *api.ValidationError
		if errors.Is(err, api.ErrUnauthorized) || errors.As(err, &ve) {
			log.Infow("login refused", "err", err)
			c.render(w, r, http.StatusUnprocessableEntity, form.RenderOptions{
				Errors:  []form.ErrorField{{Name: "password", Message: MsgBadCredentials}},
				Prefill: prefill(r),
			}, "")
			return
		}
		log.Errorw("login failed", "err", err)
		c.render(w, r, http.StatusBadGateway, form.RenderOptions{Prefill: prefill(r)}, MsgLoginFailed)
		return
	}

	if err := c.d.Sessions.SetToken(w, r, tok); err != nil {
		log.Errorw("session save failed", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, c.d.Routes.Alerts, http.StatusSeeOther)
}

func (c *Component) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !c.d.Forms.VerifyCSRF(r.PostForm) {
		http.Error(w, form.MsgCSRF, http.StatusForbidden)
		return
	}
	if err := c.d.Sessions.Clear(w, r); err != nil {
		logger.FromContext(r.Context()).Warnw("session clear failed", "err", err)
	}
	http.Redirect(w, r, c.d.Routes.Login, http.StatusSeeOther)
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

type loginPage struct {
	Title  string
	Banner string
	Form   template.HTML
	Action string
}

func (c *Component) render(w http.ResponseWriter, r *http.Request, status int, opts form.RenderOptions, banner string) {
	log := logger.FromContext(r.Context())

	html, err := c.d.Forms.Render(FormID, opts)
	if err != nil {
		log.Errorw("form render failed", "form", FormID, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	data := loginPage{Banner: banner, Form: html, Action: c.d.Routes.Login}
	if fd, ok := c.d.Forms.Get(FormID); ok {
		data.Title = fd.Title
	}

	p := c.d.Page(w, r)
	p.Head.SetTitle(data.Title)
	p.Data = data
	if err := c.d.Views.Render(w, status, c.Name(), assets, "login", p); err != nil {
		log.Errorw("render failed", "template", "auth/login", "err", err)
	}
}

// prefill keeps the email across a failed attempt.  The password never
// comes back.
func prefill(r *http.Request) map[string]string {
	return map[string]string{"email": r.PostForm.Get("email")}
}
