// internal/app/app.go
//
// Application wiring.
//
// Context
// -------
// Build turns a loaded Config into a ready http.Handler: it opens the
// optional GeoIP database, builds the session store, CSRF signer, form
// registry, API client, and view engine, initialises every registered
// component, and assembles the chi router.
//
// Middleware order
// ----------------
//
//	RequestID → Enrich (request info + access log) → Security headers →
//	ForceHTTPS (optional) → rate limit (POST only, keyword round-trips
//	exempt) → Identify (session user)
//
// Routes
// ------
//   - /static/*   – embedded stylesheet.
//   - /metrics    – Prometheus exposition.
//   - /           – redirect to the alert list.
//   - components  – whatever each registered component adds, plus the
//     notfound component as the fallback.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package app

import (
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/mieszkaniownik/internal/alert"
	"github.com/yanizio/mieszkaniownik/internal/api"
	"github.com/yanizio/mieszkaniownik/internal/auth"
	"github.com/yanizio/mieszkaniownik/internal/component"
	"github.com/yanizio/mieszkaniownik/internal/config"
	"github.com/yanizio/mieszkaniownik/internal/editor"
	"github.com/yanizio/mieszkaniownik/internal/form"
	"github.com/yanizio/mieszkaniownik/internal/middleware"
	"github.com/yanizio/mieszkaniownik/internal/requestinfo"
	"github.com/yanizio/mieszkaniownik/internal/session"
	"github.com/yanizio/mieszkaniownik/internal/view"
)

var editPath = regexp.MustCompile(`^/alerts/[^/]+/edit$`)

// App is the assembled web front end.
type App struct {
	Handler http.Handler
	geo     *requestinfo.GeoDB
}

// Close releases the GeoIP reader.
func (a *App) Close() error { return a.geo.Close() }

// Options are the router-level switches taken from Config.
type Options struct {
	ForceHTTPS     bool
	HSTS           bool
	TrustProxy     bool
	RateLimitRPS   float64
	RateLimitBurst int
	JWTSecret      []byte
	Geo            *requestinfo.GeoDB
}

// Build wires every service from cfg.  One API client serves both the alert
// store and the login call.
func Build(cfg *config.Config, log *zap.SugaredLogger) (*App, error) {
	if log == nil {
		log = zap.S()
	}

	geo, err := requestinfo.OpenGeo(underRoot(cfg, cfg.Geo.DBPath))
	if err != nil {
		return nil, fmt.Errorf("app: geo: %w", err)
	}

	sessions, err := session.New(session.Options{
		Secret: []byte(cfg.Session.Secret),
		MaxAge: cfg.Session.MaxAge,
		Secure: cfg.Session.Secure,
	})
	if err != nil {
		_ = geo.Close()
		return nil, fmt.Errorf("app: %w", err)
	}

	client, err := api.New(cfg.API.BaseURL, cfg.API.Timeout)
	if err != nil {
		_ = geo.Close()
		return nil, fmt.Errorf("app: %w", err)
	}

	override := underRoot(cfg, cfg.Templates.OverrideDir)
	vopts := []view.Option{view.WithOverrideDir(override)}
	if cfg.Templates.NoCache {
		vopts = append(vopts, view.WithoutCache())
	}

	deps := &component.Deps{
		Views:    view.New(cfg.Templates.CacheSize, vopts...),
		Sessions: sessions,
		Forms:    form.NewRegistry(form.NewCSRF([]byte(cfg.CSRF.Secret), cfg.CSRF.MaxAge)),
		Alerts:   client,
		Accounts: client,
		Routes: editor.Routes{
			Login:   cfg.Routes.LoginPath,
			Alerts:  cfg.Routes.AlertsPath,
			Matches: cfg.Routes.MatchesPath,
		},
		Log:         log,
		OverrideDir: override,
	}

	h, err := NewRouter(Options{
		ForceHTTPS:     cfg.HTTP.ForceHTTPS,
		HSTS:           cfg.HTTP.HSTS,
		TrustProxy:     cfg.HTTP.TrustProxy,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		Geo:            geo,
	}, deps, component.All())
	if err != nil {
		_ = geo.Close()
		return nil, err
	}
	return &App{Handler: h, geo: geo}, nil
}

// NewRouter initialises comps with deps and assembles the router.
func NewRouter(o Options, deps *component.Deps, comps []component.Component) (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID(deps.Log))
	r.Use(requestinfo.Enrich(o.Geo, o.TrustProxy))
	r.Use(middleware.Security(o.HSTS))
	if o.ForceHTTPS {
		r.Use(middleware.ForceHTTPS)
	}
	if o.RateLimitRPS > 0 {
		rl := middleware.NewRateLimiter(o.RateLimitRPS, o.RateLimitBurst, func(req *http.Request) string {
			return requestinfo.FromContext(req.Context()).ClientKey()
		})
		rl.Skip = keywordRoundTrip
		r.Use(rl.Middleware)
	}
	r.Use(auth.Identify(deps.Sessions, o.JWTSecret))

	r.Handle("/static/*", view.Static("/static/"))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, deps.Routes.Alerts, http.StatusSeeOther)
	})

	names := make([]string, 0, len(comps))
	for _, c := range comps {
		if err := c.Init(deps); err != nil {
			return nil, fmt.Errorf("app: init component %s: %w", c.Name(), err)
		}
		c.Routes(r)
		names = append(names, c.Name())
	}
	sort.Strings(names)
	deps.Log.Infow("components mounted", "components", names)
	return r, nil
}

// keywordRoundTrip matches edit-page POSTs that only add or remove a
// keyword.  The parsed body stays cached on the request for the handler.
func keywordRoundTrip(req *http.Request) bool {
	if req.Method != http.MethodPost || !editPath.MatchString(req.URL.Path) {
		return false
	}
	if err := req.ParseForm(); err != nil {
		return false
	}
	return alert.IsKeywordOp(req.PostForm)
}

// underRoot anchors a relative config path at the project root.  Empty
// stays empty.
func underRoot(cfg *config.Config, p string) string {
	if p == "" || filepath.IsAbs(p) || cfg.Paths.Root == "" {
		return p
	}
	return filepath.Join(cfg.Paths.Root, p)
}
