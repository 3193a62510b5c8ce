// internal/config/model.go
//
// Typed configuration model for the web front end.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                                  – dotenv values,
//   • `conf/global.yaml`                               – primary static file,
//   • `MIESZKANIOWNIK_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Durations accept Go syntax ("10s", "2h").
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr      string        `koanf:"listen_addr"      validate:"required,hostname_port"`
	ForceHTTPS      bool          `koanf:"force_https"`
	HSTS            bool          `koanf:"hsts"`
	TrustProxy      bool          `koanf:"trust_proxy"`
	RateLimitRPS    float64       `koanf:"rate_limit_rps"   validate:"gte=0"`
	RateLimitBurst  int           `koanf:"rate_limit_burst" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}

//
// Upstream alert API
//

// API points at the alert REST service.
type API struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	Timeout time.Duration `koanf:"timeout"  validate:"gte=0"`
}

//
// Session, identity, and forms
//

// Session configures the cookie store.  Secret may be a vault: reference.
type Session struct {
	Secret string `koanf:"secret"  validate:"required,min=32"`
	MaxAge int    `koanf:"max_age" validate:"gte=0"`
	Secure bool   `koanf:"secure"`
}

// Auth verifies API tokens locally.  An empty JWTSecret forwards tokens
// without decoding a user from them.
type Auth struct {
	JWTSecret string `koanf:"jwt_secret"`
}

// CSRF signs form tokens.  An empty Secret selects an ephemeral key.
type CSRF struct {
	Secret string        `koanf:"secret"`
	MaxAge time.Duration `koanf:"max_age" validate:"gte=0"`
}

// Routes are the navigation targets.  LoginPath is served here.  The alert
// list and the matches page belong to the main front end, so AlertsPath and
// MatchesPath may be absolute URLs pointing at it; a bare path only works
// when a reverse proxy routes it there.
type Routes struct {
	LoginPath   string `koanf:"login_path"   validate:"required,startswith=/"`
	AlertsPath  string `koanf:"alerts_path"  validate:"required,navtarget"`
	MatchesPath string `koanf:"matches_path" validate:"required,navtarget"`
}

//
// Ambient sections
//

// Log configures the rotating file logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Geo enables country and city lookup when DBPath names a GeoLite2 file.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

// Templates configures the view engine.  OverrideDir holds
// components/<comp>/templates/*.html and components/<comp>/forms/*.yaml
// that win over the embedded copies.
type Templates struct {
	OverrideDir string `koanf:"override_dir"`
	CacheSize   int    `koanf:"cache_size" validate:"gte=0"`
	NoCache     bool   `koanf:"no_cache"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.  The loader
// discovers `Root` (repo root or MIESZKANIOWNIK_ROOT override) so later
// code can build absolute file paths.
type Paths struct {
	Root string
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	API       API       `koanf:"api"`
	Session   Session   `koanf:"session"`
	Auth      Auth      `koanf:"auth"`
	CSRF      CSRF      `koanf:"csrf"`
	Routes    Routes    `koanf:"routes"`
	Log       Log       `koanf:"log"`
	Geo       Geo       `koanf:"geo"`
	Templates Templates `koanf:"templates"`
	Paths     Paths     `koanf:"-"` // not loaded from config files
}

// applyDefaults fills zero values the YAML may omit.
func (c *Config) applyDefaults() {
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8080"
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 10 * time.Second
	}
	if c.Routes.LoginPath == "" {
		c.Routes.LoginPath = "/login"
	}
	if c.Routes.AlertsPath == "" {
		c.Routes.AlertsPath = "/alerts"
	}
	if c.Routes.MatchesPath == "" {
		c.Routes.MatchesPath = "/matches"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
