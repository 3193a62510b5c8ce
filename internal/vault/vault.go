// internal/vault/vault.go
//
// Vault client wrapper.
//
// Context
// -------
//   - Provides a concurrency-safe client around the HashiCorp Vault Go SDK.
//   - Adds background token renewal, KV-v2 reads, per-key caching, and
//     singleflight so a burst of readers costs one round-trip.
//   - Config values written as `vault:<mount>/<path>#<key>` are resolved
//     here at boot (session, CSRF, and JWT secrets).
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, zap.S())            // during boot.
//  2. v, err   := cli.Resolve(ctx, "vault:secret/web#csrf")
//  3. v, err   := cli.GetKV(ctx, "secret/web", "csrf", ttl)
//
// Notes
// -----
// • VAULT_ADDR and VAULT_TOKEN are read from the environment unless the
//   caller passes WithAddress / WithToken.
// • Oxford commas, two spaces after periods, no m-dash.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// RefPrefix marks a config value that lives in Vault.
const RefPrefix = "vault:"

// DefaultTTL caches resolved references for the process lifetime in
// practice; secrets are only read at boot.
const DefaultTTL = time.Hour

//
// SECTION 1.  Public façade
//

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api *vault.Client
	log *zap.SugaredLogger

	group singleflight.Group

	cacheMu sync.RWMutex
	cache   map[string]cached // canonical path#key → value + expiry.
}

type cached struct {
	val string
	exp time.Time
}

type options struct {
	addr  string
	token string
	renew bool
}

// Option tweaks New.
type Option func(*options)

// WithAddress overrides VAULT_ADDR.
func WithAddress(addr string) Option { return func(o *options) { o.addr = addr } }

// WithToken overrides VAULT_TOKEN.
func WithToken(tok string) Option { return func(o *options) { o.token = tok } }

// WithoutRenewal skips the background renewal loop (tests, one-shot tools).
func WithoutRenewal() Option { return func(o *options) { o.renew = false } }

// New constructs a Vault client and, unless disabled, starts a background
// token-renewal loop bound to ctx.
func New(ctx context.Context, log *zap.SugaredLogger, opts ...Option) (*Client, error) {
	if log == nil {
		log = zap.S()
	}
	o := options{renew: true}
	for _, fn := range opts {
		fn(&o)
	}

	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}
	if o.addr != "" {
		cfg.Address = o.addr
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}

	tok := o.token
	if tok == "" {
		tok = os.Getenv("VAULT_TOKEN")
	}
	if tok != "" {
		apiCli.SetToken(tok)
	}

	c := &Client{
		api:   apiCli,
		log:   log,
		cache: make(map[string]cached),
	}
	if o.renew {
		go c.renewLoop(ctx)
	}
	return c, nil
}

// IsRef reports whether s is a Vault reference.
func IsRef(s string) bool { return strings.HasPrefix(s, RefPrefix) }

// ParseRef splits "vault:<mount>/<path>#<key>".
func ParseRef(ref string) (secretPath, key string, err error) {
	if !IsRef(ref) {
		return "", "", fmt.Errorf("vault: %q is not a reference", ref)
	}
	body := strings.TrimPrefix(ref, RefPrefix)
	i := strings.LastIndexByte(body, '#')
	if i <= 0 || i == len(body)-1 {
		return "", "", fmt.Errorf("vault: reference %q must look like vault:<mount>/<path>#<key>", ref)
	}
	secretPath, key = body[:i], body[i+1:]
	if !strings.Contains(secretPath, "/") {
		return "", "", fmt.Errorf("vault: reference %q has no mount", ref)
	}
	return secretPath, key, nil
}

// Resolve reads the secret a reference points at.
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	p, k, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	return c.GetKV(ctx, p, k, DefaultTTL)
}

// GetKV fetches a single key from a KV-v2 secret.  If ttl > 0 the result is
// cached for that duration.  Concurrent callers for the same key share one
// request.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}

	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		if cv, ok := c.cache[canonical]; ok && time.Now().Before(cv.exp) {
			c.cacheMu.RUnlock()
			return cv.val, nil
		}
		c.cacheMu.RUnlock()
	}

	v, err, _ := c.group.Do(canonical, func() (any, error) {
		return c.fetch(ctx, secretPath, key)
	})
	if err != nil {
		return "", err
	}
	sval := v.(string)

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	return sval, nil
}

func (c *Client) fetch(ctx context.Context, secretPath, key string) (string, error) {
	mount, rel := splitMount(secretPath)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
	}
	c.log.Debugw("vault secret read", "path", secretPath, "key", key)
	return sval, nil
}

//
// SECTION 2.  Background token renewal
//

func (c *Client) renewLoop(ctx context.Context) {
probe:
	for ctx.Err() == nil {
		// Probe the current token.
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			c.log.Warnw("vault: token renew self failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}

		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			c.log.Infow("vault: token is not renewable, sleeping 1h")
			backoff(ctx, time.Hour)
			continue
		}

		watcher, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
			Secret: sec,
		})
		if err != nil {
			c.log.Warnw("vault: watcher init error", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}

		go watcher.Start()

		for {
			select {
			case <-ctx.Done():
				watcher.Stop()
				return
			case err := <-watcher.DoneCh():
				watcher.Stop()
				if err != nil {
					c.log.Warnw("vault: token renewal stopped", "err", err)
				}
				backoff(ctx, 15*time.Second)
				continue probe
			case ev := <-watcher.RenewCh():
				if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
					c.log.Debugw("vault: token renewed", "ttl_s", ev.Secret.Auth.LeaseDuration)
				}
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	if p == "" {
		return "", ""
	}
	parts := strings.SplitN(p, "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
