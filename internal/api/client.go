// internal/api/client.go
//
// Thin JSON-over-HTTP helper for the alert API.
//
// Context
// -------
// The backend owns every alert.  This package is the only place that speaks
// HTTP to it: it resolves paths against the configured base URL, attaches
// the caller's bearer token from the request context, encodes and decodes
// JSON, and turns status codes into the typed errors in errors.go.
//
// Each call is a single attempt.  There is no retry loop here or in the
// callers; a failure goes straight back to the user.
//
// Instrumentation
// ---------------
//   - api_requests_total{method,code}
//   - api_request_duration_seconds{method}
//
// Notes
// -----
// • Response bodies are capped at maxBody bytes.
// • Oxford commas, two spaces after periods.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/k3a/html2text"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yanizio/mieszkaniownik/internal/auth"
	"github.com/yanizio/mieszkaniownik/internal/metrics"
)

const (
	maxBody        = 1 << 20
	maxMessageLen  = 300
	defaultTimeout = 10 * time.Second
)

// Client is safe for concurrent use.  Zero value is invalid; use New.
type Client struct {
	base *url.URL
	hc   *http.Client
}

// Option tweaks a Client during construction.
type Option func(*Client)

// WithHTTPClient swaps the underlying *http.Client (tests, custom TLS).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// New returns a Client rooted at baseURL.  timeout <= 0 selects the
// default of ten seconds.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		base: u,
		hc:   &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Get decodes the JSON response of GET path into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Patch sends body as JSON.  out may be nil.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

// Post sends body as JSON.  out may be nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// -----------------------------------------------------------------------------
// internals
// -----------------------------------------------------------------------------

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s: %w", op, err)
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), rdr)
	if err != nil {
		return fmt.Errorf("api: build %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok, ok := auth.Token(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	timer := prometheus.NewTimer(metrics.APIRequestDuration.WithLabelValues(method))
	resp, err := c.hc.Do(req)
	timer.ObserveDuration()
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(method, "error").Inc()
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	metrics.APIRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if err := classify(op, path, resp, payload); err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
	}
	return nil
}

// resolve joins the base URL and an absolute API path, keeping any query.
// path arrives already escaped (see alertPath), so it goes into RawPath
// as-is and is never escaped a second time.
func (c *Client) resolve(path string) string {
	u := *c.base
	p, q, _ := strings.Cut(path, "?")
	raw := strings.TrimRight(c.base.EscapedPath(), "/") + "/" + strings.TrimLeft(p, "/")
	dec, err := url.PathUnescape(raw)
	if err != nil {
		dec = raw
	}
	u.Path, u.RawPath = dec, raw
	u.RawQuery = q
	return u.String()
}

// classify maps non-2xx responses onto the error taxonomy.
func classify(op, path string, resp *http.Response, payload []byte) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return &NotFoundError{Path: path}
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case code == http.StatusBadRequest, code == http.StatusConflict, code == http.StatusUnprocessableEntity:
		return &ValidationError{Status: code, Message: serverMessage(resp.Header.Get("Content-Type"), payload)}
	default:
		msg := serverMessage(resp.Header.Get("Content-Type"), payload)
		if msg == "" {
			msg = http.StatusText(code)
		}
		return &NetworkError{Op: op, Status: code, Err: errors.New(msg)}
	}
}

// serverMessage extracts something a person can read from an error body.
//
// JSON bodies may carry "message" as a string or a list of strings, or an
// "error" string.  HTML bodies (proxy error pages) are flattened to text.
func serverMessage(contentType string, payload []byte) string {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return ""
	}

	mt, _, _ := mime.ParseMediaType(contentType)
	switch {
	case mt == "application/json" || (mt == "" && payload[0] == '{'):
		var body struct {
			Message json.RawMessage `json:"message"`
			Error   string          `json:"error"`
		}
		if json.Unmarshal(payload, &body) == nil {
			if msg := rawMessage(body.Message); msg != "" {
				return clip(msg)
			}
			return clip(body.Error)
		}
	case mt == "text/html":
		return clip(strings.Join(strings.Fields(html2text.HTML2Text(string(payload))), " "))
	}
	return clip(string(payload))
}

func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return strings.Join(list, "; ")
	}
	return ""
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxMessageLen {
		return string(r[:maxMessageLen]) + "…"
	}
	return s
}
