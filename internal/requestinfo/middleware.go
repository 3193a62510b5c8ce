// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *Info and writes the
// access log line.
/*
Context
--------
This handler sits right after the request-id middleware.  For every
request it:

  1. Parses the User-Agent header and Accept-Language list.
  2. Picks the client IP: the left-most valid address in X-Forwarded-For
     or X-Real-IP when trustProxy is set, r.RemoteAddr otherwise.
  3. Performs a GeoLite2 lookup when a database is configured.
  4. Stores an `*Info` in the request context, so the rate limiter and
     handlers can read it without reparsing.
  5. After the handler returns, logs method, path, status, bytes,
     duration, browser, device, and country on the request logger.

Notes
-----
  • Oxford commas, two spaces after periods.
*/
package requestinfo

import (
	"net"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/yanizio/mieszkaniownik/internal/logger"
)

// Enrich returns the middleware.  geo may be nil.
func Enrich(geo *GeoDB, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ip := clientIP(r, trustProxy)
			info := &Info{
				IP:        ip,
				UA:        ParseUA(r.UserAgent(), r.Header.Get("Accept-Language")),
				Geo:       geo.Lookup(ip),
				Timestamp: start.UTC(),
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(WithInfo(r.Context(), info)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log := logger.FromContext(r.Context())
			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"ip", info.ClientKey(),
				"browser", info.UA.Browser,
				"device", info.UA.Device,
				"bot", info.UA.IsBot,
			}
			if info.Geo.CountryISO != "" {
				fields = append(fields, "country", info.Geo.CountryISO, "city", info.Geo.City)
			}
			if status >= 500 {
				log.Warnw("request", fields...)
			} else {
				log.Infow("request", fields...)
			}
		})
	}
}

// clientIP extracts the left-most valid address from X-Forwarded-For or
// X-Real-IP when trusted, falling back to r.RemoteAddr ("ip:port").
func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			for _, part := range strings.Split(xff, ",") {
				if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
					return ip
				}
			}
		}
		if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
			if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(r.RemoteAddr)
}
