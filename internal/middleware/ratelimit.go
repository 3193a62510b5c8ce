// internal/middleware/ratelimit.go
//
// Per-client token bucket for state-changing requests.
//
// Context
// -------
// Login, logout, and save POSTs end in a call to the alert API.  A token
// bucket per client IP (golang.org/x/time/rate) keeps one browser tab or
// script from hammering the backend through us.  GET, HEAD, and OPTIONS are
// never limited, nor is anything the Skip hook accepts (keyword add/remove
// round-trips, which never leave this process).
//
// Notes
// -----
// • Idle buckets are swept on access, at most once per sweepEvery, so the
//   limiter needs no background goroutine.
// • The client key comes from requestinfo (proxy headers honoured only when
//   http.trust_proxy is set).
// • Oxford commas, two spaces after periods.

package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/yanizio/mieszkaniownik/internal/logger"
	"github.com/yanizio/mieszkaniownik/internal/metrics"
)

const (
	idleTTL    = 10 * time.Minute
	sweepEvery = time.Minute
)

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter hands out one limiter per key.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	key   func(*http.Request) string
	now   func() time.Time

	// Skip, when set, exempts matching requests from the limit.
	Skip func(*http.Request) bool

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter builds a limiter allowing rps sustained POSTs per client
// with the given burst.  key extracts the client identity.
func NewRateLimiter(rps float64, burst int, key func(*http.Request) string) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		key:     key,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether one more request for k fits the bucket.
func (l *RateLimiter) Allow(k string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) > sweepEvery {
		for key, b := range l.buckets {
			if now.Sub(b.seen) > idleTTL {
				delete(l.buckets, key)
			}
		}
		l.lastSweep = now
	}
	b, ok := l.buckets[k]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[k] = b
	}
	b.seen = now
	l.mu.Unlock()

	return b.lim.AllowN(now, 1)
}

// Middleware rejects POSTs over the limit with 429.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions ||
			(l.Skip != nil && l.Skip(r)) {
			next.ServeHTTP(w, r)
			return
		}
		k := l.key(r)
		if !l.Allow(k) {
			metrics.RateLimitedTotal.Inc()
			logger.FromContext(r.Context()).Warnw("rate limited", "client", k, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter(l.rps)))
			http.Error(w, "Zbyt wiele żądań.  Spróbuj ponownie za chwilę.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfter(rps rate.Limit) int {
	if rps <= 0 {
		return 60
	}
	s := int(1 / float64(rps))
	if s < 1 {
		s = 1
	}
	return s
}
