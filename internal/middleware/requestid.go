// internal/middleware/requestid.go
//
// Request id and request-scoped logger.
//
// Every request gets a UUID (or keeps a well-formed one supplied by the
// proxy in X-Request-ID).  The id is echoed in the response header and
// attached to a child logger stored in the context, so every log line for
// one page view can be grepped together.

package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/mieszkaniownik/internal/logger"
)

// HeaderRequestID is read from proxies and written on responses.
const HeaderRequestID = "X-Request-ID"

type ridKey struct{}

// RequestID assigns the id and the request logger.  base may be nil, in
// which case the global logger is used.
func RequestID(base *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, id)

			l := base
			if l == nil {
				l = zap.S()
			}
			ctx := context.WithValue(r.Context(), ridKey{}, id)
			ctx = logger.WithContext(ctx, l.With("request_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID returns the id assigned by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ridKey{}).(string)
	return id
}
