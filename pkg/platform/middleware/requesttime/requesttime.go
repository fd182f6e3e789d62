// Package requesttime captures one timestamp per request so everything
// handled within it (log lines, cache entries) agrees on "now".
package requesttime

import (
	"net/http"
	"time"

	"biasmeter/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
