// Package requesttime pins a single "now" per HTTP request. Deadline checks,
// audit timestamps and persisted UpdatedAt values all read the same instant,
// and tests can swap it through requestcontext.WithTime.
package requesttime

import (
	"net/http"
	"time"

	"arcop/pkg/requestcontext"
)

// Middleware stamps the context with the wall-clock time at entry.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
