// Package metadata records where a request came from. The intake form stores
// origin IP and user agent with each submission, so both ride the context
// from the edge of the chain.
package metadata

import (
	"net"
	"net/http"
	"strings"

	"arcop/pkg/requestcontext"
)

// ClientMetadata resolves the client IP and User-Agent and stores them in the
// request context. Mount it before any handler that reads them.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP prefers proxy headers over the socket address. X-Forwarded-For may
// carry a chain; the first entry is the original client.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
