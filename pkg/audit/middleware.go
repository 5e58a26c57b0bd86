// Package audit provides the append-only audit trail and the middleware
// that captures request metadata for it.
package audit

import (
	"net/http"

	"github.com/tendant/simple-workspace/pkg/client"
)

// RequestInfoMiddleware captures the client IP and user agent into the
// request context so the recorder can attach them to audit records
// without handlers threading them through explicitly.
func RequestInfoMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &client.RequestInfo{
			IPAddress: client.ClientIP(r),
			UserAgent: r.UserAgent(),
		}
		next.ServeHTTP(w, r.WithContext(client.WithRequestInfo(r.Context(), info)))
	})
}
