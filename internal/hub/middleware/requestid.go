package middleware

import (
	"net/http"

	"github.com/bdobrica/Ruriko/common/trace"
)

const requestIDHeader = "X-Request-Id"

// RequestID stamps every request with a correlation id: the inbound
// header value if present, else a freshly generated one. The id is
// carried on the request context (via common/trace) and echoed back on
// the response so clients and logs can be joined on it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = trace.GenerateID()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := trace.WithTraceID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
