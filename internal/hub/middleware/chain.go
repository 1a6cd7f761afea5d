package middleware

import "net/http"

// Chain applies middlewares in the order given, so the first one listed
// runs outermost (first to see the request, last to see the response).
func Chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
