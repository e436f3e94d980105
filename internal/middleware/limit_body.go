package middleware

import (
	"net/http"
)

// MaxBodySize is the default request body cap (1MB)
const MaxBodySize = 1 << 20

// LimitBody caps request bodies at maxBytes; non-positive means MaxBodySize
func LimitBody(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = MaxBodySize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
