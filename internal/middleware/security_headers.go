package middleware

import (
	"net/http"
	"strings"
)

// GatewayPrefix is the path under which metered calls are relayed.
const GatewayPrefix = "/apis/call/"

var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Strict-Transport-Security", "max-age=63072000; includeSubDomains"},
	{"Referrer-Policy", "no-referrer"},
}

// SecurityHeaders sets the hardening headers on every response. JSON
// answers from the marketplace itself are also marked no-store since they
// carry keys and quota; relayed upstream responses keep their own caching.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range securityHeaders {
			h.Set(kv[0], kv[1])
		}
		if !isGatewayCall(r) {
			h.Set("Cache-Control", "no-store")
		}
		next.ServeHTTP(w, r)
	})
}

func isGatewayCall(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, GatewayPrefix)
}
