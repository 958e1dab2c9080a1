package mw

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS lets the single-page front end call the API from the origins in
// allowed. "*" allows any origin and an empty list disables CORS.
// Preflight requests are answered here and never reach the router.
func CORS(allowed []string) func(http.Handler) http.Handler {
	origins := make([]string, 0, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         600,
	})
}
