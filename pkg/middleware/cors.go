package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// exposedHeaders lets dashboards read the rate limit state and correlate
// requests with server logs
var exposedHeaders = []string{
	"X-Request-Id",
	"X-RateLimit-Limit",
	"X-RateLimit-Remaining",
	"X-RateLimit-Reset",
}

// CORS allows the dashboard origins to call the API with credentials
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: true,
		MaxAge:           300, // seconds
	})

	return c.Handler
}
