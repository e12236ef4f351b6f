package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/storemate/terminal-backend/pkg/config"
)

// CORS returns middleware that applies the terminal's allowed origin policy.
// Terminals usually talk to localhost, so the default is permissive and the
// deployment narrows it per store.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Reason", "Idempotency-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
