package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/bazaar-backend/api/responses"
)

const CartTokenHeader = "X-Cart-Token"

var defaultCORSOrigins = []string{
	"http://localhost:3000", // local dev
	"http://localhost:5173", // vite dev server
}

// CORS returns middleware that applies the API's allowed origin policy. Extra
// origins come from configuration.
func CORS(extraOrigins ...string) func(http.Handler) http.Handler {
	origins := append(append([]string{}, defaultCORSOrigins...), extraOrigins...)
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", CartTokenHeader, IdempotencyKeyHeader, "X-Requested-With"},
		ExposedHeaders:   []string{CartTokenHeader, responses.RequestIDHeader, idempotentReplayHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
