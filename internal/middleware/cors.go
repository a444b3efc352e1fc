package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
)

const requestIDHeader = "X-Request-ID"

// The API only routes these; reward toggling is the one PATCH.
var corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}

// CORSHandler lets the web app call the API. Auth travels in the Authorization
// header only; cookies are not accepted.
func CORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   corsMethods,
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           int((10 * time.Minute).Seconds()),
	})
}
