package routing

import (
	"net/http"

	"github.com/gorilla/handlers"
)

// CORS allows cross-origin reads of the introspection and metrics routes
// from origins.
func CORS(origins ...string) func(http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Accept", "Authorization"}),
		handlers.MaxAge(86400),
	)
}
