package server

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS permits cross-origin requests from exactly one origin. Requests from
// any other origin receive no Access-Control-Allow-Origin header.
func CORS(origin string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{origin},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPut,
			http.MethodPatch,
			http.MethodPost,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler
}
