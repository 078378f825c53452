package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Mount mounts router at /. When router is a chi router, requests whose
// method and path it has no route for fall through to next; any other
// http.Handler owns the whole namespace. HEAD requests with no HEAD route
// are routed as GET, the way chi's middleware.GetHead does.
func Mount(router http.Handler) func(http.Handler) http.Handler {
	routes, matchable := router.(chi.Routes)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !matchable {
				router.ServeHTTP(w, r)
				return
			}

			routePath := r.URL.RawPath
			if routePath == "" {
				routePath = r.URL.Path
			}

			if routes.Match(chi.NewRouteContext(), r.Method, routePath) {
				router.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodHead && routes.Match(chi.NewRouteContext(), http.MethodGet, routePath) {
				rctx := chi.NewRouteContext()
				rctx.Routes = routes
				rctx.RouteMethod = http.MethodGet
				rctx.RoutePath = routePath
				router.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
