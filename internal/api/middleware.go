package api

import (
	"context"
	"net/http"

	"github.com/memspace/memspace/internal/api/respond"
	"github.com/memspace/memspace/internal/auth"
)

type contextKey string

const principalKey contextKey = "principal"

// RequireAuth resolves request credentials into a Principal and stores it on
// the request context. Requests that fail to authenticate never reach the
// wrapped handler.
func RequireAuth(resolver *auth.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := resolver.Resolve(r.Context(), r)
			if err != nil {
				respond.WriteServiceError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), principalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// principalFrom returns the authenticated principal placed by RequireAuth.
// Handlers behind the middleware can rely on it being present.
func principalFrom(r *http.Request) *auth.Principal {
	p, _ := r.Context().Value(principalKey).(*auth.Principal)
	return p
}
