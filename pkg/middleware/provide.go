package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/helmline/pms/pkg/constants"
)

// Provide stores a value in the request context under the given key. Used to
// thread the pool and application registry to controllers.
func Provide(key constants.ContextKey, value any) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
