package middleware

import (
	"net/http"

	"giftcircle/pkg/logger"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger puts a logger tagged with the request id and route into the
// request context. Handlers pick it up with logger.FromContext.
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scoped := logger.FromContext(r.Context(), log).With(
				"request_id", chimw.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			)
			next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), scoped)))
		})
	}
}
