package middleware

import (
	"net/http"

	"go-user-auth/internal/event"
)

// Actor records the client address and user agent on the request context
// so events raised while serving it can be attributed.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := event.WithActor(r.Context(), event.Actor{
			IP:        extractClientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
