package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"go-user-auth/internal/config"
	"go-user-auth/internal/handler"
	"go-user-auth/internal/middleware"
)

const permissionManageUsers = "users:manage"

type healthChecker interface {
	Health(ctx context.Context) error
}

type Handlers struct {
	Auth    *handler.AuthHandler
	Users   *handler.UserHandler
	Audit   *handler.AuditHandler
	Metrics http.Handler
	Health  healthChecker
}

func New(cfg *config.Config, logger *slog.Logger, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)
	r.Use(middleware.Actor)

	r.Get("/health", healthHandler(h.Health))
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Auth.Login)
			auth.Post("/register", h.Auth.Register)
			auth.Post("/refresh", h.Auth.Refresh)
			auth.Get("/verify-email", h.Auth.VerifyEmail)
			auth.Post("/verify-email/resend", h.Auth.ResendVerification)
			auth.With(authMiddleware.RequireAuth).Post("/logout", h.Auth.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
		})

		api.Route("/users/{id}", func(users chi.Router) {
			users.Use(authMiddleware.RequireAuth, authMiddleware.RequirePermission(permissionManageUsers))
			users.Post("/sessions/invalidate", h.Users.InvalidateSessions)
			users.Post("/access-tokens/invalidate", h.Users.InvalidateAccessTokens)
			users.Post("/refresh-tokens/invalidate", h.Users.InvalidateRefreshTokens)
			users.Get("/audit", h.Audit.ListForUser)
		})
	})

	return r
}

func healthHandler(checker healthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.Health(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
