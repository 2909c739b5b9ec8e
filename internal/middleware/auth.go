package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go-user-auth/internal/model"
	"go-user-auth/pkg/apierror"
)

type tokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (*model.AccessClaims, error)
}

type permissionChecker interface {
	HasPermission(ctx context.Context, userID string, code string) (bool, error)
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

type AuthMiddleware struct {
	validator   tokenValidator
	permissions permissionChecker
}

func NewAuthMiddleware(validator tokenValidator, permissions permissionChecker) *AuthMiddleware {
	return &AuthMiddleware{validator: validator, permissions: permissions}
}

// RequireAuth accepts only bearer access tokens whose userVersion still
// matches the owner's record.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeAuthError(w, apierror.Unauthorized("missing or invalid authorization header"))
			return
		}

		token := strings.TrimSpace(header[7:])
		claims, err := m.validator.ValidateAccessToken(r.Context(), token)
		if err != nil {
			var apiErr *apierror.APIError
			if !errors.As(err, &apiErr) {
				slog.Error("validate access token", "error", err)
				apiErr = apierror.New("INTERNAL_ERROR", "Unexpected server error", "", http.StatusInternalServerError)
			}
			writeAuthError(w, apiErr)
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission must run after RequireAuth. Permissions are resolved
// per request so role changes apply immediately.
func (m *AuthMiddleware) RequirePermission(code string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeAuthError(w, apierror.Unauthorized("authentication required"))
				return
			}

			allowed, err := m.permissions.HasPermission(r.Context(), claims.UserID, code)
			if err != nil {
				slog.Error("resolve permissions", "user_id", claims.UserID, "error", err)
				writeAuthError(w, apierror.New("INTERNAL_ERROR", "Unexpected server error", "", http.StatusInternalServerError))
				return
			}
			if !allowed {
				writeAuthError(w, apierror.Forbidden("insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*model.AccessClaims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*model.AccessClaims)
	return claims, ok
}

// WithClaims attaches claims the way RequireAuth does.
func WithClaims(ctx context.Context, claims *model.AccessClaims) context.Context {
	return context.WithValue(ctx, authClaimsContextKey, claims)
}

func writeAuthError(w http.ResponseWriter, err *apierror.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)

	_ = jsonEncode(w, model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    err.Code,
			Message: err.Message,
		},
	})
}
