package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-user-auth/pkg/apierror"
)

type sessionAdmin interface {
	InvalidateAllSessions(ctx context.Context, userID string) error
	InvalidateAccessTokens(ctx context.Context, userID string) error
	InvalidateRefreshTokens(ctx context.Context, userID string) error
}

// UserHandler serves the administrative session controls.
type UserHandler struct {
	service sessionAdmin
}

func NewUserHandler(service sessionAdmin) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) InvalidateSessions(w http.ResponseWriter, r *http.Request) {
	h.invalidate(w, r, h.service.InvalidateAllSessions)
}

func (h *UserHandler) InvalidateAccessTokens(w http.ResponseWriter, r *http.Request) {
	h.invalidate(w, r, h.service.InvalidateAccessTokens)
}

func (h *UserHandler) InvalidateRefreshTokens(w http.ResponseWriter, r *http.Request) {
	h.invalidate(w, r, h.service.InvalidateRefreshTokens)
}

func (h *UserHandler) invalidate(w http.ResponseWriter, r *http.Request, op func(context.Context, string) error) {
	userID := strings.TrimSpace(chi.URLParam(r, "id"))
	if userID == "" {
		writeError(w, apierror.BadRequest("user id is required", "id"))
		return
	}

	if err := op(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"user_id": userID, "invalidated": true})
}
