package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go-user-auth/internal/middleware"
	"go-user-auth/internal/model"
	"go-user-auth/pkg/apierror"
)

const refreshCookieName = "refresh_token"

type authService interface {
	Login(ctx context.Context, in model.LoginInput) (model.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (model.RefreshResult, error)
	Logout(ctx context.Context, userID string) error
	GetCurrentUser(ctx context.Context, userID string) (model.CurrentUser, error)
	CreateUser(ctx context.Context, in model.RegisterInput) (*model.User, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
}

type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	service authService
	cookie  CookieConfig
}

func NewAuthHandler(service authService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{service: service, cookie: cookie}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(r, &payload, false); err != nil {
		writeError(w, err)
		return
	}
	if err := payload.Validate(); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), model.LoginInput{Username: payload.Username, Password: payload.Password})
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken, int(h.cookie.MaxAge.Seconds()))
	writeSuccess(w, http.StatusOK, result)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := decodeJSON(r, &payload, false); err != nil {
		writeError(w, err)
		return
	}
	if err := payload.Validate(); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.service.CreateUser(r.Context(), payload.Input())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user)
}

// Refresh reads the token from the JSON body, falling back to the cookie
// set at login.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload model.RefreshRequest
	if err := decodeJSON(r, &payload, true); err != nil {
		writeError(w, err)
		return
	}

	token := strings.TrimSpace(payload.RefreshToken)
	if token == "" {
		if cookie, err := r.Cookie(refreshCookieName); err == nil {
			token = strings.TrimSpace(cookie.Value)
		}
	}
	if token == "" {
		writeError(w, apierror.BadRequest("refresh_token is required", "refresh_token"))
		return
	}

	result, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if err := h.service.VerifyEmail(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"verified": true})
}

type resendRequest struct {
	Email string `json:"email"`
}

// ResendVerification always answers 202 so it cannot be used to probe
// which addresses are registered.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var payload resendRequest
	if err := decodeJSON(r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	email := strings.TrimSpace(payload.Email)
	if email == "" {
		writeError(w, apierror.Validation("Email is required", "email"))
		return
	}

	if err := h.service.ResendVerification(r.Context(), email); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusAccepted, map[string]any{"sent": true})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	if err := h.service.Logout(r.Context(), claims.UserID); err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, "", -1)
	writeSuccess(w, http.StatusOK, map[string]any{"logged_out": true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/api/v1/auth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
