package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-user-auth/internal/event"
)

type auditReader interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]event.Event, error)
}

type AuditHandler struct {
	service auditReader
}

func NewAuditHandler(service auditReader) *AuditHandler {
	return &AuditHandler{service: service}
}

type auditListData struct {
	Items []event.Event `json:"items"`
}

func (h *AuditHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "id"))
	limit := parseIntOrDefault(r.URL.Query().Get("limit"), 50)

	items, err := h.service.ListForUser(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, auditListData{Items: items})
}

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}
