package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"go-user-auth/internal/event"
)

func TestLoggingRedactsTokenQuery(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	handler := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify-email?token=supersecret", nil))

	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.NotContains(t, buf.String(), "supersecret")
	assert.Contains(t, buf.String(), "status=400")
}

func TestActorMiddleware(t *testing.T) {
	var got event.Actor
	handler := Actor(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = event.ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("User-Agent", "curl/8")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "203.0.113.7", got.IP)
	assert.Equal(t, "curl/8", got.UserAgent)
}
