//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-user-auth/internal/config"
	"go-user-auth/internal/database"
	"go-user-auth/internal/event"
	"go-user-auth/internal/handler"
	"go-user-auth/internal/mailer"
	"go-user-auth/internal/metrics"
	"go-user-auth/internal/middleware"
	"go-user-auth/internal/model"
	"go-user-auth/internal/repository"
	"go-user-auth/internal/router"
	"go-user-auth/internal/service"
)

const testPassword = "Password123!"

type testEnv struct {
	server *httptest.Server
	db     *database.DB
	users  *repository.UserRepository
	audit  *repository.AuditRepository
}

// newTestEnv starts the full HTTP stack against the database in
// DATABASE_URL. Tests are skipped when it is unset.
func newTestEnv(t *testing.T, authRPM int) *testEnv {
	t.Helper()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, databaseURL, 5, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	userRepo := repository.NewUserRepository(db.Pool)
	auditRepo := repository.NewAuditRepository(db.Pool)

	tokens, err := service.NewTokenIssuer(service.TokenConfig{
		AccessSecret:  []byte("integration-access-secret"),
		RefreshSecret: []byte("integration-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "go-user-auth",
	})
	require.NoError(t, err)

	bus := event.NewBus()
	authService, err := service.NewAuthService(service.AuthConfig{
		DefaultRole:     "User",
		BcryptCost:      bcrypt.MinCost,
		AppURL:          "http://localhost:3000",
		VerificationTTL: time.Hour,
	}, service.AuthDeps{
		Users:         userRepo,
		Sessions:      userRepo,
		Permissions:   repository.NewRBACRepository(db.Pool),
		Verifications: repository.NewVerificationRepository(db.Pool),
		Mailer:        mailer.NewLogMailer(log),
		Tokens:        tokens,
		Events:        bus,
		Metrics:       metrics.New(),
		Logger:        log,
	})
	require.NoError(t, err)

	auditService := service.NewAuditService(auditRepo, bus, log)
	runCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	go auditService.Run(runCtx)

	cfg := &config.Config{
		RequestTimeout:   30 * time.Second,
		CORSOrigins:      []string{"http://localhost:3000"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: authRPM,
	}

	authMiddleware := middleware.NewAuthMiddleware(authService, authService)
	server := httptest.NewServer(router.New(cfg, log, authMiddleware, router.Handlers{
		Auth:   handler.NewAuthHandler(authService, handler.CookieConfig{MaxAge: 24 * time.Hour}),
		Users:  handler.NewUserHandler(authService),
		Audit:  handler.NewAuditHandler(auditService),
		Health: db,
	}))
	t.Cleanup(server.Close)

	return &testEnv{server: server, db: db, users: userRepo, audit: auditRepo}
}

// seedUser inserts an ACTIVE, verified account and returns its id and
// username. role is a role name from the RBAC seed.
func (e *testEnv) seedUser(t *testing.T, role string) (string, string) {
	t.Helper()
	ctx := context.Background()

	roleRow, err := e.users.FindRoleByName(ctx, role)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	suffix := uuid.NewString()[:8]
	user, err := e.users.Create(ctx, model.NewUser{
		ID:           uuid.NewString(),
		Username:     "it_" + suffix,
		Email:        "it_" + suffix + "@example.com",
		Name:         "Integration " + suffix,
		PasswordHash: string(hash),
		RoleID:       roleRow.ID,
	})
	require.NoError(t, err)
	require.NoError(t, e.users.MarkEmailVerified(ctx, user.ID, time.Now()))

	return user.ID, user.Username
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (e *testEnv) login(t *testing.T, username string) tokenPair {
	t.Helper()

	resp := e.postJSON(t, "/api/v1/auth/login", map[string]string{"username": username, "password": testPassword}, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed struct {
		Success bool      `json:"success"`
		Data    tokenPair `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.True(t, parsed.Success)
	require.NotEmpty(t, parsed.Data.AccessToken)
	require.NotEmpty(t, parsed.Data.RefreshToken)
	return parsed.Data
}

func (e *testEnv) refreshStatus(t *testing.T, refreshToken string) int {
	t.Helper()

	resp := e.postJSON(t, "/api/v1/auth/refresh", map[string]string{"refresh_token": refreshToken}, "")
	defer resp.Body.Close()
	return resp.StatusCode
}

func (e *testEnv) postJSON(t *testing.T, path string, body any, accessToken string) *http.Response {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, path string, accessToken string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	require.NoError(t, err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}
