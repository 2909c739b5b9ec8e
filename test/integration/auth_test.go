//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-user-auth/internal/event"
)

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, 1000)
	userID, username := env.seedUser(t, "User")
	_, adminName := env.seedUser(t, "Admin")
	admin := env.login(t, adminName)

	session := env.login(t, username)

	meResp := env.get(t, "/api/v1/auth/me", session.AccessToken)
	defer meResp.Body.Close()
	require.Equal(t, http.StatusOK, meResp.StatusCode)

	require.Equal(t, http.StatusOK, env.refreshStatus(t, session.RefreshToken))
	require.Equal(t, http.StatusOK, env.refreshStatus(t, session.RefreshToken))

	invalidateResp := env.postJSON(t, "/api/v1/users/"+userID+"/sessions/invalidate", nil, admin.AccessToken)
	defer invalidateResp.Body.Close()
	require.Equal(t, http.StatusOK, invalidateResp.StatusCode)

	require.Equal(t, http.StatusUnauthorized, env.refreshStatus(t, session.RefreshToken))

	staleMe := env.get(t, "/api/v1/auth/me", session.AccessToken)
	defer staleMe.Body.Close()
	require.Equal(t, http.StatusUnauthorized, staleMe.StatusCode)

	next := env.login(t, username)
	require.Equal(t, http.StatusOK, env.refreshStatus(t, next.RefreshToken))
}

func TestSecondLoginSupersedesFirst(t *testing.T) {
	env := newTestEnv(t, 1000)
	_, username := env.seedUser(t, "User")

	first := env.login(t, username)
	second := env.login(t, username)

	require.Equal(t, http.StatusUnauthorized, env.refreshStatus(t, first.RefreshToken))
	require.Equal(t, http.StatusOK, env.refreshStatus(t, second.RefreshToken))
}

func TestLogoutKeepsAccessTokenUntilExpiry(t *testing.T) {
	env := newTestEnv(t, 1000)
	_, username := env.seedUser(t, "User")
	session := env.login(t, username)

	logoutResp := env.postJSON(t, "/api/v1/auth/logout", nil, session.AccessToken)
	defer logoutResp.Body.Close()
	require.Equal(t, http.StatusOK, logoutResp.StatusCode)

	require.Equal(t, http.StatusUnauthorized, env.refreshStatus(t, session.RefreshToken))

	meResp := env.get(t, "/api/v1/auth/me", session.AccessToken)
	defer meResp.Body.Close()
	require.Equal(t, http.StatusOK, meResp.StatusCode)
}

func TestAdminRoutesRequirePermission(t *testing.T) {
	env := newTestEnv(t, 1000)
	userID, username := env.seedUser(t, "User")
	session := env.login(t, username)

	resp := env.postJSON(t, "/api/v1/users/"+userID+"/access-tokens/invalidate", nil, session.AccessToken)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAccessInvalidationKeepsRefresh(t *testing.T) {
	env := newTestEnv(t, 1000)
	userID, username := env.seedUser(t, "User")
	_, adminName := env.seedUser(t, "Admin")
	admin := env.login(t, adminName)
	session := env.login(t, username)

	resp := env.postJSON(t, "/api/v1/users/"+userID+"/access-tokens/invalidate", nil, admin.AccessToken)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	staleMe := env.get(t, "/api/v1/auth/me", session.AccessToken)
	defer staleMe.Body.Close()
	require.Equal(t, http.StatusUnauthorized, staleMe.StatusCode)

	require.Equal(t, http.StatusOK, env.refreshStatus(t, session.RefreshToken))
}

func TestAuditTrailRecordsLogin(t *testing.T) {
	env := newTestEnv(t, 1000)
	userID, username := env.seedUser(t, "User")
	_, adminName := env.seedUser(t, "Admin")
	admin := env.login(t, adminName)
	env.login(t, username)

	require.Eventually(t, func() bool {
		entries, err := env.audit.ListForUser(context.Background(), userID, 10)
		return err == nil && len(entries) > 0
	}, 2*time.Second, 20*time.Millisecond)

	resp := env.get(t, "/api/v1/users/"+userID+"/audit", admin.AccessToken)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed struct {
		Data struct {
			Items []event.Event `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.NotEmpty(t, parsed.Data.Items)
	require.Equal(t, event.TypeLoginSucceeded, parsed.Data.Items[0].Type)
	require.NotEmpty(t, parsed.Data.Items[0].Actor.IP)
}

func TestAdminRoutesTreatMalformedIDAsUnknownUser(t *testing.T) {
	env := newTestEnv(t, 1000)
	_, adminName := env.seedUser(t, "Admin")
	admin := env.login(t, adminName)

	for _, path := range []string{
		"/api/v1/users/not-a-uuid/sessions/invalidate",
		"/api/v1/users/not-a-uuid/access-tokens/invalidate",
		"/api/v1/users/not-a-uuid/refresh-tokens/invalidate",
	} {
		resp := env.postJSON(t, path, nil, admin.AccessToken)
		require.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		_ = resp.Body.Close()
	}

	resp := env.get(t, "/api/v1/users/not-a-uuid/audit", admin.AccessToken)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
