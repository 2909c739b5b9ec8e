package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-user-auth/internal/model"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenConfig{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "go-user-auth",
	})
	require.NoError(t, err)
	return issuer
}

func tokenUser() *model.User {
	return &model.User{
		ID:                  "u-1",
		Username:            "alice",
		Role:                model.Role{ID: "role-user", Name: "User"},
		UserVersion:         3,
		RefreshTokenVersion: 5,
	}
}

func TestNewTokenIssuer_RejectsBadConfig(t *testing.T) {
	cases := map[string]TokenConfig{
		"missing access secret": {RefreshSecret: []byte("r"), AccessTTL: time.Minute, RefreshTTL: time.Hour},
		"shared secret":         {AccessSecret: []byte("same"), RefreshSecret: []byte("same"), AccessTTL: time.Minute, RefreshTTL: time.Hour},
		"zero ttl":              {AccessSecret: []byte("a"), RefreshSecret: []byte("r"), RefreshTTL: time.Hour},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewTokenIssuer(cfg)
			assert.Error(t, err)
		})
	}
}

func TestTokenIssuer_AccessRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	token, err := issuer.IssueAccessToken(tokenUser())
	require.NoError(t, err)

	claims, err := issuer.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "User", claims.Role)
	assert.Equal(t, int64(3), claims.UserVersion)
	assert.Equal(t, "u-1", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenIssuer_RefreshRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	token, err := issuer.IssueRefreshToken(tokenUser())
	require.NoError(t, err)

	claims, err := issuer.ParseRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, int64(5), claims.RefreshTokenVersion)
}

func TestTokenIssuer_TypesAreNotInterchangeable(t *testing.T) {
	issuer := newTestIssuer(t)

	access, err := issuer.IssueAccessToken(tokenUser())
	require.NoError(t, err)
	refresh, err := issuer.IssueRefreshToken(tokenUser())
	require.NoError(t, err)

	_, err = issuer.ParseRefreshToken(access)
	assert.ErrorIs(t, err, model.ErrTokenInvalid)

	_, err = issuer.ParseAccessToken(refresh)
	assert.ErrorIs(t, err, model.ErrTokenInvalid)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := newTestIssuer(t)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := issuer.IssueAccessToken(tokenUser())
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.ParseAccessToken(token)
	assert.ErrorIs(t, err, model.ErrTokenExpired)
}

func TestTokenIssuer_RejectsForeignSignatures(t *testing.T) {
	issuer := newTestIssuer(t)
	claims := model.AccessClaims{
		UserID: "u-1",
		Type:   model.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "go-user-auth",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}

	t.Run("wrong key", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-the-key"))
		require.NoError(t, err)
		_, err = issuer.ParseAccessToken(forged)
		assert.ErrorIs(t, err, model.ErrTokenInvalid)
	})

	t.Run("alg none", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.ParseAccessToken(forged)
		assert.ErrorIs(t, err, model.ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.ParseAccessToken("not.a.jwt")
		assert.ErrorIs(t, err, model.ErrTokenInvalid)
	})
}

func TestTokenIssuer_TokensAreUnique(t *testing.T) {
	issuer := newTestIssuer(t)
	fixed := time.Now()
	issuer.now = func() time.Time { return fixed }

	first, err := issuer.IssueRefreshToken(tokenUser())
	require.NoError(t, err)
	second, err := issuer.IssueRefreshToken(tokenUser())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, HashRefreshToken(first), HashRefreshToken(second))
}

func TestHashRefreshToken(t *testing.T) {
	digest := HashRefreshToken("abc")
	assert.Len(t, digest, 64)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", digest)
	assert.Equal(t, digest, HashRefreshToken("abc"))
	assert.Equal(t, hashToken("abc"), digest)
}
