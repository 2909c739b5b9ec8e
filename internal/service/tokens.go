package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-user-auth/internal/model"
)

// TokenConfig is the signing configuration. It is copied at construction
// and never read from process state afterwards.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenIssuer mints and parses access and refresh tokens. The two token
// types are signed with different keys and carry a typ claim, so neither
// key can produce or validate the other type.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token issuer: both signing secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("token issuer: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token issuer: token lifetimes must be positive")
	}

	return &TokenIssuer{
		accessSecret:  append([]byte(nil), cfg.AccessSecret...),
		refreshSecret: append([]byte(nil), cfg.RefreshSecret...),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}, nil
}

func (t *TokenIssuer) AccessTTL() time.Duration {
	return t.accessTTL
}

func (t *TokenIssuer) RefreshTTL() time.Duration {
	return t.refreshTTL
}

func (t *TokenIssuer) IssueAccessToken(user *model.User) (string, error) {
	claims := model.AccessClaims{
		UserID:           user.ID,
		Username:         user.Username,
		Role:             user.Role.Name,
		UserVersion:      user.UserVersion,
		Type:             model.TokenTypeAccess,
		RegisteredClaims: t.registered(user.ID, t.accessTTL),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func (t *TokenIssuer) IssueRefreshToken(user *model.User) (string, error) {
	claims := model.RefreshClaims{
		UserID:              user.ID,
		RefreshTokenVersion: user.RefreshTokenVersion,
		Type:                model.TokenTypeRefresh,
		RegisteredClaims:    t.registered(user.ID, t.refreshTTL),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

func (t *TokenIssuer) ParseAccessToken(token string) (*model.AccessClaims, error) {
	claims := &model.AccessClaims{}
	if err := t.parse(token, claims, t.accessSecret); err != nil {
		return nil, err
	}
	if claims.Type != model.TokenTypeAccess || claims.UserID == "" {
		return nil, model.ErrTokenInvalid
	}
	return claims, nil
}

func (t *TokenIssuer) ParseRefreshToken(token string) (*model.RefreshClaims, error) {
	claims := &model.RefreshClaims{}
	if err := t.parse(token, claims, t.refreshSecret); err != nil {
		return nil, err
	}
	if claims.Type != model.TokenTypeRefresh || claims.UserID == "" {
		return nil, model.ErrTokenInvalid
	}
	return claims, nil
}

// HashRefreshToken is the digest stored in place of the refresh token:
// hex sha256 over the exact signed string.
func HashRefreshToken(token string) string {
	return hashToken(token)
}

// hashToken digests a bearer secret for storage. Only digests are
// persisted, never the secret itself.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (t *TokenIssuer) parse(token string, claims jwt.Claims, secret []byte) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.ErrTokenExpired
		}
		return model.ErrTokenInvalid
	}
	if !parsed.Valid {
		return model.ErrTokenInvalid
	}
	return nil
}

func (t *TokenIssuer) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := t.now().UTC()
	return jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}
