package model

import "github.com/golang-jwt/jwt/v5"

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AccessClaims is the payload of a short-lived access token. It is only
// honoured while UserVersion matches the user's stored version.
type AccessClaims struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	UserVersion int64  `json:"userVersion"`
	Type        string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a long-lived refresh token.
type RefreshClaims struct {
	UserID              string `json:"userId"`
	RefreshTokenVersion int64  `json:"refreshTokenVersion"`
	Type                string `json:"typ"`
	jwt.RegisteredClaims
}
