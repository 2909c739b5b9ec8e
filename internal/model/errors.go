package model

import "errors"

var (
	// Storage lookups
	ErrUserNotFound  = errors.New("user not found")
	ErrRoleNotFound  = errors.New("role not found")
	ErrTokenNotFound = errors.New("token not found")

	ErrUserAlreadyExists = errors.New("user already exists")

	// Token parsing
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)
