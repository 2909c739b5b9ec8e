package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"go-user-auth/internal/model"
	"go-user-auth/pkg/apierror"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgAccountNotActive   = "Account is not active"
	msgEmailNotVerified   = "Email not verified"
)

// CredentialVerifier checks a username/password pair against the stored
// bcrypt hash and account state. It never mutates anything.
type CredentialVerifier struct {
	users     UserStore
	dummyHash []byte
}

// NewCredentialVerifier precomputes a throwaway hash at the configured cost
// so unknown usernames spend the same bcrypt time as wrong passwords.
func NewCredentialVerifier(users UserStore, cost int) (*CredentialVerifier, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate dummy secret: %w", err)
	}

	// bcrypt only reads the first 72 bytes; 32 random bytes are plenty.
	dummy, err := bcrypt.GenerateFromPassword(secret, cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}

	return &CredentialVerifier{users: users, dummyHash: dummy}, nil
}

func (v *CredentialVerifier) Verify(ctx context.Context, username string, password string) (*model.User, error) {
	user, err := v.users.FindByUsernameForAuth(ctx, username)
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	if user == nil || user.Status == model.StatusDeleted {
		_ = bcrypt.CompareHashAndPassword(v.dummyHash, []byte(password))
		return nil, apierror.Unauthorized(msgInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apierror.Unauthorized(msgInvalidCredentials)
	}

	if user.Status != model.StatusActive {
		return nil, apierror.Unauthorized(msgAccountNotActive)
	}

	if user.EmailVerifiedAt == nil {
		return nil, apierror.Unauthorized(msgEmailNotVerified)
	}

	return user, nil
}
