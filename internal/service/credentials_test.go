package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-user-auth/internal/model"
	"go-user-auth/pkg/apierror"
)

func TestCredentialVerifier_Verify(t *testing.T) {
	store := newMemStore()
	store.addUser("u-active", "alice", "Password123!")
	store.addUser("u-pending", "pending", "Password123!", func(u *model.User) {
		u.Status = model.StatusPending
		u.EmailVerifiedAt = nil
	})
	store.addUser("u-suspended", "suspended", "Password123!", func(u *model.User) {
		u.Status = model.StatusSuspended
	})
	store.addUser("u-deleted", "deleted", "Password123!", func(u *model.User) {
		u.Status = model.StatusDeleted
	})
	store.addUser("u-unverified", "unverified", "Password123!", func(u *model.User) {
		u.EmailVerifiedAt = nil
	})

	verifier, err := NewCredentialVerifier(store, bcrypt.MinCost)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		user, err := verifier.Verify(ctx, "alice", "Password123!")
		require.NoError(t, err)
		assert.Equal(t, "u-active", user.ID)
	})

	t.Run("username is case insensitive", func(t *testing.T) {
		user, err := verifier.Verify(ctx, "ALICE", "Password123!")
		require.NoError(t, err)
		assert.Equal(t, "u-active", user.ID)
	})

	cases := []struct {
		name     string
		username string
		password string
		message  string
	}{
		{"unknown user", "nobody", "Password123!", msgInvalidCredentials},
		{"wrong password", "alice", "wrong-password", msgInvalidCredentials},
		{"deleted account", "deleted", "Password123!", msgInvalidCredentials},
		{"deleted account wrong password", "deleted", "nope", msgInvalidCredentials},
		{"pending account", "pending", "Password123!", msgAccountNotActive},
		{"suspended account", "suspended", "Password123!", msgAccountNotActive},
		{"suspended account wrong password", "suspended", "nope", msgInvalidCredentials},
		{"unverified email", "unverified", "Password123!", msgEmailNotVerified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user, err := verifier.Verify(ctx, tc.username, tc.password)
			assert.Nil(t, user)
			require.ErrorIs(t, err, apierror.ErrUnauthorized)

			var apiErr *apierror.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.message, apiErr.Message)
		})
	}

	t.Run("storage failure is not reported as bad credentials", func(t *testing.T) {
		broken := newMemStore()
		broken.err = errors.New("connection refused")
		v, err := NewCredentialVerifier(broken, bcrypt.MinCost)
		require.NoError(t, err)

		_, err = v.Verify(ctx, "alice", "Password123!")
		require.Error(t, err)
		assert.NotErrorIs(t, err, apierror.ErrUnauthorized)
	})
}
