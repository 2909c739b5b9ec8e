package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"go-user-auth/pkg/apierror"
)

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Email:           "jane@example.com",
		Username:        "jane",
		Name:            "Jane Doe",
		Password:        "Password123!",
		ConfirmPassword: "Password123!",
	}
}

func TestRegisterRequestValidate(t *testing.T) {
	t.Parallel()

	t.Run("accepts a well formed registration", func(t *testing.T) {
		req := validRegistration()
		require.NoError(t, req.Validate())
	})

	t.Run("trims fields", func(t *testing.T) {
		req := validRegistration()
		req.Email = "  jane@example.com "
		req.Username = " jane "
		require.NoError(t, req.Validate())
		require.Equal(t, "jane@example.com", req.Email)
		require.Equal(t, "jane", req.Username)
	})

	cases := map[string]func(r *RegisterRequest){
		"invalid email":       func(r *RegisterRequest) { r.Email = "not-an-email" },
		"display-name email":  func(r *RegisterRequest) { r.Email = "Jane <jane@example.com>" },
		"short username":      func(r *RegisterRequest) { r.Username = "ab" },
		"short name":          func(r *RegisterRequest) { r.Name = "Jo" },
		"short password":      func(r *RegisterRequest) { r.Password, r.ConfirmPassword = "short", "short" },
		"oversized password": func(r *RegisterRequest) {
			r.Password = strings.Repeat("x", 73)
			r.ConfirmPassword = r.Password
		},
		"mismatched password": func(r *RegisterRequest) { r.ConfirmPassword = "Password123?" },
		"short phone": func(r *RegisterRequest) {
			phone := "12345"
			r.PhoneNumber = &phone
		},
	}
	for name, mutate := range cases {
		t.Run("rejects "+name, func(t *testing.T) {
			req := validRegistration()
			mutate(&req)
			require.ErrorIs(t, req.Validate(), apierror.ErrValidation)
		})
	}

	t.Run("blank phone is dropped", func(t *testing.T) {
		req := validRegistration()
		blank := "   "
		req.PhoneNumber = &blank
		require.NoError(t, req.Validate())
		require.Nil(t, req.PhoneNumber)
	})
}

func TestLoginRequestValidate(t *testing.T) {
	t.Parallel()

	req := LoginRequest{Username: "  jo  ", Password: "x"}
	require.ErrorIs(t, req.Validate(), apierror.ErrValidation)

	req = LoginRequest{Username: "jane", Password: ""}
	require.ErrorIs(t, req.Validate(), apierror.ErrValidation)

	req = LoginRequest{Username: " jane ", Password: "secret"}
	require.NoError(t, req.Validate())
	require.Equal(t, "jane", req.Username)
}
