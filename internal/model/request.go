package model

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"go-user-auth/pkg/apierror"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if utf8.RuneCountInString(r.Username) < 3 {
		return apierror.Validation("Username must be at least 3 characters", "username")
	}
	if r.Password == "" {
		return apierror.Validation("Password is required", "password")
	}
	return nil
}

type RegisterRequest struct {
	Email           string  `json:"email"`
	Username        string  `json:"username"`
	Name            string  `json:"name"`
	PhoneNumber     *string `json:"phoneNumber,omitempty"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirmPassword"`
}

func (r *RegisterRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	r.Username = strings.TrimSpace(r.Username)
	r.Name = strings.TrimSpace(r.Name)

	if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		return apierror.Validation("Invalid email address", "email")
	}
	if utf8.RuneCountInString(r.Username) < 3 {
		return apierror.Validation("Username must be at least 3 characters", "username")
	}
	if utf8.RuneCountInString(r.Name) < 3 {
		return apierror.Validation("Name must be at least 3 characters", "name")
	}
	if r.PhoneNumber != nil {
		phone := strings.TrimSpace(*r.PhoneNumber)
		if phone == "" {
			r.PhoneNumber = nil
		} else if utf8.RuneCountInString(phone) < 12 {
			return apierror.Validation("Phone number must be at least 12 characters", "phoneNumber")
		} else {
			r.PhoneNumber = &phone
		}
	}
	if utf8.RuneCountInString(r.Password) < 8 {
		return apierror.Validation("Password must be at least 8 characters", "password")
	}
	// bcrypt ignores everything past 72 bytes.
	if len(r.Password) > 72 {
		return apierror.Validation("Password must be at most 72 bytes", "password")
	}
	if r.Password != r.ConfirmPassword {
		return apierror.Validation("Passwords do not match", "confirmPassword")
	}
	return nil
}

// Input converts the validated request into the service-level record.
func (r *RegisterRequest) Input() RegisterInput {
	return RegisterInput{
		Email:       r.Email,
		Username:    r.Username,
		Name:        r.Name,
		PhoneNumber: r.PhoneNumber,
		Password:    r.Password,
	}
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RegisterInput struct {
	Email       string
	Username    string
	Name        string
	PhoneNumber *string
	Password    string
}

type LoginInput struct {
	Username string
	Password string
}
