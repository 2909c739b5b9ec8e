package model

import "time"

type UserStatus string

const (
	StatusActive    UserStatus = "ACTIVE"
	StatusPending   UserStatus = "PENDING"
	StatusSuspended UserStatus = "SUSPENDED"
	StatusDeleted   UserStatus = "DELETED"
)

type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	PhoneNumber         *string    `json:"phone_number,omitempty"`
	PasswordHash        string     `json:"-"`
	Status              UserStatus `json:"status"`
	EmailVerifiedAt     *time.Time `json:"email_verified_at,omitempty"`
	UserVersion         int64      `json:"-"`
	RefreshTokenVersion int64      `json:"-"`
	RefreshTokenHash    *string    `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	Role                Role       `json:"role"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// IsActive reports whether the account may authenticate or hold a session.
func (u *User) IsActive() bool {
	return u != nil && u.Status == StatusActive
}

// NewUser carries the fields persisted at registration time.
type NewUser struct {
	ID           string
	Username     string
	Email        string
	Name         string
	PhoneNumber  *string
	PasswordHash string
	RoleID       string
}

// SessionUpdate is a partial write to the session columns of a user row.
// Nil fields are left untouched.
type SessionUpdate struct {
	RefreshTokenHash *string
	LastLoginAt      *time.Time
}

type Permission struct {
	Code string `json:"code"`
}

type AuthUser struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Username    string   `json:"username"`
	Name        string   `json:"name"`
	Role        Role     `json:"role"`
	Permissions []string `json:"permissions"`
}

type CurrentUser struct {
	AuthUser
	Status          UserStatus `json:"status"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
}

type LoginResult struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	User         AuthUser `json:"user"`
}

type RefreshResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Email is an outbound message handed to the mailer.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}
