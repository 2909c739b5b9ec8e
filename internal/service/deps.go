package service

import (
	"context"
	"time"

	"go-user-auth/internal/event"
	"go-user-auth/internal/model"
)

// UserStore is the identity side of the user table. Lookups report absence
// with model.ErrUserNotFound / model.ErrRoleNotFound.
type UserStore interface {
	FindByUsernameForAuth(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindRoleByName(ctx context.Context, name string) (*model.Role, error)
	Create(ctx context.Context, u model.NewUser) (*model.User, error)
	MarkEmailVerified(ctx context.Context, id string, at time.Time) error
}

// SessionStore mutates the session columns of a single user row.
type SessionStore interface {
	UpdateSession(ctx context.Context, id string, update model.SessionUpdate) error
	BumpUserVersion(ctx context.Context, id string) error
	RevokeRefreshTokens(ctx context.Context, id string) error
	ClearRefreshHash(ctx context.Context, id string) error
	InvalidateSessions(ctx context.Context, id string) error
}

type PermissionStore interface {
	GetUserPermissions(ctx context.Context, userID string) ([]model.Permission, error)
}

type Mailer interface {
	Send(ctx context.Context, email model.Email) error
}

type VerificationStore interface {
	Save(ctx context.Context, tokenHash string, userID string, ttl time.Duration) error
	Consume(ctx context.Context, tokenHash string) (string, error)
}

type EventPublisher interface {
	Publish(e event.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(event.Event) {}
