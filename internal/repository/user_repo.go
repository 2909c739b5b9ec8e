package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"go-user-auth/internal/database"
	"go-user-auth/internal/model"
)

const userColumns = `u.id, u.username, u.email, u.name, u.phone_number, u.password_hash, u.status,
	u.email_verified_at, u.user_version, u.refresh_token_version, u.refresh_token_hash,
	u.last_login_at, r.id, r.name, u.created_at, u.updated_at`

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

const userFrom = `FROM users u JOIN roles r ON r.id = u.role_id`

// UserRepository owns the users table, including the session columns
// (refresh_token_hash and the two version counters). Every write is a
// single-row statement; concurrent writers are last-write-wins.
type UserRepository struct {
	db database.DBTX
}

func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUsernameForAuth returns the full record, password hash included.
func (r *UserRepository) FindByUsernameForAuth(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "find user for auth",
		`SELECT `+userColumns+` `+userFrom+` WHERE lower(u.username) = lower($1)`,
		strings.TrimSpace(username))
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "find user by id",
		`SELECT `+userColumns+` `+userFrom+` WHERE u.id = $1`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "find user by email",
		`SELECT `+userColumns+` `+userFrom+` WHERE lower(u.email) = lower($1)`,
		strings.TrimSpace(email))
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.FindByUsernameForAuth(ctx, username)
}

func (r *UserRepository) FindRoleByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	err := r.db.QueryRow(ctx, `SELECT id, name FROM roles WHERE name = $1`, name).
		Scan(&role.ID, &role.Name)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find role by name: %w", err)
	}
	return &role, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.NewUser) (*model.User, error) {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, username, email, name, phone_number, password_hash, status, role_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		u.ID, u.Username, u.Email, u.Name, u.PhoneNumber, u.PasswordHash, model.StatusPending, u.RoleID, now)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return nil, model.ErrUserAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return r.FindByID(ctx, u.ID)
}

// UpdateSession writes whichever session fields are set.
func (r *UserRepository) UpdateSession(ctx context.Context, id string, update model.SessionUpdate) error {
	return r.execOne(ctx, "update session", id,
		`UPDATE users
		 SET refresh_token_hash = COALESCE($2, refresh_token_hash),
		     last_login_at = COALESCE($3, last_login_at),
		     updated_at = now()
		 WHERE id = $1`,
		id, update.RefreshTokenHash, update.LastLoginAt)
}

func (r *UserRepository) BumpUserVersion(ctx context.Context, id string) error {
	return r.execOne(ctx, "bump user version", id,
		`UPDATE users SET user_version = user_version + 1, updated_at = now() WHERE id = $1`, id)
}

// RevokeRefreshTokens bumps the refresh version and drops the digest in one
// statement; the user version is untouched.
func (r *UserRepository) RevokeRefreshTokens(ctx context.Context, id string) error {
	return r.execOne(ctx, "revoke refresh tokens", id,
		`UPDATE users
		 SET refresh_token_version = refresh_token_version + 1,
		     refresh_token_hash = NULL,
		     updated_at = now()
		 WHERE id = $1`, id)
}

func (r *UserRepository) ClearRefreshHash(ctx context.Context, id string) error {
	return r.execOne(ctx, "clear refresh hash", id,
		`UPDATE users SET refresh_token_hash = NULL, updated_at = now() WHERE id = $1`, id)
}

// InvalidateSessions bumps both counters and drops the stored refresh digest
// in one statement.
func (r *UserRepository) InvalidateSessions(ctx context.Context, id string) error {
	return r.execOne(ctx, "invalidate sessions", id,
		`UPDATE users
		 SET user_version = user_version + 1,
		     refresh_token_version = refresh_token_version + 1,
		     refresh_token_hash = NULL,
		     updated_at = now()
		 WHERE id = $1`, id)
}

// MarkEmailVerified stamps the verification time and promotes a PENDING
// account to ACTIVE. Other statuses are left as they are.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, "mark email verified", id,
		`UPDATE users
		 SET email_verified_at = COALESCE(email_verified_at, $2),
		     status = CASE WHEN status = $3 THEN $4 ELSE status END,
		     updated_at = now()
		 WHERE id = $1`,
		id, at, model.StatusPending, model.StatusActive)
}

func (r *UserRepository) findOne(ctx context.Context, op string, query string, args ...any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.Username, &u.Email, &u.Name, &u.PhoneNumber, &u.PasswordHash, &u.Status,
		&u.EmailVerifiedAt, &u.UserVersion, &u.RefreshTokenVersion, &u.RefreshTokenHash,
		&u.LastLoginAt, &u.Role.ID, &u.Role.Name, &u.CreatedAt, &u.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

func (r *UserRepository) execOne(ctx context.Context, op string, id string, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if isMalformedID(err) {
		return fmt.Errorf("%s %s: %w", op, id, model.ErrUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", op, id, model.ErrUserNotFound)
	}
	return nil
}

// isMalformedID reports a text value Postgres could not cast to the uuid
// id column. No row can match such an id.
func isMalformedID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}
