package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"go-user-auth/internal/database"
	"go-user-auth/internal/model"
)

// VerificationRepository keeps digests of outstanding email verification
// tokens in Postgres. Plaintext tokens are never stored.
type VerificationRepository struct {
	db database.DBTX
}

func NewVerificationRepository(db database.DBTX) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func (r *VerificationRepository) Save(ctx context.Context, tokenHash string, userID string, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO email_verification_tokens (token_hash, user_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		tokenHash, userID, now, now.Add(ttl))
	if err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}
	return nil
}

// Consume deletes the token and returns its owner. A token can be consumed
// once; expired tokens are reported as missing.
func (r *VerificationRepository) Consume(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := r.db.QueryRow(ctx,
		`DELETE FROM email_verification_tokens
		 WHERE token_hash = $1 AND expires_at > now()
		 RETURNING user_id`, tokenHash).Scan(&userID)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", model.ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume verification token: %w", err)
	}
	return userID, nil
}

func (r *VerificationRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM email_verification_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired verification tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
