package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"go-user-auth/internal/model"
)

const verificationKeyPrefix = "auth:verify:"

// RedisVerificationStore keeps verification token digests as expiring keys.
// GETDEL makes consumption single-use without a script.
type RedisVerificationStore struct {
	client redis.UniversalClient
}

func NewRedisVerificationStore(client redis.UniversalClient) *RedisVerificationStore {
	return &RedisVerificationStore{client: client}
}

func (s *RedisVerificationStore) Save(ctx context.Context, tokenHash string, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, verificationKeyPrefix+tokenHash, userID, ttl).Err(); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}
	return nil
}

func (s *RedisVerificationStore) Consume(ctx context.Context, tokenHash string) (string, error) {
	userID, err := s.client.GetDel(ctx, verificationKeyPrefix+tokenHash).Result()
	if errors.Is(err, redis.Nil) {
		return "", model.ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume verification token: %w", err)
	}
	return userID, nil
}

// CleanExpired is a no-op; Redis expires keys itself.
func (s *RedisVerificationStore) CleanExpired(context.Context) (int64, error) {
	return 0, nil
}
