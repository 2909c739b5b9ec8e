package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"go-user-auth/internal/model"
)

func newRedisStore(t *testing.T) (*RedisVerificationStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisVerificationStore(client), mr
}

func TestRedisVerificationStore(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes a token exactly once", func(t *testing.T) {
		store, mr := newRedisStore(t)

		require.NoError(t, store.Save(ctx, "digest-1", "user-1", time.Hour))
		require.True(t, mr.Exists(verificationKeyPrefix+"digest-1"))

		userID, err := store.Consume(ctx, "digest-1")
		require.NoError(t, err)
		require.Equal(t, "user-1", userID)

		_, err = store.Consume(ctx, "digest-1")
		require.ErrorIs(t, err, model.ErrTokenNotFound)
	})

	t.Run("expired tokens are gone", func(t *testing.T) {
		store, mr := newRedisStore(t)

		require.NoError(t, store.Save(ctx, "digest-2", "user-2", time.Minute))
		mr.FastForward(2 * time.Minute)

		_, err := store.Consume(ctx, "digest-2")
		require.ErrorIs(t, err, model.ErrTokenNotFound)
	})

	t.Run("unknown token", func(t *testing.T) {
		store, _ := newRedisStore(t)

		_, err := store.Consume(ctx, "never-issued")
		require.ErrorIs(t, err, model.ErrTokenNotFound)

		removed, err := store.CleanExpired(ctx)
		require.NoError(t, err)
		require.Zero(t, removed)
	})

	t.Run("server errors are wrapped", func(t *testing.T) {
		store, mr := newRedisStore(t)
		mr.Close()

		err := store.Save(ctx, "digest-3", "user-3", time.Minute)
		require.Error(t, err)
		require.Contains(t, err.Error(), "store verification token")
	})
}
