package service

import (
	"context"
	"log/slog"
	"time"
)

type ExpiredTokenCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

// StartVerificationCleanup purges expired verification tokens once on start
// and then every interval until ctx is cancelled.
func StartVerificationCleanup(ctx context.Context, cleaner ExpiredTokenCleaner, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep := func() {
		removed, err := cleaner.CleanExpired(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("clean expired verification tokens", "error", err)
			}
			return
		}
		if removed > 0 {
			logger.Info("expired verification tokens removed", "count", removed)
		}
	}

	sweep()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
