package main

import (
	"log/slog"
	"os"

	"go-user-auth/internal/app"
	"go-user-auth/internal/logger"
)

func main() {
	// Bootstrap logger until the configured one is installed by app.New.
	slog.SetDefault(slog.New(logger.NewPrettyHandler(os.Stdout, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		ReplaceAttr: logger.Redact,
	})))

	application, err := app.New()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
