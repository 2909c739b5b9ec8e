package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"go-user-auth/internal/config"
	"go-user-auth/internal/database"
	"go-user-auth/internal/event"
	"go-user-auth/internal/handler"
	"go-user-auth/internal/logger"
	"go-user-auth/internal/mailer"
	"go-user-auth/internal/metrics"
	"go-user-auth/internal/middleware"
	"go-user-auth/internal/repository"
	"go-user-auth/internal/router"
	"go-user-auth/internal/service"
)

const verificationCleanupInterval = time.Hour

type App struct {
	server       *http.Server
	logger       *slog.Logger
	cleanupFuncs []func()
}

type verificationBackend interface {
	service.VerificationStore
	service.ExpiredTokenCleaner
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	var cleanups []func()
	fail := func(err error) (*App, error) {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
		return nil, err
	}

	log.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	cleanups = append(cleanups, db.Close)

	if err := db.Migrate(context.Background()); err != nil {
		return fail(fmt.Errorf("failed to apply migrations: %w", err))
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	rbacRepo := repository.NewRBACRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	log.Info("database ready")

	verifications, closeVerifications, err := newVerificationBackend(cfg, db)
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, closeVerifications)

	tokens, err := service.NewTokenIssuer(service.TokenConfig{
		AccessSecret:  []byte(cfg.JWTSecret),
		RefreshSecret: []byte(cfg.JWTRefreshSecret),
		AccessTTL:     cfg.JWTAccessTTL,
		RefreshTTL:    cfg.JWTRefreshTTL,
		Issuer:        cfg.JWTIssuer,
	})
	if err != nil {
		return fail(fmt.Errorf("failed to initialize token issuer: %w", err))
	}

	bus := event.NewBus()
	recorder := metrics.New()

	authService, err := service.NewAuthService(service.AuthConfig{
		DefaultRole:     cfg.DefaultRole,
		BcryptCost:      cfg.BcryptCost,
		AppURL:          cfg.AppURL,
		VerificationTTL: cfg.VerificationTTL,
	}, service.AuthDeps{
		Users:         userRepo,
		Sessions:      userRepo,
		Permissions:   rbacRepo,
		Verifications: verifications,
		Mailer:        newMailer(cfg, log),
		Tokens:        tokens,
		Events:        bus,
		Metrics:       recorder,
		Logger:        log,
	})
	if err != nil {
		return fail(fmt.Errorf("failed to initialize auth service: %w", err))
	}

	auditService := service.NewAuditService(auditRepo, bus, log)

	backgroundCtx, cancelBackground := context.WithCancel(context.Background())
	cleanups = append(cleanups, cancelBackground)
	go auditService.Run(backgroundCtx)
	go service.StartVerificationCleanup(backgroundCtx, verifications, verificationCleanupInterval, log)

	authMiddleware := middleware.NewAuthMiddleware(authService, authService)
	appRouter := router.New(cfg, log, authMiddleware, router.Handlers{
		Auth: handler.NewAuthHandler(authService, handler.CookieConfig{
			Secure: cfg.CookieSecure,
			MaxAge: cfg.JWTRefreshTTL,
		}),
		Users:   handler.NewUserHandler(authService),
		Audit:   handler.NewAuditHandler(auditService),
		Metrics: recorder.Handler(),
		Health:  db,
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:       server,
		logger:       log,
		cleanupFuncs: cleanups,
	}, nil
}

// newVerificationBackend picks Redis or Postgres for email verification
// tokens. The returned func releases whatever the backend opened.
func newVerificationBackend(cfg *config.Config, db *database.DB) (verificationBackend, func(), error) {
	if cfg.VerificationStore != config.VerificationStoreRedis {
		return repository.NewVerificationRepository(db.Pool), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("verification tokens stored in redis", "addr", opts.Addr)
	return repository.NewRedisVerificationStore(client), func() { _ = client.Close() }, nil
}

func newMailer(cfg *config.Config, log *slog.Logger) service.Mailer {
	if cfg.SMTPHost == "" {
		log.Warn("SMTP_HOST not set, verification emails will only be logged")
		return mailer.NewLogMailer(log)
	}

	return mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
}

func (a *App) Run() error {
	go func() {
		a.logger.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			a.logger.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)

	// Release in reverse order of acquisition, after in-flight requests finish.
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	a.logger.Info("server stopped")
	return nil
}
