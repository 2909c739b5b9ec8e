package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"go-user-auth/internal/event"
	"go-user-auth/internal/mailer"
	"go-user-auth/internal/metrics"
	"go-user-auth/internal/model"
	"go-user-auth/pkg/apierror"
)

const (
	msgInvalidRefreshToken     = "Invalid refresh token"
	msgInvalidAccessToken      = "Invalid or expired token"
	msgUserNotFoundOrInactive  = "User not found or inactive"
	msgUserNotFound            = "User not found"
	msgEmailExists             = "Email already exists"
	msgUsernameExists          = "Username already exists"
	msgInvalidVerificationLink = "Invalid or expired verification token"

	tokenTypeBearer = "Bearer"
)

type AuthConfig struct {
	DefaultRole     string
	BcryptCost      int
	AppURL          string
	VerificationTTL time.Duration
}

type AuthDeps struct {
	Users         UserStore
	Sessions      SessionStore
	Permissions   PermissionStore
	Verifications VerificationStore
	Mailer        Mailer
	Tokens        *TokenIssuer
	Events        EventPublisher
	Metrics       *metrics.Recorder
	Logger        *slog.Logger
}

// AuthService composes credential checks, token issuance, the session
// columns and RBAC into the public authentication operations.
//
// Each user has at most one live session: the digest of the most recently
// issued refresh token. Version counters on the user row make every token
// signed against an older version permanently invalid.
type AuthService struct {
	cfg           AuthConfig
	users         UserStore
	sessions      SessionStore
	verifier      *CredentialVerifier
	tokens        *TokenIssuer
	permissions   *PermissionResolver
	verifications VerificationStore
	mailer        Mailer
	events        EventPublisher
	metrics       *metrics.Recorder
	logger        *slog.Logger
	now           func() time.Time
}

func NewAuthService(cfg AuthConfig, deps AuthDeps) (*AuthService, error) {
	if deps.Users == nil || deps.Sessions == nil || deps.Permissions == nil {
		return nil, errors.New("auth service: user, session and permission stores are required")
	}
	if deps.Verifications == nil || deps.Mailer == nil || deps.Tokens == nil {
		return nil, errors.New("auth service: verification store, mailer and token issuer are required")
	}
	if cfg.DefaultRole == "" {
		return nil, errors.New("auth service: default role is required")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = 24 * time.Hour
	}

	verifier, err := NewCredentialVerifier(deps.Users, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var events EventPublisher = noopPublisher{}
	if deps.Events != nil {
		events = deps.Events
	}

	return &AuthService{
		cfg:           cfg,
		users:         deps.Users,
		sessions:      deps.Sessions,
		verifier:      verifier,
		tokens:        deps.Tokens,
		permissions:   NewPermissionResolver(deps.Permissions),
		verifications: deps.Verifications,
		mailer:        deps.Mailer,
		events:        events,
		metrics:       deps.Metrics,
		logger:        logger.With("component", "auth"),
		now:           time.Now,
	}, nil
}

func (s *AuthService) Login(ctx context.Context, in model.LoginInput) (model.LoginResult, error) {
	user, err := s.verifier.Verify(ctx, in.Username, in.Password)
	if err != nil {
		s.metrics.Login(false)
		var apiErr *apierror.APIError
		if errors.As(err, &apiErr) {
			s.publish(ctx, event.TypeLoginFailed, "", map[string]any{"username": in.Username, "reason": apiErr.Message})
		}
		return model.LoginResult{}, err
	}

	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return model.LoginResult{}, err
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return model.LoginResult{}, err
	}

	// Overwrites any previous digest: older refresh tokens stop working.
	refreshHash := HashRefreshToken(refreshToken)
	loggedInAt := s.now().UTC()
	if err := s.sessions.UpdateSession(ctx, user.ID, model.SessionUpdate{
		RefreshTokenHash: &refreshHash,
		LastLoginAt:      &loggedInAt,
	}); err != nil {
		return model.LoginResult{}, fmt.Errorf("persist session: %w", err)
	}

	permissions, err := s.permissions.Permissions(ctx, user.ID)
	if err != nil {
		return model.LoginResult{}, err
	}

	s.metrics.Login(true)
	s.publish(ctx, event.TypeLoginSucceeded, user.ID, nil)
	s.logger.Info("user logged in", "user_id", user.ID)

	return model.LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		User:         toAuthUser(user, permissions),
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token is not rotated and the session row is not written.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.RefreshResult, error) {
	user, err := s.checkRefreshToken(ctx, refreshToken)
	if err != nil {
		s.metrics.Refresh(false)
		return model.RefreshResult{}, err
	}

	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return model.RefreshResult{}, err
	}

	s.metrics.Refresh(true)
	return model.RefreshResult{
		AccessToken: accessToken,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *AuthService) checkRefreshToken(ctx context.Context, refreshToken string) (*model.User, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		reason := "signature"
		if errors.Is(err, model.ErrTokenExpired) {
			reason = "expired"
		}
		s.rejectRefresh(ctx, "", reason)
		return nil, apierror.Unauthorized(msgInvalidRefreshToken)
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if !user.IsActive() {
		s.rejectRefresh(ctx, claims.UserID, "inactive")
		return nil, apierror.Unauthorized(msgInvalidRefreshToken)
	}

	if claims.RefreshTokenVersion != user.RefreshTokenVersion {
		s.logger.Warn("refresh token version mismatch - possible replay attack",
			"user_id", user.ID,
			"token_version", claims.RefreshTokenVersion,
			"current_version", user.RefreshTokenVersion)
		s.metrics.ReplaySuspected()
		s.publish(ctx, event.TypeReplaySuspected, user.ID, map[string]any{
			"token_version":   claims.RefreshTokenVersion,
			"current_version": user.RefreshTokenVersion,
		})
		return nil, apierror.Unauthorized(msgInvalidRefreshToken)
	}

	presented := HashRefreshToken(refreshToken)
	if user.RefreshTokenHash == nil || subtle.ConstantTimeCompare([]byte(presented), []byte(*user.RefreshTokenHash)) != 1 {
		s.rejectRefresh(ctx, user.ID, "digest")
		return nil, apierror.Unauthorized(msgInvalidRefreshToken)
	}

	return user, nil
}

// Logout drops the stored refresh digest. Access tokens already handed out
// stay valid until they expire.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.ClearRefreshHash(ctx, userID); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return apierror.NotFound(msgUserNotFound, userID)
		}
		return fmt.Errorf("logout: %w", err)
	}

	s.publish(ctx, event.TypeLogout, userID, nil)
	s.logger.Info("user logged out", "user_id", userID)
	return nil
}

// InvalidateAllSessions bumps both version counters and clears the refresh
// digest: every access and refresh token issued so far stops working.
func (s *AuthService) InvalidateAllSessions(ctx context.Context, userID string) error {
	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}

	if err := s.sessions.InvalidateSessions(ctx, userID); err != nil {
		return s.mapWriteError(err, userID, "invalidate sessions")
	}

	s.metrics.Invalidation("all")
	s.publish(ctx, event.TypeSessionsInvalidated, userID, map[string]any{"scope": "all"})
	s.logger.Info("all user sessions invalidated", "user_id", userID)
	return nil
}

// InvalidateAccessTokens bumps only the user version. The refresh token keeps
// working and can mint access tokens carrying the new version.
func (s *AuthService) InvalidateAccessTokens(ctx context.Context, userID string) error {
	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}

	if err := s.sessions.BumpUserVersion(ctx, userID); err != nil {
		return s.mapWriteError(err, userID, "invalidate access tokens")
	}

	s.metrics.Invalidation("access")
	s.publish(ctx, event.TypeAccessInvalidated, userID, nil)
	s.logger.Info("user access tokens invalidated", "user_id", userID)
	return nil
}

// InvalidateRefreshTokens bumps only the refresh version and clears the
// digest. Live access tokens run until expiry but cannot be renewed.
func (s *AuthService) InvalidateRefreshTokens(ctx context.Context, userID string) error {
	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}

	if err := s.sessions.RevokeRefreshTokens(ctx, userID); err != nil {
		return s.mapWriteError(err, userID, "invalidate refresh tokens")
	}

	s.metrics.Invalidation("refresh")
	s.publish(ctx, event.TypeSessionsInvalidated, userID, map[string]any{"scope": "refresh"})
	s.logger.Info("user refresh tokens invalidated", "user_id", userID)
	return nil
}

func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (model.CurrentUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		return model.CurrentUser{}, fmt.Errorf("get current user: %w", err)
	}
	if !user.IsActive() {
		return model.CurrentUser{}, apierror.Unauthorized(msgUserNotFoundOrInactive)
	}

	permissions, err := s.permissions.Permissions(ctx, userID)
	if err != nil {
		return model.CurrentUser{}, err
	}

	s.logger.Debug("user permissions fetched", "user_id", userID, "permission_count", len(permissions))

	return model.CurrentUser{
		AuthUser:        toAuthUser(user, permissions),
		Status:          user.Status,
		EmailVerifiedAt: user.EmailVerifiedAt,
	}, nil
}

// ValidateAccessToken authenticates a bearer token: signature, expiry, an
// ACTIVE owner, and a userVersion equal to the stored one.
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (*model.AccessClaims, error) {
	claims, err := s.tokens.ParseAccessToken(token)
	if err != nil {
		return nil, apierror.Unauthorized(msgInvalidAccessToken)
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		return nil, fmt.Errorf("validate access token: %w", err)
	}
	if !user.IsActive() || claims.UserVersion != user.UserVersion {
		return nil, apierror.Unauthorized(msgInvalidAccessToken)
	}

	return claims, nil
}

func (s *AuthService) HasPermission(ctx context.Context, userID string, code string) (bool, error) {
	return s.permissions.HasPermission(ctx, userID, code)
}

// CreateUser registers a PENDING account and mails a verification link.
// No tokens are issued. Conflicts are reported email first, then username.
func (s *AuthService) CreateUser(ctx context.Context, in model.RegisterInput) (*model.User, error) {
	emailTaken, err := s.exists(s.users.FindByEmail(ctx, in.Email))
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	usernameTaken, err := s.exists(s.users.FindByUsername(ctx, in.Username))
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	role, err := s.users.FindRoleByName(ctx, s.cfg.DefaultRole)
	if err != nil && !errors.Is(err, model.ErrRoleNotFound) {
		return nil, fmt.Errorf("find default role: %w", err)
	}

	if emailTaken {
		return nil, apierror.Validation(msgEmailExists, "email")
	}
	if usernameTaken {
		return nil, apierror.Validation(msgUsernameExists, "username")
	}
	if role == nil {
		return nil, apierror.Validation(fmt.Sprintf("Default role %s not found", s.cfg.DefaultRole), "role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, apierror.Validation("Password must be at most 72 bytes", "password")
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, model.NewUser{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		Name:         in.Name,
		PhoneNumber:  in.PhoneNumber,
		PasswordHash: string(hash),
		RoleID:       role.ID,
	})
	if errors.Is(err, model.ErrUserAlreadyExists) {
		return nil, apierror.Validation("Email or username already exists", "")
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.metrics.Registration()
	s.publish(ctx, event.TypeUserRegistered, user.ID, map[string]any{"role": role.Name})
	s.logger.Info("user registered", "user_id", user.ID)

	s.sendVerification(ctx, user)
	return user, nil
}

// ResendVerification mails a fresh link to a PENDING, unverified account.
// Unknown or already verified addresses succeed silently.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}
	if user.EmailVerifiedAt != nil || user.Status != model.StatusPending {
		return nil
	}

	s.sendVerification(ctx, user)
	return nil
}

// VerifyEmail consumes a verification token, stamps emailVerifiedAt and
// promotes the account from PENDING to ACTIVE.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		s.metrics.EmailVerification(false)
		return apierror.Validation(msgInvalidVerificationLink, "token")
	}

	userID, err := s.verifications.Consume(ctx, hashToken(token))
	if errors.Is(err, model.ErrTokenNotFound) {
		s.metrics.EmailVerification(false)
		return apierror.Validation(msgInvalidVerificationLink, "token")
	}
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}

	if err := s.users.MarkEmailVerified(ctx, userID, s.now().UTC()); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			s.metrics.EmailVerification(false)
			return apierror.Validation(msgInvalidVerificationLink, "token")
		}
		return fmt.Errorf("verify email: %w", err)
	}

	s.metrics.EmailVerification(true)
	s.publish(ctx, event.TypeEmailVerified, userID, nil)
	s.logger.Info("email verified", "user_id", userID)
	return nil
}

// sendVerification stores a new token digest and mails the link. Delivery
// failures are logged, not returned: the account already exists and the
// user can ask for another link.
func (s *AuthService) sendVerification(ctx context.Context, user *model.User) {
	token, err := randomToken()
	if err != nil {
		s.logger.Error("generate verification token", "user_id", user.ID, "error", err)
		return
	}

	if err := s.verifications.Save(ctx, hashToken(token), user.ID, s.cfg.VerificationTTL); err != nil {
		s.logger.Error("store verification token", "user_id", user.ID, "error", err)
		return
	}

	email, err := mailer.BuildVerificationEmail(user.Email, mailer.VerificationData{
		AppURL:    s.cfg.AppURL,
		Token:     token,
		Name:      user.Name,
		Username:  user.Username,
		ExpiresIn: s.cfg.VerificationTTL,
	})
	if err != nil {
		s.logger.Error("render verification email", "user_id", user.ID, "error", err)
		return
	}

	if err := s.mailer.Send(ctx, email); err != nil {
		s.logger.Error("send verification email", "user_id", user.ID, "error", err)
	}
}

func (s *AuthService) requireUser(ctx context.Context, userID string) error {
	_, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return apierror.NotFound(msgUserNotFound, userID)
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	return nil
}

func (s *AuthService) mapWriteError(err error, userID string, op string) error {
	if errors.Is(err, model.ErrUserNotFound) {
		return apierror.NotFound(msgUserNotFound, userID)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *AuthService) exists(user *model.User, err error) (bool, error) {
	if errors.Is(err, model.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

func (s *AuthService) rejectRefresh(ctx context.Context, userID string, reason string) {
	s.publish(ctx, event.TypeRefreshRejected, userID, map[string]any{"reason": reason})
}

func (s *AuthService) publish(ctx context.Context, t event.Type, userID string, payload map[string]any) {
	s.events.Publish(event.Event{
		Type:    t,
		UserID:  userID,
		Payload: payload,
		Actor:   event.ActorFromContext(ctx),
	})
}

func toAuthUser(user *model.User, permissions []string) model.AuthUser {
	return model.AuthUser{
		ID:          user.ID,
		Email:       user.Email,
		Username:    user.Username,
		Name:        user.Name,
		Role:        user.Role,
		Permissions: permissions,
	}
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
