package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"debt_flow_app_go/models"
	"debt_flow_app_go/services/backend"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// SessionTokenLength is the length of the session token in bytes (64 chars hex)
	SessionTokenLength = 32
	// DefaultSessionDuration applies when the backend token carries no expiry
	DefaultSessionDuration = 7 * 24 * time.Hour
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// LoginInput is the login form
type LoginInput struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"notblank"`
}

// Validate checks the form before any backend call
func (in LoginInput) Validate() FieldErrors {
	return validateStruct(in)
}

// AuthAPI is the slice of the backend auth service the store needs
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
}

// AuthAPIFactory returns an AuthAPI bound to a bearer token ("" for login)
type AuthAPIFactory func(token string) AuthAPI

// AuthStore owns browser sessions: it logs in against the backend, keeps
// the encrypted bearer token in the sessions table and tears down the
// per-session UI state on logout.
type AuthStore struct {
	db       *gorm.DB
	cipher   *TokenCipher
	api      AuthAPIFactory
	toasts   *ToastStore
	progress *ProgressStore
	log      *zap.Logger
	now      func() time.Time
}

// NewAuthStore wires the store. toasts and progress may be nil.
func NewAuthStore(db *gorm.DB, cipher *TokenCipher, api AuthAPIFactory, toasts *ToastStore, progress *ProgressStore) *AuthStore {
	return &AuthStore{
		db:       db,
		cipher:   cipher,
		api:      api,
		toasts:   toasts,
		progress: progress,
		log:      zap.L().Named("auth"),
		now:      time.Now,
	}
}

// GenerateSessionToken generates a cryptographically secure random token
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, SessionTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// TokenExpiry reads exp from a JWT without verifying it; the backend
// remains the authority. Opaque or expired tokens get the default duration.
func TokenExpiry(token string, now time.Time) time.Time {
	fallback := now.Add(DefaultSessionDuration)

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fallback
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || !exp.After(now) {
		return fallback
	}
	return exp.Time
}

// Login authenticates against the backend and opens a local session
func (s *AuthStore) Login(ctx context.Context, in LoginInput, ipAddress, userAgent string) (*models.Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	if errs := in.Validate(); len(errs) > 0 {
		return nil, errs
	}

	res, err := s.api("").Login(ctx, in.Email, in.Password)
	if err != nil {
		s.log.Info("login rejected", zap.String("email", in.Email), zap.Error(err))
		return nil, err
	}

	token, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}
	sealed, err := s.cipher.Encrypt(res.Token)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &models.Session{
		Token:          token,
		BackendToken:   sealed,
		ExpiresAt:      TokenExpiry(res.Token, now),
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		LastValidateAt: now,
	}
	applyUser(session, &res.User)

	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.log.Info("user logged in",
		zap.String("user_id", session.UserID),
		zap.String("role", string(session.UserRole)),
	)
	return session, nil
}

func applyUser(session *models.Session, user *models.User) {
	session.UserID = user.ID
	session.UserName = user.Name
	session.UserEmail = user.Email
	session.UserRole = user.Role
	session.AgencyID = user.AgencyID
}

// Current validates a cookie token and returns its session
func (s *AuthStore) Current(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	var session models.Session
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}

	if !s.now().Before(session.ExpiresAt) {
		s.drop(ctx, &session)
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// BackendToken decrypts the bearer token of a session
func (s *AuthStore) BackendToken(session *models.Session) (string, error) {
	return s.cipher.Decrypt(session.BackendToken)
}

// Refresh re-reads the user from /auth/me. A 401 ends the session.
func (s *AuthStore) Refresh(ctx context.Context, session *models.Session) (*models.User, error) {
	token, err := s.BackendToken(session)
	if err != nil {
		s.drop(ctx, session)
		return nil, ErrSessionNotFound
	}

	user, err := s.api(token).Me(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			s.drop(ctx, session)
		}
		return nil, err
	}

	applyUser(session, user)
	session.LastValidateAt = s.now()
	if err := s.db.WithContext(ctx).Save(session).Error; err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return user, nil
}

// Logout tells the backend, deletes the session and resets its UI state.
// The local session is removed even when the backend call fails.
func (s *AuthStore) Logout(ctx context.Context, session *models.Session) error {
	if token, err := s.BackendToken(session); err == nil && token != "" {
		if err := s.api(token).Logout(ctx); err != nil {
			s.log.Warn("backend logout failed", zap.String("user_id", session.UserID), zap.Error(err))
		}
	}
	return s.drop(ctx, session)
}

// End removes a session without calling the backend, e.g. after a 401
func (s *AuthStore) End(ctx context.Context, session *models.Session) error {
	return s.drop(ctx, session)
}

func (s *AuthStore) drop(ctx context.Context, session *models.Session) error {
	if s.toasts != nil {
		s.toasts.Reset(session.ID)
	}
	if s.progress != nil {
		s.progress.Reset(session.ID)
	}
	if err := s.db.WithContext(ctx).Where("token = ?", session.Token).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Cleanup removes all expired sessions
func (s *AuthStore) Cleanup(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", s.now()).Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup expired sessions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.log.Info("cleaned up expired sessions", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}
