package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pasiforum/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository is the interface that wraps methods for users table data access
type UserRepository interface {
	// Create inserts a new user. Returns models.ErrUsernameTaken when the
	// username is already in use.
	Create(ctx context.Context, user *models.User) error
	// GetByUsername retrieves a user by username. Returns
	// models.ErrUserNotFound when no such user exists.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// ExistsByUsername checks if a user with such username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// SessionRepository is the interface that wraps methods for sessions table data access
type SessionRepository interface {
	// Create inserts a new session.
	Create(ctx context.Context, session *models.Session) error
	// GetByID retrieves a live session by id. Returns
	// models.ErrSessionNotFound when the session is absent or expired.
	GetByID(ctx context.Context, id string) (*models.Session, error)
	// Delete removes a session. Idempotent.
	Delete(ctx context.Context, id string) error
}

// authService handles registration, login and logout
type authService struct {
	userRepo    UserRepository
	sessionRepo SessionRepository
	sessionTTL  time.Duration
	logger      *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	sessionTTL time.Duration,
	logger *zap.Logger,
) *authService {
	return &authService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		sessionTTL:  sessionTTL,
		logger:      logger,
	}
}

// Register creates a new user account and logs it in immediately.
// The password is bcrypt-hashed; the plaintext is never stored.
func (s *authService) Register(ctx context.Context, username, password string, role models.Role) (*models.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, models.ErrUsernameTaken
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		Role:         role,
	}

	// A concurrent registration can still win the race between the existence
	// check and the insert; the unique index reports it as ErrUsernameTaken.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("username", username), zap.Int("role", int(role)))

	return s.Login(ctx, username, password)
}

// Login authenticates a user and creates a session carrying a snapshot of the
// user's role and a fresh CSRF token. Unknown usernames and wrong passwords
// are both reported as models.ErrInvalidCredentials so callers cannot tell
// them apart.
func (s *authService) Login(ctx context.Context, username, password string) (*models.Session, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if err == models.ErrUserNotFound {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	session := &models.Session{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		RoleSnapshot: user.Role,
		CSRFToken:    uuid.NewString(),
		ExpiresAt:    time.Now().UTC().Add(s.sessionTTL),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// Logout destroys a session. Destroying a session twice is not an error.
func (s *authService) Logout(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Delete(ctx, sessionID)
}

// Session retrieves the session for the given id
func (s *authService) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.sessionRepo.GetByID(ctx, sessionID)
}
