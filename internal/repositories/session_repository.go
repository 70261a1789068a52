package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pasiforum/backend/internal/models"
	"go.uber.org/zap"
)

// sessionRepository provides access to the sessions table
type sessionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sql.DB, logger *zap.Logger) *sessionRepository {
	return &sessionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new session into the database
func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, role_snapshot, csrf_token, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.RoleSnapshot,
		session.CSRFToken,
		session.ExpiresAt,
	)
	if err != nil {
		r.logger.Error("failed to create session", zap.Error(err))
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByID retrieves a live session by id. Expired sessions are treated
// the same as absent ones.
func (r *sessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, role_snapshot, csrf_token, expires_at
		FROM sessions
		WHERE id = ? AND expires_at > ?
		LIMIT 1
	`

	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, id, time.Now().UTC()).Scan(
		&session.ID,
		&session.UserID,
		&session.RoleSnapshot,
		&session.CSRFToken,
		&session.ExpiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		r.logger.Error("failed to get session", zap.Error(err))
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// Delete removes a session. Deleting a session that does not exist is not
// an error, so logout stays idempotent.
func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("failed to delete session", zap.Error(err))
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}
