package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pasiforum/backend/internal/models"
	"go.uber.org/zap"
)

// messageRepository provides access to the messages table
type messageRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *sql.DB, logger *zap.Logger) *messageRepository {
	return &messageRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new message into the database. The timestamp is assigned
// here so the returned message is complete without a second query.
func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	query := `
		INSERT INTO messages (user_id, content, sent_at)
		VALUES (?, ?, ?)
	`

	message.SentAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query, message.UserID, message.Content, message.SentAt)
	if err != nil {
		r.logger.Error("failed to create message", zap.Error(err))
		return fmt.Errorf("failed to create message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Error("failed to get last insert id", zap.Error(err))
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	message.ID = id
	return nil
}

// GetAll retrieves all messages with their author names, newest first.
// The id tie-break keeps messages created within one clock tick ordered.
func (r *messageRepository) GetAll(ctx context.Context) ([]models.Message, error) {
	query := `
		SELECT m.id, m.user_id, u.username, m.content, m.sent_at
		FROM messages m
		JOIN users u ON u.id = m.user_id
		ORDER BY m.sent_at DESC, m.id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to get messages", zap.Error(err))
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var message models.Message
		if err := rows.Scan(
			&message.ID,
			&message.UserID,
			&message.Username,
			&message.Content,
			&message.SentAt,
		); err != nil {
			r.logger.Error("failed to scan message", zap.Error(err))
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("failed to iterate messages", zap.Error(err))
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// Delete removes a message by id. The id is bound as a typed parameter and
// never interpolated into the query. Returns models.ErrMessageNotFound when
// no row matches.
func (r *messageRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM messages WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("failed to delete message", zap.Error(err), zap.Int64("messageId", id))
		return fmt.Errorf("failed to delete message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		r.logger.Error("failed to get rows affected", zap.Error(err))
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return models.ErrMessageNotFound
	}

	return nil
}
