package services

import (
	"context"
	"strings"

	"github.com/pasiforum/backend/internal/models"
	"go.uber.org/zap"
)

// MessageRepository is the interface that wraps methods for messages table data access
type MessageRepository interface {
	// Create inserts a new message and fills in its id and timestamp.
	Create(ctx context.Context, message *models.Message) error
	// GetAll retrieves all messages newest first.
	GetAll(ctx context.Context) ([]models.Message, error)
	// Delete removes a message by id. Returns models.ErrMessageNotFound
	// when no such message exists.
	Delete(ctx context.Context, id int64) error
}

// forumService handles the message feed
type forumService struct {
	messageRepo MessageRepository
	logger      *zap.Logger
}

// NewForumService creates a new forum service
func NewForumService(messageRepo MessageRepository, logger *zap.Logger) *forumService {
	return &forumService{
		messageRepo: messageRepo,
		logger:      logger,
	}
}

// List returns all messages ordered newest first. The list is recomputed on
// every call; there is no caching.
func (s *forumService) List(ctx context.Context) ([]models.Message, error) {
	return s.messageRepo.GetAll(ctx)
}

// Post creates a message attributed to the session's user. Surrounding
// whitespace is trimmed; a message that ends up empty is rejected.
func (s *forumService) Post(ctx context.Context, session *models.Session, content string) (*models.Message, error) {
	if session == nil {
		return nil, models.ErrUnauthenticated
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.ErrEmptyContent
	}

	message := &models.Message{
		UserID:  session.UserID,
		Content: content,
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	return message, nil
}

// Delete permanently removes a message. Only sessions whose role snapshot
// meets the administrator threshold may delete.
func (s *forumService) Delete(ctx context.Context, session *models.Session, messageID int64) error {
	if session == nil {
		return models.ErrUnauthenticated
	}
	if session.RoleSnapshot < models.RoleAdmin {
		return models.ErrForbidden
	}

	if err := s.messageRepo.Delete(ctx, messageID); err != nil {
		return err
	}

	s.logger.Info("message deleted",
		zap.Int64("messageId", messageID),
		zap.Int("userId", session.UserID),
	)
	return nil
}
