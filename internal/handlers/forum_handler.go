package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/pasiforum/backend/internal/middlewares"
	"github.com/pasiforum/backend/internal/models"
	"go.uber.org/zap"
)

// ForumService is the interface that wraps methods for the message feed business logic
type ForumService interface {
	// List returns all messages ordered newest first.
	List(ctx context.Context) ([]models.Message, error)
	// Post creates a message attributed to the session's user. Returns
	// models.ErrEmptyContent when the trimmed content is empty.
	Post(ctx context.Context, session *models.Session, content string) (*models.Message, error)
	// Delete removes a message. Returns models.ErrForbidden for
	// non-administrators and models.ErrMessageNotFound for unknown ids.
	Delete(ctx context.Context, session *models.Session, messageID int64) error
}

// ForumHandler handles forum-related HTTP requests
type ForumHandler struct {
	BaseHandler
	forumService ForumService
}

// NewForumHandler creates a new forum handler
func NewForumHandler(forumService ForumService, logger *zap.Logger) *ForumHandler {
	return &ForumHandler{
		BaseHandler:  BaseHandler{Logger: logger},
		forumService: forumService,
	}
}

// GetMessages handles GET /forum
// @Summary List forum messages
// @Description All chat messages, newest first.
// @Tags forum
// @Produce json
// @Success 200 {object} map[string][]models.Message
// @Failure 401 {object} map[string]string "Authentication required"
// @Router /forum [get]
func (h *ForumHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.forumService.List(r.Context())
	if err != nil {
		h.Logger.Error("failed to list messages", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string][]models.Message{"messages": messages})
}

// NewChat handles GET /new_chat
// @Summary Compose form data
// @Description Returns the CSRF token the compose form must echo back.
// @Tags forum
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string "Authentication required"
// @Router /new_chat [get]
func (h *ForumHandler) NewChat(w http.ResponseWriter, r *http.Request) {
	session, ok := middlewares.GetSession(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]string{"csrfToken": session.CSRFToken})
}

// SendChat handles POST /send_chat
// @Summary Post a message
// @Description Create a chat message attributed to the logged-in user.
// @Tags forum
// @Accept x-www-form-urlencoded
// @Produce json
// @Param content formData string true "Message content"
// @Param csrf_token formData string true "CSRF token"
// @Success 201 {object} map[string]models.Message
// @Failure 400 {object} map[string]string "Message content cannot be empty"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 403 {object} map[string]string "Invalid CSRF token"
// @Router /send_chat [post]
func (h *ForumHandler) SendChat(w http.ResponseWriter, r *http.Request) {
	session, ok := middlewares.GetSession(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	message, err := h.forumService.Post(r.Context(), session, r.PostFormValue("content"))
	if err != nil {
		if errors.Is(err, models.ErrEmptyContent) {
			h.RespondError(w, http.StatusBadRequest, "Message content cannot be empty")
			return
		}
		h.Logger.Error("failed to post message", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to post message")
		return
	}

	h.RespondJSON(w, http.StatusCreated, map[string]*models.Message{"message": message})
}

// DeleteChat handles POST /delete_chat
// @Summary Delete a message
// @Description Permanently delete a chat message. Administrators only.
// @Tags forum
// @Accept x-www-form-urlencoded
// @Produce json
// @Param id formData int true "Message id"
// @Param csrf_token formData string true "CSRF token"
// @Success 200 {object} map[string]string "Message deleted"
// @Failure 400 {object} map[string]string "Invalid message id"
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Failure 404 {object} map[string]string "Message not found"
// @Router /delete_chat [post]
func (h *ForumHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	session, ok := middlewares.GetSession(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	// The id must parse as an integer before it goes anywhere near the
	// store; anything else is rejected here.
	messageID, err := strconv.ParseInt(r.PostFormValue("id"), 10, 64)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	if err := h.forumService.Delete(r.Context(), session, messageID); err != nil {
		switch {
		case errors.Is(err, models.ErrForbidden):
			h.RespondError(w, http.StatusForbidden, "Only admin users can delete messages")
		case errors.Is(err, models.ErrMessageNotFound):
			h.RespondError(w, http.StatusNotFound, "Message not found")
		default:
			h.Logger.Error("failed to delete message", zap.Error(err))
			h.RespondError(w, http.StatusInternalServerError, "failed to delete message")
		}
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "message deleted"})
}
