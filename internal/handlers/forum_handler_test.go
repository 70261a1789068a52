package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/pasiforum/backend/internal/middlewares"
	"github.com/pasiforum/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockForumService implements ForumService with overridable behavior per test
type mockForumService struct {
	listFunc    func(ctx context.Context) ([]models.Message, error)
	postFunc    func(ctx context.Context, session *models.Session, content string) (*models.Message, error)
	deleteFunc  func(ctx context.Context, session *models.Session, messageID int64) error
	deleteCalls int
}

func (m *mockForumService) List(ctx context.Context) ([]models.Message, error) {
	return m.listFunc(ctx)
}

func (m *mockForumService) Post(ctx context.Context, session *models.Session, content string) (*models.Message, error) {
	return m.postFunc(ctx, session, content)
}

func (m *mockForumService) Delete(ctx context.Context, session *models.Session, messageID int64) error {
	m.deleteCalls++
	return m.deleteFunc(ctx, session, messageID)
}

// withSession runs a handler behind the session middleware so the session
// lands in the request context the same way it does in production
func withSession(session *models.Session, handler http.HandlerFunc) (http.Handler, *http.Cookie) {
	store := &sessionStoreStub{session: session}
	wrapped := middlewares.SessionMiddleware(store, zap.NewNop())(handler)
	return wrapped, sessionCookie(session.ID)
}

func TestForumHandler_GetMessages(t *testing.T) {
	now := time.Now().UTC()

	t.Run("success", func(t *testing.T) {
		svc := &mockForumService{
			listFunc: func(ctx context.Context) ([]models.Message, error) {
				return []models.Message{
					{ID: 2, UserID: 1, Username: "pasi", Content: "second", SentAt: now},
					{ID: 1, UserID: 2, Username: "admin", Content: "first", SentAt: now.Add(-time.Minute)},
				}, nil
			},
		}
		handler := NewForumHandler(svc, zap.NewNop())

		rec := httptest.NewRecorder()
		handler.GetMessages(rec, httptest.NewRequest(http.MethodGet, "/forum", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"messages"`)
		assert.Contains(t, rec.Body.String(), `"second"`)
		assert.Contains(t, rec.Body.String(), `"first"`)
	})

	t.Run("empty feed renders as an empty array", func(t *testing.T) {
		svc := &mockForumService{
			listFunc: func(ctx context.Context) ([]models.Message, error) {
				return []models.Message{}, nil
			},
		}
		handler := NewForumHandler(svc, zap.NewNop())

		rec := httptest.NewRecorder()
		handler.GetMessages(rec, httptest.NewRequest(http.MethodGet, "/forum", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"messages":[]}`, rec.Body.String())
	})

	t.Run("service failure", func(t *testing.T) {
		svc := &mockForumService{
			listFunc: func(ctx context.Context) ([]models.Message, error) {
				return nil, errors.New("database down")
			},
		}
		handler := NewForumHandler(svc, zap.NewNop())

		rec := httptest.NewRecorder()
		handler.GetMessages(rec, httptest.NewRequest(http.MethodGet, "/forum", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestForumHandler_NewChat(t *testing.T) {
	t.Run("returns the session csrf token", func(t *testing.T) {
		session := liveSession(models.RoleUser)
		handler := NewForumHandler(&mockForumService{}, zap.NewNop())
		wrapped, cookie := withSession(session, handler.NewChat)

		req := httptest.NewRequest(http.MethodGet, "/new_chat", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()

		wrapped.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"csrfToken":"`+session.CSRFToken+`"}`, rec.Body.String())
	})

	t.Run("no session", func(t *testing.T) {
		handler := NewForumHandler(&mockForumService{}, zap.NewNop())

		rec := httptest.NewRecorder()
		handler.NewChat(rec, httptest.NewRequest(http.MethodGet, "/new_chat", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestForumHandler_SendChat(t *testing.T) {
	session := liveSession(models.RoleUser)

	t.Run("success", func(t *testing.T) {
		svc := &mockForumService{
			postFunc: func(ctx context.Context, s *models.Session, content string) (*models.Message, error) {
				require.NotNil(t, s)
				return &models.Message{ID: 1, UserID: s.UserID, Content: content, SentAt: time.Now().UTC()}, nil
			},
		}
		handler := NewForumHandler(svc, zap.NewNop())
		wrapped, cookie := withSession(session, handler.SendChat)

		req := formRequest(http.MethodPost, "/send_chat", url.Values{"content": {"hello forum"}})
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()

		wrapped.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"hello forum"`)
	})

	t.Run("empty content", func(t *testing.T) {
		svc := &mockForumService{
			postFunc: func(ctx context.Context, s *models.Session, content string) (*models.Message, error) {
				return nil, models.ErrEmptyContent
			},
		}
		handler := NewForumHandler(svc, zap.NewNop())
		wrapped, cookie := withSession(session, handler.SendChat)

		req := formRequest(http.MethodPost, "/send_chat", url.Values{"content": {"   "}})
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()

		wrapped.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Message content cannot be empty"}`, rec.Body.String())
	})

	t.Run("no session", func(t *testing.T) {
		handler := NewForumHandler(&mockForumService{}, zap.NewNop())

		rec := httptest.NewRecorder()
		handler.SendChat(rec, formRequest(http.MethodPost, "/send_chat", url.Values{"content": {"hello"}}))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestForumHandler_DeleteChat(t *testing.T) {
	adminSession := liveSession(models.RoleAdmin)

	tests := []struct {
		name           string
		id             string
		deleteErr      error
		expectedStatus int
		expectedError  string
		expectCall     bool
	}{
		{
			name:           "success",
			id:             "42",
			expectedStatus: http.StatusOK,
			expectCall:     true,
		},
		{
			name:           "non-numeric id",
			id:             "abc",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid message id",
		},
		{
			// An injection attempt never reaches the service layer
			name:           "sql injection attempt",
			id:             "1 OR 1=1",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid message id",
		},
		{
			name:           "missing id",
			id:             "",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid message id",
		},
		{
			name:           "forbidden",
			id:             "42",
			deleteErr:      models.ErrForbidden,
			expectedStatus: http.StatusForbidden,
			expectedError:  "Only admin users can delete messages",
			expectCall:     true,
		},
		{
			name:           "message not found",
			id:             "999",
			deleteErr:      models.ErrMessageNotFound,
			expectedStatus: http.StatusNotFound,
			expectedError:  "Message not found",
			expectCall:     true,
		},
		{
			name:           "service failure",
			id:             "42",
			deleteErr:      errors.New("database down"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "failed to delete message",
			expectCall:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockForumService{
				deleteFunc: func(ctx context.Context, s *models.Session, messageID int64) error {
					return tt.deleteErr
				},
			}
			handler := NewForumHandler(svc, zap.NewNop())
			wrapped, cookie := withSession(adminSession, handler.DeleteChat)

			req := formRequest(http.MethodPost, "/delete_chat", url.Values{"id": {tt.id}})
			req.AddCookie(cookie)
			rec := httptest.NewRecorder()

			wrapped.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedError != "" {
				assert.JSONEq(t, `{"error":"`+tt.expectedError+`"}`, rec.Body.String())
			}
			if tt.expectCall {
				assert.Equal(t, 1, svc.deleteCalls)
			} else {
				assert.Zero(t, svc.deleteCalls)
			}
		})
	}
}
