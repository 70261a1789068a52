package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pasiforum/backend/internal/middlewares"
	"github.com/pasiforum/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockAuthService implements AuthService with overridable behavior per test
type mockAuthService struct {
	registerFunc func(ctx context.Context, username, password string, role models.Role) (*models.Session, error)
	loginFunc    func(ctx context.Context, username, password string) (*models.Session, error)
	logoutFunc   func(ctx context.Context, sessionID string) error
	sessionFunc  func(ctx context.Context, sessionID string) (*models.Session, error)
}

func (m *mockAuthService) Register(ctx context.Context, username, password string, role models.Role) (*models.Session, error) {
	return m.registerFunc(ctx, username, password, role)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*models.Session, error) {
	return m.loginFunc(ctx, username, password)
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	return m.logoutFunc(ctx, sessionID)
}

func (m *mockAuthService) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	return m.sessionFunc(ctx, sessionID)
}

// sessionStoreStub backs the session middleware in handler tests
type sessionStoreStub struct {
	session *models.Session
}

func (s *sessionStoreStub) GetByID(ctx context.Context, id string) (*models.Session, error) {
	if s.session != nil && s.session.ID == id {
		return s.session, nil
	}
	return nil, models.ErrSessionNotFound
}

func liveSession(role models.Role) *models.Session {
	return &models.Session{
		ID:           "11111111-2222-3333-4444-555555555555",
		UserID:       1,
		RoleSnapshot: role,
		CSRFToken:    "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	}
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(value string) *http.Cookie {
	return &http.Cookie{Name: middlewares.SessionCookieName, Value: value}
}

func findSessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == middlewares.SessionCookieName {
			return cookie
		}
	}
	return nil
}

func TestAuthHandler_Index(t *testing.T) {
	session := liveSession(models.RoleUser)

	tests := []struct {
		name         string
		cookie       *http.Cookie
		sessionErr   error
		expectedBody string
	}{
		{
			name:         "no cookie",
			expectedBody: `{"authenticated":false}`,
		},
		{
			name:         "live session",
			cookie:       sessionCookie(session.ID),
			expectedBody: `{"authenticated":true}`,
		},
		{
			name:         "stale cookie",
			cookie:       sessionCookie("expired-session"),
			sessionErr:   models.ErrSessionNotFound,
			expectedBody: `{"authenticated":false}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				sessionFunc: func(ctx context.Context, sessionID string) (*models.Session, error) {
					if tt.sessionErr != nil {
						return nil, tt.sessionErr
					}
					return session, nil
				},
			}
			handler := NewAuthHandler(svc, zap.NewNop())

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()

			handler.Index(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.expectedBody, rec.Body.String())
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	session := liveSession(models.RoleUser)

	tests := []struct {
		name           string
		form           url.Values
		loginErr       error
		expectedStatus int
		expectedError  string
		expectCookie   bool
	}{
		{
			name:           "success",
			form:           url.Values{"username": {"pasi"}, "password": {"pasi"}},
			expectedStatus: http.StatusOK,
			expectCookie:   true,
		},
		{
			name:           "missing username",
			form:           url.Values{"password": {"pasi"}},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "username and password are required",
		},
		{
			name:           "missing password",
			form:           url.Values{"username": {"pasi"}},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "username and password are required",
		},
		{
			name:           "invalid credentials",
			form:           url.Values{"username": {"pasi"}, "password": {"wrong"}},
			loginErr:       models.ErrInvalidCredentials,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Incorrect username or password",
		},
		{
			name:           "service failure",
			form:           url.Values{"username": {"pasi"}, "password": {"pasi"}},
			loginErr:       errors.New("database down"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "failed to login",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				loginFunc: func(ctx context.Context, username, password string) (*models.Session, error) {
					if tt.loginErr != nil {
						return nil, tt.loginErr
					}
					return session, nil
				},
			}
			handler := NewAuthHandler(svc, zap.NewNop())

			rec := httptest.NewRecorder()
			handler.Login(rec, formRequest(http.MethodPost, "/", tt.form))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedError != "" {
				assert.JSONEq(t, `{"error":"`+tt.expectedError+`"}`, rec.Body.String())
			}

			cookie := findSessionCookie(t, rec)
			if tt.expectCookie {
				require.NotNil(t, cookie)
				assert.Equal(t, session.ID, cookie.Value)
				assert.True(t, cookie.HttpOnly)
				assert.Positive(t, cookie.MaxAge)
			} else {
				assert.Nil(t, cookie)
			}
		})
	}
}

func TestAuthHandler_Register(t *testing.T) {
	session := liveSession(models.RoleUser)

	t.Run("success", func(t *testing.T) {
		var gotRole models.Role
		svc := &mockAuthService{
			registerFunc: func(ctx context.Context, username, password string, role models.Role) (*models.Session, error) {
				gotRole = role
				return session, nil
			},
		}
		handler := NewAuthHandler(svc, zap.NewNop())

		rec := httptest.NewRecorder()
		handler.Register(rec, formRequest(http.MethodPost, "/register", url.Values{
			"username": {"newuser"},
			"password": {"pw"},
		}))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, models.RoleUser, gotRole)
		cookie := findSessionCookie(t, rec)
		require.NotNil(t, cookie)
		assert.Equal(t, session.ID, cookie.Value)
	})

	t.Run("role field in the form is ignored", func(t *testing.T) {
		var gotRole models.Role = -1
		svc := &mockAuthService{
			registerFunc: func(ctx context.Context, username, password string, role models.Role) (*models.Session, error) {
				gotRole = role
				return session, nil
			},
		}
		handler := NewAuthHandler(svc, zap.NewNop())

		rec := httptest.NewRecorder()
		handler.Register(rec, formRequest(http.MethodPost, "/register", url.Values{
			"username": {"sneaky"},
			"password": {"pw"},
			"role":     {"1"},
		}))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, models.RoleUser, gotRole)
	})

	t.Run("duplicate username", func(t *testing.T) {
		svc := &mockAuthService{
			registerFunc: func(ctx context.Context, username, password string, role models.Role) (*models.Session, error) {
				return nil, models.ErrUsernameTaken
			},
		}
		handler := NewAuthHandler(svc, zap.NewNop())

		rec := httptest.NewRecorder()
		handler.Register(rec, formRequest(http.MethodPost, "/register", url.Values{
			"username": {"taken"},
			"password": {"pw"},
		}))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"username already exists"}`, rec.Body.String())
		assert.Nil(t, findSessionCookie(t, rec))
	})

	t.Run("missing fields", func(t *testing.T) {
		handler := NewAuthHandler(&mockAuthService{}, zap.NewNop())

		rec := httptest.NewRecorder()
		handler.Register(rec, formRequest(http.MethodPost, "/register", url.Values{"username": {"x"}}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	session := liveSession(models.RoleUser)

	t.Run("success clears the cookie", func(t *testing.T) {
		var loggedOut string
		svc := &mockAuthService{
			logoutFunc: func(ctx context.Context, sessionID string) error {
				loggedOut = sessionID
				return nil
			},
		}
		handler := NewAuthHandler(svc, zap.NewNop())
		store := &sessionStoreStub{session: session}

		req := httptest.NewRequest(http.MethodPost, "/logout", nil)
		req.AddCookie(sessionCookie(session.ID))
		rec := httptest.NewRecorder()

		middlewares.SessionMiddleware(store, zap.NewNop())(http.HandlerFunc(handler.Logout)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, session.ID, loggedOut)

		cookie := findSessionCookie(t, rec)
		require.NotNil(t, cookie)
		assert.Empty(t, cookie.Value)
		assert.Negative(t, cookie.MaxAge)
	})

	t.Run("no session", func(t *testing.T) {
		handler := NewAuthHandler(&mockAuthService{}, zap.NewNop())

		rec := httptest.NewRecorder()
		handler.Logout(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
